// Package testutil holds helpers shared by the cardscan test suites.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// GetProjectRoot walks up from this source file to the directory holding
// go.mod.
func GetProjectRoot() (string, error) {
	_, self, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("testutil: caller unknown")
	}
	start := filepath.Dir(self)
	for dir := start; ; dir = filepath.Dir(dir) {
		if FileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}
		if filepath.Dir(dir) == dir {
			return "", fmt.Errorf("testutil: no go.mod above %s", start)
		}
	}
}

// EnsureDir creates path and its parents.
func EnsureDir(path string) error { return os.MkdirAll(path, 0o750) }

// FileExists reports whether anything exists at path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// DirExists reports whether path is a directory.
func DirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// ValidateProjectRoot checks that root is the cardscan module.
func ValidateProjectRoot(root string) error {
	for _, want := range []string{"go.mod", "internal", filepath.Join("cmd", "cardscan")} {
		if !FileExists(filepath.Join(root, want)) {
			return fmt.Errorf("testutil: %s missing under %s", want, root)
		}
	}
	return nil
}

// GetProjectRootValidated is GetProjectRoot followed by ValidateProjectRoot.
func GetProjectRootValidated() (string, error) {
	root, err := GetProjectRoot()
	if err != nil {
		return "", err
	}
	if err := ValidateProjectRoot(root); err != nil {
		return "", err
	}
	return root, nil
}
