package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/testutil"
	"github.com/cucumber/godog"
)

const commandTimeout = 60 * time.Second

// RegisterCLISteps registers fixture and command steps.
func (testCtx *TestContext) RegisterCLISteps(sc *godog.ScenarioContext) {
	sc.Step(`^a card "([^"]*)" reading:$`, testCtx.aCardReading)
	sc.Step(`^a file "([^"]*)" containing:$`, testCtx.aFileContaining)
	sc.Step(`^the environment variable "([^"]*)" is "([^"]*)"$`, testCtx.theEnvironmentVariableIs)
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRun)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the error output should contain "([^"]*)"$`, testCtx.theErrorOutputShouldContain)
	sc.Step(`^the output JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theOutputJSONFieldShouldBe)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}

// aCardReading writes a fragments file whose lines are the rows of the
// table's first column, top to bottom.
func (testCtx *TestContext) aCardReading(name string, table *godog.Table) error {
	lines := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if len(row.Cells) == 0 {
			continue
		}
		lines = append(lines, row.Cells[0].Value)
	}
	_, err := testutil.WriteFragments(testCtx.Path(name), lines...)
	return err
}

func (testCtx *TestContext) aFileContaining(name string, doc *godog.DocString) error {
	path := testCtx.Path(name)
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(testCtx.expand(doc.Content)), 0o600)
}

func (testCtx *TestContext) theEnvironmentVariableIs(name, value string) error {
	testCtx.AddEnvVar(name, testCtx.expand(value))
	return nil
}

// iRun executes the cardscan binary. The command line starts with the
// program name, which is replaced by the built binary.
func (testCtx *TestContext) iRun(command string) error {
	args := strings.Fields(testCtx.expand(command))
	if len(args) == 0 || args[0] != "cardscan" {
		return fmt.Errorf("command must start with cardscan: %q", command)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, testCtx.BinaryPath, args[1:]...) //nolint:gosec // G204: test binary
	cmd.Dir = testCtx.TempDir
	cmd.Env = append(os.Environ(), "HOME="+testCtx.TempDir, "XDG_CONFIG_HOME="+testCtx.TempDir)
	cmd.Env = append(cmd.Env, testCtx.EnvVars...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	testCtx.LastCommand = command
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastExitCode = 0

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		testCtx.LastExitCode = exitErr.ExitCode()
	case err != nil:
		return fmt.Errorf("failed to run %q: %w", command, err)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command %q exited with %d\nstdout: %s\nstderr: %s",
			testCtx.LastCommand, testCtx.LastExitCode, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command %q succeeded unexpectedly\nstdout: %s", testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(want string) error {
	if !strings.Contains(testCtx.LastOutput, want) {
		return fmt.Errorf("output does not contain %q\noutput: %s", want, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unwanted string) error {
	if strings.Contains(testCtx.LastOutput, unwanted) {
		return fmt.Errorf("output contains %q\noutput: %s", unwanted, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theErrorOutputShouldContain(want string) error {
	if !strings.Contains(testCtx.LastStderr, want) {
		return fmt.Errorf("error output does not contain %q\nstderr: %s", want, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theOutputJSONFieldShouldBe(path, want string) error {
	return jsonFieldEquals(testCtx.LastOutput, path, want)
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if !testutil.FileExists(testCtx.Path(name)) {
		return fmt.Errorf("file %s does not exist", name)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, want string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), want) {
		return fmt.Errorf("file %s does not contain %q\ncontent: %s", name, want, data)
	}
	return nil
}

// jsonFieldEquals looks up a dotted path such as "cards.0.record.name" in
// the JSON document and compares its value. JSON null compares as "null".
func jsonFieldEquals(doc, path, want string) error {
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return fmt.Errorf("invalid JSON: %w\n%s", err, doc)
	}
	for _, key := range strings.Split(path, ".") {
		switch node := v.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return fmt.Errorf("field %q not found in %s", key, doc)
			}
			v = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return fmt.Errorf("index %q out of range in %s", key, doc)
			}
			v = node[i]
		default:
			return fmt.Errorf("cannot descend into %T at %q", v, key)
		}
	}

	got := "null"
	if v != nil {
		got = fmt.Sprint(v)
	}
	if got != want {
		return fmt.Errorf("field %s is %q, want %q", path, got, want)
	}
	return nil
}
