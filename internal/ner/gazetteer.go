package ner

import (
	"bufio"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"golang.org/x/text/cases"
)

//go:embed given_names.txt
var givenNames string

var honorifics = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "miss": true,
	"prof": true, "sri": true, "shri": true, "smt": true,
}

const (
	minNameTokens = 2
	maxNameTokens = 4
)

// Gazetteer is an offline recognizer. A text is a person when it holds two
// to four capitalised words, optionally after an honorific, and the first
// word is a known given name.
type Gazetteer struct {
	mu    sync.RWMutex
	names map[string]bool
}

// NewGazetteer returns a gazetteer loaded with the built-in given names.
func NewGazetteer() *Gazetteer {
	g := &Gazetteer{names: make(map[string]bool)}
	// The embedded list cannot fail to read.
	_ = g.readNames(strings.NewReader(givenNames))
	return g
}

// AddNames adds given names to the gazetteer.
func (g *Gazetteer) AddNames(names ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			g.names[fold(n)] = true
		}
	}
}

// LoadNamesFile adds the names listed one per line in path.
func (g *Gazetteer) LoadNamesFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open names file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := g.readNames(f); err != nil {
		return fmt.Errorf("failed to read names file %s: %w", path, err)
	}
	return nil
}

func (g *Gazetteer) readNames(r io.Reader) error {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	g.AddNames(names...)
	return nil
}

// Len returns the number of known given names.
func (g *Gazetteer) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.names)
}

// Knows reports whether name is a known given name, ignoring case.
func (g *Gazetteer) Knows(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.names[fold(name)]
}

// DetectEntities implements card.EntityRecognizer.
func (g *Gazetteer) DetectEntities(ctx context.Context, text string) ([]card.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	toks := tokenize(text)
	if len(toks) > 0 && honorifics[fold(strings.TrimRight(toks[0].text, "."))] {
		toks = toks[1:]
	}
	if len(toks) < minNameTokens || len(toks) > maxNameTokens {
		return nil, nil
	}
	for _, t := range toks {
		if !capitalised(strings.TrimRight(t.text, ",;")) {
			return nil, nil
		}
	}
	if !g.Knows(strings.TrimRight(toks[0].text, ".,;")) {
		return nil, nil
	}

	start, end := toks[0].start, toks[len(toks)-1].end
	span := strings.TrimRight(text[start:end], ",;")
	return []card.Entity{{
		Text:  span,
		Label: card.LabelPerson,
		Start: start,
		End:   start + len(span),
	}}, nil
}

type token struct {
	text       string
	start, end int
}

func tokenize(s string) []token {
	var toks []token
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				toks = append(toks, token{text: s[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, token{text: s[start:], start: start, end: len(s)})
	}
	return toks
}

func capitalised(word string) bool {
	first, size := utf8.DecodeRuneInString(word)
	if size == 0 || !unicode.IsUpper(first) {
		return false
	}
	for _, r := range word[size:] {
		if !unicode.IsLetter(r) && !strings.ContainsRune(".-'", r) {
			return false
		}
	}
	return true
}

// fold returns the case-folded form of s. A Caser is stateful, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
