package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DirectiveLines is how far into a file %!TEX directives are honoured
const DirectiveLines = 20

// Directive keys texwatch acts on
const (
	DirectiveRoot     = "root"
	DirectiveProgram  = "TS-program"
	DirectiveOptions  = "TS-options"
	DirectiveEncoding = "encoding"
)

// ErrRootCycle is returned when %!TEX root directives point back at a file
// already in the chain
var ErrRootCycle = errors.New("loop in %!TEX root directives")

var directivePattern = regexp.MustCompile(`^%!TEX\s+([\w-]+)\s?=\s?(.*)`)

// Directives are the %!TEX key = value settings collected along a root chain.
// Later files in the chain override earlier ones.
type Directives map[string]string

// Root returns the file the chain ended at, if any root directive was seen
func (d Directives) Root() (string, bool) {
	root, ok := d[DirectiveRoot]
	return root, ok
}

// ScanDirectives reads the directives in the first DirectiveLines lines of r
func ScanDirectives(r io.Reader) Directives {
	d := Directives{}
	scanner := bufio.NewScanner(r)
	for i := 0; i < DirectiveLines && scanner.Scan(); i++ {
		m := directivePattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		d[m[1]] = strings.TrimRightFunc(m[2], isSpace)
	}
	return d
}

// FindDirectives collects the directives of file and follows root directives
// until a file without one. The returned root, if present, is absolute.
func FindDirectives(file string) (Directives, error) {
	current := canonical(file)
	chain := []string{current}
	result := Directives{}

	for {
		d, err := readDirectives(current)
		if err != nil {
			return nil, err
		}

		root, hasRoot := d.Root()
		delete(d, DirectiveRoot)
		for k, v := range d {
			result[k] = v
		}
		if !hasRoot || root == "" {
			return result, nil
		}

		next := root
		if !filepath.IsAbs(next) {
			next = filepath.Join(filepath.Dir(current), next)
		}
		next = canonical(next)
		for _, seen := range chain {
			if seen == next {
				return nil, fmt.Errorf("%w: %s", ErrRootCycle, strings.Join(append(chain, next), " -> "))
			}
		}
		chain = append(chain, next)
		result[DirectiveRoot] = next
		current = next
	}
}

func readDirectives(path string) (Directives, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading directives: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ScanDirectives(f), nil
}

// canonical makes path absolute and resolves symlinks when it exists
func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}
