// Package link turns file locations from tool output into URLs an editor
// or browser can open.
package link

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// Scheme selects the URL form produced by a Linker
type Scheme string

const (
	// SchemeTxmt produces txmt://open links understood by TextMate
	SchemeTxmt Scheme = "txmt"

	// SchemeFile produces plain file:// URLs with a #L<n> fragment
	SchemeFile Scheme = "file"
)

// ErrUnknownScheme is returned for link schemes texwatch cannot produce
var ErrUnknownScheme = errors.New("unknown link scheme")

// ParseScheme validates a configured scheme name
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeTxmt, "":
		return SchemeTxmt, nil
	case SchemeFile:
		return SchemeFile, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, s)
	}
}

// Escape percent-encodes the bytes txmt URLs cannot carry raw: every byte
// from 0x80 up, space and the reserved characters / & % # ?
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 || strings.IndexByte(" /&%#?", c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Make builds the txmt link for path at line. A line below 1 is left out.
func Make(path string, line int) string {
	u := "txmt://open?url=file:%2F%2F" + Escape(path)
	if line > 0 {
		u += "&line=" + strconv.Itoa(line)
	}
	return u
}

// Resolve anchors a file reported relative to the tool's working directory
func Resolve(dir, file string) string {
	if file == "" || filepath.IsAbs(file) || dir == "" {
		return file
	}
	return filepath.Join(dir, file)
}

// Linker builds links for one working directory
type Linker struct {
	scheme Scheme
	dir    string
}

// New creates a Linker; an empty scheme means txmt
func New(scheme Scheme, dir string) (*Linker, error) {
	s, err := ParseScheme(string(scheme))
	if err != nil {
		return nil, err
	}
	return &Linker{scheme: s, dir: dir}, nil
}

// Link resolves file and renders it in the linker's scheme
func (l *Linker) Link(file string, line int) string {
	path := Resolve(l.dir, file)
	if path == "" {
		return ""
	}
	if l.scheme == SchemeFile {
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
		if line > 0 {
			u.Fragment = "L" + strconv.Itoa(line)
		}
		return u.String()
	}
	return Make(path, line)
}

// Scheme reports the scheme in use
func (l *Linker) Scheme() Scheme {
	return l.scheme
}
