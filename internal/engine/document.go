package engine

import (
	"path/filepath"
	"strings"
)

// Document is the file a run typesets, after root directives and the master
// override have been applied
type Document struct {
	// Path is absolute
	Path string

	// Dir is where every tool runs
	Dir string

	// Name is the base name passed to the tools
	Name string

	// Base is Name without its extension
	Base string

	Directives Directives
}

// Locate decides which file to typeset for the file being edited. A root
// directive wins over master, which wins over file itself. A relative master
// is taken relative to the edited file.
func Locate(file, master string) (*Document, error) {
	directives, err := FindDirectives(file)
	if err != nil {
		return nil, err
	}

	path := canonical(file)
	if root, ok := directives.Root(); ok {
		path = root
	} else if master != "" {
		if !filepath.IsAbs(master) {
			master = filepath.Join(filepath.Dir(path), master)
		}
		path = filepath.Clean(master)
	}

	name := filepath.Base(path)
	return &Document{
		Path:       path,
		Dir:        filepath.Dir(path),
		Name:       name,
		Base:       StripExtension(name),
		Directives: directives,
	}, nil
}

// HasExtension reports whether the typeset file has a suffix at all; TeX
// writes its log somewhere unexpected when it does not
func (d *Document) HasExtension() bool {
	return d.Name != d.Base
}

// Output names a sibling artifact such as the .log or .pdf
func (d *Document) Output(ext string) string {
	return d.Base + "." + ext
}

// OutputPath is Output anchored at the document's directory
func (d *Document) OutputPath(ext string) string {
	return filepath.Join(d.Dir, d.Output(ext))
}

// StripExtension cuts name at its last dot unless the dot leads the name
func StripExtension(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
