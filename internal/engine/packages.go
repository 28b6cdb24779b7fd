package engine

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	inputPattern  = regexp.MustCompile(`^[^%]*?(?:\\input|\\include)\{([\w /.\-]+)\}`)
	usePkgPattern = regexp.MustCompile(`^[^%]*?\\usepackage(?:\[[\w, \-]+\])?\{([\w,\-]+)\}`)
	beginPattern  = regexp.MustCompile(`^[^%]*?\\begin\{document\}`)
)

// Packages lists the packages a document loads
type Packages []string

// Uses reports whether any of names is loaded
func (p Packages) Uses(names ...string) bool {
	for _, name := range names {
		for _, pkg := range p {
			if pkg == name {
				return true
			}
		}
	}
	return false
}

// FindPackages scans the preamble of name and of the files it inputs before
// \begin{document}. Included files are only read one level deep, since the
// preamble rarely goes further. Included files that cannot be read are
// returned in skipped rather than failing the scan.
func FindPackages(dir, name string) (pkgs Packages, skipped []string, err error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, fmt.Errorf("checking packages: %w", err)
	}
	defer func() { _ = f.Close() }()

	var includes, found []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if beginPattern.MatchString(line) {
			break
		}
		if m := inputPattern.FindStringSubmatch(line); m != nil {
			includes = append(includes, m[1])
		} else if m := usePkgPattern.FindStringSubmatch(line); m != nil {
			found = append(found, m[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("checking packages in %s: %w", name, err)
	}

	for _, inc := range includes {
		if !strings.Contains(inc, ".tex") {
			inc += ".tex"
		}
		pkgsInFile, begin, err := scanInclude(filepath.Join(dir, inc))
		if err != nil {
			skipped = append(skipped, inc)
			continue
		}
		found = append(found, pkgsInFile...)
		if begin {
			break
		}
	}

	for _, group := range found {
		for _, pkg := range strings.Split(group, ",") {
			if pkg = strings.TrimSpace(pkg); pkg != "" {
				pkgs = append(pkgs, pkg)
			}
		}
	}
	return pkgs, skipped, nil
}

// scanInclude reads a whole included file; begin reports whether the
// document body starts in it
func scanInclude(path string) (found []string, begin bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if m := usePkgPattern.FindStringSubmatch(line); m != nil {
			found = append(found, m[1])
		}
		if beginPattern.MatchString(line) {
			begin = true
		}
	}
	return found, begin, scanner.Err()
}
