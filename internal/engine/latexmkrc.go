package engine

import (
	"fmt"
	"os"
	"strings"
)

// WriteLatexmkRC writes a latexmkrc that makes latexmk run engine with opts.
// The caller owns the returned file and must remove it.
func WriteLatexmkRC(dir, engine string, opts []string) (string, error) {
	f, err := os.CreateTemp(dir, "texwatch-*.latexmkrc")
	if err != nil {
		return "", fmt.Errorf("creating latexmkrc: %w", err)
	}

	joined := strings.Join(opts, " ")
	_, err = fmt.Fprintf(f, "$latex = '%s';\n$pdflatex = '%s';\n",
		perlQuote("latex "+joined), perlQuote(engine+" "+joined))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing latexmkrc: %w", err)
	}
	return f.Name(), nil
}

// LatexmkArgs are the latexmk arguments for a forced build of file; the
// latex engine goes through PostScript
func LatexmkArgs(engine, rcFile, file string) []string {
	mode := "-pdf"
	if engine == "latex" {
		mode = "-pdfps"
	}
	return []string{mode, "-f", "-r", rcFile, file}
}

func perlQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
