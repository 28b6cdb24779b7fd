package parser

// bibtexRules is the grammar of a BibTeX run. Inside latexmk the dashed
// separator latexmk prints after the tool marks the end of its output.
func bibtexRules(Options) []Rule {
	return []Rule{
		NewRule(`^Warning--I didn't find a database entry`, latexWarning),
		NewRule(`^I found no \\\w+ command`, bibtexError),
		NewRule(`^I couldn't open style file`, bibtexError),
		NewRule(`^This is BibTeX`, latexInfo),
		NewRule(`^The style`, latexInfo),
		NewRule(`^Database`, latexInfo),
		NewRule(`^\(There (?:were|was) .*\)`, latexInfo),
		NewRule(`^---`, bibtexFinish),
	}
}

func bibtexError(g *Grammar, _ []string, line string) {
	g.Error(line)
}

func bibtexFinish(g *Grammar, _ []string, _ string) {
	g.Finish()
}
