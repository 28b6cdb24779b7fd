package parser

import (
	"fmt"
)

// latexmkRules is the grammar of the latexmk driver. Banners of the tools
// it runs hand the stream over to the matching nested grammar.
func latexmkRules(Options) []Rule {
	return []Rule{
		NewRule(`^This is (?:pdfTeXk?|XeTeXk?|LuaHBTeX|LuaTeX|e-TeX|TeX|latex2e|latex)\b`, startNested(ToolLatex)),
		NewRule(`^This is BibTeX`, startNested(ToolBibtex)),
		NewRule(`^Latexmk: All targets \(.*?\) are up-to-date`, latexmkFinish),
		NewRule(`^This is makeindex`, startNested(ToolMakeindex)),
		NewRule(`^Latexmk`, latexmkNotice),
		NewRule(`^Run number`, latexmkNewRun),
	}
}

func startNested(tool Tool) Handler {
	return func(g *Grammar, _ []string, line string) {
		g.Emit(Record{Kind: KindToolStart, Severity: SeverityInfo, Tool: tool, Message: line})
		if _, err := g.RunNested(tool); err != nil {
			g.Error(fmt.Sprintf("cannot follow %s output: %v", tool, err))
		}
	}
}

func latexmkNotice(g *Grammar, _ []string, line string) {
	g.Emit(Record{Kind: KindDriver, Severity: SeverityInfo, Message: line})
}

func latexmkFinish(g *Grammar, m []string, line string) {
	latexmkNotice(g, m, line)
	g.Finish()
}

func latexmkNewRun(g *Grammar, _ []string, _ string) {
	g.NewRun()
}
