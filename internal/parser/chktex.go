package parser

// chktexRules is the grammar of chktex. Each finding is followed by the
// offending source line and a marker line.
func chktexRules(Options) []Rule {
	return []Rule{
		NewRule(`^ChkTeX`, latexInfo),
		NewRule(`^Warning \d+ in (.*\.tex) line (\d+):(.*)`, chktexWarning),
		NewRule(`^Error \d+ in (.*\.tex) line (\d+):(.*)`, chktexError),
		NewRule(`^(?:No|\d+) errors? printed;`, chktexFinish),
	}
}

func chktexWarning(g *Grammar, m []string, _ string) {
	var detail []string
	// an empty or near-empty first line means there is no excerpt
	if first, ok := g.ReadDetail(); ok && len(first) > 1 {
		detail = append(detail, first)
		if second, ok := g.ReadDetail(); ok {
			detail = append(detail, second)
		}
	}
	g.WarningAt(m[1], atoi(m[2]), m[3], detail...)
}

func chktexError(g *Grammar, m []string, _ string) {
	var detail []string
	for i := 0; i < 2; i++ {
		next, ok := g.ReadDetail()
		if !ok {
			break
		}
		detail = append(detail, next)
	}
	g.ErrorAt(m[1], atoi(m[2]), m[3], detail...)
}

func chktexFinish(g *Grammar, _ []string, line string) {
	g.Info(line)
	g.Finish()
}
