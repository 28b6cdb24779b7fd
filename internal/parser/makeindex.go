package parser

// makeindexRules has no tool specific shapes besides the closing transcript
// notice; everything else goes through the generic classifier.
func makeindexRules(Options) []Rule {
	return []Rule{
		NewRule(`^Transcript written in (.*)\.$`, makeindexFinish),
		NewRule(`^.*$`, Classify),
	}
}

func makeindexFinish(g *Grammar, m []string, line string) {
	g.SetLogFile(m[1])
	g.Info(line)
	g.Finish()
}
