package parser

import (
	"path/filepath"
	"regexp"
	"strings"
)

var fatalOccurred = regexp.MustCompile(`^\s*==> Fatal error occurred`)

// latexRules is the grammar of pdflatex/xelatex/lualatex run with
// -file-line-error-style. Order matters: the first match wins.
func latexRules(opts Options) []Rule {
	suffix := "tex"
	if ext := strings.TrimPrefix(filepath.Ext(opts.FileName), "."); ext != "" {
		suffix = regexp.QuoteMeta(ext)
	}

	return []Rule{
		NewRule(`^Document Class`, latexInfo),
		NewRule(`^.*?\((\./[^)]*?\.(?:tex|`+suffix+`)(?: |$))`, latexNewFile),
		NewRule(`^.*<use (.*?)>`, latexInclude),
		NewRule(`^Output written`, latexInfo),
		NewRule(`^LaTeX Warning:.*?input line (\d+)(?:\.|$)`, latexLineWarning),
		NewRule(`^LaTeX Warning:.*`, latexWarning),
		NewRule(`^([^:]*):(\d+):\s+(pdfTeX warning.*)`, latexFileLineWarning),
		NewRule(`^.*pdfTeX warning.*`, latexWarning),
		NewRule(`^LaTeX Font Warning:.*`, latexWarning),
		NewRule(`^Overfull.*wide`, latexBoxWarning),
		NewRule(`^Underfull.*badness`, latexBoxWarning),
		NewRule(`^([./\w\x{80}-\x{10FFFF}\- ]+(?:\.sty|\.tex|\.`+suffix+`)):(\d+):\s+(.*)`, latexError),
		NewRule(`^([^:]*):(\d+): LaTeX Error:(.*)`, latexError),
		NewRule(`^([^:]*):(\d+): (Emergency stop)`, latexError),
		NewRule(`^Runaway argument`, latexRunaway),
		NewRule(`^Transcript written on (.*)\.$`, latexFinish),
		NewRule(`^Error: pdflatex`, latexEngineError),
		NewRule(`^!.*`, latexOldStyleError),
		NewRule(`^\s+==>`, latexFatal),
	}
}

func latexInfo(g *Grammar, _ []string, line string) {
	g.Info(line)
}

func latexWarning(g *Grammar, _ []string, line string) {
	g.Warning(line)
}

func latexBoxWarning(g *Grammar, _ []string, line string) {
	g.BoxWarning(line)
}

func latexFatal(g *Grammar, _ []string, line string) {
	g.Fatal(line)
}

func latexNewFile(g *Grammar, m []string, _ string) {
	g.EnterFile(strings.TrimRight(m[1], " "))
	g.Emit(Record{
		Kind:     KindFile,
		Severity: SeverityInfo,
		Message:  "Processing: " + g.CurrentFile(),
		File:     g.CurrentFile(),
	})
}

func latexInclude(g *Grammar, m []string, _ string) {
	g.Emit(Record{Kind: KindInclude, Severity: SeverityInfo, Message: "Including: " + m[1]})
}

// latexLineWarning points at the file currently on top of the stack
func latexLineWarning(g *Grammar, m []string, line string) {
	g.WarningAt(g.CurrentFile(), atoi(m[1]), line)
}

func latexFileLineWarning(g *Grammar, m []string, _ string) {
	g.WarningAt(m[1], atoi(m[2]), m[3])
}

// latexError normalises the three file:line error shapes. An emergency
// stop ends the run.
func latexError(g *Grammar, m []string, _ string) {
	msg := strings.TrimSpace(m[3])
	g.ErrorAt(m[1], atoi(m[2]), msg)
	if strings.HasPrefix(msg, "Emergency stop") {
		g.Fatal("Emergency stop: the engine could not continue")
	}
}

// latexRunaway ends the run. The physical line after the match is kept as
// detail unless it is the engine's own fatal marker.
func latexRunaway(g *Grammar, _ []string, line string) {
	next, ok := g.ReadDetail()
	switch {
	case ok && fatalOccurred.MatchString(next):
		g.Error(line)
		g.Fatal(strings.TrimSpace(next))
	case ok && next != "":
		g.Error(line, next)
		g.Fatal("Runaway argument: the engine could not continue")
	default:
		g.Error(line)
		g.Fatal("Runaway argument: the engine could not continue")
	}
}

// latexEngineError inspects the physical line after the match: a fatal
// marker ends the run, anything else is kept as detail.
func latexEngineError(g *Grammar, _ []string, line string) {
	next, ok := g.ReadDetail()
	if ok && fatalOccurred.MatchString(next) {
		g.Error(line)
		g.Fatal(strings.TrimSpace(next))
		return
	}
	if ok && next != "" {
		g.Error(line, next)
		return
	}
	g.Error(line)
}

func latexFinish(g *Grammar, m []string, _ string) {
	logFile := strings.Trim(strings.TrimSpace(m[1]), `"`)
	g.SetLogFile(logFile)
	g.Emit(Record{
		Kind:     KindTranscript,
		Severity: SeverityInfo,
		Message:  "Complete transcript is in " + logFile,
		File:     logFile,
		Line:     1,
		Path:     g.absPath(logFile),
	})
	g.Finish()
}

// latexOldStyleError handles "! ..." lines from engines run without
// -file-line-error
func latexOldStyleError(g *Grammar, _ []string, line string) {
	if strings.Contains(line, "rror") {
		g.Error(line)
		return
	}
	g.Warning(line)
}
