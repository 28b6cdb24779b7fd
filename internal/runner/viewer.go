package runner

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// viewerSpec describes how to drive one PDF viewer. Templates may use
// {pdf}, {source} and {line}.
type viewerSpec struct {
	open    []string
	refresh []string
	sync    []string
}

var viewers = map[string]viewerSpec{
	"skim": {
		open:    []string{"open", "-a", "Skim", "{pdf}"},
		refresh: []string{"osascript", "-e", `tell application "Skim" to revert (documents whose path is "{pdf}")`},
		sync:    []string{"/Applications/Skim.app/Contents/SharedSupport/displayline", "{line}", "{pdf}", "{source}"},
	},
	"texshop": {
		open:    []string{"open", "-a", "TeXShop", "{pdf}"},
		refresh: []string{"osascript", "-e", `tell application "TeXShop" to tell documents whose path is "{pdf}" to refreshpdf`},
	},
	"zathura": {
		open: []string{"zathura", "{pdf}"},
		sync: []string{"zathura", "--synctex-forward", "{line}:1:{source}", "{pdf}"},
	},
	"okular": {
		open: []string{"okular", "--unique", "{pdf}"},
		sync: []string{"okular", "--unique", "{pdf}#src:{line}{source}"},
	},
	"evince": {
		open: []string{"evince", "{pdf}"},
	},
}

// viewerFor returns the spec of a known viewer or a generic one that opens
// the PDF with the platform's launcher
func viewerFor(name string) viewerSpec {
	if spec, ok := viewers[strings.ToLower(name)]; ok {
		return spec
	}
	if runtime.GOOS == "darwin" {
		return viewerSpec{open: []string{"open", "-a", name, "{pdf}"}}
	}
	return viewerSpec{open: []string{name, "{pdf}"}}
}

func expand(template []string, pdf, source string, line int) Command {
	r := strings.NewReplacer("{pdf}", pdf, "{source}", source, "{line}", strconv.Itoa(line))
	args := make([]string, len(template))
	for i, t := range template {
		args[i] = r.Replace(t)
	}
	return Command{Name: args[0], Args: args[1:]}
}

// showPDF makes the PDF visible. The in-editor viewer gets a view record
// for the renderer; external viewers are refreshed when they support it
// and launched otherwise.
func (s *Supervisor) showPDF(ctx context.Context, st *RunState) error {
	pdf := st.Document.OutputPath("pdf")

	if !s.cfg.ExternalViewer() {
		// the pane only jumps to the PDF when there is nothing left to read
		open := st.Errors == 0 && (st.Warnings == 0 || !s.cfg.Viewer.KeepLogWindow)
		s.emit(viewRecord(pdf, open))
		return nil
	}

	spec := viewerFor(s.cfg.Viewer.Name)
	s.notice(fmt.Sprintf("Telling %s to show %s...", s.cfg.Viewer.Name, st.Document.Output("pdf")))
	if spec.refresh != nil {
		cmd := expand(spec.refresh, pdf, "", 0)
		cmd.Dir = st.Document.Dir
		if err := s.runQuiet(ctx, cmd); err == nil {
			return nil
		}
	}
	cmd := expand(spec.open, pdf, "", 0)
	cmd.Dir = st.Document.Dir
	if err := s.starter.Launch(ctx, cmd); err != nil {
		return fmt.Errorf("%s does not appear to be installed: %w", s.cfg.Viewer.Name, err)
	}
	return nil
}

// syncPDF moves the viewer to the PDF position of source:line
func (s *Supervisor) syncPDF(ctx context.Context, st *RunState, source string, line int) error {
	if !st.Synctex && !st.Packages.Uses("pdfsync") {
		return ErrSyncUnsupported
	}
	spec := viewerFor(s.cfg.Viewer.Name)
	if spec.sync == nil {
		s.notice(fmt.Sprintf("pdfsync is not supported for %s", s.cfg.Viewer.Name))
		return nil
	}
	if source == "" {
		source = st.Document.Path
	}
	cmd := expand(spec.sync, st.Document.OutputPath("pdf"), source, line)
	cmd.Dir = st.Document.Dir
	return s.starter.Launch(ctx, cmd)
}
