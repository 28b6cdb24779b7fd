package runner

import (
	"errors"
	"fmt"
	"strings"
)

// Action is a top-level request to the supervisor
type Action string

const (
	ActionTypeset Action = "typeset" // one engine pass
	ActionBuild   Action = "build"   // engine, bibtex, makeindex, engine, engine
	ActionBibtex  Action = "bibtex"
	ActionIndex   Action = "index"
	ActionLatexmk Action = "latexmk"
	ActionChktex  Action = "chktex"
	ActionView    Action = "view"
	ActionSync    Action = "sync"
	ActionClean   Action = "clean"
	ActionVersion Action = "version"
)

// Actions lists every action in menu order
var Actions = []Action{
	ActionTypeset, ActionBuild, ActionBibtex, ActionIndex, ActionLatexmk,
	ActionChktex, ActionView, ActionSync, ActionClean, ActionVersion,
}

// Exit statuses reported to the host editor
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitDismiss         = 200 // all clear, the results panel may close
	ExitSyncUnsupported = 206
	ExitRootCycle       = 255
)

var (
	// ErrInputNotFound means the document or a file it needs cannot be read
	ErrInputNotFound = errors.New("cannot locate input file")

	// ErrSyncUnsupported means neither synctex nor pdfsync is available
	ErrSyncUnsupported = errors.New("pdfsync.sty must be included or the engine must support synctex to use sync")

	// ErrUnknownAction is returned by ParseAction
	ErrUnknownAction = errors.New("unknown action")
)

// ParseAction accepts an action name; "latex" and "engine-version" are
// accepted as aliases
func ParseAction(s string) (Action, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "latex":
		return ActionTypeset, nil
	case "engine-version":
		return ActionVersion, nil
	}
	for _, a := range Actions {
		if string(a) == name {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// typesets reports whether the action produces a new PDF
func (a Action) typesets() bool {
	return a == ActionTypeset || a == ActionBuild || a == ActionLatexmk
}
