package parser

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Definition describes a tool grammar: its rule table and the extension of
// the log file a failed run points the user to
type Definition struct {
	Rules  func(opts Options) []Rule
	LogExt string
}

// Factory creates grammars for registered tools
type Factory interface {
	// NewGrammar creates a grammar for tool reading from in
	NewGrammar(tool Tool, in *LineReader, sink Sink, opts Options) (*Grammar, error)

	// Register adds or replaces the definition of a tool
	Register(tool Tool, def Definition)

	// Tools lists the registered tools
	Tools() []Tool
}

// DefaultFactory knows every grammar shipped with texwatch
var DefaultFactory = NewFactory()

// grammarFactory implements the Factory interface
type grammarFactory struct {
	defs map[Tool]Definition
	mu   sync.RWMutex
}

// NewFactory creates a factory with the built-in grammars registered
func NewFactory() Factory {
	f := &grammarFactory{
		defs: make(map[Tool]Definition),
	}

	f.Register(ToolLatex, Definition{Rules: latexRules, LogExt: "log"})
	f.Register(ToolBibtex, Definition{Rules: bibtexRules, LogExt: "blg"})
	f.Register(ToolMakeindex, Definition{Rules: makeindexRules, LogExt: "ilg"})
	f.Register(ToolLatexmk, Definition{Rules: latexmkRules, LogExt: "log"})
	f.Register(ToolChktex, Definition{Rules: chktexRules})

	return f
}

// NewGrammar builds a fresh grammar; rule tables are instantiated per
// invocation because some patterns depend on the document's extension
func (f *grammarFactory) NewGrammar(tool Tool, in *LineReader, sink Sink, opts Options) (*Grammar, error) {
	f.mu.RLock()
	def, ok := f.defs[Tool(strings.ToLower(string(tool)))]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", tool)
	}
	if in == nil {
		return nil, fmt.Errorf("no input stream for %s", tool)
	}

	g := &Grammar{
		tool:    tool,
		def:     def,
		factory: f,
		in:      in,
		sink:    sink,
		opts:    opts,
	}
	if def.Rules != nil {
		g.rules = def.Rules(opts)
	}
	return g, nil
}

// Register adds or replaces a tool definition
func (f *grammarFactory) Register(tool Tool, def Definition) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.defs[Tool(strings.ToLower(string(tool)))] = def
}

// Tools lists registered tools in name order
func (f *grammarFactory) Tools() []Tool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	tools := make([]Tool, 0, len(f.defs))
	for t := range f.defs {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i] < tools[j] })
	return tools
}
