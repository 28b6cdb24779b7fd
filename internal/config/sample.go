package config

// SampleConfig returns a fully commented configuration file
func SampleConfig() string {
	return `# texwatch configuration
version: "1.0"

engine:
  # pdflatex, xelatex, lualatex or latex. A "%!TEX TS-program" directive in
  # the document, or packages such as fontspec or pstricks, take precedence.
  name: pdflatex
  # extra arguments after -interaction=nonstopmode -file-line-error-style
  options: ""
  # directory whose tex/ subtree is appended to TEXINPUTS
  support_dir: ""

build:
  use_latexmk: false
  # file to typeset instead of the one being edited
  master: ""
  # echo tool output that no grammar rule classified
  verbose: false
  # stop the bibtex/makeindex/typeset schedule after a fatal stage
  abort_on_fatal: true
  # count overfull/underfull boxes as warnings
  count_box_warnings: false
  # column at which the engine wraps its terminal output, including newline
  wrap_width: 80
  # keep the last run in <document>.texwatch.jsonl for "texwatch last"
  history: true

viewer:
  # TextMate keeps the PDF in the editor; Skim, zathura, okular, evince,
  # Preview or any program name opens it externally
  name: TextMate
  auto_view: true
  keep_log_window: true

output:
  format: text        # text, html or json
  color_mode: auto    # auto, always or never
  link_scheme: txmt   # txmt or file
  theme: default      # default, high-contrast or minimal

watch:
  # empty means typeset, or latexmk when build.use_latexmk is set
  action: ""
  debounce: 300ms
  extensions: [".tex", ".bib", ".sty", ".cls"]

debug: false
`
}

// MinimalSampleConfig returns a compact configuration file
func MinimalSampleConfig() string {
	return `engine:
  name: pdflatex
viewer:
  name: TextMate
  auto_view: true
output:
  format: text
`
}
