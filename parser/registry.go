package parser

import "fmt"

type Registry struct {
	parsers map[string]Parser
}

func NewRegistry(opts Options) *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	// Register built-in parsers
	latex := &LatexParser{Options: opts}
	pdf := &PDFParser{Options: opts}
	pptx := &PPTXParser{Options: opts}
	xlsx := &XLSXParser{}

	for _, p := range []Parser{latex, pdf, pptx, xlsx} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("no parser for format: %s", format)
	}
	return p, nil
}

func (r *Registry) Register(format string, p Parser) {
	r.parsers[format] = p
}
