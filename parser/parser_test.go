package parser

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Registry tests
// ---------------------------------------------------------------------------

func TestRegistryBuiltInParsers(t *testing.T) {
	reg := NewRegistry(Options{})

	formats := []string{"tex", "latex", "ltx", "pdf", "pptx", "xlsx"}
	for _, format := range formats {
		t.Run(format, func(t *testing.T) {
			p, err := reg.Get(format)
			if err != nil {
				t.Fatalf("Get(%q) returned error: %v", format, err)
			}
			found := false
			for _, f := range p.SupportedFormats() {
				if f == format {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("parser for %q does not list %q in SupportedFormats(): %v",
					format, format, p.SupportedFormats())
			}
		})
	}
}

func TestRegistryUnknown(t *testing.T) {
	reg := NewRegistry(Options{})

	for _, format := range []string{"docx", "txt", "html", ""} {
		t.Run("format_"+format, func(t *testing.T) {
			p, err := reg.Get(format)
			if err == nil {
				t.Errorf("Get(%q) expected error for unknown format, got parser: %v", format, p)
			}
		})
	}
}

func TestRegistryCustomParser(t *testing.T) {
	reg := NewRegistry(Options{})

	if _, err := reg.Get("beamer"); err == nil {
		t.Fatal("expected error for unregistered format")
	}

	reg.Register("beamer", &LatexParser{})
	p, err := reg.Get("beamer")
	if err != nil {
		t.Fatalf("Get(\"beamer\") after Register returned error: %v", err)
	}
	if _, ok := p.(*LatexParser); !ok {
		t.Errorf("Get(\"beamer\") = %T, want *LatexParser", p)
	}
}
