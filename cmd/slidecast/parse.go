package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/slidecast"
	"github.com/brunobiangulo/slidecast/export"
)

type parseResult struct {
	path string
	deck *slidecast.Deck
	err  error
}

func newParseCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		outDir string
		format string
	)

	cmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Parse presentations and print their slides without storing them",
		Long: `Parse one or more presentations concurrently and print each deck's slides.
With --out, each deck is written to <out>/<name>.<ext> in --format instead;
decks sharing a name get -2, -3... suffixes in argument order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fmtOut export.Format
			if outDir != "" {
				f, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				fmtOut = f
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("creating output dir: %w", err)
				}
			}

			results := parseAll(cmd, a.cfg, args)

			w := cmd.OutOrStdout()
			taken := make(map[string]bool)
			var failed int
			for _, r := range results {
				if r.err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", errorStyle.Render("FAIL"), r.path, r.err)
					continue
				}
				switch {
				case outDir != "":
					dest, err := writeExport(outDir, fmtOut, r.deck, taken)
					if err != nil {
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", errorStyle.Render("FAIL"), r.path, err)
						continue
					}
					fmt.Fprintf(w, "%s %s -> %s\n", successStyle.Render("OK"), r.path, dest)
				case asJSON:
					enc := json.NewEncoder(w)
					enc.SetIndent("", "  ")
					if err := enc.Encode(r.deck); err != nil {
						return err
					}
				default:
					renderDeck(w, r.deck)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print decks as JSON")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write each deck to this directory")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "file format with --out: json, markdown or xlsx")
	return cmd
}

// parseAll parses paths with at most cfg.Workers() in flight and returns
// results in argument order. Per-file errors are reported, not returned.
func parseAll(cmd *cobra.Command, cfg slidecast.Config, paths []string) []parseResult {
	opts := cfg.ParserOptions()
	results := make([]parseResult, len(paths))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(cfg.Workers())
	for i, path := range paths {
		g.Go(func() error {
			deck, err := slidecast.ParseFile(ctx, path, opts)
			results[i] = parseResult{path: path, deck: deck, err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

// writeExport writes deck into dir. taken holds the names already written
// in this run so decks sharing a base name do not overwrite each other.
func writeExport(dir string, format export.Format, deck *slidecast.Deck, taken map[string]bool) (string, error) {
	base := strings.TrimSuffix(deck.Filename, filepath.Ext(deck.Filename))
	dest := filepath.Join(dir, exportName(taken, base, format.Extension()))
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := export.Write(f, format, deck.ExportDeck()); err != nil {
		return "", err
	}
	return dest, f.Close()
}

// exportName returns <base>.<ext>, or <base>-2.<ext>, <base>-3.<ext> and so
// on when the name is taken, and marks the result taken.
func exportName(taken map[string]bool, base, ext string) string {
	name := base + "." + ext
	for n := 2; taken[name]; n++ {
		name = fmt.Sprintf("%s-%d.%s", base, n, ext)
	}
	taken[name] = true
	return name
}
