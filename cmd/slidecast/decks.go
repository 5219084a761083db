package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/slidecast"
	"github.com/brunobiangulo/slidecast/export"
)

func newIngestCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Parse presentations and store their slides",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			var opts []slidecast.IngestOption
			if force {
				opts = append(opts, slidecast.WithForceReparse())
			}

			w := cmd.OutOrStdout()
			var failed int
			for _, r := range e.IngestAll(cmd.Context(), args, opts...) {
				if r.Error != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", errorStyle.Render("FAIL"), r.Path, r.Error)
					continue
				}
				fmt.Fprintf(w, "%s %s %s\n", successStyle.Render("OK"), r.Path, dimStyle.Render(fmt.Sprintf("(deck %d)", r.DeckID)))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-parse even if the file is unchanged")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update [FILE...]",
		Short: "Re-ingest stored decks whose files changed",
		Long:  "Re-ingest the named files if they changed, or every stored deck when no file is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			var results []slidecast.UpdateResult
			if len(args) == 0 {
				results, err = e.UpdateAll(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				for _, p := range args {
					changed, err := e.Update(cmd.Context(), p)
					results = append(results, slidecast.UpdateResult{Path: p, Changed: changed, Error: err})
				}
			}

			w := cmd.OutOrStdout()
			var failed int
			for _, r := range results {
				switch {
				case r.Error != nil:
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", errorStyle.Render("FAIL"), r.Path, r.Error)
				case r.Changed:
					fmt.Fprintf(w, "%s %s\n", successStyle.Render("UPDATED"), r.Path)
				default:
					fmt.Fprintf(w, "%s %s\n", dimStyle.Render("unchanged"), r.Path)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d updates failed", failed)
			}
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored decks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			decks, err := e.ListDecks(cmd.Context())
			if err != nil {
				return err
			}
			renderDeckList(cmd.OutOrStdout(), decks)
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a stored deck's slides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			deck, err := e.GetDeck(cmd.Context(), id)
			if err != nil {
				return err
			}
			renderDeck(cmd.OutOrStdout(), deck)
			return nil
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search slide titles and content across stored decks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			hits, err := e.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			renderHits(cmd.OutOrStdout(), hits)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Export a stored deck as JSON, Markdown or an xlsx script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == export.XLSX && output == "" {
				return fmt.Errorf("xlsx export needs --output")
			}

			e, err := a.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return e.Export(cmd.Context(), id, f, w)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, markdown or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a stored deck and its slides",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deck %d\n", successStyle.Render("deleted"), id)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid deck id %q", s)
	}
	return id, nil
}
