package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/slidecast"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	dbPath     string
	verbose    bool
	cfg        slidecast.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "slidecast",
		Short: "Turn Beamer slide decks into ordered slide records",
		Long: `slidecast reads LaTeX Beamer sources (and compiled PDF, PPTX or script
workbooks) and produces the ordered slide list a narration pipeline consumes:
a title page, an outline, section markers and one record per frame.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			cfg, err := slidecast.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			if a.dbPath != "" {
				cfg.DBPath = a.dbPath
			}
			a.cfg = cfg
			return nil
		},
	}

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("slidecast %s\n", versionString()))

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (YAML or JSON)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		newParseCmd(a),
		newIngestCmd(a),
		newUpdateCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newSearchCmd(a),
		newExportCmd(a),
		newDeleteCmd(a),
		newVersionCmd(),
	)
	return root
}

// openEngine opens the configured store. Callers close it.
func (a *app) openEngine() (slidecast.Engine, error) {
	return slidecast.New(a.cfg)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "slidecast %s\n", versionString())
			return nil
		},
	}
}
