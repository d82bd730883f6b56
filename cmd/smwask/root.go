package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/olgasafonova/smw-ask-mcp-server/smw"
	"github.com/olgasafonova/smw-ask-mcp-server/wiki"
)

// app carries the global flags shared by every subcommand
type app struct {
	configPath string
	wikiName   string
	debug      bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "smwask",
		Short: "Run Semantic MediaWiki ask queries from the command line",
		Long: `smwask runs Semantic MediaWiki ask queries and prints the complete result,
following query-continue offsets and optionally splitting large queries into
modification date windows.

Wikis are configured in a TOML file (default ` + DefaultConfigPath() + `)
or through the MEDIAWIKI_URL, MEDIAWIKI_USERNAME and MEDIAWIKI_PASSWORD
environment variables.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&a.wikiName, "wiki", "s", "", "wiki profile from the config file")
	root.PersistentFlags().StringVar(&a.configPath, "config", DefaultConfigPath(), "path to the config file")
	root.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "log every API request and deserialized value")

	root.AddCommand(
		newQueryCmd(a),
		newTitlesCmd(a),
		newInfoCmd(a),
		newNormalizeCmd(),
		newWikisCmd(a),
	)
	return root
}

func (a *app) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if a.debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// client builds a query client for the selected wiki. division > 0
// overrides the profile's division factor.
func (a *app) client(cmd *cobra.Command, division int, progress bool) (*smw.Client, error) {
	cfg, err := LoadConfig(a.configPath)
	if err != nil {
		return nil, err
	}
	wikiCfg, opts, err := cfg.Resolve(a.wikiName, a.configPath)
	if err != nil {
		return nil, err
	}

	if division > 0 {
		opts.DivisionFactor = division
	}
	opts.Progress = nil
	if progress {
		opts.Progress = cmd.ErrOrStderr()
	}
	opts.Debug = opts.Debug || a.debug

	logger := a.logger(cmd)
	return smw.NewClient(wiki.NewClient(wikiCfg, logger), opts, logger), nil
}

// readQuery takes the query from the argument, or from stdin when the
// argument is missing or "-"
func readQuery(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return "", fmt.Errorf("no query given: pass it as an argument or pipe it to stdin")
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read query from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// defaultProgress shows request progress only when stderr is a terminal
func defaultProgress() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}
