package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olgasafonova/smw-ask-mcp-server/internal/ask"
	apierrors "github.com/olgasafonova/smw-ask-mcp-server/internal/errors"
	"github.com/olgasafonova/smw-ask-mcp-server/smw"
)

const formatTitles = "titles"

var queryFormats = []string{ask.FormatJSON, ask.FormatYAML, ask.FormatCSV, ask.FormatTable, formatTitles}

func newQueryCmd(a *app) *cobra.Command {
	var (
		limit    int
		division int
		format   string
		entity   string
		output   string
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "query [ask]",
		Short: "Run an ask query and print every result",
		Example: `  smwask query '[[Category:City]]|?Population|mainlabel=City' --format csv
  echo '{{#ask: [[IsA::Event]] |?Title |?Year }}' | smwask query -s cr --division 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQuery(cmd, args)
			if err != nil {
				return err
			}
			if err := ask.ValidateQuery(query); err != nil {
				return err
			}
			format = strings.ToLower(format)
			if !isQueryFormat(format) {
				return apierrors.NewValidationError("format", format, "must be one of "+strings.Join(queryFormats, ", "))
			}

			client, err := a.client(cmd, division, progress)
			if err != nil {
				return err
			}
			rs, err := client.Query(cmd.Context(), query, limit)
			if progress {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}

			var text string
			if format == formatTitles {
				text = lines(rs.Titles())
			} else if text, err = ask.Format(rs, format, entity); err != nil {
				return err
			}
			return writeOutput(cmd, output, text)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (default: the query's |limit=, else all)")
	cmd.Flags().IntVar(&division, "division", 0, "split the query into this many modification date windows")
	cmd.Flags().StringVar(&format, "format", ask.FormatJSON, "output format: "+strings.Join(queryFormats, ", "))
	cmd.Flags().StringVar(&entity, "entity", ask.DefaultEntityName, "name of the queried entities, the top level key of json and yaml output")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to this file instead of stdout")
	cmd.Flags().BoolVarP(&progress, "progress", "p", defaultProgress(), "print a dot per API request to stderr")
	return cmd
}

func newTitlesCmd(a *app) *cobra.Command {
	var (
		pageField string
		limit     int
		division  int
	)

	cmd := &cobra.Command{
		Use:   "titles [ask]",
		Short: "List the pages matching an ask query",
		Long: `List the titles of the pages matching an ask query, one per line.
With --page-field the distinct values of that printout are listed instead,
e.g. the cities of a set of events.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQuery(cmd, args)
			if err != nil {
				return err
			}
			if err := ask.ValidateQuery(query); err != nil {
				return err
			}
			client, err := a.client(cmd, division, false)
			if err != nil {
				return err
			}
			titles, err := client.PageTitles(cmd.Context(), query, pageField, limit)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), lines(titles))
			return err
		},
	}

	cmd.Flags().StringVar(&pageField, "page-field", "", "printout label whose distinct values to list")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results")
	cmd.Flags().IntVar(&division, "division", 0, "split the query into this many modification date windows")
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the Semantic MediaWiki statistics of a wiki",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd, 0, false)
			if err != nil {
				return err
			}
			info, err := client.Info(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [ask]",
		Short: "Show the query as it will be sent to the wiki",
		Long: `Print the normalized form of an ask query without contacting a wiki:
parser function wrappers are removed, line breaks become parameter
separators. The concept and effective limit are shown when present.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQuery(cmd, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, smw.FixAsk(query))
			if concept, ok := smw.Concept(query); ok {
				_, _ = fmt.Fprintf(out, "concept: %s\n", concept)
			}
			if limit := smw.EffectiveLimit(smw.FixAsk(query), 0); limit > 0 {
				_, _ = fmt.Fprintf(out, "limit: %d\n", limit)
			}
			return nil
		},
	}
}

func newWikisCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "wikis",
		Short: "List the wikis configured in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cfg.Wikis) == 0 {
				_, _ = fmt.Fprintf(out, "no wikis configured in %s\n", a.configPath)
				return nil
			}
			for _, name := range cfg.Names() {
				marker := " "
				if name == cfg.Default {
					marker = "*"
				}
				_, _ = fmt.Fprintf(out, "%s %s\t%s\n", marker, name, cfg.Wikis[name].URL)
			}
			return nil
		},
	}
}

func isQueryFormat(format string) bool {
	for _, f := range queryFormats {
		if f == format {
			return true
		}
	}
	return false
}

func lines(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return strings.Join(items, "\n") + "\n"
}

// writeOutput writes text to path, or to stdout when path is empty
func writeOutput(cmd *cobra.Command, path, text string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
