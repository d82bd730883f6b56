package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/olgasafonova/smw-ask-mcp-server/smw"
	"github.com/olgasafonova/smw-ask-mcp-server/wiki"
)

// run holds the outcome of one complete query
type run struct {
	duration time.Duration
	pages    int
	err      error
}

// summary condenses the runs of one strategy
type summary struct {
	label  string
	runs   int
	failed int
	pages  int
	mean   float64
	p50    float64
	p95    float64
	max    float64
}

// measure runs the query iterations times, at most parallel at once
func measure(ctx context.Context, client *smw.Client, query string, iterations, parallel int) []run {
	runs := make([]run, iterations)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i := range runs {
		g.Go(func() error {
			start := time.Now()
			rs, err := client.Query(ctx, query, 0)
			runs[i] = run{duration: time.Since(start), err: err}
			if err == nil {
				runs[i].pages = rs.Len()
			}
			return nil
		})
	}
	_ = g.Wait()
	return runs
}

// summarize computes latency percentiles in milliseconds over the successful runs
func summarize(label string, runs []run) (summary, error) {
	s := summary{label: label, runs: len(runs)}
	var latencies stats.Float64Data
	for _, r := range runs {
		if r.err != nil {
			s.failed++
			continue
		}
		s.pages = r.pages
		latencies = append(latencies, float64(r.duration.Microseconds())/1000)
	}
	if len(latencies) == 0 {
		return s, fmt.Errorf("%s: every run failed", label)
	}

	var err error
	if s.mean, err = stats.Mean(latencies); err != nil {
		return s, err
	}
	if s.p50, err = stats.Percentile(latencies, 50); err != nil {
		return s, err
	}
	if s.p95, err = stats.Percentile(latencies, 95); err != nil {
		return s, err
	}
	if s.max, err = stats.Max(latencies); err != nil {
		return s, err
	}
	return s, nil
}

func printSummary(w io.Writer, s summary) {
	_, _ = fmt.Fprintf(w, "%-10s runs=%d failed=%d pages=%s mean=%sms p50=%sms p95=%sms max=%sms\n",
		s.label, s.runs, s.failed,
		humanize.Comma(int64(s.pages)),
		humanize.CommafWithDigits(s.mean, 1),
		humanize.CommafWithDigits(s.p50, 1),
		humanize.CommafWithDigits(s.p95, 1),
		humanize.CommafWithDigits(s.max, 1))
}

func main() {
	query := flag.String("query", "[[Modification date::+]]|?Modification date|limit=500", "ask query to measure")
	iterations := flag.Int("n", 5, "runs per strategy")
	parallel := flag.Int("parallel", 1, "runs in flight at once")
	division := flag.Int("division", 10, "windows for the partitioned run")
	flag.Parse()

	config, err := wiki.LoadConfig()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	api := wiki.NewClient(config, logger)
	ctx := context.Background()

	fmt.Println("SMW Ask - Paginated vs Partitioned Query Latency")
	fmt.Println("================================================")
	fmt.Printf("wiki:  %s\nquery: %s\n\n", config.BaseURL, smw.FixAsk(*query))

	opts := smw.LoadOptions()
	strategies := []struct {
		label    string
		division int
	}{
		{"paginate", 1},
		{"partition", *division},
	}

	failed := false
	for _, st := range strategies {
		opts.DivisionFactor = st.division
		client := smw.NewClient(api, opts, logger)

		s, err := summarize(st.label, measure(ctx, client, *query, *iterations, *parallel))
		if err != nil {
			fmt.Printf("%v\n", err)
			failed = true
			continue
		}
		printSummary(os.Stdout, s)
	}
	if failed {
		os.Exit(1)
	}
}
