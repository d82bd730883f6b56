package smw

import (
	"context"
	"fmt"
	"time"

	"github.com/olgasafonova/smw-ask-mcp-server/metrics"
)

// Defaults for the partitioning property. Modification date is set on
// practically every page and only grows, which spreads matches over time.
const (
	DefaultSplitProperty = "Modification date"
	DefaultSplitLabel    = "_mdate"

	boundLayout = "2006-01-02T15:04:05"
)

// SplitClause builds the ask fragments used to partition a query by a
// date valued property.
type SplitClause struct {
	Name  string // property name, e.g. "Modification date"
	Label string // printout label used by the bound probes
}

// DefaultSplitClause partitions by modification date
func DefaultSplitClause() SplitClause {
	return SplitClause{Name: DefaultSplitProperty, Label: DefaultSplitLabel}
}

// First returns the probe fragment selecting the first page by the property.
// Appending "|order=desc" turns it into a probe for the last page.
func (s SplitClause) First() string {
	return fmt.Sprintf("?%s=%s|sort=%s|limit=1", s.Name, s.Label, s.Name)
}

// QueryBounds restricts a query to the closed interval [start, end]
func (s SplitClause) QueryBounds(start, end time.Time) string {
	return fmt.Sprintf("[[%s:: >=%s]]|[[%s:: <=%s]]",
		s.Name, start.UTC().Format(boundLayout),
		s.Name, end.UTC().Format(boundLayout))
}

// Deserialize returns the property value of the first probe record
func (s SplitClause) Deserialize(records []Record) (time.Time, bool) {
	if len(records) == 0 {
		return time.Time{}, false
	}
	return records[0][s.Label].Time()
}

// Bounds is the closed time interval covered by a partitioned query
type Bounds struct {
	Lower time.Time
	Upper time.Time
}

// Windows divides b into n contiguous windows of equal width, truncated to
// whole seconds. The last window always ends at b.Upper. Intervals shorter
// than n seconds are not divided.
func (b Bounds) Windows(n int) []Bounds {
	if n < 1 {
		n = 1
	}
	width := (b.Upper.Sub(b.Lower) / time.Duration(n)).Truncate(time.Second)
	if width <= 0 {
		return []Bounds{b}
	}

	windows := make([]Bounds, n)
	for i := range windows {
		windows[i] = Bounds{
			Lower: b.Lower.Add(time.Duration(i) * width),
			Upper: b.Lower.Add(time.Duration(i+1) * width),
		}
	}
	windows[n-1].Upper = b.Upper
	return windows
}

// QueryBoundaries probes the first and last value of the split property for
// the query. ok is false when either probe finds nothing.
func (c *Client) QueryBoundaries(ctx context.Context, query string) (b Bounds, ok bool, err error) {
	lower, ok, err := c.probe(ctx, query, "asc")
	if err != nil || !ok {
		return Bounds{}, false, err
	}
	upper, ok, err := c.probe(ctx, query, "desc")
	if err != nil || !ok {
		return Bounds{}, false, err
	}
	if upper.Before(lower) {
		lower, upper = upper, lower
	}
	return Bounds{Lower: lower, Upper: upper}, true, nil
}

func (c *Client) probe(ctx context.Context, query, order string) (time.Time, bool, error) {
	split := c.opts.Split
	resp, err := c.ask(ctx, fmt.Sprintf("%s|%s|order=%s", query, split.First(), order))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("bound probe (%s) failed: %w", order, err)
	}
	rs, err := Deserialize(resp, c.opts.Debug, c.logger)
	if err != nil {
		return time.Time{}, false, err
	}
	t, ok := split.Deserialize(rs.Records())
	return t, ok, nil
}

// AskPartitionQuery splits the query into DivisionFactor time windows over
// the split property and paginates each window. A limit <= 0 means no limit.
//
// A window that overflows keeps its partial results and the next window is
// queried; overflowing windows are not divided further.
func (c *Client) AskPartitionQuery(ctx context.Context, query string, limit int) ([]Response, error) {
	bounds, ok, err := c.QueryBoundaries(ctx, query)
	if err != nil {
		return nil, err
	}
	if !ok {
		c.logger.Info("No bounds for partitioned query, nothing to fetch",
			"query", query,
			"property", c.opts.Split.Name)
		return nil, nil
	}

	var responses []Response
	remaining := limit
	// An interval shorter than DivisionFactor seconds yields a single window.
	windows := bounds.Windows(c.opts.DivisionFactor)
	for i, w := range windows {
		sub := query + "|" + c.opts.Split.QueryBounds(w.Lower, w.Upper)
		p, err := c.AskForAllResults(ctx, sub, remaining)
		if err != nil {
			return responses, err
		}
		metrics.RecordWindow(p.Overflowed())
		if p.Overflowed() && p.Overflow != OverflowLimitReached {
			c.logger.Warn("Partition window exceeded result limit, keeping partial results",
				"window", i+1,
				"windows", len(windows),
				"lower", w.Lower,
				"upper", w.Upper,
				"reason", p.Overflow.String(),
				"results", p.ResultCount())
		}
		responses = append(responses, p.Responses...)

		if limit > 0 {
			remaining -= p.ResultCount()
			if remaining <= 0 {
				break
			}
		}
	}
	return responses, nil
}
