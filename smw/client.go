// Package smw queries the Semantic MediaWiki ask API and turns its paginated,
// typed JSON responses into page records.
//
// See https://www.semantic-mediawiki.org/wiki/Help:API:ask
package smw

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/olgasafonova/smw-ask-mcp-server/metrics"
	"github.com/olgasafonova/smw-ask-mcp-server/tracing"
)

// API issues a single MediaWiki API action and returns the raw JSON body.
// Implementations report API level errors themselves.
type API interface {
	Request(ctx context.Context, params url.Values) ([]byte, error)
}

// Client runs ask queries against one wiki.
// It holds no per-query state; concurrent use is as safe as the API it wraps.
type Client struct {
	api    API
	opts   Options
	logger *slog.Logger
}

// NewClient creates a query client on top of the given API
func NewClient(api API, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:    api,
		opts:   opts.normalized(),
		logger: logger,
	}
}

// Options returns the client's query options
func (c *Client) Options() Options {
	return c.opts
}

// EffectiveLimit resolves the limit of a query: an explicit positive limit
// wins, then a "|limit=" argument of the query, else unlimited (0).
// Ask handles an extracted "|limit=0" before calling it.
func EffectiveLimit(query string, limit int) int {
	if limit > 0 {
		return limit
	}
	if n, ok := OuterArgumentValue("limit", query); ok {
		return n
	}
	return 0
}

// Ask runs the query and returns all raw responses. With a division factor
// of 1 the query is paginated and an overflow returns the partial responses;
// otherwise the query is partitioned by the split property.
func (c *Client) Ask(ctx context.Context, ask string, limit int) ([]Response, error) {
	query := FixAsk(ask)
	if limit <= 0 {
		if n, ok := OuterArgumentValue("limit", query); ok && n == 0 {
			// the wiki answers |limit=0 with no rows
			c.logger.Debug("Query asks for no results", "query", query)
			return nil, nil
		}
	}
	limit = EffectiveLimit(query, limit)

	strategy := "paginate"
	if c.opts.DivisionFactor > 1 {
		strategy = "partition"
	}

	ctx, span := tracing.StartAskSpan(ctx, query, strategy, c.opts.DivisionFactor, limit)

	var (
		responses []Response
		overflow  Overflow
		err       error
	)
	if strategy == "partition" {
		responses, err = c.AskPartitionQuery(ctx, query, limit)
	} else {
		var p Pagination
		p, err = c.AskForAllResults(ctx, query, limit)
		responses, overflow = p.Responses, p.Overflow
		switch overflow {
		case OverflowNone:
		case OverflowLimitReached:
			c.logger.Debug("Query limit reached", "query", query, "limit", limit)
		default:
			c.logger.Warn("Query result size exceeded, returning partial results",
				"query", query,
				"reason", overflow.String(),
				"responses", len(responses),
				"results", p.ResultCount())
		}
	}
	metrics.AskResponses.WithLabelValues(strategy).Add(float64(len(responses)))
	span.Finish(len(responses), countResults(responses), string(overflow), err)
	return responses, err
}

// Query runs the ask query and merges every response into one result set
// keyed by page title. A later page with an already seen title replaces the
// earlier record.
func (c *Client) Query(ctx context.Context, ask string, limit int) (*ResultSet, error) {
	responses, err := c.Ask(ctx, ask, limit)
	if err != nil {
		return nil, err
	}
	return c.Merge(responses)
}

// Merge deserializes and merges raw responses into one result set
func (c *Client) Merge(responses []Response) (*ResultSet, error) {
	merged := NewResultSet()
	for _, resp := range responses {
		rs, err := Deserialize(resp, c.opts.Debug, c.logger)
		if err != nil {
			return nil, err
		}
		for _, title := range merged.Merge(rs) {
			metrics.TitleCollisions.Inc()
			c.logger.Warn("Page title seen twice, later record wins", "title", title)
		}
	}
	metrics.AskPages.Add(float64(merged.Len()))
	return merged, nil
}

// RawQuery sends the normalized query once, without pagination
func (c *Client) RawQuery(ctx context.Context, ask string) (Response, error) {
	return c.ask(ctx, FixAsk(ask))
}

// PageTitles returns the titles of the matching pages, or the distinct
// values of pageField when it is set.
func (c *Client) PageTitles(ctx context.Context, ask, pageField string, limit int) ([]string, error) {
	rs, err := c.Query(ctx, ask, limit)
	if err != nil {
		return nil, err
	}
	if pageField == "" {
		return rs.Titles(), nil
	}
	return rs.Distinct(pageField), nil
}

// Info holds the statistics returned by action=smwinfo
type Info struct {
	PropCount         int `json:"propcount"`
	UsedPropCount     int `json:"usedpropcount"`
	DeclaredPropCount int `json:"declaredpropcount"`
	PropPageCount     int `json:"proppagecount"`
	QueryCount        int `json:"querycount"`
	QuerySize         int `json:"querysize"`
	ConceptCount      int `json:"conceptcount"`
	SubobjectCount    int `json:"subobjectcount"`
	ErrorCount        int `json:"errorcount"`
}

// Info fetches the wiki's SMW statistics.
// See https://www.semantic-mediawiki.org/wiki/Help:API:smwinfo
func (c *Client) Info(ctx context.Context) (*Info, error) {
	params := url.Values{}
	params.Set("action", "smwinfo")

	data, err := c.api.Request(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("smwinfo request failed: %w", err)
	}
	var body struct {
		Info *Info `json:"info"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("failed to parse smwinfo response: %w", err)
	}
	if body.Info == nil {
		return nil, &MalformedResponseError{Missing: "info"}
	}
	return body.Info, nil
}

func countResults(responses []Response) int {
	n := 0
	for _, r := range responses {
		n += r.ResultCount()
	}
	return n
}
