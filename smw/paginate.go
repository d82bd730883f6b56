package smw

import (
	"context"
	"fmt"
	"net/url"

	"github.com/olgasafonova/smw-ask-mcp-server/metrics"
)

// Overflow tells why a pagination stopped before the wiki ran out of results
type Overflow string

const (
	OverflowNone          Overflow = ""
	OverflowLimitReached  Overflow = "limit_reached"
	OverflowEmptyPage     Overflow = "empty_page"
	OverflowStalledOffset Overflow = "stalled_offset"
)

func (o Overflow) String() string {
	if o == OverflowNone {
		return "none"
	}
	return string(o)
}

// Pagination is the outcome of one continuation run: Complete when Overflow
// is OverflowNone, Overflowed with the partial responses otherwise.
type Pagination struct {
	Responses []Response
	Overflow  Overflow
}

// Overflowed reports whether the run stopped at the result ceiling
func (p Pagination) Overflowed() bool {
	return p.Overflow != OverflowNone
}

// ResultCount sums the pages over all responses
func (p Pagination) ResultCount() int {
	n := 0
	for _, r := range p.Responses {
		n += r.ResultCount()
	}
	return n
}

// Err converts an overflowed outcome into a ResultSizeExceededError
func (p Pagination) Err(query string) error {
	if !p.Overflowed() {
		return nil
	}
	return &ResultSizeExceededError{Query: query, Reason: p.Overflow, Responses: p.Responses}
}

// AskForAllResults follows query-continue-offset markers until the wiki
// reports no further results. A limit <= 0 means no limit.
//
// The run is reported as overflowed when a marker is still present but the
// limit is reached, the page came back empty, or the offset did not advance.
// Transport failures are returned as errors together with what was gathered.
func (c *Client) AskForAllResults(ctx context.Context, query string, limit int) (Pagination, error) {
	var (
		offset int
		count  int
		result Pagination
	)

	for {
		q := fmt.Sprintf("%s|offset=%d", query, offset)
		if limit > 0 {
			q = fmt.Sprintf("%s|limit=%d", q, limit-count)
		}

		resp, err := c.ask(ctx, q)
		if err != nil {
			return result, err
		}
		c.progress()

		result.Responses = append(result.Responses, resp)
		n := resp.ResultCount()
		count += n

		next, more := resp.ContinueOffset()
		if !more {
			return result, nil
		}

		switch {
		case limit > 0 && count >= limit:
			result.Overflow = OverflowLimitReached
		case n == 0:
			result.Overflow = OverflowEmptyPage
		case next <= offset:
			result.Overflow = OverflowStalledOffset
		}
		if result.Overflowed() {
			metrics.RecordOverflow(string(result.Overflow))
			c.logger.Debug("Pagination stopped",
				"reason", result.Overflow.String(),
				"offset", offset,
				"next_offset", next,
				"results", count)
			return result, nil
		}
		offset = next
	}
}

// ask issues a single action=ask request
func (c *Client) ask(ctx context.Context, query string) (Response, error) {
	params := url.Values{}
	params.Set("action", "ask")
	params.Set("query", query)

	c.logger.Debug("Ask request", "query", query)
	data, err := c.api.Request(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("ask request failed: %w", err)
	}
	return ParseResponse(data)
}

func (c *Client) progress() {
	if c.opts.Progress != nil {
		_, _ = fmt.Fprint(c.opts.Progress, ".")
	}
}
