package ask

import (
	"context"
	"strings"

	apierrors "github.com/olgasafonova/smw-ask-mcp-server/internal/errors"
	"github.com/olgasafonova/smw-ask-mcp-server/smw"
)

// MCP Tool wrapper methods
// These methods wrap the service with Args/Result types for MCP integration.

// AskMCP is the MCP wrapper for Query
func (s *Service) AskMCP(ctx context.Context, args AskArgs) (AskResult, error) {
	if err := ValidateQuery(args.Query); err != nil {
		return AskResult{}, err
	}
	if err := ValidateLimit(args.Limit); err != nil {
		return AskResult{}, err
	}
	if err := ValidateDivision(args.Division); err != nil {
		return AskResult{}, err
	}
	if err := ValidateFormat(args.Format); err != nil {
		return AskResult{}, err
	}

	rs, cached, err := s.Query(ctx, args.Query, args.Limit, args.Division)
	if err != nil {
		return AskResult{}, err
	}

	format := strings.ToLower(args.Format)
	if format == "" {
		format = FormatRecords
	}
	result := AskResult{
		Query:   smw.FixAsk(args.Query),
		Count:   rs.Len(),
		Columns: rs.Columns(),
		Format:  format,
		Cached:  cached,
	}
	if format == FormatRecords {
		result.Records = PlainRecords(rs)
		return result, nil
	}

	text, err := Format(rs, format, DefaultEntityName)
	if err != nil {
		return AskResult{}, err
	}
	result.Formatted = text
	return result, nil
}

// RawAskMCP sends one ask request and returns the response untouched
func (s *Service) RawAskMCP(ctx context.Context, args RawAskArgs) (RawAskResult, error) {
	if err := ValidateQuery(args.Query); err != nil {
		return RawAskResult{}, err
	}

	query := smw.FixAsk(args.Query)
	resp, err := s.Client(1).RawQuery(ctx, query)
	if err != nil {
		return RawAskResult{}, err
	}

	result := RawAskResult{
		Query:       query,
		ResultCount: resp.ResultCount(),
		Response:    resp.Body(),
	}
	if offset, ok := resp.ContinueOffset(); ok {
		result.ContinueOffset = &offset
	}
	return result, nil
}

// InfoMCP is the MCP wrapper for Info
func (s *Service) InfoMCP(ctx context.Context, _ InfoArgs) (InfoResult, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return InfoResult{}, err
	}
	return InfoResult{Info: *info}, nil
}

// PageTitlesMCP lists the matching page titles, or the distinct values of
// one printout column
func (s *Service) PageTitlesMCP(ctx context.Context, args PageTitlesArgs) (PageTitlesResult, error) {
	if err := ValidateQuery(args.Query); err != nil {
		return PageTitlesResult{}, err
	}
	if err := ValidateLimit(args.Limit); err != nil {
		return PageTitlesResult{}, err
	}

	rs, cached, err := s.Query(ctx, args.Query, args.Limit, 0)
	if err != nil {
		return PageTitlesResult{}, err
	}

	titles := rs.Titles()
	if args.PageField != "" {
		if rs.Len() > 0 && !rs.HasColumn(args.PageField) {
			return PageTitlesResult{}, apierrors.NewNotFoundError("column", args.PageField, "query results")
		}
		titles = rs.Distinct(args.PageField)
	}
	if titles == nil {
		titles = []string{}
	}
	return PageTitlesResult{Titles: titles, Count: len(titles), Cached: cached}, nil
}
