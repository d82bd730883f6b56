package ask

import "github.com/olgasafonova/smw-ask-mcp-server/smw"

// AskArgs contains parameters for a complete ask query
type AskArgs struct {
	Query    string `json:"query" jsonschema:"required" jsonschema_description:"SMW ask query, e.g. [[Category:City]]|?Population|mainlabel=City. Line breaks are allowed between parts"`
	Limit    int    `json:"limit,omitempty" jsonschema_description:"Maximum number of results (default: the query's own |limit=, else all results)"`
	Division int    `json:"division,omitempty" jsonschema_description:"Split the query into this many modification date windows to get past the wiki's result ceiling (default: server setting, 1 disables splitting)"`
	Format   string `json:"format,omitempty" jsonschema_description:"records (default), json, csv, yaml or table"`
}

// AskResult is the result of an ask query
type AskResult struct {
	Query     string                   `json:"query"` // normalized query sent to the wiki
	Count     int                      `json:"count"`
	Columns   []string                 `json:"columns"`
	Records   []map[string]interface{} `json:"records,omitempty"`
	Formatted string                   `json:"formatted,omitempty"` // set for every format except records
	Format    string                   `json:"format"`
	Cached    bool                     `json:"cached,omitempty"`
}

// RawAskArgs contains parameters for a single un-paginated ask request
type RawAskArgs struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"SMW ask query; add |offset=N to fetch a later page"`
}

// RawAskResult is one ask API response as sent by the wiki
type RawAskResult struct {
	Query          string                 `json:"query"`
	ResultCount    int                    `json:"result_count"`
	ContinueOffset *int                   `json:"continue_offset,omitempty"` // absent when this is the last page
	Response       map[string]interface{} `json:"response"`
}

// InfoArgs takes no parameters
type InfoArgs struct{}

// InfoResult holds the wiki's SMW statistics
type InfoResult struct {
	Info smw.Info `json:"info"`
}

// PageTitlesArgs contains parameters for listing matching pages
type PageTitlesArgs struct {
	Query     string `json:"query" jsonschema:"required" jsonschema_description:"SMW ask query"`
	PageField string `json:"page_field,omitempty" jsonschema_description:"Return the distinct values of this printout label instead of page titles"`
	Limit     int    `json:"limit,omitempty" jsonschema_description:"Maximum number of results (default: all)"`
}

// PageTitlesResult lists page titles or column values
type PageTitlesResult struct {
	Titles []string `json:"titles"`
	Count  int      `json:"count"`
	Cached bool     `json:"cached,omitempty"`
}
