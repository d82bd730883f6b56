package tools

// AllTools contains all tool definitions for the SMW ask MCP server.
// Tool descriptions follow a structured format for optimal LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// QUERY TOOLS
	// ==========================================================================
	{
		Name:     "smw_ask",
		Method:   "Ask",
		Title:    "Run Ask Query",
		Category: "query",
		Description: `Run a Semantic MediaWiki ask query and return ALL matching pages with their property values.

USE WHEN: User asks "list all X with property Y", "which pages have Z", "export the events of 2023", or pastes an {{#ask: ...}} query.

NOT FOR: Inspecting one raw API response page (use smw_ask_raw). Only page names needed (use smw_page_titles).

PARAMETERS:
- query: Ask query, e.g. [[Category:City]]|?Population|mainlabel=City (required). {{#ask: }} wrappers and line breaks are accepted
- limit: Max results (default: the query's |limit=, else all)
- division: Split into N modification date windows when the wiki caps result size (default: server setting)
- format: records (default), json, csv, yaml or table

RETURNS: One record per page keyed by printout label, with the normalized query and column order. Paginates automatically.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "smw_ask_raw",
		Method:   "RawAsk",
		Title:    "Raw Ask Request",
		Category: "query",
		Description: `Send ONE ask API request and return the response exactly as the wiki sent it.

USE WHEN: Debugging a query, checking print request type ids, or reading the query-continue-offset.

NOT FOR: Getting complete results (use smw_ask, which follows offsets).

PARAMETERS:
- query: Ask query (required). Add |offset=N to read a later page

RETURNS: Raw response body, result count and the continue offset if more results exist.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "smw_page_titles",
		Method:   "PageTitles",
		Title:    "List Matching Pages",
		Category: "query",
		Description: `List the titles of the pages matching an ask query, or the distinct values of one printout.

USE WHEN: User asks "which pages are in X", "list the cities used by these events".

NOT FOR: Property values of each page (use smw_ask).

PARAMETERS:
- query: Ask query (required)
- page_field: Printout label whose distinct values to return instead of titles (optional)
- limit: Max results (default: all)

RETURNS: List of titles or values in result order.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// META TOOLS
	// ==========================================================================
	{
		Name:     "smw_info",
		Method:   "Info",
		Title:    "SMW Statistics",
		Category: "meta",
		Description: `Get Semantic MediaWiki statistics for the connected wiki.

USE WHEN: User asks "how many properties does the wiki have", "is SMW installed", "how big is the semantic store".

PARAMETERS: none

RETURNS: Property, query, concept, subobject and error counts.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
}
