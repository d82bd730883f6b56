package smw

import (
	"log/slog"
)

// Record maps column labels to deserialized values for one page
type Record map[string]Value

// Plain converts the record into plain Go data for encoders
func (r Record) Plain() map[string]interface{} {
	out := make(map[string]interface{}, len(r))
	for label, v := range r {
		out[label] = v.Interface()
	}
	return out
}

// ResultSet holds page records keyed by page title, in arrival order.
type ResultSet struct {
	titles  []string
	records map[string]Record
	columns []string
}

// NewResultSet creates an empty result set
func NewResultSet() *ResultSet {
	return &ResultSet{records: make(map[string]Record)}
}

// Put stores a record. An existing title is overwritten in place and
// reported as replaced.
func (rs *ResultSet) Put(title string, record Record) (replaced bool) {
	if _, exists := rs.records[title]; exists {
		replaced = true
	} else {
		rs.titles = append(rs.titles, title)
	}
	rs.records[title] = record
	return replaced
}

// Get returns the record of the given page title
func (rs *ResultSet) Get(title string) (Record, bool) {
	r, ok := rs.records[title]
	return r, ok
}

// Len returns the number of pages
func (rs *ResultSet) Len() int {
	return len(rs.titles)
}

// Titles returns page titles in arrival order
func (rs *ResultSet) Titles() []string {
	out := make([]string, len(rs.titles))
	copy(out, rs.titles)
	return out
}

// Records returns the records in arrival order
func (rs *ResultSet) Records() []Record {
	out := make([]Record, 0, len(rs.titles))
	for _, t := range rs.titles {
		out = append(out, rs.records[t])
	}
	return out
}

// Columns returns the column labels in print request order
func (rs *ResultSet) Columns() []string {
	return rs.columns
}

// HasColumn reports whether label is one of the result columns
func (rs *ResultSet) HasColumn(label string) bool {
	for _, c := range rs.columns {
		if c == label {
			return true
		}
	}
	return false
}

// Distinct returns the distinct non-null values of one column in arrival
// order. Multi-valued cells contribute each of their items.
func (rs *ResultSet) Distinct(label string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range rs.titles {
		v, ok := rs.records[t][label]
		if !ok || v.IsNull() {
			continue
		}
		values := []Value{v}
		if items, isList := v.List(); isList {
			values = items
		}
		for _, item := range values {
			s := item.String()
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// Merge copies all records of other into rs and returns the titles that
// overwrote an existing record.
func (rs *ResultSet) Merge(other *ResultSet) []string {
	var collisions []string
	if len(rs.columns) == 0 {
		rs.columns = other.columns
	}
	for _, t := range other.titles {
		if rs.Put(t, other.records[t]) {
			collisions = append(collisions, t)
		}
	}
	return collisions
}

// Deserialize turns one raw ask response into page records according to
// https://www.semantic-mediawiki.org/wiki/Serialization_(JSON).
// Missing query, printrequests or results fail with MalformedResponseError.
func Deserialize(resp Response, debug bool, logger *slog.Logger) (*ResultSet, error) {
	query, ok := resp.query()
	if !ok {
		return nil, &MalformedResponseError{Missing: "query"}
	}
	rawPrintRequests, ok := query["printrequests"]
	if !ok {
		return nil, &MalformedResponseError{Missing: "printrequests"}
	}
	if _, ok := query["results"]; !ok {
		return nil, &MalformedResponseError{Missing: "results"}
	}

	entries, _ := rawPrintRequests.([]interface{})
	printRequests := make([]*PrintRequest, 0, len(entries))
	for _, entry := range entries {
		record, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		printRequests = append(printRequests, NewPrintRequest(record, debug, logger))
	}

	rs := NewResultSet()
	for _, pr := range printRequests {
		rs.columns = append(rs.columns, pr.Label)
	}

	results := resp.resultsMap()
	for _, key := range resp.ResultKeys() {
		raw, _ := results[key].(map[string]interface{})
		if raw == nil {
			raw = map[string]interface{}{}
		}
		record := make(Record, len(printRequests))
		for _, pr := range printRequests {
			record[pr.Label] = pr.Deserialize(raw)
		}
		rs.Put(key, record)
	}
	return rs, nil
}
