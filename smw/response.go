package smw

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Response is one decoded ask API response.
// Result keys keep the order in which the wiki serialized them.
type Response struct {
	body    map[string]interface{}
	results []string
}

// ParseResponse decodes a raw ask API body
func ParseResponse(data []byte) (Response, error) {
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	keys, err := resultKeys(data)
	if err != nil {
		return Response{}, fmt.Errorf("failed to parse results: %w", err)
	}
	return Response{body: body, results: keys}, nil
}

// NewResponse wraps an already decoded body. Result order follows the
// optional keys; missing keys are appended in map order.
func NewResponse(body map[string]interface{}, keys ...string) Response {
	r := Response{body: body, results: keys}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for k := range r.resultsMap() {
		if !seen[k] {
			r.results = append(r.results, k)
		}
	}
	return r
}

// Body returns the decoded JSON object
func (r Response) Body() map[string]interface{} {
	return r.body
}

// MarshalJSON encodes the decoded body
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.body)
}

// ContinueOffset returns the query-continue-offset marker, if present.
func (r Response) ContinueOffset() (int, bool) {
	raw, ok := r.body["query-continue-offset"]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// ResultCount returns the number of pages in this response
func (r Response) ResultCount() int {
	return len(r.resultsMap())
}

// ResultKeys returns the page keys in wire order
func (r Response) ResultKeys() []string {
	return r.results
}

func (r Response) query() (map[string]interface{}, bool) {
	q, ok := r.body["query"].(map[string]interface{})
	return q, ok
}

// resultsMap returns query.results; an empty JSON array counts as no results.
func (r Response) resultsMap() map[string]interface{} {
	q, ok := r.query()
	if !ok {
		return nil
	}
	m, _ := q["results"].(map[string]interface{})
	return m
}

// resultKeys walks query.results with a token decoder to keep key order.
func resultKeys(data []byte) ([]string, error) {
	var envelope struct {
		Query struct {
			Results json.RawMessage `json:"results"`
		} `json:"query"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(envelope.Query.Results)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
