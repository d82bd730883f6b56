package smw

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseResponse_KeepsResultOrder(t *testing.T) {
	body := `{"query": {"printrequests": [], "results": {
		"Zeta": {"fulltext": "Zeta"},
		"Alpha": {"fulltext": "Alpha", "printouts": {"x": [{"nested": {"a": 1}}]}},
		"Mu": {"fulltext": "Mu"}
	}}, "query-continue-offset": 3}`

	resp, err := ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Zeta", "Alpha", "Mu"}, resp.ResultKeys()); diff != "" {
		t.Errorf("result order mismatch (-want +got):\n%s", diff)
	}
	if resp.ResultCount() != 3 {
		t.Errorf("ResultCount = %d, want 3", resp.ResultCount())
	}
	if next, ok := resp.ContinueOffset(); !ok || next != 3 {
		t.Errorf("ContinueOffset = %d, %v; want 3, true", next, ok)
	}
}

func TestParseResponse_Invalid(t *testing.T) {
	if _, err := ParseResponse([]byte("<html>")); err == nil {
		t.Error("expected error for non-JSON body")
	}
}

func TestResponse_ContinueOffsetForms(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   int
		wantOK bool
	}{
		{"number", float64(50), 50, true},
		{"json number", json.Number("25"), 25, true},
		{"string", "10", 10, true},
		{"null", nil, 0, false},
		{"bool", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewResponse(map[string]interface{}{"query-continue-offset": tt.value})
			got, ok := resp.ContinueOffset()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ContinueOffset = %d, %v; want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if _, ok := NewResponse(map[string]interface{}{}).ContinueOffset(); ok {
		t.Error("missing marker must report no continuation")
	}
}

func TestDeserialize_EmptyResults(t *testing.T) {
	for _, body := range []string{
		`{"query": {"printrequests": [{"label": "", "typeid": "_wpg", "mode": 2}], "results": []}}`,
		`{"query": {"printrequests": [{"label": "", "typeid": "_wpg", "mode": 2}], "results": {}}}`,
	} {
		resp, err := ParseResponse([]byte(body))
		if err != nil {
			t.Fatalf("ParseResponse failed: %v", err)
		}
		rs, err := Deserialize(resp, false, testLogger())
		if err != nil {
			t.Fatalf("Deserialize failed: %v", err)
		}
		if rs.Len() != 0 {
			t.Errorf("expected empty result set, got %d", rs.Len())
		}
		if resp.ResultCount() != 0 {
			t.Errorf("ResultCount = %d, want 0", resp.ResultCount())
		}
	}
}

func TestDeserialize_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		missing string
	}{
		{"no query", `{"error": {}}`, "query"},
		{"no printrequests", `{"query": {"results": {}}}`, "printrequests"},
		{"no results", `{"query": {"printrequests": []}}`, "results"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.body))
			if err != nil {
				t.Fatalf("ParseResponse failed: %v", err)
			}
			_, err = Deserialize(resp, false, testLogger())
			var malformed *MalformedResponseError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedResponseError, got %v", err)
			}
			if malformed.Missing != tt.missing {
				t.Errorf("Missing = %q, want %q", malformed.Missing, tt.missing)
			}
		})
	}
}

func TestDeserialize_EveryColumnPresent(t *testing.T) {
	body := `{"query": {
		"printrequests": [
			{"label": "", "typeid": "_wpg", "mode": 2},
			{"label": "start", "typeid": "_dat", "mode": 1},
			{"label": "city", "typeid": "_wpg", "mode": 1}
		],
		"results": {
			"Conf A": {"fulltext": "Conf A", "printouts": {"start": [{"raw": "no timestamp"}], "city": []}},
			"Conf B": {"fulltext": "Conf B", "printouts": {"start": [{"timestamp": "1577836800"}]}}
		}
	}}`
	resp, err := ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	rs, err := Deserialize(resp, true, testLogger())
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}

	if diff := cmp.Diff([]string{"", "start", "city"}, rs.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	for _, title := range rs.Titles() {
		record, _ := rs.Get(title)
		for _, col := range rs.Columns() {
			if _, ok := record[col]; !ok {
				t.Errorf("%s: column %q missing", title, col)
			}
		}
	}

	a, _ := rs.Get("Conf A")
	if !a["start"].IsNull() {
		t.Errorf("dropped date should leave a null cell, got %s", a["start"].Kind())
	}
	b, _ := rs.Get("Conf B")
	if _, ok := b["start"].Time(); !ok {
		t.Errorf("expected date, got %s", b["start"].Kind())
	}
}

func TestResultSet_Merge(t *testing.T) {
	a := NewResultSet()
	a.Put("One", Record{"": PageValue("One")})
	a.Put("Two", Record{"": PageValue("Two")})

	b := NewResultSet()
	b.Put("Two", Record{"": PageValue("Two again")})
	b.Put("Three", Record{"": PageValue("Three")})

	collisions := a.Merge(b)
	if diff := cmp.Diff([]string{"Two"}, collisions); diff != "" {
		t.Errorf("collisions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"One", "Two", "Three"}, a.Titles()); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
	two, _ := a.Get("Two")
	if two[""].String() != "Two again" {
		t.Errorf("later record should win, got %q", two[""].String())
	}
}

func TestRecord_Plain(t *testing.T) {
	record := Record{
		"":      PageValue("Berlin"),
		"pop":   IntValue(3520061),
		"empty": Null(),
		"list":  ListValue([]Value{PageValue("A"), PageValue("B")}),
	}
	want := map[string]interface{}{
		"":      "Berlin",
		"pop":   3520061,
		"empty": nil,
		"list":  []interface{}{"A", "B"},
	}
	if diff := cmp.Diff(want, record.Plain()); diff != "" {
		t.Errorf("Plain mismatch (-want +got):\n%s", diff)
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	record := Record{
		"start": DateValue(time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)),
		"pop":   IntValue(5),
		"none":  Null(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"none":null,"pop":5,"start":"2020-01-01T12:00:00Z"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestResultSet_HasColumn(t *testing.T) {
	body := `{"query": {
		"printrequests": [
			{"label": "City", "typeid": "_wpg", "mode": 2},
			{"label": "population", "typeid": "_num", "mode": 1}
		],
		"results": {"Oslo": {"fulltext": "Oslo", "printouts": {"population": [709000]}}}
	}}`
	resp, err := ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	rs, err := Deserialize(resp, false, testLogger())
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}

	tests := []struct {
		label string
		want  bool
	}{
		{"City", true},
		{"population", true},
		{"Population", false},
		{"country", false},
	}
	for _, tt := range tests {
		if got := rs.HasColumn(tt.label); got != tt.want {
			t.Errorf("HasColumn(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
	if got := rs.Distinct("country"); len(got) != 0 {
		t.Errorf("Distinct of a missing column = %v, want empty", got)
	}
}
