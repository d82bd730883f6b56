package ask

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/olgasafonova/smw-ask-mcp-server/smw"
)

func eventResultSet(t *testing.T) *smw.ResultSet {
	t.Helper()
	resp, err := smw.ParseResponse([]byte(eventBody))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	rs, err := smw.Deserialize(resp, false, testLogger())
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	return rs
}

func TestFormat_CSV(t *testing.T) {
	got, err := Format(eventResultSet(t), FormatCSV, "")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	want := "Event;city;year\n" +
		"ICSE 2020;Seoul;2020\n" +
		"ICSE 2021;Seoul, Madrid;2021\n" +
		"ICSE 2022;Pittsburgh;2022\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CSV mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_CSVQuotesSeparator(t *testing.T) {
	resp, err := smw.ParseResponse([]byte(`{"query": {
  "printrequests": [{"label": "Page", "typeid": "_wpg", "mode": 2}],
  "results": {"A;B": {"printouts": [], "fulltext": "A;B"}}}}`))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	rs, err := smw.Deserialize(resp, false, testLogger())
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}

	got, err := Format(rs, FormatCSV, "")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got != "Page\n\"A;B\"\n" {
		t.Errorf("a value holding the separator must be quoted: %q", got)
	}
}

func TestFormat_JSON(t *testing.T) {
	got, err := Format(eventResultSet(t), FormatJSON, "events")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var decoded map[string][]map[string]interface{}
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, got)
	}
	events, ok := decoded["events"]
	if !ok || len(events) != 3 {
		t.Fatalf("expected 3 records under \"events\", got %v", decoded)
	}
	want := map[string]interface{}{"Event": "ICSE 2020", "city": "Seoul", "year": float64(2020)}
	if diff := cmp.Diff(want, events[0]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestFormat_YAML(t *testing.T) {
	got, err := Format(eventResultSet(t), FormatYAML, "")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var decoded map[string][]map[string]interface{}
	if err := yaml.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, got)
	}
	data := decoded[DefaultEntityName]
	if len(data) != 3 {
		t.Fatalf("expected 3 records, got %d", len(data))
	}
	if diff := cmp.Diff([]interface{}{"Seoul", "Madrid"}, data[1]["city"]); diff != "" {
		t.Errorf("list cell mismatch (-want +got):\n%s", diff)
	}
	if data[2]["year"] != 2022 {
		t.Errorf("year = %v, want 2022", data[2]["year"])
	}
}

func TestFormat_Table(t *testing.T) {
	got, err := Format(eventResultSet(t), FormatTable, "")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	for _, want := range []string{"Event", "city", "ICSE 2022", "Seoul, Madrid", "Pittsburgh"} {
		if !strings.Contains(got, want) {
			t.Errorf("table should contain %q:\n%s", want, got)
		}
	}
}

func TestFormat_Unsupported(t *testing.T) {
	if _, err := Format(eventResultSet(t), "xml", ""); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestPlainRecords(t *testing.T) {
	records := PlainRecords(eventResultSet(t))
	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}
	if records[0]["Event"] != "ICSE 2020" || records[0]["year"] != 2020 {
		t.Errorf("first record = %v", records[0])
	}
}
