package smw

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var (
	partitionLower = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	partitionUpper = time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC)

	windowBoundRegex = regexp.MustCompile(`>=(\S+?)\]\]\|\[\[Modification date:: <=(\S+?)\]\]`)
)

func probeBody(ts time.Time) string {
	return fmt.Sprintf(`{"query": {
		"printrequests": [
			{"label": "", "typeid": "_wpg", "mode": 2},
			{"label": "_mdate", "typeid": "_dat", "mode": 1}
		],
		"results": {
			"Probe page": {"fulltext": "Probe page", "printouts": {"_mdate": [{"timestamp": "%d", "raw": "1/2020"}]}}
		}
	}}`, ts.Unix())
}

// partitionHandler answers the bound probes with partitionLower and
// partitionUpper and every window with one page named after its bounds.
func partitionHandler(t *testing.T) func(url.Values) (string, error) {
	t.Helper()
	return func(params url.Values) (string, error) {
		q := params.Get("query")
		switch {
		case strings.HasSuffix(q, "|order=asc"):
			return probeBody(partitionLower), nil
		case strings.HasSuffix(q, "|order=desc"):
			return probeBody(partitionUpper), nil
		}
		m := windowBoundRegex.FindStringSubmatch(q)
		if m == nil {
			return "", fmt.Errorf("unexpected query %s", q)
		}
		return pagesBody([]string{"window " + m[1] + " " + m[2]}, -1), nil
	}
}

func TestSplitClause(t *testing.T) {
	s := DefaultSplitClause()

	if got, want := s.First(), "?Modification date=_mdate|sort=Modification date|limit=1"; got != want {
		t.Errorf("First() = %q, want %q", got, want)
	}

	got := s.QueryBounds(partitionLower, partitionUpper)
	want := "[[Modification date:: >=2020-01-01T00:00:00]]|[[Modification date:: <=2020-01-11T00:00:00]]"
	if got != want {
		t.Errorf("QueryBounds() = %q, want %q", got, want)
	}

	if _, ok := s.Deserialize(nil); ok {
		t.Error("no records must yield no bound")
	}
	ts, ok := s.Deserialize([]Record{{"_mdate": DateValue(partitionLower)}})
	if !ok || !ts.Equal(partitionLower) {
		t.Errorf("Deserialize = %v, %v; want %v", ts, ok, partitionLower)
	}
}

func TestBounds_Windows(t *testing.T) {
	b := Bounds{Lower: partitionLower, Upper: partitionUpper}

	windows := b.Windows(10)
	if len(windows) != 10 {
		t.Fatalf("expected 10 windows, got %d", len(windows))
	}
	if !windows[0].Lower.Equal(b.Lower) {
		t.Errorf("first window starts at %v, want %v", windows[0].Lower, b.Lower)
	}
	if !windows[9].Upper.Equal(b.Upper) {
		t.Errorf("last window ends at %v, want %v", windows[9].Upper, b.Upper)
	}
	for i := 1; i < len(windows); i++ {
		if !windows[i].Lower.Equal(windows[i-1].Upper) {
			t.Errorf("window %d starts at %v, previous ends at %v", i, windows[i].Lower, windows[i-1].Upper)
		}
	}
}

func TestBounds_WindowsTruncatesToSeconds(t *testing.T) {
	b := Bounds{Lower: partitionLower, Upper: partitionLower.Add(10 * time.Second)}

	windows := b.Windows(3)
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	if got := windows[0].Upper.Sub(windows[0].Lower); got != 3*time.Second {
		t.Errorf("window width = %v, want 3s", got)
	}
	if !windows[2].Upper.Equal(b.Upper) {
		t.Errorf("last window must be clamped to the upper bound, got %v", windows[2].Upper)
	}
}

func TestBounds_WindowsNarrowInterval(t *testing.T) {
	b := Bounds{Lower: partitionLower, Upper: partitionLower.Add(2 * time.Second)}

	windows := b.Windows(5)
	if len(windows) != 1 || windows[0] != b {
		t.Errorf("interval narrower than the division must not be split, got %v", windows)
	}

	point := Bounds{Lower: partitionLower, Upper: partitionLower}
	if got := point.Windows(10); len(got) != 1 {
		t.Errorf("zero width interval must give one window, got %d", len(got))
	}
}

func TestQueryBoundaries(t *testing.T) {
	api := &fakeAPI{handler: partitionHandler(t)}
	client := newTestClient(api, 10)

	b, ok, err := client.QueryBoundaries(context.Background(), "[[Modification date::+]]")
	if err != nil || !ok {
		t.Fatalf("QueryBoundaries = %v, %v", ok, err)
	}
	if !b.Lower.Equal(partitionLower) || !b.Upper.Equal(partitionUpper) {
		t.Errorf("bounds = %v, want [%v, %v]", b, partitionLower, partitionUpper)
	}

	want := []string{
		"[[Modification date::+]]|?Modification date=_mdate|sort=Modification date|limit=1|order=asc",
		"[[Modification date::+]]|?Modification date=_mdate|sort=Modification date|limit=1|order=desc",
	}
	if diff := cmp.Diff(want, api.queries()); diff != "" {
		t.Errorf("probe queries mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryBoundaries_Swapped(t *testing.T) {
	api := &fakeAPI{handler: func(params url.Values) (string, error) {
		if strings.HasSuffix(params.Get("query"), "|order=asc") {
			return probeBody(partitionUpper), nil
		}
		return probeBody(partitionLower), nil
	}}
	client := newTestClient(api, 10)

	b, ok, err := client.QueryBoundaries(context.Background(), "[[A]]")
	if err != nil || !ok {
		t.Fatalf("QueryBoundaries = %v, %v", ok, err)
	}
	if b.Upper.Before(b.Lower) {
		t.Errorf("bounds not ordered: %v", b)
	}
}

func TestAskPartitionQuery(t *testing.T) {
	api := &fakeAPI{handler: partitionHandler(t)}
	client := newTestClient(api, 10)

	responses, err := client.AskPartitionQuery(context.Background(), "[[Modification date::+]]", 0)
	if err != nil {
		t.Fatalf("AskPartitionQuery failed: %v", err)
	}
	if len(responses) != 10 {
		t.Fatalf("expected 10 window responses, got %d", len(responses))
	}

	rs, err := client.Merge(responses)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if rs.Len() != 10 {
		t.Errorf("expected 10 window markers, got %d", rs.Len())
	}

	var windows []Bounds
	for _, q := range api.queries()[2:] {
		m := windowBoundRegex.FindStringSubmatch(q)
		if m == nil {
			t.Fatalf("window query without bounds: %s", q)
		}
		lower, _ := time.Parse(boundLayout, m[1])
		upper, _ := time.Parse(boundLayout, m[2])
		windows = append(windows, Bounds{Lower: lower, Upper: upper})
		if !strings.HasSuffix(q, "|offset=0") {
			t.Errorf("window query must be paginated: %s", q)
		}
	}
	if len(windows) != 10 {
		t.Fatalf("expected 10 window queries, got %d", len(windows))
	}
	if !windows[0].Lower.Equal(partitionLower) || !windows[9].Upper.Equal(partitionUpper) {
		t.Errorf("windows cover [%v, %v], want [%v, %v]", windows[0].Lower, windows[9].Upper, partitionLower, partitionUpper)
	}
	for i := 1; i < len(windows); i++ {
		if !windows[i].Lower.Equal(windows[i-1].Upper) {
			t.Errorf("window %d not contiguous with window %d", i, i-1)
		}
	}
}

func TestAskPartitionQuery_NoBounds(t *testing.T) {
	api := &fakeAPI{handler: func(params url.Values) (string, error) {
		return `{"query": {"printrequests": [], "results": []}}`, nil
	}}
	client := newTestClient(api, 10)

	responses, err := client.AskPartitionQuery(context.Background(), "[[Category:Nothing]]", 0)
	if err != nil {
		t.Fatalf("AskPartitionQuery failed: %v", err)
	}
	if len(responses) != 0 {
		t.Errorf("expected no responses, got %d", len(responses))
	}
	if len(api.calls) != 1 {
		t.Errorf("expected only the lower probe, got %d calls", len(api.calls))
	}
}

func TestAskPartitionQuery_StopsAtLimit(t *testing.T) {
	api := &fakeAPI{handler: partitionHandler(t)}
	client := newTestClient(api, 10)

	responses, err := client.AskPartitionQuery(context.Background(), "[[Modification date::+]]", 3)
	if err != nil {
		t.Fatalf("AskPartitionQuery failed: %v", err)
	}
	if len(responses) != 3 {
		t.Errorf("expected 3 window responses, got %d", len(responses))
	}

	queries := api.queries()
	if !strings.HasSuffix(queries[2], "|offset=0|limit=3") || !strings.HasSuffix(queries[4], "|offset=0|limit=1") {
		t.Errorf("remaining limit not passed to windows: %v", queries[2:])
	}
}

func TestAskPartitionQuery_OverflowingWindowKeepsPartial(t *testing.T) {
	base := partitionHandler(t)
	api := &fakeAPI{handler: func(params url.Values) (string, error) {
		q := params.Get("query")
		if strings.Contains(q, ">=2020-01-01T00:00:00") {
			offset, _ := OuterArgumentValue("offset", q)
			if offset == 0 {
				return pagesBody([]string{"first window page"}, 1), nil
			}
			return pagesBody([]string{"first window again"}, 1), nil
		}
		return base(params)
	}}
	client := newTestClient(api, 10)

	responses, err := client.AskPartitionQuery(context.Background(), "[[Modification date::+]]", 0)
	if err != nil {
		t.Fatalf("AskPartitionQuery failed: %v", err)
	}
	// two responses from the stalled window, one from each of the other nine
	if len(responses) != 11 {
		t.Errorf("expected 11 responses, got %d", len(responses))
	}
}
