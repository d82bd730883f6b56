package smw

import "testing"

const conferenceAsk = `{{#ask:  [[Concept:Semantic MediaWiki Cons 2012]]
        |?Has_Wikidata_item_ID = WikiDataId
        |?Has planned finish = finish
        |?Has planned start =    start
        |?Has_location  =        location
        |  format=table  }}`

func TestFixAsk(t *testing.T) {
	tests := []struct {
		name string
		ask  string
		want string
	}{
		{
			name: "multi-line inline query",
			ask:  conferenceAsk,
			want: "[[Concept:Semantic_MediaWiki_Cons_2012]]|?Has_Wikidata_item_ID=WikiDataId|?Has_planned_finish=finish|?Has_planned_start=start|?Has_location=location|format=table",
		},
		{
			name: "single line",
			ask:  "{{#ask: [[Category:City]]|?Population}}",
			want: "[[Category:City]]|?Population",
		},
		{
			name: "adjacent conditions",
			ask:  "[[Category:City]]  [[Located in::Germany]] | limit = 5",
			want: "[[Category:City]][[Located_in::Germany]]|limit=5",
		},
		{
			name: "windows line endings",
			ask:  "{{#ask: [[Category:City]]\r\n |?Population\r\n}}",
			want: "[[Category:City]]|?Population",
		},
		{
			name: "escaped line breaks",
			ask:  `{{#ask: [[Category:City]]\n|?Population\n}}`,
			want: "[[Category:City]]|?Population",
		},
		{
			name: "escaped and real line breaks",
			ask:  "{{#ask: [[Category:City]]\\n |?Population\n|limit=5 }}",
			want: "[[Category:City]]|?Population|limit=5",
		},
		{
			name: "already normalized",
			ask:  "[[Category:City]]|?Population|mainlabel=City",
			want: "[[Category:City]]|?Population|mainlabel=City",
		},
		{
			name: "empty",
			ask:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FixAsk(tt.ask)
			if got != tt.want {
				t.Errorf("FixAsk() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFixAsk_Idempotent(t *testing.T) {
	inputs := []string{
		conferenceAsk,
		"{{#ask: [[Category:City]]|?Population}}",
		"  [[Modification date::+]] |  ?Modification date = _mdate | sort = Modification date ",
	}
	for _, in := range inputs {
		once := FixAsk(in)
		twice := FixAsk(once)
		if once != twice {
			t.Errorf("FixAsk not idempotent:\n once: %q\ntwice: %q", once, twice)
		}
	}
}

func TestConcept(t *testing.T) {
	tests := []struct {
		ask    string
		want   string
		wantOK bool
	}{
		{conferenceAsk, "Semantic MediaWiki Cons 2012", true},
		{FixAsk(conferenceAsk), "Semantic_MediaWiki_Cons_2012", true},
		{"[[Category:City]]", "", false},
	}
	for _, tt := range tests {
		got, ok := Concept(tt.ask)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Concept(%q) = %q, %v; want %q, %v", tt.ask, got, ok, tt.want, tt.wantOK)
		}
	}
}
