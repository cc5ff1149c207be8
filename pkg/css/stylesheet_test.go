package css

import "testing"

func TestParseStylesheet_SelectorList(t *testing.T) {
	sheet, err := ParseStylesheet(`h1, .title { color: red; margin: 4px }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sheet.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(sheet.Rules))
	}
	if sheet.Rules[1].Selector.Raw != ".title" || sheet.Rules[1].Declarations["margin-left"] != "4px" {
		t.Errorf("unexpected second rule %+v", sheet.Rules[1])
	}
	if sheet.Rules[0].Order >= sheet.Rules[1].Order {
		t.Error("rules should be numbered in source order")
	}
}

func TestParseStylesheet_CommentsAndAtRules(t *testing.T) {
	sheet, _ := ParseStylesheet(`
		@import url("x.css");
		/* .hidden { display: none } */
		@font-face { font-family: X; src: url(x.ttf) }
		p { color: /* inline */ blue }
	`)
	if len(sheet.Rules) != 1 {
		t.Fatalf("expected only the p rule, got %d", len(sheet.Rules))
	}
	if sheet.Rules[0].Declarations["color"] != "blue" {
		t.Errorf("color = %q", sheet.Rules[0].Declarations["color"])
	}
}

func TestParseStylesheet_MalformedRulesSkipped(t *testing.T) {
	sheet, _ := ParseStylesheet(`p:hover { color: red } .ok { color: green } }`)
	if len(sheet.Rules) != 1 || sheet.Rules[0].Selector.Raw != ".ok" {
		t.Errorf("expected only .ok to survive, got %+v", sheet.Rules)
	}
}

func TestParseStylesheet_Media(t *testing.T) {
	sheet, _ := ParseStylesheet(`
		.margin-note { display: inline }
		@media (min-width: 1200px) {
			.margin-note { position: absolute; width: 250px }
			.margin-note.positioned { opacity: 1 }
		}
	`)
	if len(sheet.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(sheet.Rules))
	}
	if sheet.Rules[0].MediaQuery != nil {
		t.Error("first rule should not be inside @media")
	}
	mq := sheet.Rules[1].MediaQuery
	if mq == nil || mq.MinWidth != 1200 {
		t.Fatalf("expected min-width 1200, got %+v", mq)
	}
}

func TestEvaluateMediaQuery(t *testing.T) {
	tests := []struct {
		query string
		width float64
		want  bool
	}{
		{"(min-width: 1200px)", 1200, true},
		{"(min-width: 1200px)", 1199, false},
		{"screen and (max-width: 600px)", 500, true},
		{"(min-width: 400px) and (max-width: 600px)", 700, false},
		{"print", 1400, false},
		{"(orientation: landscape)", 1400, false},
		{"(min-width: 75em)", 1200, true},
	}
	for _, tt := range tests {
		mq := ParseMediaQuery(tt.query)
		if got := EvaluateMediaQuery(&mq, tt.width, 800); got != tt.want {
			t.Errorf("%q at %v: got %v, want %v", tt.query, tt.width, got, tt.want)
		}
	}
	if !EvaluateMediaQuery(nil, 1, 1) {
		t.Error("nil query should match")
	}
}
