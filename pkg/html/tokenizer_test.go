package html

import "testing"

func TestTokenizer_TagWithAttributes(t *testing.T) {
	tokenizer := NewTokenizer(`<span class="margin-note" data-x='1' hidden>`)
	token, err := tokenizer.NextToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.Type != TokenStartTag || token.TagName != "span" {
		t.Fatalf("expected span start tag, got %+v", token)
	}
	if token.Attributes["class"] != "margin-note" || token.Attributes["data-x"] != "1" {
		t.Errorf("unexpected attributes %v", token.Attributes)
	}
	if _, ok := token.Attributes["hidden"]; !ok {
		t.Error("boolean attribute should be present")
	}
}

func TestTokenizer_CompleteSequence(t *testing.T) {
	tokenizer := NewTokenizer("<!DOCTYPE html><!-- c --><p>Hello &amp; bye</p>")
	want := []Token{
		{Type: TokenStartTag, TagName: "p"},
		{Type: TokenText, Text: "Hello & bye"},
		{Type: TokenEndTag, TagName: "p"},
		{Type: TokenEOF},
	}
	for i, w := range want {
		got, err := tokenizer.NextToken()
		if err != nil {
			t.Fatalf("token %d: %v", i, err)
		}
		if got.Type != w.Type || got.TagName != w.TagName || got.Text != w.Text {
			t.Errorf("token %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestTokenizer_SelfClosing(t *testing.T) {
	token, err := NewTokenizer(`<img src="a.png"/>`).NextToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !token.SelfClosing || token.Attributes["src"] != "a.png" {
		t.Errorf("expected self-closing img, got %+v", token)
	}
}

func TestTokenizer_WhitespaceBetweenInlineTags(t *testing.T) {
	tokenizer := NewTokenizer("<b>a</b> <i>b</i>\n  <u>c</u>")
	var texts []string
	for {
		tok, err := tokenizer.NextToken()
		if err != nil {
			t.Fatal(err)
		}
		if tok.Type == TokenEOF {
			break
		}
		if tok.Type == TokenText {
			texts = append(texts, tok.Text)
		}
	}
	want := []string{"a", " ", "b", "c"}
	if len(texts) != len(want) {
		t.Fatalf("texts = %q, want %q", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("text %d = %q, want %q", i, texts[i], want[i])
		}
	}
}

func TestTokenizer_UnterminatedTag(t *testing.T) {
	if _, err := NewTokenizer(`<div class="x"`).NextToken(); err == nil {
		t.Error("expected an error for an unterminated tag")
	}
}
