package llm

import (
	"strings"
	"testing"
)

func TestExtractJSONPlainObject(t *testing.T) {
	raw, err := ExtractJSON(`{"title": "db outage", "confidence": 80}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(raw), "db outage") {
		t.Fatalf("unexpected payload %s", raw)
	}
}

func TestExtractJSONFenced(t *testing.T) {
	text := "```json\n{\"title\": \"db outage\"}\n```"
	raw, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"title": "db outage"}` {
		t.Fatalf("unexpected payload %s", raw)
	}
}

func TestExtractJSONEmbeddedInProse(t *testing.T) {
	text := `Here is the result you asked for: {"steps": [{"id": "s1"}]} Let me know if you need more.`
	raw, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `{"steps": [{"id": "s1"}]}` {
		t.Fatalf("unexpected payload %s", raw)
	}
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	text := `{"message": "use {placeholder} here", "ok": true}`
	raw, err := ExtractJSON("prefix " + text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != text {
		t.Fatalf("unexpected payload %s", raw)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	if _, err := ExtractJSON("the incident looks like a cache stampede"); err == nil {
		t.Fatal("expected error for prose without JSON")
	}
	if _, err := ExtractJSON(`{"unterminated": `); err == nil {
		t.Fatal("expected error for unbalanced object")
	}
}

func TestClampTemperature(t *testing.T) {
	cases := []struct {
		in   float32
		want float32
	}{
		{-1, 0.01},
		{0, 0.01},
		{0.3, 0.3},
		{0.99, 0.99},
		{1.5, 0.99},
	}
	for _, tc := range cases {
		if got := ClampTemperature(tc.in); got != tc.want {
			t.Fatalf("ClampTemperature(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
