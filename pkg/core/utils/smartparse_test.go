package utils

import "testing"

type turnPayload struct {
	Reply      string `json:"reply"`
	IsFinished bool   `json:"is_finished"`
}

func TestSmartParseCleanJSON(t *testing.T) {
	var p turnPayload
	if _, err := SmartParse(`{"reply":"好的","is_finished":false}`, &p); err != nil {
		t.Fatalf("clean JSON should parse: %v", err)
	}
	if p.Reply != "好的" {
		t.Errorf("expected reply 好的, got %q", p.Reply)
	}
}

func TestSmartParseFencedJSON(t *testing.T) {
	raw := "```json\n{\"reply\": \"ok\", \"is_finished\": true}\n```"
	var p turnPayload
	if _, err := SmartParse(raw, &p); err != nil {
		t.Fatalf("fenced JSON should parse: %v", err)
	}
	if !p.IsFinished {
		t.Error("expected is_finished=true")
	}
}

func TestSmartParseRepairsTrailingComma(t *testing.T) {
	var p turnPayload
	if _, err := SmartParse(`{"reply": "ok", "is_finished": true,}`, &p); err != nil {
		t.Fatalf("repairable JSON should parse: %v", err)
	}
}

func TestSmartParseFailsOnGarbage(t *testing.T) {
	var p turnPayload
	if _, err := SmartParse("随便写一个提示词", &p); err == nil {
		t.Error("non-JSON prose should not silently parse")
	}
}

func TestStripFencesPassThrough(t *testing.T) {
	if got := StripFences(`{"a":1}`); got != `{"a":1}` {
		t.Errorf("unfenced input must pass through, got %q", got)
	}
}
