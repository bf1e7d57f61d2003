package template

import (
	"strings"
	"testing"
)

func TestDeriveTitle(t *testing.T) {
	cases := []struct {
		name   string
		prompt string
		want   string
	}{
		{"plain line", "资深营销文案专家\n\n你负责...", "资深营销文案专家"},
		{"markdown heading", "## Role: 数据分析师\n...", "数据分析师"},
		{"label prefix english", "Title: Code Review Assistant\nbody", "Code Review Assistant"},
		{"system prompt label", "System Prompt: 翻译助手", "翻译助手"},
		{"bullet marker", "- 目标: 写周报\n", "写周报"},
		{"empty input", "", "新对话"},
		{"only trivial lines", "#\n-\n*\n", "新对话"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveTitle(tc.prompt); got != tc.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tc.prompt, got, tc.want)
			}
		})
	}
}

func TestDeriveTitleTruncates(t *testing.T) {
	long := strings.Repeat("长", 40)
	got := DeriveTitle(long)
	runes := []rune(got)
	if len(runes) != maxTitleRunes+1 {
		t.Fatalf("expected %d runes incl. ellipsis, got %d (%q)", maxTitleRunes+1, len(runes), got)
	}
	if runes[len(runes)-1] != '…' {
		t.Errorf("expected ellipsis suffix, got %q", got)
	}
}
