package interview

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Sentinel answer values. They are internal markers only and must never leak
// into any text shown to the model or the user.
const (
	SentinelOther = "__other__"
	SentinelNone  = "__none__"
)

// Answer is one submitted answer to a posed question. Value is normalized to
// a string slice regardless of how the client encoded it.
type Answer struct {
	Type  string   `json:"type"`
	Value []string `json:"value"`
	Other string   `json:"other,omitempty"`
}

// UnmarshalJSON accepts value as either a single string or an array.
func (a *Answer) UnmarshalJSON(data []byte) error {
	aux := struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
		Other string          `json:"other"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Type = aux.Type
	a.Other = aux.Other
	a.Value = nil

	if len(aux.Value) == 0 || string(aux.Value) == "null" {
		return nil
	}
	var single string
	if err := json.Unmarshal(aux.Value, &single); err == nil {
		a.Value = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(aux.Value, &many); err == nil {
		a.Value = many
		return nil
	}
	return fmt.Errorf("answer value must be a string or string array")
}

// RenderTurnForModel serializes one history turn into the plain-text form the
// model sees. Form turns become a readable Q/A summary; a form turn whose
// payload is unusable falls back to its raw text untouched.
func RenderTurnForModel(t Turn) string {
	if t.Kind != TurnForm {
		return t.Text
	}

	if t.Role == RoleAssistant {
		if len(t.Questions) == 0 {
			return t.Text
		}
		var b strings.Builder
		if t.Text != "" {
			b.WriteString(t.Text)
			b.WriteString("\n")
		}
		for i, q := range t.Questions {
			fmt.Fprintf(&b, "问题%d: %s\n", i+1, q.Text)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	summary := FormatAnswers(t.Questions, t.Answers)
	if summary == "" {
		return t.Text
	}
	return summary
}

// FormatAnswers renders structured answers into a human-readable Q/A summary.
// Sentinel values are translated into their meaning, never shown literally.
func FormatAnswers(questions []Question, answers map[string]Answer) string {
	if len(answers) == 0 {
		return ""
	}

	labels := map[string]map[string]string{}
	texts := map[string]string{}
	var order []string
	for _, q := range questions {
		texts[q.ID] = q.Text
		m := map[string]string{}
		for _, opt := range q.Options {
			m[opt.ID] = opt.Label
		}
		labels[q.ID] = m
		if _, ok := answers[q.ID]; ok {
			order = append(order, q.ID)
		}
	}
	// answers to questions we no longer hold still get rendered, in a
	// stable order
	var orphans []string
	for id := range answers {
		if _, ok := texts[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	order = append(order, orphans...)

	var b strings.Builder
	for _, id := range order {
		ans := answers[id]
		rendered := renderAnswerValue(ans, labels[id])
		if rendered == "" {
			continue
		}
		question := texts[id]
		if question == "" {
			question = id
		}
		fmt.Fprintf(&b, "问: %s\n答: %s\n", question, rendered)
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderAnswerValue maps option ids to labels and resolves sentinels.
func renderAnswerValue(ans Answer, optionLabels map[string]string) string {
	var parts []string
	for _, v := range ans.Value {
		switch v {
		case SentinelOther:
			if ans.Other != "" {
				parts = append(parts, ans.Other)
			}
		case SentinelNone:
			parts = append(parts, "不需要")
		default:
			if label, ok := optionLabels[v]; ok && label != "" {
				parts = append(parts, label)
			} else {
				parts = append(parts, v)
			}
		}
	}
	if len(parts) == 0 && ans.Other != "" {
		parts = append(parts, ans.Other)
	}
	return strings.Join(parts, ", ")
}
