// Package utils contains the lenient JSON handling used to normalize LLM
// output at the adapter boundary. Models return anything from clean JSON to
// fenced, comment-ridden, single-quoted fragments; SmartParse turns all of
// those into one structured-or-error result.
package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// StripFences removes a surrounding markdown code fence if one is present,
// returning the inner payload. Text without fences passes through untouched.
func StripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(trimmed); len(m) > 1 {
		return m[1]
	}
	return trimmed
}

// RepairJSON fixes common LLM JSON defects (single quotes, trailing commas,
// unclosed brackets, TRUE/FALSE casing, embedded comments).
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return repaired, nil
}

// SmartParse tries progressively more lenient strategies to decode input into
// schema: standard JSON, then json-repair, then Hjson. Fences are stripped
// before any attempt.
func SmartParse(input string, schema interface{}) (string, error) {
	input = StripFences(input)

	if err := json.Unmarshal([]byte(input), schema); err == nil {
		return input, nil
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return repaired, nil
		}
	}

	var loose interface{}
	if err := hjson.Unmarshal([]byte(input), &loose); err == nil {
		if b, err := json.Marshal(loose); err == nil {
			if err := json.Unmarshal(b, schema); err == nil {
				return string(b), nil
			}
		}
	}

	return "", fmt.Errorf("SMART_PARSE_FAILED: all parsing strategies failed")
}
