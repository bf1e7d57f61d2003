// Package template implements the {{key|meta:value}} placeholder micro-language
// used by generated prompt artifacts. It extracts typed variable declarations,
// merges metadata across repeated occurrences, and renders templates against a
// value mapping.
package template

import (
	"regexp"
	"strconv"
	"strings"
)

// VarType enumerates the declared input types a placeholder may carry.
type VarType string

const (
	TypeString  VarType = "string"
	TypeText    VarType = "text"
	TypeNumber  VarType = "number"
	TypeBoolean VarType = "boolean"
	TypeEnum    VarType = "enum"
	TypeList    VarType = "list"
)

// Variable is the merged declaration for one placeholder key.
type Variable struct {
	Key         string      `json:"key"`
	Label       string      `json:"label,omitempty"`
	Type        VarType     `json:"type,omitempty"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Options     []string    `json:"options,omitempty"`
	Joiner      string      `json:"joiner,omitempty"`
	TrueLabel   string      `json:"true_label,omitempty"`
	FalseLabel  string      `json:"false_label,omitempty"`
}

// keyRe is the only shape a variable key may take. Anything else invalidates
// the whole placeholder, not just the key segment.
var keyRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// placeholderRe captures an optional escape backslash so extraction and
// rendering agree on which occurrences are literal.
var placeholderRe = regexp.MustCompile(`\\?\{\{([^{}]*)\}\}`)

// listSeps are the delimiters accepted for options and list defaults.
var listSeps = regexp.MustCompile(`[,;，]`)

// ValidKey reports whether s can serve as a placeholder key.
func ValidKey(s string) bool {
	return keyRe.MatchString(s)
}

// ValidType reports whether s is one of the six declared variable types.
func ValidType(s string) bool {
	switch VarType(s) {
	case TypeString, TypeText, TypeNumber, TypeBoolean, TypeEnum, TypeList:
		return true
	}
	return false
}

// Extract parses every unescaped placeholder in tpl and returns the ordered,
// de-duplicated variable set. Repeated keys merge left to right: the first
// occurrence to set a field wins, later occurrences only fill fields that are
// still unset.
func Extract(tpl string) []Variable {
	byKey := make(map[string]*Variable)
	var order []string

	for _, m := range placeholderRe.FindAllString(tpl, -1) {
		if strings.HasPrefix(m, `\`) {
			continue // escaped literal, not a declaration
		}
		occ, ok := parsePlaceholder(m)
		if !ok {
			continue
		}
		existing, seen := byKey[occ.Key]
		if !seen {
			v := occ
			byKey[occ.Key] = &v
			order = append(order, occ.Key)
			continue
		}
		mergeInto(existing, occ)
	}

	out := make([]Variable, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}

// Keys returns just the declared key set, in first-seen order.
func Keys(tpl string) []string {
	vars := Extract(tpl)
	keys := make([]string, len(vars))
	for i, v := range vars {
		keys[i] = v.Key
	}
	return keys
}

// Render substitutes every well-formed unescaped placeholder with the mapped
// value (empty string when absent — render never falls back to the declared
// default). Escaped placeholders round-trip back to literal "{{...}}" text,
// and placeholders with an invalid key are left verbatim.
func Render(tpl string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		if strings.HasPrefix(m, `\`) {
			return m[1:]
		}
		occ, ok := parsePlaceholder(m)
		if !ok {
			return m
		}
		return values[occ.Key]
	})
}

// parsePlaceholder decodes one "{{ key | meta:value | ... }}" occurrence.
// Returns ok=false when the key segment fails the key regex.
func parsePlaceholder(m string) (Variable, bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(m, "{{"), "}}")
	segments := strings.Split(inner, "|")
	key := strings.TrimSpace(segments[0])
	if !keyRe.MatchString(key) {
		return Variable{}, false
	}

	v := Variable{Key: key}
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		metaKey, metaVal := splitMeta(seg)
		applyMeta(&v, metaKey, metaVal)
	}
	return v, true
}

// splitMeta separates "metaKey:value" or "metaKey=value"; a bare token yields
// an empty value.
func splitMeta(seg string) (string, string) {
	idx := strings.IndexAny(seg, ":=")
	if idx < 0 {
		return strings.ToLower(strings.TrimSpace(seg)), ""
	}
	return strings.ToLower(strings.TrimSpace(seg[:idx])), strings.TrimSpace(seg[idx+1:])
}

// applyMeta assigns one metadata pair onto the occurrence being parsed.
// Unrecognized meta keys are ignored. The default value is coerced with the
// type known so far for this occurrence, so "type" should precede "default".
func applyMeta(v *Variable, key, val string) {
	switch key {
	case "label":
		v.Label = val
	case "type":
		if ValidType(strings.ToLower(val)) {
			v.Type = VarType(strings.ToLower(val))
		}
	case "required":
		v.Required = parseBool(val)
	case "default":
		v.Default = coerceDefault(val, v.Type)
	case "options":
		v.Options = splitList(val)
	case "placeholder":
		v.Placeholder = val
	case "joiner":
		v.Joiner = val
	case "true_label":
		v.TrueLabel = val
	case "false_label":
		v.FalseLabel = val
	}
}

// coerceDefault interprets a raw default string according to the declared
// type. Unparsable numbers fall back to the raw string.
func coerceDefault(raw string, t VarType) interface{} {
	switch t {
	case TypeNumber:
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return f
		}
		return raw
	case TypeBoolean:
		return parseBool(raw)
	case TypeList:
		return splitList(raw)
	default:
		return raw
	}
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range listSeps.Split(raw, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// mergeInto fills only the fields of dst that are still unset; list fields
// keep the first non-empty slice.
func mergeInto(dst *Variable, src Variable) {
	if dst.Label == "" {
		dst.Label = src.Label
	}
	if dst.Type == "" {
		dst.Type = src.Type
	}
	if !dst.Required {
		dst.Required = src.Required
	}
	if dst.Default == nil {
		dst.Default = src.Default
	}
	if dst.Placeholder == "" {
		dst.Placeholder = src.Placeholder
	}
	if len(dst.Options) == 0 {
		dst.Options = src.Options
	}
	if dst.Joiner == "" {
		dst.Joiner = src.Joiner
	}
	if dst.TrueLabel == "" {
		dst.TrueLabel = src.TrueLabel
	}
	if dst.FalseLabel == "" {
		dst.FalseLabel = src.FalseLabel
	}
}
