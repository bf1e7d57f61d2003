package template

import (
	"reflect"
	"testing"
)

func TestExtractBasic(t *testing.T) {
	tpl := "Hello {{name|label:Name|type:string}} you are {{age|label:Age|type:number|default:18}}"
	vars := Extract(tpl)

	if len(vars) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(vars))
	}
	if vars[0].Key != "name" || vars[0].Label != "Name" || vars[0].Type != TypeString {
		t.Errorf("unexpected first variable: %+v", vars[0])
	}
	if vars[1].Key != "age" || vars[1].Type != TypeNumber {
		t.Errorf("unexpected second variable: %+v", vars[1])
	}
	if f, ok := vars[1].Default.(float64); !ok || f != 18 {
		t.Errorf("expected number default 18, got %v", vars[1].Default)
	}
}

func TestExtractInvalidKeySkipsPlaceholder(t *testing.T) {
	tpl := "{{9bad|label:X}} and {{good_one|label:Y}} and {{with space}}"
	vars := Extract(tpl)

	if len(vars) != 1 {
		t.Fatalf("expected 1 variable, got %d: %+v", len(vars), vars)
	}
	if vars[0].Key != "good_one" {
		t.Errorf("expected key good_one, got %s", vars[0].Key)
	}
}

func TestExtractMergesFirstNonEmptyWins(t *testing.T) {
	tpl := "{{tone|label:语气|type:enum|options:专业,亲切,幽默}} ... {{tone|label:Ignored|placeholder:选一个}}"
	vars := Extract(tpl)

	if len(vars) != 1 {
		t.Fatalf("expected 1 merged variable, got %d", len(vars))
	}
	v := vars[0]
	if v.Label != "语气" {
		t.Errorf("first-seen label should win, got %s", v.Label)
	}
	if v.Placeholder != "选一个" {
		t.Errorf("later occurrence should fill unset placeholder, got %q", v.Placeholder)
	}
	want := []string{"专业", "亲切", "幽默"}
	if !reflect.DeepEqual(v.Options, want) {
		t.Errorf("expected options %v, got %v", want, v.Options)
	}
}

func TestExtractEqualsSeparatorAndUnknownMeta(t *testing.T) {
	vars := Extract("{{topic|label=主题|flavor:spicy|type=text}}")
	if len(vars) != 1 {
		t.Fatalf("expected 1 variable, got %d", len(vars))
	}
	if vars[0].Label != "主题" || vars[0].Type != TypeText {
		t.Errorf("equals-separated meta not applied: %+v", vars[0])
	}
}

func TestExtractInvalidTypeLeavesTypeUnset(t *testing.T) {
	vars := Extract("{{x|label:X|type:integer}}")
	if len(vars) != 1 {
		t.Fatalf("expected 1 variable, got %d", len(vars))
	}
	if vars[0].Type != "" {
		t.Errorf("invalid type token should leave type unset, got %q", vars[0].Type)
	}
}

func TestDefaultCoercion(t *testing.T) {
	cases := []struct {
		name string
		tpl  string
		want interface{}
	}{
		{"number", "{{n|type:number|default:3.5}}", 3.5},
		{"number fallback raw", "{{n|type:number|default:lots}}", "lots"},
		{"boolean yes", "{{b|type:boolean|default:YES}}", true},
		{"boolean no", "{{b|type:boolean|default:0}}", false},
		{"list split", "{{l|type:list|default:a,b；c，d}}", []string{"a", "b；c", "d"}},
		{"untyped raw", "{{s|default:42}}", "42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vars := Extract(tc.tpl)
			if len(vars) != 1 {
				t.Fatalf("expected 1 variable, got %d", len(vars))
			}
			if !reflect.DeepEqual(vars[0].Default, tc.want) {
				t.Errorf("expected default %v (%T), got %v (%T)", tc.want, tc.want, vars[0].Default, vars[0].Default)
			}
		})
	}
}

func TestRenderSubstitution(t *testing.T) {
	tpl := "Hello {{name|label:Name|type:string}} you are {{age|label:Age|type:number|default:18}}"
	got := Render(tpl, map[string]string{"name": "Ann"})
	want := "Hello Ann you are "
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRenderLeavesInvalidKeyVerbatim(t *testing.T) {
	tpl := "keep {{9bad|label:X}} as is"
	got := Render(tpl, map[string]string{"9bad": "nope"})
	if got != tpl {
		t.Errorf("invalid-key placeholder must stay verbatim, got %q", got)
	}
}

func TestRenderEscapedPlaceholder(t *testing.T) {
	tpl := `syntax reminder: \{{literal}} and {{name}}`
	got := Render(tpl, map[string]string{"name": "Ann"})
	want := "syntax reminder: {{literal}} and Ann"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExtractSkipsEscapedPlaceholder(t *testing.T) {
	keys := Keys(`\{{not_a_var}} {{real_var|label:R}}`)
	if len(keys) != 1 || keys[0] != "real_var" {
		t.Errorf("escaped placeholder must not declare a variable, got %v", keys)
	}
}

func TestRoundTripPreservesSurroundingText(t *testing.T) {
	tpl := "# 标题\n前缀 {{a}} 中间 {{b}} 后缀\n尾行"
	got := Render(tpl, map[string]string{"a": "1", "b": "2"})
	want := "# 标题\n前缀 1 中间 2 后缀\n尾行"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExtractedKeysAreValid(t *testing.T) {
	tpl := "{{ok_1}} {{_bad}} {{2bad}} {{Ok2|type:string}} {{ok-bad}}"
	for _, k := range Keys(tpl) {
		if !ValidKey(k) {
			t.Errorf("extracted key %q violates key regex", k)
		}
	}
	keys := Keys(tpl)
	if len(keys) != 2 {
		t.Errorf("expected 2 valid keys, got %v", keys)
	}
}
