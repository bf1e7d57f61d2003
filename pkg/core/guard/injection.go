package guard

import (
	"regexp"
	"strings"
)

// injectionCategory groups the patterns for one class of prompt-injection
// phrasing.
type injectionCategory struct {
	name     string
	patterns []*regexp.Regexp
}

// The six detected injection classes. Patterns cover both English and Chinese
// phrasings.
var injectionCategories = []injectionCategory{
	{
		name: "ignore_previous_instructions",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?)`),
			regexp.MustCompile(`忽略(系统|之前|先前|上面|以上|上述)?的?(所有)?(指令|提示|设定|规则)`),
		},
	},
	{
		name: "override_system_prompt",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(override|overwrite|replace)\s+(the\s+)?system\s+prompt`),
			regexp.MustCompile(`(覆盖|替换|改写)系统提示词?`),
		},
	},
	{
		name: "jailbreak",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)jail\s*break`),
			regexp.MustCompile(`越狱模式?`),
		},
	},
	{
		name: "bypass_safety_restriction",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(bypass|circumvent|disable)\s+(the\s+)?(safety|security|content)\s+(restrictions?|filters?|policies|policy|guidelines?)`),
			regexp.MustCompile(`绕过安全(限制|审查|过滤|策略)`),
		},
	},
	{
		name: "reveal_system_prompt",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(reveal|show|print|repeat|leak)\s+(your|the)\s+system\s+prompt`),
			regexp.MustCompile(`(泄露|透露|输出|展示|复述)系统提示词?`),
		},
	},
	{
		name: "role_override_with_ignore",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(you\s+are\s+now|from\s+now\s+on\s+you\s+are|act\s+as)[\s\S]{0,60}?(ignore|forget)`),
			regexp.MustCompile(`(现在你是|从现在起你是|扮演)[\s\S]{0,40}?(忽略|忘记)`),
		},
	},
}

// negationCues mark a match as a legitimate prohibition when one appears
// shortly before the matched phrase ("请勿忽略系统指令" forbids the attack,
// it does not perform it).
var negationCues = []string{
	"不要", "不得", "禁止", "严禁", "请勿", "拒绝", "不允许", "不能", "不会",
	"do not", "don't", "never", "must not", "refuse", "forbidden", "prohibited",
}

// negationWindow is how many runes before a match are scanned for a cue.
const negationWindow = 16

// DetectInjections returns the category names of genuinely-flagged injection
// phrasings found in tmpl, in fixed category order, de-duplicated.
func DetectInjections(tmpl string) []string {
	lower := strings.ToLower(tmpl)

	var flagged []string
	for _, cat := range injectionCategories {
		for _, re := range cat.patterns {
			hit := false
			for _, loc := range re.FindAllStringIndex(lower, -1) {
				if !isNegated(lower, loc[0]) {
					hit = true
					break
				}
			}
			if hit {
				flagged = append(flagged, cat.name)
				break
			}
		}
	}
	return flagged
}

// isNegated reports whether a negation cue sits within the preceding window
// of the match starting at byte offset start.
func isNegated(lower string, start int) bool {
	runes := []rune(lower[:start])
	from := len(runes) - negationWindow
	if from < 0 {
		from = 0
	}
	window := string(runes[from:])
	for _, cue := range negationCues {
		if strings.Contains(window, cue) {
			return true
		}
	}
	return false
}
