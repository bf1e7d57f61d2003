package template

import (
	"regexp"
	"strings"
)

// fallbackTitle is shown when no line of the prompt qualifies as a title.
const fallbackTitle = "新对话"

// maxTitleRunes caps the derived title length before the ellipsis is added.
const maxTitleRunes = 24

// markerRe strips leading markdown heading and bullet markers.
var markerRe = regexp.MustCompile(`^[#>\-\*\d\.\s]+`)

// labelPrefixes are role/title labels commonly emitted at the top of a
// generated prompt; they carry no title information themselves.
var labelPrefixes = []string{
	"role:", "角色:", "角色：",
	"title:", "标题:", "标题：",
	"system prompt:", "prompt:",
	"任务:", "任务：", "目标:", "目标：",
}

// DeriveTitle extracts a short display title from a prompt body: the first
// non-trivial line after heading markers, bullets, and label prefixes are
// removed, truncated to 24 runes.
func DeriveTitle(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		candidate := cleanTitleLine(line)
		if len([]rune(candidate)) > 1 {
			return truncateTitle(candidate)
		}
	}
	return fallbackTitle
}

func cleanTitleLine(line string) string {
	s := strings.TrimSpace(line)
	s = markerRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	lower := strings.ToLower(s)
	for _, prefix := range labelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}
	return s
}

func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTitleRunes {
		return s
	}
	return string(runes[:maxTitleRunes]) + "…"
}
