// Package guard audits candidate templates against structural, safety, and
// variable-metadata rules, and drives the bounded repair loop that fixes what
// the audit flags.
package guard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"promptsmith/pkg/core/promptcraft"
	"promptsmith/pkg/core/template"
)

const thinkingMarker = "<thinking>"

// CheckVariableMetadata reports every placeholder whose merged metadata is
// incomplete: label and type are mandatory, enum additionally needs options.
func CheckVariableMetadata(tmpl string) []string {
	var issues []string
	for _, v := range template.Extract(tmpl) {
		if v.Label == "" {
			issues = append(issues, fmt.Sprintf("变量 %s 缺少 label", v.Key))
		}
		if v.Type == "" {
			issues = append(issues, fmt.Sprintf("变量 %s 缺少 type", v.Key))
		}
		if v.Type == template.TypeEnum && len(v.Options) == 0 {
			issues = append(issues, fmt.Sprintf("enum 变量 %s 缺少 options", v.Key))
		}
	}
	return issues
}

// CheckStructure reports missing required sections for the given output
// format, plus a missing <thinking> marker. One issue per missing element.
func CheckStructure(tmpl string, outputFormat string) []string {
	var issues []string
	if outputFormat == "xml" {
		issues = checkXMLSections(tmpl)
	} else {
		issues = checkMarkdownSections(tmpl)
	}
	if !strings.Contains(tmpl, thinkingMarker) {
		issues = append(issues, "缺少 <thinking> 思考指令标记")
	}
	return issues
}

// checkMarkdownSections walks the markdown AST and requires each section name
// to appear as a level-2 or level-3 heading.
func checkMarkdownSections(tmpl string) []string {
	src := []byte(tmpl)
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	found := map[string]bool{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && (h.Level == 2 || h.Level == 3) {
			found[normalizeSectionName(string(h.Text(src)))] = true
		}
		return ast.WalkContinue, nil
	})

	var issues []string
	for _, s := range promptcraft.Sections {
		if !found[normalizeSectionName(s.Heading)] {
			issues = append(issues, fmt.Sprintf("缺少 ## %s 部分", s.Heading))
		}
	}
	return issues
}

var xmlTagRe = regexp.MustCompile(`<(/?)([A-Za-z][A-Za-z0-9_]*)>`)

// checkXMLSections requires both the open and close tag of every section.
// Tag matching tolerates underscore/case variants (SafeGuard vs Safe_Guard).
func checkXMLSections(tmpl string) []string {
	open := map[string]bool{}
	closed := map[string]bool{}
	for _, m := range xmlTagRe.FindAllStringSubmatch(tmpl, -1) {
		name := normalizeSectionName(m[2])
		if m[1] == "/" {
			closed[name] = true
		} else {
			open[name] = true
		}
	}

	var issues []string
	for _, s := range promptcraft.Sections {
		name := normalizeSectionName(s.Tag)
		if !open[name] || !closed[name] {
			issues = append(issues, fmt.Sprintf("缺少完整的 <%s>...</%s> 标签对", s.Tag, s.Tag))
		}
	}
	return issues
}

// normalizeSectionName makes heading/tag comparison tolerant to case, spaces,
// and underscores.
func normalizeSectionName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// CheckVariableCount reports the declared placeholder count against the
// configured minimum.
func CheckVariableCount(tmpl string, minVariables int) (count int, ok bool) {
	count = len(template.Keys(tmpl))
	return count, count >= minVariables
}
