package guard

import (
	"context"
	"fmt"
	"strings"

	"promptsmith/pkg/core/promptcraft"
)

// Caller is the LLM invocation surface the loop needs: one structured call.
type Caller interface {
	GenerateObject(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}, out interface{}) error
}

// ReviewResult is the structured verdict of one guard-review call.
type ReviewResult struct {
	Passed        bool     `json:"passed"`
	Issues        []string `json:"issues"`
	RevisedPrompt string   `json:"revised_prompt"`
	Variables     []string `json:"variables"`
}

type fixResult struct {
	RevisedPrompt string `json:"revised_prompt"`
}

// CountPolicy decides what happens when the final template still declares
// fewer placeholders than the configured minimum.
type CountPolicy string

const (
	// CountLenient logs the shortfall and accepts the template.
	CountLenient CountPolicy = "lenient"
	// CountStrict spends one extra repair call on the shortfall.
	CountStrict CountPolicy = "strict"
)

// Loop runs the bounded review/repair policy over one candidate template.
// It performs at most 5 repair calls and always returns a template; guard
// failure is never fatal to the turn.
type Loop struct {
	Caller       Caller
	OutputFormat string
	MinVariables int
	CountPolicy  CountPolicy
}

// Report summarizes what the loop did with one candidate.
type Report struct {
	Passed        bool
	Issues        []string
	RepairCalls   int
	VariableCount int
}

// Run audits candidate and repairs it where needed. The returned template is
// the best candidate after the bounded policy; err is non-nil only when even
// the initial review call could not be made.
func (l *Loop) Run(ctx context.Context, candidate string) (string, *Report, error) {
	minVars := promptcraft.SanitizeMinVariables(l.MinVariables)
	report := &Report{}
	best := candidate

	review, err := l.review(ctx, best)
	if err != nil {
		return best, report, fmt.Errorf("guard review failed: %w", err)
	}

	if review.Passed {
		report.Passed = true
	} else {
		issues := append([]string{}, review.Issues...)

		adopted := false
		if strings.TrimSpace(review.RevisedPrompt) != "" {
			second, err := l.review(ctx, review.RevisedPrompt)
			if err == nil && second.Passed {
				best = review.RevisedPrompt
				report.Passed = true
				adopted = true
			} else if err == nil {
				issues = append(issues, second.Issues...)
			}
		}

		if !adopted {
			// Escalate to a fix call and accept its result regardless of the
			// follow-up verdict. The fix pass is terminal, not a retry loop.
			if fixed, err := l.fix(ctx, best, issues, report); err == nil {
				best = fixed
				if final, err := l.review(ctx, best); err == nil {
					report.Passed = final.Passed
					report.Issues = final.Issues
				} else {
					report.Issues = issues
				}
			} else {
				fmt.Printf("[Guard] fix call failed, keeping unrepaired candidate: %v\n", err)
				report.Issues = issues
			}
		}
	}

	// Single-shot repairs for each independent check; the fix output is not
	// re-validated, it simply becomes the candidate for the next step.
	if issues := CheckVariableMetadata(best); len(issues) > 0 {
		best = l.fixOrKeep(ctx, best, issues, report)
	}
	if issues := CheckStructure(best, l.OutputFormat); len(issues) > 0 {
		best = l.fixOrKeep(ctx, best, issues, report)
	}
	if cats := DetectInjections(best); len(cats) > 0 {
		issues := make([]string, len(cats))
		for i, c := range cats {
			issues[i] = "模板包含疑似提示注入措辞: " + c
		}
		best = l.fixOrKeep(ctx, best, issues, report)
	}

	count, ok := CheckVariableCount(best, minVars)
	report.VariableCount = count
	if !ok {
		shortfall := fmt.Sprintf("占位符数量不足: 声明了 %d 个, 至少需要 %d 个", count, minVars)
		if l.CountPolicy == CountStrict {
			best = l.fixOrKeep(ctx, best, []string{shortfall}, report)
			report.VariableCount, _ = CheckVariableCount(best, minVars)
		} else {
			fmt.Printf("[Guard] %s (宽松策略, 仅记录)\n", shortfall)
			report.Issues = append(report.Issues, shortfall)
		}
	}

	return best, report, nil
}

func (l *Loop) review(ctx context.Context, candidate string) (*ReviewResult, error) {
	system := promptcraft.GuardReviewInstruction(l.OutputFormat, l.MinVariables)
	user := "候选模板:\n---\n" + candidate + "\n---"

	var out ReviewResult
	if err := l.Caller.GenerateObject(ctx, user, system, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// fix runs one guard-fix call and errors when the revision is unusable.
func (l *Loop) fix(ctx context.Context, candidate string, issues []string, report *Report) (string, error) {
	system := promptcraft.GuardFixInstruction(l.OutputFormat, l.MinVariables)

	var b strings.Builder
	b.WriteString("候选模板:\n---\n")
	b.WriteString(candidate)
	b.WriteString("\n---\n\n问题清单:\n")
	for i, issue := range issues {
		fmt.Fprintf(&b, "%d. %s\n", i+1, issue)
	}

	report.RepairCalls++

	var out fixResult
	if err := l.Caller.GenerateObject(ctx, b.String(), system, nil, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.RevisedPrompt) == "" {
		return "", fmt.Errorf("guard fix returned an empty revision")
	}
	return out.RevisedPrompt, nil
}

// fixOrKeep is fix with keep-on-failure semantics for the single-shot steps.
func (l *Loop) fixOrKeep(ctx context.Context, candidate string, issues []string, report *Report) string {
	fixed, err := l.fix(ctx, candidate, issues, report)
	if err != nil {
		fmt.Printf("[Guard] single-shot fix failed, keeping candidate: %v\n", err)
		report.Issues = append(report.Issues, issues...)
		return candidate
	}
	return fixed
}
