package interview

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"promptsmith/pkg/core/promptcraft"
)

type draftResult struct {
	DraftPrompt string `json:"draft_prompt"`
}

type panelScore struct {
	Agent      string  `json:"agent"`
	Variant    string  `json:"variant"`
	Clarity    float64 `json:"clarity"`
	Robustness float64 `json:"robustness"`
	Alignment  float64 `json:"alignment"`
	Rationale  string  `json:"rationale"`
}

type critiqueResult struct {
	Scores    []panelScore `json:"scores"`
	Winner    string       `json:"winner"`
	Synthesis string       `json:"synthesis"`
}

type synthResult struct {
	FinalPrompt string `json:"final_prompt"`
}

var panelStances = map[string]string{
	"Architect":  "结构与可维护性",
	"RolePlayer": "角色与语气一致性",
	"Critic":     "漏洞与滥用风险",
}

// runAlchemy runs the finalize pipeline: three parallel stance drafts, one
// critique over all drafts, one fusion call. The model's own draft is only
// seed context; failure of any draft aborts the whole pipeline.
func (o *Orchestrator) runAlchemy(ctx context.Context, brief string, s *Session) (string, Deliberation, error) {
	stances := promptcraft.Stances
	drafts := make([]string, len(stances))
	errs := make([]error, len(stances))

	var wg sync.WaitGroup
	for i, stance := range stances {
		wg.Add(1)
		go func(i int, stance promptcraft.Stance) {
			defer wg.Done()
			system := promptcraft.VariantInstruction(stance, s.OutputFormat, o.modelLabel(s), o.Config.MinVariables)

			var out draftResult
			if err := o.Caller.GenerateObject(ctx, brief, system, nil, &out); err != nil {
				errs[i] = fmt.Errorf("variant %s failed: %w", stance.Label(), err)
				return
			}
			if strings.TrimSpace(out.DraftPrompt) == "" {
				errs[i] = fmt.Errorf("variant %s returned an empty draft", stance.Label())
				return
			}
			drafts[i] = out.DraftPrompt
		}(i, stance)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return "", Deliberation{}, err
		}
	}

	critique, err := o.runCritique(ctx, drafts, s)
	if err != nil {
		return "", Deliberation{}, err
	}

	final, err := o.runSynthesis(ctx, drafts, critique, s)
	if err != nil {
		return "", Deliberation{}, err
	}

	return final, buildCompetitionRecord(critique), nil
}

func (o *Orchestrator) runCritique(ctx context.Context, drafts []string, s *Session) (*critiqueResult, error) {
	var b strings.Builder
	b.WriteString("以下是三份待评审的提示词草稿:\n\n")
	for i, stance := range promptcraft.Stances {
		fmt.Fprintf(&b, "=== 草稿 %s ===\n%s\n\n", stance.Label(), drafts[i])
	}

	var out critiqueResult
	if err := o.Caller.GenerateObject(ctx, b.String(), promptcraft.CritiqueInstruction(s.OutputFormat), nil, &out); err != nil {
		return nil, fmt.Errorf("critique failed: %w", err)
	}

	seen := map[string]bool{}
	for _, score := range out.Scores {
		seen[score.Agent] = true
	}
	for _, name := range promptcraft.AgentNames {
		if !seen[name] {
			return nil, fmt.Errorf("critique response missing agent %s", name)
		}
	}
	return &out, nil
}

func (o *Orchestrator) runSynthesis(ctx context.Context, drafts []string, critique *critiqueResult, s *Session) (string, error) {
	var b strings.Builder
	b.WriteString("三份草稿:\n\n")
	for i, stance := range promptcraft.Stances {
		fmt.Fprintf(&b, "=== 草稿 %s ===\n%s\n\n", stance.Label(), drafts[i])
	}
	fmt.Fprintf(&b, "评审胜者: %s\n评审综合意见:\n%s\n", critique.Winner, critique.Synthesis)

	var out synthResult
	if err := o.Caller.GenerateObject(ctx, b.String(), promptcraft.SynthesisInstruction(s.OutputFormat, o.Config.MinVariables), nil, &out); err != nil {
		return "", fmt.Errorf("synthesis failed: %w", err)
	}
	if strings.TrimSpace(out.FinalPrompt) == "" {
		return "", fmt.Errorf("synthesis returned an empty final prompt")
	}
	return out.FinalPrompt, nil
}

// buildCompetitionRecord condenses the critique panel into the persisted
// deliberation: one entry per agent, scored on the winning variant.
func buildCompetitionRecord(critique *critiqueResult) Deliberation {
	d := Deliberation{Stage: "competition", Synthesis: critique.Synthesis}

	for _, name := range promptcraft.AgentNames {
		var picked *panelScore
		for i := range critique.Scores {
			row := &critique.Scores[i]
			if row.Agent != name {
				continue
			}
			if picked == nil || row.Variant == critique.Winner {
				picked = row
			}
			if row.Variant == critique.Winner {
				break
			}
		}
		if picked == nil {
			continue
		}
		d.Agents = append(d.Agents, AgentScore{
			Name:      name,
			Stance:    panelStances[name],
			Score:     (picked.Clarity + picked.Robustness + picked.Alignment) / 3,
			Rationale: picked.Rationale,
		})
	}

	d.ClampScores()
	return d
}
