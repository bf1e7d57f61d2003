package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"promptsmith/pkg/core/guard"
	"promptsmith/pkg/core/promptcraft"
	"promptsmith/pkg/core/template"
)

// Caller is the single LLM invocation surface the orchestration consumes.
type Caller interface {
	GenerateObject(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}, out interface{}) error
}

// Stable error classes the HTTP layer maps onto status codes.
var (
	ErrInvalidInput  = errors.New("INVALID_INPUT")
	ErrModelContract = errors.New("MODEL_CONTRACT_VIOLATION")
)

// Orchestrator drives one session turn end to end: interview call, optional
// forced finalize, synthesis pipeline, and guard loop. It mutates the passed
// session; persistence belongs to the caller.
type Orchestrator struct {
	Caller     Caller
	Config     Config
	ModelLabel string
	// Notify, when set, receives stage names for incremental UI feedback. It
	// must not change the outcome of the turn.
	Notify func(stage string)
}

func (o *Orchestrator) notify(stage string) {
	if o.Notify != nil {
		o.Notify(stage)
	}
}

func (o *Orchestrator) modelLabel(s *Session) string {
	if o.ModelLabel != "" {
		return o.ModelLabel
	}
	return s.ModelID
}

// ProcessTurn handles one user exchange. On success the session reflects the
// appended turns and updated state; on error the session must not be
// persisted by the caller.
func (o *Orchestrator) ProcessTurn(ctx context.Context, s *Session, input TurnInput) (*TurnResult, error) {
	if strings.TrimSpace(input.Message) == "" && len(input.Answers) == 0 {
		return nil, fmt.Errorf("%w: message or answers required", ErrInvalidInput)
	}
	if input.OutputFormat != "" {
		if input.OutputFormat != "markdown" && input.OutputFormat != "xml" {
			return nil, fmt.Errorf("%w: unsupported output format %q", ErrInvalidInput, input.OutputFormat)
		}
		s.OutputFormat = input.OutputFormat
	}
	if s.OutputFormat == "" {
		s.OutputFormat = "markdown"
	}
	if input.ModelID != "" {
		s.ModelID = input.ModelID
	}

	completed := s.CompletedRounds()
	force := o.Config.RoundLimit > 0 && completed >= o.Config.RoundLimit

	userTurn := Turn{Kind: TurnText, Role: RoleUser, Text: input.Message, Timestamp: time.Now()}
	if len(input.Answers) > 0 {
		userTurn.Kind = TurnForm
		userTurn.Questions = s.State.Questions
		userTurn.Answers = input.Answers
	}
	s.History = append(s.History, userTurn)

	if s.Title == "" {
		s.Title = template.DeriveTitle(RenderTurnForModel(userTurn))
	}

	opts := promptcraft.InterviewOptions{
		CompletedRounds: completed,
		RoundLimit:      o.Config.RoundLimit,
		ForceFinalize:   force,
		OutputFormat:    s.OutputFormat,
		ModelLabel:      o.modelLabel(s),
		MinVariables:    o.Config.MinVariables,
	}

	o.notify("llm")
	mt, err := o.interviewCall(ctx, s, promptcraft.InterviewInstruction(opts))
	if err != nil {
		return nil, err
	}

	if verr := validateModelTurn(mt, force); verr != nil {
		if !force {
			return nil, verr
		}
		// one strict retry, then give up
		mt, err = o.interviewCall(ctx, s, promptcraft.FinalizeRetryInstruction(opts))
		if err != nil {
			return nil, err
		}
		if verr := validateModelTurn(mt, force); verr != nil {
			return nil, verr
		}
	}

	for i := range mt.Deliberations {
		mt.Deliberations[i].ClampScores()
	}
	s.State.Deliberations = append(s.State.Deliberations, mt.Deliberations...)

	result := &TurnResult{
		Reply:         mt.Reply,
		Questions:     mt.Questions,
		Deliberations: mt.Deliberations,
	}

	if strings.TrimSpace(mt.FinalPrompt) != "" {
		final, competition, err := o.finalize(ctx, s, mt)
		if err != nil {
			return nil, err
		}
		s.State.Deliberations = append(s.State.Deliberations, competition)
		s.State.FinalPrompt = final
		s.State.IsFinished = true
		s.State.Questions = nil
		s.Title = template.DeriveTitle(final)

		result.FinalPrompt = final
		result.IsFinished = true
		result.Questions = nil
		result.Deliberations = append(result.Deliberations, competition)
	} else {
		s.State.Questions = mt.Questions
		s.State.IsFinished = false
	}
	s.State.DraftAnswers = nil

	assistantTurn := Turn{Kind: TurnText, Role: RoleAssistant, Text: mt.Reply, Timestamp: time.Now()}
	if len(mt.Questions) > 0 {
		assistantTurn.Kind = TurnForm
		assistantTurn.Questions = mt.Questions
	}
	s.History = append(s.History, assistantTurn)

	if limit := o.Config.HistoryCap; limit > 0 && len(s.History) > limit {
		s.History = s.History[len(s.History)-limit:]
	}
	s.UpdatedAt = time.Now()

	result.Title = s.Title
	return result, nil
}

// interviewCall renders the capped history into one prompt and runs the
// structured interview call.
func (o *Orchestrator) interviewCall(ctx context.Context, s *Session, system string) (*ModelTurn, error) {
	var b strings.Builder
	b.WriteString("对话记录:\n")
	history := s.History
	if limit := o.Config.HistoryCap; limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	for _, t := range history {
		fmt.Fprintf(&b, "[%s] %s\n", t.Role, RenderTurnForModel(t))
	}

	var mt ModelTurn
	if err := o.Caller.GenerateObject(ctx, b.String(), system, nil, &mt); err != nil {
		return nil, err
	}
	mt.FinalPrompt = strings.TrimSpace(mt.FinalPrompt)
	return &mt, nil
}

// finalize runs the synthesis pipeline and the guard loop. The guard loop is
// best-effort: its failure keeps the fused candidate instead of failing the
// turn.
func (o *Orchestrator) finalize(ctx context.Context, s *Session, mt *ModelTurn) (string, Deliberation, error) {
	o.notify("alchemy")

	brief := o.buildBrief(s, mt.FinalPrompt)
	fused, competition, err := o.runAlchemy(ctx, brief, s)
	if err != nil {
		return "", Deliberation{}, err
	}

	o.notify("guard")
	loop := &guard.Loop{
		Caller:       o.Caller,
		OutputFormat: s.OutputFormat,
		MinVariables: o.Config.MinVariables,
		CountPolicy:  o.Config.CountPolicy,
	}
	final, report, err := loop.Run(ctx, fused)
	if err != nil {
		fmt.Printf("[Orchestrator] guard loop unavailable, keeping fused candidate: %v\n", err)
		return fused, competition, nil
	}
	if !report.Passed && len(report.Issues) > 0 {
		fmt.Printf("[Orchestrator] guard accepted best-effort template with %d open issues\n", len(report.Issues))
	}
	return final, competition, nil
}

// buildBrief condenses the conversation plus the model's seed draft into the
// context given to the variant writers.
func (o *Orchestrator) buildBrief(s *Session, seed string) string {
	var b strings.Builder
	b.WriteString("需求访谈记录:\n")
	for _, t := range s.History {
		fmt.Fprintf(&b, "[%s] %s\n", t.Role, RenderTurnForModel(t))
	}
	if seed != "" {
		b.WriteString("\n初稿(仅供参考, 不要照抄):\n")
		b.WriteString(seed)
	}
	return b.String()
}

// validateModelTurn enforces the response contract: at least one deliberation,
// question shape, and the mutual exclusivity of final_prompt, is_finished,
// and questions. Under
// forceFinalize the turn must additionally deliver a template.
func validateModelTurn(mt *ModelTurn, forceFinalize bool) error {
	if len(mt.Deliberations) == 0 {
		return fmt.Errorf("%w: turn carries no deliberations", ErrModelContract)
	}
	for _, q := range mt.Questions {
		switch q.Type {
		case QuestionSingle, QuestionMulti:
			if len(q.Options) == 0 {
				return fmt.Errorf("%w: question %s is selectable but has no options", ErrModelContract, q.ID)
			}
		case QuestionText:
		default:
			return fmt.Errorf("%w: question %s has unknown type %q", ErrModelContract, q.ID, q.Type)
		}
	}

	hasFinal := strings.TrimSpace(mt.FinalPrompt) != ""
	if hasFinal && (!mt.IsFinished || len(mt.Questions) > 0) {
		return fmt.Errorf("%w: final_prompt present but turn not cleanly finished", ErrModelContract)
	}
	if !hasFinal && mt.IsFinished {
		return fmt.Errorf("%w: is_finished without a final_prompt", ErrModelContract)
	}
	if len(mt.Questions) > 0 && mt.IsFinished {
		return fmt.Errorf("%w: questions posed on a finished turn", ErrModelContract)
	}

	if forceFinalize && (!hasFinal || len(mt.Questions) > 0 || !mt.IsFinished) {
		return fmt.Errorf("%w: finalize required but model kept interviewing", ErrModelContract)
	}
	return nil
}
