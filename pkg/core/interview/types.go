// Package interview implements the conversational loop that elicits
// requirements over multiple rounds and hands finished sessions to the
// synthesis and guard stages.
package interview

import (
	"encoding/json"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn kinds. A text turn carries plain content; a form turn natively carries
// the posed questions or the structured answers instead of smuggling them
// through an encoded string.
const (
	TurnText = "text"
	TurnForm = "form"
)

// Turn is one immutable history entry.
type Turn struct {
	Kind      string            `json:"kind"`
	Role      string            `json:"role"`
	Text      string            `json:"text,omitempty"`
	Questions []Question        `json:"questions,omitempty"`
	Answers   map[string]Answer `json:"answers,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Question types.
const (
	QuestionSingle = "single"
	QuestionMulti  = "multi"
	QuestionText   = "text"
)

type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Question is one clarifying question posed to the user. A text question
// carries no options or selection flags.
type Question struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Type       string   `json:"type"`
	Options    []Option `json:"options,omitempty"`
	AllowOther bool     `json:"allow_other,omitempty"`
	AllowNone  bool     `json:"allow_none,omitempty"`
	MaxSelect  int      `json:"max_select,omitempty"`
}

// UnmarshalJSON applies the selection-flag defaults: allow_other and
// allow_none default to true for single/multi questions when omitted.
func (q *Question) UnmarshalJSON(data []byte) error {
	type alias Question
	aux := struct {
		AllowOther *bool `json:"allow_other"`
		AllowNone  *bool `json:"allow_none"`
		*alias
	}{alias: (*alias)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	selectable := q.Type == QuestionSingle || q.Type == QuestionMulti
	q.AllowOther = selectable
	q.AllowNone = selectable
	if aux.AllowOther != nil {
		q.AllowOther = *aux.AllowOther && selectable
	}
	if aux.AllowNone != nil {
		q.AllowNone = *aux.AllowNone && selectable
	}
	if !selectable {
		q.Options = nil
		q.MaxSelect = 0
	}
	return nil
}

// AgentScore is one panelist's verdict inside a deliberation record.
type AgentScore struct {
	Name      string  `json:"name"`
	Stance    string  `json:"stance"`
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// Deliberation records one simulated multi-agent scoring round.
type Deliberation struct {
	Stage     string       `json:"stage"`
	Agents    []AgentScore `json:"agents"`
	Synthesis string       `json:"synthesis"`
}

// ClampScores forces every agent score into [0, 10].
func (d *Deliberation) ClampScores() {
	for i := range d.Agents {
		if d.Agents[i].Score < 0 {
			d.Agents[i].Score = 0
		}
		if d.Agents[i].Score > 10 {
			d.Agents[i].Score = 10
		}
	}
}

// ModelTurn is the structured response schema of one interview LLM call.
type ModelTurn struct {
	Reply         string         `json:"reply"`
	FinalPrompt   string         `json:"final_prompt"`
	IsFinished    bool           `json:"is_finished"`
	Questions     []Question     `json:"questions"`
	Deliberations []Deliberation `json:"deliberations"`
}

// State is the per-session orchestration state persisted alongside history.
type State struct {
	Questions     []Question        `json:"questions"`
	Deliberations []Deliberation    `json:"deliberations"`
	FinalPrompt   string            `json:"final_prompt,omitempty"`
	IsFinished    bool              `json:"is_finished"`
	DraftAnswers  map[string]Answer `json:"draft_answers,omitempty"`
}

// Session is one interview conversation.
type Session struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	ModelID      string    `json:"model_id"`
	OutputFormat string    `json:"output_format"`
	History      []Turn    `json:"history"`
	State        State     `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CompletedRounds counts prior assistant turns; it drives the round limit.
func (s *Session) CompletedRounds() int {
	n := 0
	for _, t := range s.History {
		if t.Role == RoleAssistant {
			n++
		}
	}
	return n
}

// TurnInput is one submitted user exchange.
type TurnInput struct {
	Message      string            `json:"message,omitempty"`
	Answers      map[string]Answer `json:"answers,omitempty"`
	ModelID      string            `json:"modelId,omitempty"`
	OutputFormat string            `json:"outputFormat,omitempty"`
}

// TurnResult is what one completed exchange returns to the caller.
type TurnResult struct {
	Reply         string         `json:"reply"`
	FinalPrompt   string         `json:"final_prompt,omitempty"`
	IsFinished    bool           `json:"is_finished"`
	Questions     []Question     `json:"questions"`
	Deliberations []Deliberation `json:"deliberations"`
	Title         string         `json:"title,omitempty"`
}
