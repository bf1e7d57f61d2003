package promptcraft

import (
	"fmt"
	"strings"

	"promptsmith/pkg/core/prompt"
)

// InterviewOptions carries the per-turn state the interview instruction
// depends on.
type InterviewOptions struct {
	CompletedRounds int
	RoundLimit      int
	ForceFinalize   bool
	OutputFormat    string // "markdown" or "xml"
	ModelLabel      string
	MinVariables    int
}

const interviewBase = `你是一位资深提示词工程师, 通过多轮访谈帮用户打磨出一份可复用的提示词模板。

工作方式:
- 每轮先用一两句话回应用户, 再决定是继续提问还是交付成品。
- 提问要具体, 能用选择题就不用开放题, 一次最多 3 个问题。
- 用户表达模糊时主动给出候选方向, 不要原样把问题抛回去。
- 全程使用中文与用户交流。`

const responseSchema = `RESPONSE FORMAT (严格 JSON, 不要输出其他内容):
{
  "reply": "对用户说的话",
  "final_prompt": "成品提示词, 未完成时为 null",
  "is_finished": false,
  "questions": [
    {
      "id": "q1",
      "text": "问题文本",
      "type": "single|multi|text",
      "options": [{"id": "a", "label": "选项"}],
      "allow_other": true,
      "allow_none": true,
      "max_select": 3
    }
  ],
  "deliberations": [
    {
      "stage": "阶段名",
      "agents": [{"name": "Agent", "stance": "立场", "score": 8, "rationale": "理由"}],
      "synthesis": "小结"
    }
  ]
}

一致性规则(必须同时满足):
- final_prompt 非空 时, is_finished 必须为 true 且 questions 必须为空数组。
- questions 非空 时, final_prompt 必须为 null 且 is_finished 必须为 false。
- text 类型的问题不携带 options/allow_other/allow_none/max_select。
- single/multi 类型的问题 options 不能为空。
- 每轮至少给出一条 deliberation 记录。`

// InterviewInstruction builds the system instruction for one interview or
// forced-generation turn.
func InterviewInstruction(opts InterviewOptions) string {
	base := prompt.GetStagePrompt(prompt.PromptIDs.InterviewSystem, interviewBase)

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n")

	if opts.ForceFinalize {
		b.WriteString("MODE: GENERATION\n")
		b.WriteString("访谈轮数已用完。本轮禁止再提问: questions 必须为空数组, is_finished 必须为 true, final_prompt 必须是完整成品。信息不足的地方自行做合理假设。\n")
	} else {
		b.WriteString("MODE: INTERVIEW\n")
		b.WriteString("信息足够时即可交付成品, 否则继续提问。\n")
	}

	if opts.RoundLimit > 0 {
		fmt.Fprintf(&b, "进度: 已完成 %d / %d 轮访谈。\n", opts.CompletedRounds, opts.RoundLimit)
	} else {
		fmt.Fprintf(&b, "进度: 已完成 %d 轮访谈, 轮数不设上限, 但要尽快收敛。\n", opts.CompletedRounds)
	}

	if opts.ModelLabel != "" {
		fmt.Fprintf(&b, "成品提示词将运行在 %s 上, 措辞风格要适配该模型。\n", opts.ModelLabel)
	}

	b.WriteString("\n")
	b.WriteString(FinalPromptRules(opts.OutputFormat, opts.MinVariables))
	b.WriteString("\n")
	b.WriteString(responseSchema)

	return b.String()
}

// FinalizeRetryInstruction is the stricter instruction used for the single
// retry after a forced-finalize turn came back without a usable template.
func FinalizeRetryInstruction(opts InterviewOptions) string {
	opts.ForceFinalize = true

	var b strings.Builder
	b.WriteString(InterviewInstruction(opts))
	b.WriteString("\n\nFINAL WARNING: 上一次输出不符合交付要求。这次只允许交付: ")
	b.WriteString(`输出 JSON 中 final_prompt 必须为非空字符串, is_finished 必须为 true, questions 必须为 []。不要解释, 不要再提任何问题。`)
	return b.String()
}

// Stance identifies one of the three fixed drafting styles used during
// variant generation.
type Stance string

const (
	StanceStructured    Stance = "structured"
	StanceRoleImmersive Stance = "role_immersive"
	StanceReasoning     Stance = "reasoning_robust"
)

// Stances in pipeline order (A, B, C).
var Stances = []Stance{StanceStructured, StanceRoleImmersive, StanceReasoning}

func (s Stance) promptID() string {
	switch s {
	case StanceStructured:
		return prompt.PromptIDs.VariantStructured
	case StanceRoleImmersive:
		return prompt.PromptIDs.VariantRoleImmersive
	case StanceReasoning:
		return prompt.PromptIDs.VariantReasoning
	}
	return ""
}

// Label returns the variant letter shown in critique output.
func (s Stance) Label() string {
	switch s {
	case StanceStructured:
		return "A"
	case StanceRoleImmersive:
		return "B"
	case StanceReasoning:
		return "C"
	}
	return "?"
}

var stanceBriefs = map[Stance]string{
	StanceStructured:    "你偏好高度结构化的模板: 层次分明, 每个部分短句列点, 规则可逐条核对, 不写多余的叙述。",
	StanceRoleImmersive: "你偏好角色沉浸式的模板: 用丰富的角色设定和场景描写让模型进入状态, 语气统一, 细节具体。",
	StanceReasoning:     "你偏好推理稳健型的模板: 强调分步思考, 显式的自检清单和边界条件处理, 宁可冗余也不留歧义。",
}

// VariantInstruction builds the system instruction for one parallel draft.
func VariantInstruction(stance Stance, outputFormat, modelLabel string, minVariables int) string {
	base := prompt.GetStagePrompt(stance.promptID(), stanceBriefs[stance])

	var b strings.Builder
	b.WriteString("你是一位资深提示词工程师, 独立完成一份成品提示词草稿。\n")
	b.WriteString(base)
	b.WriteString("\n\n")
	if modelLabel != "" {
		fmt.Fprintf(&b, "草稿将运行在 %s 上。\n", modelLabel)
	}
	b.WriteString(FinalPromptRules(outputFormat, minVariables))
	b.WriteString("\nRESPONSE FORMAT (严格 JSON): {\"draft_prompt\": \"完整草稿\"}\n")
	b.WriteString("draft_prompt 不能为空, 不要输出 JSON 之外的内容。")
	return b.String()
}

// AgentNames lists the three critique panelists; a critique response missing
// any of them is rejected.
var AgentNames = []string{"Architect", "RolePlayer", "Critic"}

const critiqueBase = `你们是三位评审, 对三份提示词草稿打分并选出胜者:
- Architect: 关注结构与可维护性。
- RolePlayer: 关注角色设定与语气一致性。
- Critic: 关注漏洞, 歧义和被滥用的可能。

每位评审对每份草稿在三个维度各打 0-10 分: clarity(清晰度), robustness(稳健性), alignment(贴合需求), 三项合计 0-30。`

// CritiqueInstruction builds the panel instruction for the single critique
// call over all three drafts.
func CritiqueInstruction(outputFormat string) string {
	base := prompt.GetStagePrompt(prompt.PromptIDs.CritiquePanel, critiqueBase)

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nRESPONSE FORMAT (严格 JSON):\n")
	b.WriteString(`{
  "scores": [
    {
      "agent": "Architect",
      "variant": "A",
      "clarity": 8,
      "robustness": 7,
      "alignment": 9,
      "rationale": "理由"
    }
  ],
  "winner": "A|B|C",
  "synthesis": "综合评语: 各草稿值得保留的部分与需要规避的问题"
}`)
	b.WriteString("\n\nscores 必须覆盖 3 位评审 × 3 份草稿共 9 条, agent 名称必须严格使用 Architect, RolePlayer, Critic。")
	return b.String()
}

const synthesisBase = `你是首席提示词工程师, 负责把三份草稿融合成一份成品: 以评审胜者为骨架, 吸收其余草稿的长处, 修掉评审点名的问题。不要简单拼接。`

// SynthesisInstruction builds the fusion instruction.
func SynthesisInstruction(outputFormat string, minVariables int) string {
	base := prompt.GetStagePrompt(prompt.PromptIDs.SynthesisFuse, synthesisBase)

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n")
	b.WriteString(FinalPromptRules(outputFormat, minVariables))
	b.WriteString("\nRESPONSE FORMAT (严格 JSON): {\"final_prompt\": \"融合后的成品\"}\n")
	b.WriteString("final_prompt 不能为空, 不要输出 JSON 之外的内容。")
	return b.String()
}

const guardReviewBase = `你是提示词质量与安全审计员, 对候选模板做逐条审计, 只依据规则判定, 不做风格偏好评价。`

// GuardReviewInstruction builds the audit instruction for one guard-review
// call.
func GuardReviewInstruction(outputFormat string, minVariables int) string {
	base := prompt.GetStagePrompt(prompt.PromptIDs.GuardReview, guardReviewBase)

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n审计标准:\n")
	b.WriteString(FinalPromptRules(outputFormat, minVariables))
	b.WriteString("\nRESPONSE FORMAT (严格 JSON):\n")
	b.WriteString(`{
  "passed": true,
  "issues": ["发现的问题, 逐条列出"],
  "revised_prompt": "如果能顺手修好, 给出修订版, 否则为 null",
  "variables": ["模板声明的全部变量 key"]
}`)
	return b.String()
}

const guardFixBase = `你是提示词修复工程师。给定一份候选模板和问题清单, 输出修复后的完整模板: 逐条解决清单中的问题, 其余内容尽量原样保留。`

// GuardFixInstruction builds the repair instruction. Unlike review, the fix
// call must always return a usable revision.
func GuardFixInstruction(outputFormat string, minVariables int) string {
	base := prompt.GetStagePrompt(prompt.PromptIDs.GuardFix, guardFixBase)

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n修复后的模板必须满足:\n")
	b.WriteString(FinalPromptRules(outputFormat, minVariables))
	b.WriteString("\nRESPONSE FORMAT (严格 JSON): {\"revised_prompt\": \"修复后的完整模板\"}\n")
	b.WriteString("revised_prompt 必须为非空字符串。")
	return b.String()
}
