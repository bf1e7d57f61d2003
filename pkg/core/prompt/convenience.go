package prompt

// PromptIDs contains all known stage instruction identifiers. Resource files
// registered under these IDs override the built-in texts.
var PromptIDs = struct {
	InterviewSystem string

	VariantStructured    string
	VariantRoleImmersive string
	VariantReasoning     string

	CritiquePanel string
	SynthesisFuse string

	GuardReview string
	GuardFix    string
}{
	InterviewSystem: "interview.system",

	VariantStructured:    "variant.structured",
	VariantRoleImmersive: "variant.role_immersive",
	VariantReasoning:     "variant.reasoning_robust",

	CritiquePanel: "critique.panel",
	SynthesisFuse: "synthesis.fuse",

	GuardReview: "guard.review",
	GuardFix:    "guard.fix",
}

// GetStagePrompt returns a stage instruction override, or the supplied
// built-in default when none was loaded.
func GetStagePrompt(id string, fallback string) string {
	return Get().GetSystemPromptOr(id, fallback)
}
