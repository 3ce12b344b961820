package generation

import "fmt"

// Tone values accepted by GenerateContent.
const (
	ToneProfessional = "professional"
	ToneCasual       = "casual"
	ToneTechnical    = "technical"
	ToneCreative     = "creative"
)

// Length values accepted by GenerateContent.
const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

// Enhancement subtypes accepted by EnhanceContent.
const (
	EnhanceExpand    = "expand"
	EnhanceSimplify  = "simplify"
	EnhanceImprove   = "improve"
	EnhanceSummarize = "summarize"
)

// Feature kind tags written to usage records.
const (
	FeatureContentGeneration = "content_generation"
	FeatureGrammarCorrection = "grammar_correction"
	FeatureTitleSuggestion   = "title_suggestion"
	featureEnhancePrefix     = "enhance_"
)

// EnhanceFeature returns the flattened feature tag for an enhancement subtype.
func EnhanceFeature(enhanceType string) string {
	return featureEnhancePrefix + enhanceType
}

// toneDirectives holds the fixed phrasing for each tone.
var toneDirectives = map[string]string{
	ToneProfessional: "Write in a professional, polished tone suitable for a business audience.",
	ToneCasual:       "Write in a casual, conversational tone, as if talking to a friend.",
	ToneTechnical:    "Write in a precise, technical tone using correct domain terminology.",
	ToneCreative:     "Write in a creative, vivid tone with engaging imagery.",
}

// lengthSpec pairs a target word count with an output token ceiling.
type lengthSpec struct {
	words     int
	maxTokens int
}

// lengthSpecs holds the fixed length directives: short→300, medium→600,
// long→1200 output tokens.
var lengthSpecs = map[string]lengthSpec{
	LengthShort:  {words: 200, maxTokens: 300},
	LengthMedium: {words: 500, maxTokens: 600},
	LengthLong:   {words: 1000, maxTokens: 1200},
}

// enhanceInstructions holds the persona and instruction per subtype.
var enhanceInstructions = map[string]string{
	EnhanceExpand:    "You are an editor expanding blog content. Expand the following text with more detail, examples, and explanation while preserving its meaning and voice. Return only the expanded text.",
	EnhanceSimplify:  "You are an editor simplifying blog content. Rewrite the following text in simpler, clearer language a general reader can follow. Return only the simplified text.",
	EnhanceImprove:   "You are an editor improving blog content. Improve the flow, word choice, and clarity of the following text without changing its meaning. Return only the improved text.",
	EnhanceSummarize: "You are an editor summarizing blog content. Summarize the following text into its key points, keeping the author's voice. Return only the summary.",
}

// buildContentPrompt concatenates the tone and length directives with the
// caller's prompt into a single instruction block.
func buildContentPrompt(prompt, tone, length string) string {
	spec := lengthSpecs[length]
	return fmt.Sprintf(
		"You are an expert blog writer. %s Aim for roughly %d words.\n\nWrite a blog post about the following:\n\n%s",
		toneDirectives[tone], spec.words, prompt,
	)
}

// buildGrammarPrompt demands the corrected text verbatim with no commentary.
func buildGrammarPrompt(text string) string {
	return "Correct the grammar, spelling, and punctuation of the following text. " +
		"Return only the corrected text, preserving the original formatting, with no commentary:\n\n" + text
}

// buildEnhancePrompt concatenates the subtype instruction with the text.
func buildEnhancePrompt(text, enhanceType string) string {
	return enhanceInstructions[enhanceType] + "\n\n" + text
}

// buildTitlesPrompt requests newline-delimited titles.
func buildTitlesPrompt(content string, count int) string {
	return fmt.Sprintf(
		"Suggest %d engaging blog post titles for the following content. "+
			"Return exactly one title per line, with no numbering or extra text:\n\n%s",
		count, content,
	)
}
