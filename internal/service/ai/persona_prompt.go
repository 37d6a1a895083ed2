package ai

import (
	"strings"

	"github.com/zhouzirui/madchat/backend/internal/model/persona"
)

const (
	promptLeadIn  = "Respond to the text in quotes as if you are a"
	promptBridge  = "You are also"
	promptClosing = "Here is the text to respond to"
)

// PromptBuilder synthesizes the persona system prompt for one request.
type PromptBuilder struct {
	generation persona.Generation
	rng        Source
}

// NewPromptBuilder creates a builder for the given generation. A nil rng uses
// DefaultSource.
func NewPromptBuilder(generation persona.Generation, rng Source) *PromptBuilder {
	if rng == nil {
		rng = DefaultSource
	}
	if _, ok := persona.ParseGeneration(string(generation)); !ok {
		generation = persona.GenerationCensored
	}
	return &PromptBuilder{generation: generation, rng: rng}
}

// Generation reports which profanity policy the builder writes prompts for.
func (b *PromptBuilder) Generation() persona.Generation {
	return b.generation
}

// BuildSystemPrompt composes the role instructions in a fixed order: lead-in,
// character, anger, optional user context and finally the quoted message.
//
// The message is embedded verbatim. Quotes or instructions inside it can change
// how the model reads the framing; callers that need isolation must sanitize first.
func (b *PromptBuilder) BuildSystemPrompt(message string, angerLevel int, mode persona.Mode, profile *persona.UserProfile) string {
	var builder strings.Builder
	builder.WriteString(promptLeadIn)
	builder.WriteString(" ")
	builder.WriteString(ProfileDescription(mode))
	builder.WriteString(". ")
	builder.WriteString(promptBridge)
	builder.WriteString(" ")
	builder.WriteString(b.LevelDescription(angerLevel))
	builder.WriteString(". ")

	if userCtx := UserContext(profile, angerLevel); userCtx != "" {
		builder.WriteString(userCtx)
		builder.WriteString(" ")
	}

	builder.WriteString(promptClosing)
	builder.WriteString(": \"")
	builder.WriteString(message)
	builder.WriteString("\"")
	return builder.String()
}

// BuildFromParams is BuildSystemPrompt over a normalized parameter set.
func (b *PromptBuilder) BuildFromParams(message string, params persona.Params) string {
	params = params.Normalize()
	return b.BuildSystemPrompt(message, params.AngerLevel, params.Mode, params.UserProfile)
}
