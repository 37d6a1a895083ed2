package chat

import (
	"errors"
	"math"
	"net/http"

	"github.com/zhouzirui/madchat/backend/internal/model/persona"
	"github.com/zhouzirui/madchat/backend/internal/service/ai"
	"github.com/zhouzirui/madchat/backend/internal/service/conversation"
)

// Payload is the /chat request body. Field names match what the web client sends.
type Payload struct {
	MessageContent string  `json:"message_content"`
	ConversationID string  `json:"conversation_id"`
	SystemPrompt   string  `json:"system_prompt"`
	PromptID       int     `json:"prompt_id"`
	AngerLevel     float64 `json:"anger_level"`
	Mode           string  `json:"personality_mode"`
	GlitchLevel    float64 `json:"glitch_level"`
	UsePromptUtils *bool   `json:"use_prompt_utils"`

	Temperature  *float64 `json:"temperature"`
	TopP         *float64 `json:"top_p"`
	MaxNewTokens *int     `json:"max_new_tokens"`

	UserData *persona.UserProfile `json:"userData"`
}

// ToRequest converts the wire payload into an engine request. Persona synthesis is
// on unless the client explicitly turns it off.
func (p Payload) ToRequest() conversation.Request {
	usePersona := true
	if p.UsePromptUtils != nil {
		usePersona = *p.UsePromptUtils
	}

	return conversation.Request{
		Message:      p.MessageContent,
		SessionID:    p.ConversationID,
		SystemPrompt: p.SystemPrompt,
		PromptID:     p.PromptID,
		UsePersona:   usePersona,
		Persona: persona.Params{
			AngerLevel:  angerFromFloat(p.AngerLevel),
			Mode:        persona.Mode(p.Mode),
			GlitchLevel: p.GlitchLevel,
			UserProfile: p.UserData,
		},
		Generation: conversation.GenerationParams{
			Temperature: p.Temperature,
			TopP:        p.TopP,
			MaxTokens:   p.MaxNewTokens,
		},
	}
}

// angerFromFloat clamps before converting so huge values can't overflow an int.
func angerFromFloat(v float64) int {
	if math.IsNaN(v) || v <= persona.MinAnger {
		return persona.MinAnger
	}
	if v >= persona.MaxAnger {
		return persona.MaxAnger
	}
	return int(v)
}

// ErrorEnvelope is returned instead of a reply when the turn could not complete.
type ErrorEnvelope struct {
	Error          string  `json:"error"`
	Response       string  `json:"response"`
	UserMessage    string  `json:"user_message"`
	ConversationID *string `json:"conversation_id"`
}

// NewErrorEnvelope fills an envelope from a failed turn. An empty session id is
// rendered as null.
func NewErrorEnvelope(err error, resp conversation.Response) ErrorEnvelope {
	envelope := ErrorEnvelope{
		Error:       err.Error(),
		Response:    conversation.FallbackReply,
		UserMessage: resp.UserMessage,
	}
	if resp.SessionID != "" {
		id := resp.SessionID
		envelope.ConversationID = &id
	}
	return envelope
}

// StatusFor maps a turn error onto an HTTP status.
func StatusFor(err error) int {
	if errors.Is(err, ai.ErrBackendUnavailable) {
		return http.StatusServiceUnavailable
	}
	var upstream *ai.UpstreamError
	if errors.As(err, &upstream) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
