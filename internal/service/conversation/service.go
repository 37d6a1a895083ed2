package conversation

import (
	"context"
	"log"
	"math"
	"strings"
	"time"

	"github.com/zhouzirui/madchat/backend/internal/model/chat"
	"github.com/zhouzirui/madchat/backend/internal/model/persona"
	"github.com/zhouzirui/madchat/backend/internal/service/ai"
	"github.com/zhouzirui/madchat/backend/internal/service/obfuscate"
)

// FallbackReply is returned to clients when the model call failed.
const FallbackReply = "An error occurred while processing your request."

// DefaultCleanupHours is the idle age used when a cleanup request names none.
const DefaultCleanupHours = 24

// SessionStore is the subset of the session store a conversation needs.
type SessionStore interface {
	GetOrCreate(ctx context.Context, sessionID string) (string, chat.Transcript)
	Pin(ctx context.Context, sessionID string) (string, func())
	AppendUser(ctx context.Context, sessionID, content string) chat.Transcript
	AppendAssistant(ctx context.Context, sessionID, content string) bool
	ListAll(ctx context.Context) map[string]chat.Transcript
	EvictOlderThan(ctx context.Context, maxAge time.Duration) int
	Count() int
}

// Generator is the model collaborator.
type Generator interface {
	GenerateReply(ctx context.Context, turns []chat.Turn, opts ai.GenerateOptions) (string, error)
	BackendName() string
}

// Defaults fill in whatever a request leaves unset.
type Defaults struct {
	Temperature  float64
	TopP         float64
	MaxTokens    int
	SystemPrompt string
}

// Dependencies groups the collaborators of a Service.
type Dependencies struct {
	Sessions   SessionStore
	Generator  Generator
	Prompts    *ai.PromptBuilder
	Presets    persona.Store
	Obfuscator *obfuscate.Obfuscator
	Defaults   Defaults
}

// GenerationParams are optional per-request sampling overrides.
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Request is one chat turn as the transport layer hands it over.
type Request struct {
	Message      string
	SessionID    string
	SystemPrompt string
	PromptID     int
	UsePersona   bool
	Persona      persona.Params
	Generation   GenerationParams
}

// Response is the successful (or fallback) outcome of a turn.
type Response struct {
	Reply       string `json:"response"`
	UserMessage string `json:"user_message"`
	SessionID   string `json:"conversation_id"`
}

// SessionList is the operational view of the store.
type SessionList struct {
	Conversations map[string]chat.Transcript `json:"conversations"`
	Count         int                        `json:"count"`
}

// CleanupResult reports an eviction sweep.
type CleanupResult struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

// Service runs chat turns: prompt synthesis, transcript bookkeeping, the model call
// and reply post-processing.
type Service struct {
	sessions   SessionStore
	generator  Generator
	prompts    *ai.PromptBuilder
	presets    persona.Store
	obfuscator *obfuscate.Obfuscator
	defaults   Defaults
}

// NewService wires a conversation service. Missing optional pieces get defaults.
func NewService(deps Dependencies) *Service {
	if deps.Prompts == nil {
		deps.Prompts = ai.NewPromptBuilder(persona.GenerationCensored, nil)
	}
	if deps.Obfuscator == nil {
		deps.Obfuscator = obfuscate.New(obfuscate.PolicyFor(deps.Prompts.Generation()), nil)
	}
	if deps.Presets == nil {
		deps.Presets = persona.NewMemoryStore(persona.Seed())
	}
	if deps.Generator == nil {
		deps.Generator = ai.NewService(nil, 0)
	}
	if deps.Defaults.MaxTokens == 0 {
		deps.Defaults.MaxTokens = ai.DefaultMaxTokens
	}

	return &Service{
		sessions:   deps.Sessions,
		generator:  deps.Generator,
		prompts:    deps.Prompts,
		presets:    deps.Presets,
		obfuscator: deps.Obfuscator,
		defaults:   deps.Defaults,
	}
}

// Chat runs one turn. The session stays pinned for the whole turn so a concurrent
// sweep cannot drop it while the model is thinking. The store lock is only held
// around the two appends, never across the model call.
//
// A request without a message only registers the session. On model failure the
// user turn stays recorded, Reply is FallbackReply and the error is returned.
func (s *Service) Chat(ctx context.Context, req Request) (Response, error) {
	params := req.Persona.Normalize()

	sessionID, release := s.sessions.Pin(ctx, req.SessionID)
	defer release()

	resp := Response{UserMessage: req.Message, SessionID: sessionID}
	if strings.TrimSpace(req.Message) == "" {
		log.Printf("[chat] registered session=%s without message (profile=%t)", sessionID, !params.UserProfile.Empty())
		return resp, nil
	}

	systemPrompt, synthesized := s.resolveSystemPrompt(req, params)

	transcript := s.sessions.AppendUser(ctx, sessionID, req.Message)
	turns := make([]chat.Turn, 0, len(transcript)+1)
	turns = append(turns, chat.SystemTurn(systemPrompt))
	turns = append(turns, transcript...)

	reply, err := s.generator.GenerateReply(ctx, turns, s.options(req.Generation))
	if err != nil {
		log.Printf("[chat] model call failed for session=%s: %v", sessionID, err)
		resp.Reply = FallbackReply
		return resp, err
	}

	if synthesized {
		reply = s.obfuscator.Apply(reply, params.GlitchLevel)
	}

	s.sessions.AppendAssistant(ctx, sessionID, reply)
	resp.Reply = reply

	log.Printf("[chat] session=%s turns=%d anger=%d mode=%s glitch=%.2f", sessionID, len(transcript)+1, params.AngerLevel, params.Mode, params.GlitchLevel)
	return resp, nil
}

// OpenSession resolves the session a turn will run under before the turn starts,
// minting an id when none is given. Chat with the returned id continues it.
func (s *Service) OpenSession(ctx context.Context, sessionID string) string {
	id, transcript := s.sessions.GetOrCreate(ctx, sessionID)
	log.Printf("[chat] opened session=%s turns=%d", id, len(transcript))
	return id
}

// ListSessions returns every live transcript.
func (s *Service) ListSessions(ctx context.Context) SessionList {
	conversations := s.sessions.ListAll(ctx)
	return SessionList{Conversations: conversations, Count: len(conversations)}
}

// maxCleanupHours is the largest hour count a time.Duration can hold.
const maxCleanupHours = int64(math.MaxInt64 / time.Hour)

// Cleanup evicts sessions idle for at least maxAgeHours. Negative ages clamp to 0;
// ages beyond what a time.Duration holds mean "never".
func (s *Service) Cleanup(ctx context.Context, maxAgeHours int) CleanupResult {
	if maxAgeHours < 0 {
		maxAgeHours = 0
	}
	removed := s.sessions.EvictOlderThan(ctx, cleanupAge(maxAgeHours))
	result := CleanupResult{Removed: removed, Remaining: s.sessions.Count()}
	log.Printf("[chat] cleanup max_age_hours=%d removed=%d remaining=%d", maxAgeHours, result.Removed, result.Remaining)
	return result
}

func cleanupAge(hours int) time.Duration {
	if int64(hours) > maxCleanupHours {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(hours) * time.Hour
}

// Presets exposes the numbered system prompts.
func (s *Service) Presets() persona.Store {
	return s.presets
}

// BackendName names the model backend in use.
func (s *Service) BackendName() string {
	return s.generator.BackendName()
}

// Generation reports the profanity policy the prompts are written for.
func (s *Service) Generation() persona.Generation {
	return s.prompts.Generation()
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	return s.sessions.Count()
}

// resolveSystemPrompt picks, in order: the synthesized persona prompt, an explicit
// prompt, a numbered preset, the configured default. The bool reports whether the
// persona prompt was used, which is what enables reply obfuscation.
func (s *Service) resolveSystemPrompt(req Request, params persona.Params) (string, bool) {
	if req.UsePersona {
		return s.prompts.BuildFromParams(req.Message, params), true
	}
	if prompt := strings.TrimSpace(req.SystemPrompt); prompt != "" {
		return prompt, false
	}
	if req.PromptID != 0 {
		if preset, ok := s.presets.FindByID(req.PromptID); ok {
			return preset.Prompt, false
		}
		log.Printf("[chat] unknown prompt_id=%d, using default", req.PromptID)
	}
	if s.defaults.SystemPrompt != "" {
		return s.defaults.SystemPrompt, false
	}
	return s.presets.Default().Prompt, false
}

func (s *Service) options(p GenerationParams) ai.GenerateOptions {
	topP := s.defaults.TopP
	opts := ai.GenerateOptions{
		Temperature: s.defaults.Temperature,
		TopP:        &topP,
		MaxTokens:   s.defaults.MaxTokens,
	}
	if p.Temperature != nil {
		opts.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		topP = *p.TopP
	}
	if p.MaxTokens != nil {
		opts.MaxTokens = *p.MaxTokens
	}
	return opts.Normalize()
}
