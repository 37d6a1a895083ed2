package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/madchat/backend/internal/model/chat"
)

const (
	DefaultTemperature = 0.3
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 400
	MaxTokensCeiling   = 1000
)

// ErrBackendUnavailable is reported when no model backend was configured.
var ErrBackendUnavailable = errors.New("no model backend configured")

// GenerateOptions are the sampling knobs forwarded to the model.
type GenerateOptions struct {
	Temperature float64
	TopP        *float64
	MaxTokens   int
}

// Normalize clamps temperature and top-p to [0,1] and max tokens to [1,1000].
func (o GenerateOptions) Normalize() GenerateOptions {
	o.Temperature = clampUnit(o.Temperature)
	if o.TopP != nil {
		topP := clampUnit(*o.TopP)
		o.TopP = &topP
	}
	if o.MaxTokens < 1 {
		o.MaxTokens = 1
	}
	if o.MaxTokens > MaxTokensCeiling {
		o.MaxTokens = MaxTokensCeiling
	}
	return o
}

func clampUnit(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Backend is a concrete model transport. turns[0] carries the system prompt.
type Backend interface {
	Name() string
	Generate(ctx context.Context, turns []chat.Turn, opts GenerateOptions) (string, error)
}

// UpstreamError wraps any failure of the model call.
type UpstreamError struct {
	Backend string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s model call failed: %v", e.Backend, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Service encapsulates AI-powered chat functionality
type Service struct {
	backend Backend
	timeout time.Duration
}

// NewService creates a new AI service instance. A nil backend yields a service that
// reports ErrBackendUnavailable on every call; timeout <= 0 disables the deadline.
func NewService(backend Backend, timeout time.Duration) *Service {
	return &Service{backend: backend, timeout: timeout}
}

// BackendName returns the configured backend, or "none".
func (s *Service) BackendName() string {
	if s == nil || s.backend == nil {
		return "none"
	}
	return s.backend.Name()
}

// GenerateReply sends the turns to the model. On failure the returned text is a
// readable "Error: ..." description and err is an *UpstreamError.
func (s *Service) GenerateReply(ctx context.Context, turns []chat.Turn, opts GenerateOptions) (string, error) {
	name := s.BackendName()
	if s == nil || s.backend == nil {
		upstream := &UpstreamError{Backend: name, Err: ErrBackendUnavailable}
		return errorText(upstream), upstream
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := s.backend.Generate(ctx, turns, opts.Normalize())
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		upstream := &UpstreamError{Backend: name, Err: err}
		log.Printf("[ai] %v", upstream)
		return errorText(upstream), upstream
	}

	log.Printf("[ai] generated response via %s, turns=%d, length=%d, took=%s", name, len(turns), len(reply), time.Since(start).Round(time.Millisecond))
	return reply, nil
}

func errorText(err error) string {
	return "Error: " + err.Error()
}

// splitSystem separates the leading system turn from the stored conversation.
func splitSystem(turns []chat.Turn) (string, []chat.Turn) {
	if len(turns) > 0 && turns[0].Role == chat.RoleSystem {
		return turns[0].Content, turns[1:]
	}
	return "", turns
}
