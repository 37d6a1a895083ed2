package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/madchat/backend/internal/config"
	"github.com/zhouzirui/madchat/backend/internal/handler"
	"github.com/zhouzirui/madchat/backend/internal/service/ai"
	"github.com/zhouzirui/madchat/backend/internal/service/chat"
	"github.com/zhouzirui/madchat/backend/internal/service/conversation"
	"github.com/zhouzirui/madchat/backend/internal/service/obfuscate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize presets and session store
	presets, err := cfg.Engine.Presets()
	if err != nil {
		log.Fatalf("failed to load system prompts: %v", err)
	}

	sessions := chat.NewService()
	sessions.StartSweeper(ctx, cfg.Engine.SweepInterval, cfg.Engine.SessionMaxAge)

	// Initialize model backend
	var backend ai.Backend
	if cfg.AI.Enabled() {
		backend, err = ai.NewBackend(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize model backend: %v", err)
			log.Println("continuing without a model - chat requests will fail until MODEL_BACKEND is configured")
			backend = nil
		} else {
			log.Printf("model backend %s initialized successfully", backend.Name())
		}
	} else {
		log.Println("no model backend configured, chat requests will return the fallback reply")
	}
	aiService := ai.NewService(backend, cfg.AI.RequestTimeout)

	generation := cfg.Engine.Generation
	prompts := ai.NewPromptBuilder(generation, nil)
	obfuscator := obfuscate.New(obfuscate.PolicyFor(generation), nil)
	log.Printf("prompt generation=%s, reply policy=%s", generation, obfuscator.Policy())

	engine := conversation.NewService(conversation.Dependencies{
		Sessions:   sessions,
		Generator:  aiService,
		Prompts:    prompts,
		Presets:    presets,
		Obfuscator: obfuscator,
		Defaults: conversation.Defaults{
			Temperature:  cfg.AI.Temperature,
			TopP:         cfg.AI.TopP,
			MaxTokens:    cfg.AI.MaxTokens,
			SystemPrompt: cfg.Engine.DefaultSystemPrompt,
		},
	})

	router := handler.NewRouter(engine)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("madchat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
