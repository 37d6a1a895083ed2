package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/madchat/backend/internal/analysis/profanity"
	"github.com/zhouzirui/madchat/backend/internal/config"
	"github.com/zhouzirui/madchat/backend/internal/model/persona"
	"github.com/zhouzirui/madchat/backend/internal/service/ai"
	"github.com/zhouzirui/madchat/backend/internal/service/chat"
	"github.com/zhouzirui/madchat/backend/internal/service/conversation"
	"github.com/zhouzirui/madchat/backend/internal/service/obfuscate"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] failed to load .env, using system environment: %v", err)
	}

	mode := flag.String("mode", "", "mode: prompt, decode, obfuscate or chat")
	message := flag.String("message", "", "user message (decode/obfuscate: text to process; read from stdin when empty)")
	anger := flag.Int("anger", 0, "anger level 0-100")
	personality := flag.String("persona", string(persona.ModeNormal), "personality: normal, sarcastic or zesty")
	glitch := flag.Float64("glitch", 0, "glitch level 0-1")
	generation := flag.String("generation", "", "censored or uncensored (defaults to ENGINE_GENERATION)")
	name := flag.String("name", "", "user name")
	age := flag.String("age", "", "user age")
	gender := flag.String("gender", "", "user gender")
	session := flag.String("session", "", "session id, generated when empty")
	timeout := flag.Duration("timeout", 60*time.Second, "request timeout")

	flag.Parse()

	switch *mode {
	case "prompt", "decode", "obfuscate", "chat":
	default:
		flag.Usage()
		log.Fatal("choose a mode with -mode=prompt, -mode=decode, -mode=obfuscate or -mode=chat")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	gen := cfg.Engine.Generation
	if *generation != "" {
		parsed, ok := persona.ParseGeneration(*generation)
		if !ok {
			log.Fatalf("invalid -generation %q", *generation)
		}
		gen = parsed
	}

	text := *message
	if text == "" {
		text, err = readStdin()
		if err != nil {
			log.Fatalf("failed to read stdin: %v", err)
		}
	}

	params := persona.Params{
		AngerLevel:  *anger,
		Mode:        persona.ParseMode(*personality),
		GlitchLevel: *glitch,
	}
	if *name != "" || *age != "" || *gender != "" {
		params.UserProfile = &persona.UserProfile{Name: *name, Age: persona.Age(*age), Gender: *gender}
	}
	params = params.Normalize()

	switch *mode {
	case "prompt":
		builder := ai.NewPromptBuilder(gen, nil)
		fmt.Println(builder.BuildFromParams(text, params))
	case "decode":
		fmt.Println(profanity.DecodeText(text))
	case "obfuscate":
		obfuscator := obfuscate.New(obfuscate.PolicyFor(gen), nil)
		fmt.Println(obfuscator.Apply(text, params.GlitchLevel))
	case "chat":
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		runChat(ctx, cfg, gen, *session, text, params)
	}
}

func runChat(ctx context.Context, cfg *config.Config, gen persona.Generation, sessionID, text string, params persona.Params) {
	if !cfg.AI.Enabled() {
		log.Fatal("no model backend configured, set MODEL_BACKEND and its credentials")
	}

	backend, err := ai.NewBackend(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize model backend: %v", err)
	}

	presets, err := cfg.Engine.Presets()
	if err != nil {
		log.Fatalf("failed to load system prompts: %v", err)
	}

	engine := conversation.NewService(conversation.Dependencies{
		Sessions:   chat.NewService(),
		Generator:  ai.NewService(backend, cfg.AI.RequestTimeout),
		Prompts:    ai.NewPromptBuilder(gen, nil),
		Presets:    presets,
		Obfuscator: obfuscate.New(obfuscate.PolicyFor(gen), nil),
		Defaults: conversation.Defaults{
			Temperature:  cfg.AI.Temperature,
			TopP:         cfg.AI.TopP,
			MaxTokens:    cfg.AI.MaxTokens,
			SystemPrompt: cfg.Engine.DefaultSystemPrompt,
		},
	})

	start := time.Now()
	resp, err := engine.Chat(ctx, conversation.Request{
		Message:    text,
		SessionID:  sessionID,
		UsePersona: true,
		Persona:    params,
	})
	if err != nil {
		log.Fatalf("chat failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
	}

	log.Printf("[chattester] backend=%s session=%s took=%s", backend.Name(), resp.SessionID, time.Since(start).Round(time.Millisecond))
	fmt.Println(resp.Reply)
}

func readStdin() (string, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return "", err
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}

	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
