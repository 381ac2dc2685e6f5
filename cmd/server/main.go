// Package main runs the companion server: HTTP API, WebSocket streaming, and
// all generation backends behind them.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/campfireai/companion/internal/api"
	"github.com/campfireai/companion/internal/chat"
	"github.com/campfireai/companion/internal/clock"
	"github.com/campfireai/companion/internal/config"
	"github.com/campfireai/companion/internal/intimacy"
	"github.com/campfireai/companion/internal/llm"
	"github.com/campfireai/companion/internal/media"
	"github.com/campfireai/companion/internal/memory"
	"github.com/campfireai/companion/internal/power"
	"github.com/campfireai/companion/internal/prompt"
	"github.com/campfireai/companion/internal/session"
	"github.com/campfireai/companion/internal/store"
)

const powerRevertDelay = 30 * time.Second

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var blob store.BlobStore
	var gormDB *gorm.DB
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer pg.Close()
		blob = pg
		gormDB = pg.DB()
	} else {
		fs, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("failed to open data directory: %v", err)
		}
		blob = fs
	}

	st := store.NewStore(blob)
	if err := st.Load(ctx); err != nil {
		log.Fatalf("failed to load app state: %v", err)
	}

	client, err := llm.NewClient(ctx, cfg.GoogleAPIKey)
	if err != nil {
		log.Fatalf("failed to create genai client: %v", err)
	}

	chatModel, err := buildChatModel(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}

	completer := llm.NewCompleter(client, cfg.PlannerModel)
	structured := llm.NewStructured(client, cfg.PlannerModel)
	images := llm.NewImageGenerator(client, cfg.ImageModel, cfg.EditImageModel, cfg.AspectRatio)
	speech := llm.NewSpeechSynthesizer(client, cfg.SpeechModel)
	video := llm.NewVideoGenerator(client, cfg.VideoModel)

	builder := prompt.NewBuilder(cfg.VideoEnabled, cfg.HistoryLimit)
	tracker := session.NewTracker(session.NewLLMPlanner(completer), st)
	zones := clock.NewTimezoneResolver(completer)
	dispatcher := media.NewDispatcher(images, speech, video, completer, tracker, builder, st, cfg.VideoEnabled, cfg.ImageSafetyLevel)

	// Conversation memory rides on the Postgres backend; file-backed
	// deployments run without it.
	var memories chat.Memories
	if gormDB != nil {
		vectors, err := memory.NewVectorStore(gormDB, cfg.SimilarityThreshold)
		if err != nil {
			log.Fatalf("failed to prepare memory store: %v", err)
		}
		memories = memory.NewService(memory.NewGenAIEmbedder(client, cfg.EmbeddingModel), vectors, cfg.TopK)
	}

	// The server is created after the engine but both push events through
	// it, so the callbacks capture the variable.
	var srv *api.Server
	scheduler := power.NewScheduler(powerRevertDelay, func(characterID string) {
		if srv != nil {
			srv.NotifyPowerRevert(characterID)
		}
	})
	judge := intimacy.NewEngine(structured, st, func(n intimacy.Notice) {
		if srv != nil {
			srv.NotifyIntimacy(n.CharacterID, n)
		}
	})

	engine := chat.NewEngine(st, chatModel, builder, dispatcher, judge, scheduler, zones, memories)
	srv = api.NewServer(st, engine, dispatcher, tracker, cfg.JWTSigningKey)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Router()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown did not finish cleanly", "error", err)
		}
	}()

	slog.Info("companion server listening", "addr", cfg.ListenAddr, "backend", backendName(cfg), "video", cfg.VideoEnabled)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}

// buildChatModel picks the conversation backend. The OpenAI-compatible path
// covers self-hosted gateways exposing that API.
func buildChatModel(ctx context.Context, cfg config.Config) (*llm.ChatModel, error) {
	if cfg.OpenAIAPIKey != "" {
		m, err := llm.NewOpenAIModel(cfg.ChatModel, cfg.OpenAIAPIKey, os.Getenv("OPENAI_BASE_URL"))
		if err != nil {
			return nil, err
		}
		return llm.NewChatModel(m), nil
	}
	return llm.NewGeminiChatModel(ctx, cfg.ChatModel, cfg.GoogleAPIKey)
}

func backendName(cfg config.Config) string {
	if cfg.DatabaseURL != "" {
		return "postgres"
	}
	return "file"
}
