package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"relaybot/internal/config"
	"relaybot/internal/digest"
	"relaybot/internal/history"
	"relaybot/internal/llm"
	"relaybot/internal/logstore"
	"relaybot/internal/news"
	"relaybot/internal/persona"
	"relaybot/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	store, err := logstore.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open log store: %v", err)
	}
	defer store.Close()

	// Conversation windows must be rebuilt before any update is handled.
	hist := history.NewManager()
	if err := history.Restore(context.Background(), store, hist); err != nil {
		log.Fatalf("failed to restore dialogues: %v", err)
	}

	llmClient, err := llm.NewFactory(cfg).CreateClient(cfg.LLMProvider, cfg.OpenAIModel)
	if err != nil {
		log.Fatalf("failed to create llm client: %v", err)
	}

	writer := logstore.NewWriter(store)
	writerCtx, stopWriter := context.WithCancel(context.Background())
	go writer.Run(writerCtx)

	newsClient := news.New(cfg.NewsAPIKey, "", cfg.NewsQuery, cfg.NewsLanguage)

	bot, err := telegram.New(cfg.TelegramBotToken, llmClient, hist, persona.NewManager(), writer, newsClient, cfg.AllowedUsers)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	dig := digest.New(store, bot.SendText, cfg.AdminUserID)
	if err := dig.Start(); err != nil {
		log.Printf("failed to start digest scheduler: %v", err)
	}
	defer dig.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot.Start(ctx)

	// Polling has stopped; flush whatever is still queued before exit.
	stopWriter()
	writer.Wait()
}
