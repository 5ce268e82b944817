package telegram

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"relaybot/internal/history"
	"relaybot/internal/llm"
	"relaybot/internal/logstore"
	"relaybot/internal/news"
	"relaybot/internal/persona"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type botAPISender struct{ api *tgbotapi.BotAPI }

func (s botAPISender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return s.api.Send(c)
}

func (s botAPISender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return s.api.Request(c)
}

// eventLogger is the fire-and-forget log sink for interaction events.
// Implemented by logstore.Writer.
type eventLogger interface {
	Log(userID int64, eventType logstore.EventType, prompt, response string)
}

type Bot struct {
	api       *tgbotapi.BotAPI
	s         sender
	llmClient llm.Client
	history   *history.Manager
	personas  *persona.Manager
	logger    eventLogger
	news      *news.Client
	allowed   map[int64]bool // empty means everyone is allowed
}

func New(botToken string, llmClient llm.Client, hist *history.Manager, personas *persona.Manager, logger *logstore.Writer, newsClient *news.Client, allowedUsers []int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	allowed := make(map[int64]bool, len(allowedUsers))
	for _, id := range allowedUsers {
		allowed[id] = true
	}
	return &Bot{
		api:       api,
		s:         botAPISender{api: api},
		llmClient: llmClient,
		history:   hist,
		personas:  personas,
		logger:    logger,
		news:      newsClient,
		allowed:   allowed,
	}, nil
}

// Start runs the long-polling loop until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.handleIncomingMessage(ctx, update.Message)
				continue
			}
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
		}
	}
}

func (b *Bot) isAllowed(userID int64) bool {
	return len(b.allowed) == 0 || b.allowed[userID]
}

// SendText messages a user directly, outside of any update flow. Used by the
// daily digest.
func (b *Bot) SendText(userID int64, text string) {
	b.sendMessage(userID, text)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}

// sendLong splits text into Telegram-sized chunks (4096 chars limit).
func (b *Bot) sendLong(chatID int64, text string) {
	runes := []rune(text)
	for i := 0; i < len(runes); i += messageLimit {
		end := i + messageLimit
		if end > len(runes) {
			end = len(runes)
		}
		b.sendMessage(chatID, string(runes[i:end]))
	}
}

const messageLimit = 4096
