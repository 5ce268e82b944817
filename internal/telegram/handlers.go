package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"relaybot/internal/llm"
	"relaybot/internal/logstore"
	"relaybot/internal/news"
	"relaybot/internal/persona"
)

var menuKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🤖 Спросить ИИ", "ask_ai")),
	tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📰 Популярные новости", "news")),
	tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🎲 Случайный факт", "fact")),
	tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🎭 Выбрать роль", "role")),
	tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❓ Помощь", "help")),
	tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🧹 Очистить память", "clear_memory")),
)

var roleKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Стандартный", "role_standard")),
	tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Философ", "role_philosopher")),
	tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Программист", "role_programmer")),
	tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Комик", "role_comedian")),
	tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", "back_to_menu")),
)

const helpText = "📘 Справка по боту\n\n" +
	"Бот помогает в диалогах, переводах, поиске фактов, новостей и имитации ролей (программист, философ и др).\n\n" +
	"💡 Бот умеет:\n" +
	"• Поддерживать связный диалог\n" +
	"• Переводить тексты на разные языки\n" +
	"• Рассказывать случайные факты\n" +
	"• Выдавать свежие новости\n" +
	"• Работать в разных режимах ролей\n\n" +
	"🔧 Доступные команды:\n" +
	"/translate <язык> <текст> — перевести текст\n" +
	"/clear — очистить память диалога\n" +
	"/menu — открыть меню\n" +
	"/fact — случайный факт\n" +
	"/role — выбрать роль для ИИ\n" +
	"/help — эта справка"

const factPrompt = "Расскажи короткий интересный случайный факт."

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	if !b.isAllowed(userID) {
		log.Printf("ignoring message from user %d: not in allowlist", userID)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleChat(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.logger.Log(userID, logstore.EventCommand, "/start", "showed menu")
		b.sendMenu(chatID, "Выбери действие: ")
	case "menu":
		b.sendMenu(chatID, "📋 Выбери действие:")
	case "help":
		b.sendMessage(chatID, helpText)
	case "clear":
		b.history.Clear(userID)
		b.sendMessage(chatID, "🧠 Память диалога очищена.")
	case "fact":
		b.handleFact(ctx, userID, chatID)
	case "news":
		b.sendNews(ctx, userID, chatID, "/news")
	case "role":
		b.showRoleMenu(chatID)
	case "translate":
		b.logger.Log(userID, logstore.EventMessage, msg.Text, "")
		b.handleTranslate(ctx, msg)
	default:
		// unknown commands are silently ignored
	}
}

// handleChat relays a plain message through the completion client: persona
// system turn, then the rolling window, then the live user turn.
func (b *Bot) handleChat(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	userText := msg.Text
	if userText == "" {
		return
	}

	b.logger.Log(userID, logstore.EventMessage, userText, "")

	window := b.history.Window(userID)
	msgs := make([]llm.Message, 0, len(window)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: b.personas.SystemPrompt(userID)})
	msgs = append(msgs, window...)
	msgs = append(msgs, llm.Message{Role: "user", Content: userText})

	b.history.AppendUser(userID, userText)

	resp, err := b.llmClient.Generate(ctx, msgs)
	if err != nil {
		b.logger.Log(userID, logstore.EventError, userText, err.Error())
		b.sendMessage(chatID, "Ошибка: "+err.Error())
		return
	}
	logUsage(resp)

	b.logger.Log(userID, logstore.EventResponse, userText, resp.Content)
	b.history.AppendAssistant(userID, resp.Content)
	b.sendLong(chatID, resp.Content)
}

func (b *Bot) handleTranslate(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	// First whitespace-separated token is the language code, the rest is the
	// text to translate.
	raw := strings.TrimSpace(msg.CommandArguments())
	sep := strings.IndexFunc(raw, unicode.IsSpace)
	if sep < 0 {
		b.logger.Log(userID, logstore.EventTranslate, msg.Text, "❌ Недостаточно аргументов")
		b.sendMessage(chatID, "Использование: /translate <код языка, en и т.д.> <текст>")
		return
	}
	targetLang, text := raw[:sep], strings.TrimSpace(raw[sep:])

	prompt := fmt.Sprintf(
		"Translate the following text to %s. "+
			"Only return the translation, without explanations. "+
			"If there are multiple possible translations, list them each on a new line, "+
			"each starting with a bullet point like this: • Translation.\n\n%s",
		targetLang, text)

	resp, err := b.llmClient.Generate(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		b.logger.Log(userID, logstore.EventError, "translate", err.Error())
		b.sendMessage(chatID, "Ошибка при переводе: "+err.Error())
		return
	}
	logUsage(resp)

	b.logger.Log(userID, logstore.EventTranslate, text, resp.Content)
	b.sendLong(chatID, resp.Content)
}

// handleFact asks for a random fact as part of the dialogue, so the fact and
// its follow-ups share the conversation window.
func (b *Bot) handleFact(ctx context.Context, userID, chatID int64) {
	b.history.AppendUser(userID, factPrompt)

	resp, err := b.llmClient.Generate(ctx, b.history.Window(userID))
	if err != nil {
		b.logger.Log(userID, logstore.EventError, "fact", err.Error())
		b.sendMessage(chatID, "Ошибка при получении факта: "+err.Error())
		return
	}
	logUsage(resp)

	b.logger.Log(userID, logstore.EventResponse, factPrompt, resp.Content)
	b.history.AppendAssistant(userID, resp.Content)
	b.sendMessage(chatID, "🎲 Случайный факт:\n\n"+resp.Content)
}

// sendNews fetches the digest, records it, and remembers a plain-text copy
// in the conversation window so the model can refer back to it.
func (b *Bot) sendNews(ctx context.Context, userID, chatID int64, rawSource string) {
	digest, err := b.news.Top(ctx)
	if err != nil {
		b.logger.Log(userID, logstore.EventError, rawSource, err.Error())
		b.sendMessage(chatID, "❌ Ошибка при получении новостей: "+err.Error())
		return
	}

	b.logger.Log(userID, logstore.EventResponse, rawSource, digest)
	b.history.AppendUser(userID, "Покажи свежие новости")
	b.history.AppendAssistant(userID, news.StripLinks(digest))

	out := tgbotapi.NewMessage(chatID, "📰 Топ-новости:\n\n"+digest)
	out.ParseMode = tgbotapi.ModeHTML
	out.DisableWebPagePreview = true
	if _, err := b.s.Send(out); err != nil {
		log.Printf("failed to send news digest: %v", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	userID := cb.From.ID
	data := cb.Data

	b.logger.Log(userID, logstore.EventCallback, data, "")

	// Telegram omits Message for callbacks on inaccessible or inline
	// messages; there is no chat to reply into.
	if cb.Message == nil {
		b.answerCallback(cb.ID)
		return
	}
	chatID := cb.Message.Chat.ID

	if !b.isAllowed(userID) {
		b.answerCallback(cb.ID)
		return
	}

	switch {
	case data == "role":
		b.showRoleMenu(chatID)
	case strings.HasPrefix(data, "role_"):
		if role, ok := persona.Parse(strings.TrimPrefix(data, "role_")); ok {
			b.personas.Set(userID, role)
			b.sendMessage(chatID, "Режим ИИ изменен на: "+string(role))
		}
	case data == "ask_ai":
		b.sendMessage(chatID, "Напиши мне сообщение, и я отвечу с помощью ИИ.")
	case data == "news":
		b.sendNews(ctx, userID, chatID, "news_request")
	case data == "fact":
		b.handleFact(ctx, userID, chatID)
	case data == "help":
		b.sendMessage(chatID, helpText)
	case data == "clear_memory":
		// Re-seed the cleared window with a fresh persona system turn.
		b.history.Clear(userID)
		b.history.AppendSystem(userID, b.personas.SystemPrompt(userID))
		b.sendMessage(chatID, "🧹 Память очищена.")
	case data == "back_to_menu":
		b.sendMenu(chatID, "Выбери действие: ")
	}

	// Acknowledge so Telegram stops showing the loading state.
	b.answerCallback(cb.ID)
}

// logUsage prints model and token accounting for a completed generation to
// the operator console.
func logUsage(resp llm.Response) {
	log.Printf("LLM response [model=%s, tokens: prompt=%d, completion=%d, total=%d]",
		resp.Model, resp.PromptTokens, resp.CompletionTokens, resp.TotalTokens)
}

func (b *Bot) answerCallback(id string) {
	if _, err := b.s.Request(tgbotapi.NewCallback(id, "")); err != nil {
		log.Printf("failed to answer callback: %v", err)
	}
}

func (b *Bot) sendMenu(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = menuKeyboard
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send menu: %v", err)
	}
}

func (b *Bot) showRoleMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Выберите роль ИИ: ")
	msg.ReplyMarkup = roleKeyboard
	if _, err := b.s.Send(msg); err != nil {
		log.Printf("failed to send role menu: %v", err)
	}
}
