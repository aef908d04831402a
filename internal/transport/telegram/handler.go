// Package telegram drives the quiz over the Telegram Bot API. The handler
// only extracts identity and text from updates and forwards localized reply
// content produced by the core; every update runs in its own goroutine so
// the pacing pause between feedback and the next question never blocks
// other users.
package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"safequiz-bot/internal/app"
	"safequiz-bot/internal/content"
	"safequiz-bot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// languageByLabel maps the fixed language-selector button labels to tags.
var languageByLabel = map[string]string{
	"🇷🇺 Русский":  "ru",
	"🇰🇿 Қазақша":  "kz",
	"🇺🇸 English": "en",
}

// api is the slice of tgbotapi.BotAPI the handler needs; tests substitute a
// recording fake.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram-facing session driver.
type Bot struct {
	api      api
	service  *app.QuizService
	resolver *content.Resolver
	tips     *content.TipsLibrary
	webURL   string
	pacing   time.Duration
}

func NewBot(token string, service *app.QuizService, resolver *content.Resolver, tips *content.TipsLibrary, webURL string, pacing time.Duration) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Printf("authorized on account %s", botAPI.Self.UserName)
	return newBot(botAPI, service, resolver, tips, webURL, pacing), nil
}

func newBot(a api, service *app.QuizService, resolver *content.Resolver, tips *content.TipsLibrary, webURL string, pacing time.Duration) *Bot {
	if pacing <= 0 {
		pacing = time.Second
	}
	return &Bot{api: a, service: service, resolver: resolver, tips: tips, webURL: webURL, pacing: pacing}
}

// Run polls for updates until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	identity := Identity(msg.From)
	chatID := msg.Chat.ID

	if cmd := msg.Command(); cmd != "" {
		b.handleCommand(ctx, chatID, identity, cmd)
		return
	}
	if lang, ok := languageByLabel[msg.Text]; ok {
		b.handleLanguageChoice(ctx, chatID, identity, lang)
		return
	}
	if b.handleMenuButton(ctx, chatID, identity, msg.Text) {
		return
	}
	b.handleAnswer(ctx, chatID, identity, msg.Text)
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, identity, cmd string) {
	switch cmd {
	case "start":
		if !b.resolver.HasPreference(ctx, identity) {
			b.send(chatID, b.text(ctx, identity, "choose_language", nil), languageMenu())
			return
		}
		b.send(chatID, b.text(ctx, identity, "start", nil), b.mainMenu(ctx, identity))
	case "lang":
		b.send(chatID, b.text(ctx, identity, "choose_language", nil), languageMenu())
	case "help":
		b.send(chatID, b.text(ctx, identity, "help", nil), nil)
	case "learn":
		b.sendLearnExample(ctx, chatID, identity)
	case "leaderboard":
		b.sendLeaderboard(ctx, chatID, identity)
	case "stats":
		b.sendStats(ctx, chatID, identity)
	case "web":
		b.send(chatID, b.text(ctx, identity, "web_panel", map[string]string{"url": b.webURL}), nil)
	case "quiz":
		b.startQuiz(ctx, chatID, identity)
	}
}

func (b *Bot) handleLanguageChoice(ctx context.Context, chatID int64, identity, lang string) {
	if err := b.service.SetLanguage(ctx, identity, lang); err != nil {
		log.Printf("set language for %s: %v", identity, err)
		return
	}
	b.send(chatID, b.text(ctx, identity, "language_set", nil), b.mainMenu(ctx, identity))
}

// handleMenuButton matches the text against the localized main-menu labels.
func (b *Bot) handleMenuButton(ctx context.Context, chatID int64, identity, text string) bool {
	switch text {
	case b.text(ctx, identity, "menu_start_quiz", nil):
		b.startQuiz(ctx, chatID, identity)
	case b.text(ctx, identity, "menu_learn", nil):
		b.sendLearnExample(ctx, chatID, identity)
	case b.text(ctx, identity, "menu_leaderboard", nil):
		b.sendLeaderboard(ctx, chatID, identity)
	case b.text(ctx, identity, "menu_stats", nil):
		b.sendStats(ctx, chatID, identity)
	case b.text(ctx, identity, "menu_website", nil):
		b.send(chatID, b.text(ctx, identity, "web_panel", map[string]string{"url": b.webURL}), nil)
	default:
		return false
	}
	return true
}

func (b *Bot) startQuiz(ctx context.Context, chatID int64, identity string) {
	prompt, err := b.service.Start(ctx, identity)
	if err != nil {
		log.Printf("start quiz for %s: %v", identity, err)
		return
	}
	b.send(chatID, b.text(ctx, identity, "quiz_start", nil), nil)
	b.sendPrompt(chatID, prompt)
}

func (b *Bot) handleAnswer(ctx context.Context, chatID int64, identity, text string) {
	outcome, err := b.service.Answer(ctx, identity, text)
	if err != nil {
		log.Printf("answer from %s: %v", identity, err)
	}
	if outcome.Kind == app.OutcomeIgnored {
		return
	}

	b.send(chatID, outcome.Feedback, nil)

	// Pacing pause between feedback and the next message; only this user's
	// goroutine waits.
	select {
	case <-time.After(b.pacing):
	case <-ctx.Done():
		return
	}

	switch outcome.Kind {
	case app.OutcomeAnswered:
		b.sendPrompt(chatID, *outcome.Next)
	case app.OutcomeCompleted:
		b.sendSummary(ctx, chatID, identity, outcome.Summary)
	}
}

func (b *Bot) sendPrompt(chatID int64, prompt domain.Prompt) {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(prompt.Options))
	for _, label := range prompt.Options {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(label)))
	}
	b.send(chatID, prompt.Text, keyboard(rows))
}

func (b *Bot) sendSummary(ctx context.Context, chatID int64, identity string, summary *domain.Summary) {
	lang := b.resolver.Lang(ctx, identity)
	text := b.resolver.ResolveLang(lang, "quiz_complete", map[string]string{
		"score": strconv.Itoa(summary.RunScore),
		"total": strconv.Itoa(summary.Total),
		"level": summary.Rank,
	})
	if summary.Achievement != "" {
		text += "\n\n" + summary.Achievement
	}
	b.send(chatID, text, b.mainMenu(ctx, identity))
}

func (b *Bot) sendLearnExample(ctx context.Context, chatID int64, identity string) {
	example, ok := b.tips.Random(b.resolver.Lang(ctx, identity))
	if !ok {
		return
	}
	var sb strings.Builder
	sb.WriteString(b.text(ctx, identity, "learn_example", nil))
	sb.WriteString("\n\n⚠️ " + example.Situation)
	sb.WriteString("\n\n🔍 " + example.Explanation)
	sb.WriteString("\n\n💡 " + b.text(ctx, identity, "learn_tips_title", nil) + "\n")
	for _, tip := range example.Tips {
		sb.WriteString("• " + tip + "\n")
	}
	b.send(chatID, sb.String(), nil)
}

func (b *Bot) sendLeaderboard(ctx context.Context, chatID int64, identity string) {
	lang := b.resolver.Lang(ctx, identity)
	rows, err := b.service.Leaderboard(ctx, lang)
	if err != nil {
		log.Printf("leaderboard: %v", err)
		return
	}
	if len(rows) == 0 {
		b.send(chatID, b.text(ctx, identity, "leaderboard_empty", nil), nil)
		return
	}
	if len(rows) > 5 {
		rows = rows[:5]
	}
	var sb strings.Builder
	sb.WriteString(b.text(ctx, identity, "leaderboard_title", nil))
	pointsLabel := b.text(ctx, identity, "points", nil)
	for i, row := range rows {
		fmt.Fprintf(&sb, "%d. %s — %d %s (%s)\n", i+1, domain.DisplayName(row.Identity), row.Points, pointsLabel, row.Rank)
	}
	b.send(chatID, sb.String(), nil)
}

func (b *Bot) sendStats(ctx context.Context, chatID int64, identity string) {
	points, rankLabel, err := b.service.Stats(ctx, identity)
	if err != nil {
		log.Printf("stats for %s: %v", identity, err)
		return
	}
	b.send(chatID, b.text(ctx, identity, "stats_text", map[string]string{
		"points": strconv.Itoa(points),
		"level":  rankLabel,
	}), nil)
}

func (b *Bot) send(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send to chat %d: %v", chatID, err)
	}
}

func (b *Bot) text(ctx context.Context, identity, key string, params map[string]string) string {
	return b.resolver.Resolve(ctx, identity, key, params)
}

func (b *Bot) mainMenu(ctx context.Context, identity string) tgbotapi.ReplyKeyboardMarkup {
	return keyboard([][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(b.text(ctx, identity, "menu_start_quiz", nil)),
			tgbotapi.NewKeyboardButton(b.text(ctx, identity, "menu_learn", nil)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(b.text(ctx, identity, "menu_leaderboard", nil)),
			tgbotapi.NewKeyboardButton(b.text(ctx, identity, "menu_stats", nil)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(b.text(ctx, identity, "menu_website", nil)),
		),
	})
}

func languageMenu() tgbotapi.ReplyKeyboardMarkup {
	return keyboard([][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🇷🇺 Русский"),
			tgbotapi.NewKeyboardButton("🇰🇿 Қазақша"),
			tgbotapi.NewKeyboardButton("🇺🇸 English"),
		),
	})
}

func keyboard(rows [][]tgbotapi.KeyboardButton) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// Identity derives the stable leaderboard key for a Telegram user: the
// handle when one exists, the decimal user id otherwise.
func Identity(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	return strconv.FormatInt(user.ID, 10)
}
