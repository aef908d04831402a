package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"safequiz-bot/internal/app"
	"safequiz-bot/internal/content"
	"safequiz-bot/internal/domain"
	"safequiz-bot/internal/infra/memory"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeAPI records every outbound message instead of talking to Telegram.
type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.mu.Lock()
		f.sent = append(f.sent, msg)
		f.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

func testBundles() map[string]content.Bundle {
	return map[string]content.Bundle{
		"en": {
			"start":             "welcome back",
			"help":              "here is how it works",
			"choose_language":   "pick a language",
			"language_set":      "language saved",
			"menu_start_quiz":   "🎮 Start quiz",
			"menu_learn":        "📚 Learn",
			"menu_leaderboard":  "🏆 Leaderboard",
			"menu_stats":        "📊 My stats",
			"menu_website":      "🌐 Website",
			"quiz_start":        "lets go",
			"quiz_question":     "Q{current}: {situation}",
			"quiz_correct":      "correct: {feedback}",
			"quiz_incorrect":    "incorrect: {feedback}",
			"quiz_complete":     "done {score}/{total}, you are {level}",
			"leaderboard_title": "top players\n",
			"leaderboard_empty": "nobody yet",
			"points":            "pts",
			"stats_text":        "you have {points} pts, level {level}",
			"web_panel":         "dashboard: {url}",
			"learn_example":     "real scam example",
			"learn_tips_title":  "how to protect yourself",
			"levels.0":          "Beginner",
			"levels.5":          "Observant",
			"levels.10":         "Vigilant",
			"levels.20":         "Defender",
			"levels.30":         "Expert",
			"achievements.5":    "first five",
			"achievements.15":   "fifteen",
			"achievements.30":   "thirty",
		},
	}
}

func testQuestion() domain.Question {
	return domain.Question{
		ID:        "q1",
		Situation: map[string]string{"en": "Trust the caller?"},
		Options: []domain.Option{
			{
				Text:     map[string]string{"en": "Yes"},
				Feedback: map[string]string{"en": "right call"},
				Correct:  true,
			},
			{
				Text:     map[string]string{"en": "No"},
				Feedback: map[string]string{"en": "wrong call"},
				Correct:  false,
			},
		},
	}
}

type botFixture struct {
	bot    *Bot
	api    *fakeAPI
	scores *memory.LeaderboardStore
	langs  *memory.LanguageStore
}

func newBotFixture(t *testing.T, quizLen int) *botFixture {
	t.Helper()
	sessions := memory.NewSessionStore()
	scores := memory.NewLeaderboardStore()
	langs := memory.NewLanguageStore()
	resolver := content.NewResolver(testBundles(), "en", langs)
	bank := content.NewCachedBankRepository(
		content.NewStaticBankLoader([]domain.Question{testQuestion()}),
		[]string{"en"}, time.Minute)
	service := app.NewQuizService(sessions, scores, langs, bank, resolver, app.Options{
		QuizLength: quizLen,
		Languages:  []string{"en", "ru", "kz"},
	})
	tips := content.NewStaticTipsLibrary(map[string][]domain.LearnExample{
		"en": {{
			Situation:   "A caller claims to be your bank.",
			Explanation: "Banks never ask for codes.",
			Tips:        []string{"Hang up", "Call the official number"},
		}},
	}, "en")
	api := &fakeAPI{}
	bot := newBot(api, service, resolver, tips, "https://quiz.example", time.Millisecond)
	return &botFixture{bot: bot, api: api, scores: scores, langs: langs}
}

func user(name string) *tgbotapi.User {
	return &tgbotapi.User{ID: 1234567890, UserName: name}
}

func commandMessage(from *tgbotapi.User, cmd string) *tgbotapi.Message {
	text := "/" + cmd
	return &tgbotapi.Message{
		From: from,
		Chat: &tgbotapi.Chat{ID: 42},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(text)},
		},
	}
}

func textMessage(from *tgbotapi.User, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: from,
		Chat: &tgbotapi.Chat{ID: 42},
		Text: text,
	}
}

func TestStartWithoutPreferenceShowsLanguageMenu(t *testing.T) {
	f := newBotFixture(t, 5)

	f.bot.handleMessage(context.Background(), commandMessage(user("alice"), "start"))

	sent := f.api.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if sent[0].Text != "pick a language" {
		t.Fatalf("unexpected text %q", sent[0].Text)
	}
	kb, ok := sent[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("expected reply keyboard, got %T", sent[0].ReplyMarkup)
	}
	labels := flattenKeyboard(kb)
	if !contains(labels, "🇺🇸 English") || !contains(labels, "🇷🇺 Русский") || !contains(labels, "🇰🇿 Қазақша") {
		t.Fatalf("language selector incomplete: %v", labels)
	}
}

func TestLanguageChoicePersistsPreference(t *testing.T) {
	f := newBotFixture(t, 5)
	ctx := context.Background()

	f.bot.handleMessage(ctx, textMessage(user("alice"), "🇺🇸 English"))

	lang, ok := f.langs.Get(ctx, "alice")
	if !ok || lang != "en" {
		t.Fatalf("expected saved preference en, got %q (present=%v)", lang, ok)
	}
	sent := f.api.messages()
	if len(sent) != 1 || sent[0].Text != "language saved" {
		t.Fatalf("expected confirmation message, got %+v", sent)
	}
	if _, ok := sent[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup); !ok {
		t.Fatalf("expected main menu keyboard")
	}
}

func TestStartWithPreferenceShowsMainMenu(t *testing.T) {
	f := newBotFixture(t, 5)
	f.langs.Seed(map[string]string{"alice": "en"})

	f.bot.handleMessage(context.Background(), commandMessage(user("alice"), "start"))

	sent := f.api.messages()
	if len(sent) != 1 || sent[0].Text != "welcome back" {
		t.Fatalf("expected welcome message, got %+v", sent)
	}
	kb, ok := sent[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("expected main menu keyboard, got %T", sent[0].ReplyMarkup)
	}
	labels := flattenKeyboard(kb)
	for _, want := range []string{"🎮 Start quiz", "📚 Learn", "🏆 Leaderboard", "📊 My stats", "🌐 Website"} {
		if !contains(labels, want) {
			t.Fatalf("main menu missing %q: %v", want, labels)
		}
	}
}

func TestQuizCommandSendsIntroAndFirstQuestion(t *testing.T) {
	f := newBotFixture(t, 5)

	f.bot.handleMessage(context.Background(), commandMessage(user("alice"), "quiz"))

	sent := f.api.messages()
	if len(sent) != 2 {
		t.Fatalf("expected intro plus question, got %d messages", len(sent))
	}
	if sent[0].Text != "lets go" {
		t.Fatalf("unexpected intro %q", sent[0].Text)
	}
	if sent[1].Text != "Q1: Trust the caller?" {
		t.Fatalf("unexpected question %q", sent[1].Text)
	}
	kb, ok := sent[1].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("expected answer keyboard")
	}
	// One option per row so long labels stay readable.
	if len(kb.Keyboard) != 2 || len(kb.Keyboard[0]) != 1 {
		t.Fatalf("expected one option per row, got %+v", kb.Keyboard)
	}
}

func TestAnswerAdvancesToNextQuestion(t *testing.T) {
	f := newBotFixture(t, 5)
	ctx := context.Background()
	alice := user("alice")

	f.bot.handleMessage(ctx, commandMessage(alice, "quiz"))
	f.bot.handleMessage(ctx, textMessage(alice, "Yes"))

	sent := f.api.messages()
	if len(sent) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(sent))
	}
	if sent[2].Text != "correct: right call" {
		t.Fatalf("unexpected feedback %q", sent[2].Text)
	}
	if sent[3].Text != "Q2: Trust the caller?" {
		t.Fatalf("unexpected next question %q", sent[3].Text)
	}
}

func TestCompletedRunSendsSummaryAndAchievement(t *testing.T) {
	f := newBotFixture(t, 5)
	ctx := context.Background()
	alice := user("alice")

	f.bot.handleMessage(ctx, commandMessage(alice, "quiz"))
	for i := 0; i < 5; i++ {
		f.bot.handleMessage(ctx, textMessage(alice, "Yes"))
	}

	sent := f.api.messages()
	last := sent[len(sent)-1]
	if !strings.Contains(last.Text, "done 5/5") || !strings.Contains(last.Text, "Observant") {
		t.Fatalf("unexpected summary %q", last.Text)
	}
	if !strings.Contains(last.Text, "first five") {
		t.Fatalf("expected achievement in summary %q", last.Text)
	}
	if _, ok := last.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup); !ok {
		t.Fatalf("expected main menu after completion")
	}
}

func TestStrayTextStaysSilent(t *testing.T) {
	f := newBotFixture(t, 5)

	f.bot.handleMessage(context.Background(), textMessage(user("alice"), "hello there"))

	if sent := f.api.messages(); len(sent) != 0 {
		t.Fatalf("expected no reply, got %+v", sent)
	}
}

func TestMenuButtonStartsQuiz(t *testing.T) {
	f := newBotFixture(t, 5)

	f.bot.handleMessage(context.Background(), textMessage(user("alice"), "🎮 Start quiz"))

	sent := f.api.messages()
	if len(sent) != 2 || sent[0].Text != "lets go" {
		t.Fatalf("expected quiz start from menu button, got %+v", sent)
	}
}

func TestLeaderboardCommandShowsTopFive(t *testing.T) {
	f := newBotFixture(t, 5)
	ctx := context.Background()
	for _, seed := range []struct {
		identity string
		points   int
	}{{"first", 30}, {"second", 25}, {"third", 20}, {"1234500042", 15}, {"fifth", 10}, {"sixth", 5}} {
		f.scores.Add(ctx, seed.identity, seed.points)
	}

	f.bot.handleMessage(ctx, commandMessage(user("alice"), "leaderboard"))

	sent := f.api.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	body := sent[0].Text
	if !strings.Contains(body, "top players") {
		t.Fatalf("missing title in %q", body)
	}
	if !strings.Contains(body, "1. @first — 30 pts (Expert)") {
		t.Fatalf("missing first row in %q", body)
	}
	if !strings.Contains(body, "ID 00042") {
		t.Fatalf("expected shortened numeric identity in %q", body)
	}
	if strings.Contains(body, "sixth") {
		t.Fatalf("expected sixth place cut off, got %q", body)
	}
}

func TestLeaderboardCommandWhenEmpty(t *testing.T) {
	f := newBotFixture(t, 5)

	f.bot.handleMessage(context.Background(), commandMessage(user("alice"), "leaderboard"))

	sent := f.api.messages()
	if len(sent) != 1 || sent[0].Text != "nobody yet" {
		t.Fatalf("expected empty-leaderboard message, got %+v", sent)
	}
}

func TestStatsCommand(t *testing.T) {
	f := newBotFixture(t, 5)
	ctx := context.Background()
	f.scores.Add(ctx, "alice", 12)

	f.bot.handleMessage(ctx, commandMessage(user("alice"), "stats"))

	sent := f.api.messages()
	if len(sent) != 1 || sent[0].Text != "you have 12 pts, level Vigilant" {
		t.Fatalf("unexpected stats message %+v", sent)
	}
}

func TestWebCommandLinksDashboard(t *testing.T) {
	f := newBotFixture(t, 5)

	f.bot.handleMessage(context.Background(), commandMessage(user("alice"), "web"))

	sent := f.api.messages()
	if len(sent) != 1 || sent[0].Text != "dashboard: https://quiz.example" {
		t.Fatalf("unexpected message %+v", sent)
	}
}

func TestLearnCommandFormatsExample(t *testing.T) {
	f := newBotFixture(t, 5)

	f.bot.handleMessage(context.Background(), commandMessage(user("alice"), "learn"))

	sent := f.api.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	body := sent[0].Text
	for _, want := range []string{
		"real scam example",
		"⚠️ A caller claims to be your bank.",
		"🔍 Banks never ask for codes.",
		"💡 how to protect yourself",
		"• Hang up",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in %q", want, body)
		}
	}
}

func TestIdentityPrefersHandle(t *testing.T) {
	if got := Identity(&tgbotapi.User{ID: 99, UserName: "alice"}); got != "alice" {
		t.Fatalf("expected handle, got %q", got)
	}
	if got := Identity(&tgbotapi.User{ID: 99}); got != "99" {
		t.Fatalf("expected decimal id, got %q", got)
	}
}

func flattenKeyboard(kb tgbotapi.ReplyKeyboardMarkup) []string {
	var labels []string
	for _, row := range kb.Keyboard {
		for _, btn := range row {
			labels = append(labels, btn.Text)
		}
	}
	return labels
}

func contains(labels []string, want string) bool {
	for _, label := range labels {
		if label == want {
			return true
		}
	}
	return false
}
