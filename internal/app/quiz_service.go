package app

import (
	"context"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"safequiz-bot/internal/content"
	"safequiz-bot/internal/domain"
	"safequiz-bot/internal/rank"
)

// SessionStore abstracts how in-progress quiz sessions are kept. Sessions are
// passed by value so a reader can never observe a half-written transition.
type SessionStore interface {
	Get(identity string) (domain.Session, bool)
	Put(session domain.Session)
	Delete(identity string)
}

// LeaderboardStore holds the persistent all-time points per identity.
// Writers are serialized by the store; Snapshot supports many concurrent
// readers and returns rows in insertion order.
type LeaderboardStore interface {
	Add(ctx context.Context, identity string, points int) (int, error)
	Total(ctx context.Context, identity string) (int, error)
	Snapshot(ctx context.Context) ([]domain.ScoreRow, error)
}

// LanguageStore holds the persistent per-identity language preference.
type LanguageStore interface {
	Get(ctx context.Context, identity string) (string, bool)
	Set(ctx context.Context, identity, lang string) error
}

// BankRepository loads the validated question bank (cached, hot-reloadable).
type BankRepository interface {
	GetBank(ctx context.Context) (*content.Bank, error)
}

// OutcomeKind classifies what an inbound reply did to a session.
type OutcomeKind int

const (
	// OutcomeIgnored means the text matched no live option (or there was no
	// session); nothing changed and no reply is owed.
	OutcomeIgnored OutcomeKind = iota
	// OutcomeAnswered means a turn was consumed and the run continues.
	OutcomeAnswered
	// OutcomeCompleted means the final turn was consumed and the run-score
	// was merged into the leaderboard.
	OutcomeCompleted
)

// Outcome is the result of feeding one reply into the state machine. All
// texts are fully localized; the caller only forwards them.
type Outcome struct {
	Kind     OutcomeKind
	Correct  bool
	Feedback string
	Next     *domain.Prompt
	Summary  *domain.Summary
}

// Options tunes the quiz engine.
type Options struct {
	QuizLength int      // turns per run; defaults to 5
	Languages  []string // supported language tags
}

// QuizService drives the per-user quiz state machine. Every transition for a
// given identity runs under that identity's lock, including the completion
// merge, so two concurrent messages from the same user can never tear a
// session or double-merge a run.
type QuizService struct {
	sessions SessionStore
	scores   LeaderboardStore
	prefs    LanguageStore
	bank     BankRepository
	resolver *content.Resolver
	opts     Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewQuizService(sessions SessionStore, scores LeaderboardStore, prefs LanguageStore, bank BankRepository, resolver *content.Resolver, opts Options) *QuizService {
	if opts.QuizLength <= 0 {
		opts.QuizLength = 5
	}
	return &QuizService{
		sessions: sessions,
		scores:   scores,
		prefs:    prefs,
		bank:     bank,
		resolver: resolver,
		opts:     opts,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *QuizService) identityLock(identity string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.locks[identity]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[identity] = mu
	}
	return mu
}

// Start begins a fresh run for the identity and poses the first question.
// Any run already in progress is discarded without merging its partial score.
func (s *QuizService) Start(ctx context.Context, identity string) (domain.Prompt, error) {
	bank, err := s.bank.GetBank(ctx)
	if err != nil {
		return domain.Prompt{}, err
	}

	mu := s.identityLock(identity)
	mu.Lock()
	defer mu.Unlock()

	session := domain.Session{
		Identity:  identity,
		Lang:      s.resolver.Lang(ctx, identity),
		StartedAt: time.Now(),
	}
	question := bank.Pick()
	session.QuestionID = question.ID
	s.sessions.Put(session)

	return s.prompt(session.Lang, session.Turn, question), nil
}

// Answer feeds one free-form reply into the identity's session. Text that
// matches no option label of the currently posed question is silently
// ignored, which also shields command and language-selector text from being
// consumed as answers.
func (s *QuizService) Answer(ctx context.Context, identity, text string) (Outcome, error) {
	mu := s.identityLock(identity)
	mu.Lock()
	defer mu.Unlock()

	session, ok := s.sessions.Get(identity)
	if !ok {
		return Outcome{Kind: OutcomeIgnored}, nil
	}

	bank, err := s.bank.GetBank(ctx)
	if err != nil {
		return Outcome{Kind: OutcomeIgnored}, err
	}
	question, ok := bank.ByID(session.QuestionID)
	if !ok {
		// Content was reloaded underneath the session; abort the turn
		// without mutating anything.
		return Outcome{Kind: OutcomeIgnored}, nil
	}

	matched, ok := matchOption(question, session.Lang, text)
	if !ok {
		return Outcome{Kind: OutcomeIgnored}, nil
	}

	if matched.Correct {
		session.RunScore++
	}
	session.Turn++

	feedbackKey := "quiz_incorrect"
	if matched.Correct {
		feedbackKey = "quiz_correct"
	}
	feedback := s.resolver.ResolveLang(session.Lang, feedbackKey, map[string]string{
		"feedback": s.optionFeedback(matched, session.Lang),
	})

	if session.Turn < s.opts.QuizLength {
		next := bank.Pick()
		session.QuestionID = next.ID
		s.sessions.Put(session)
		prompt := s.prompt(session.Lang, session.Turn, next)
		return Outcome{
			Kind:     OutcomeAnswered,
			Correct:  matched.Correct,
			Feedback: feedback,
			Next:     &prompt,
		}, nil
	}

	return s.complete(ctx, session, matched.Correct, feedback), nil
}

// complete merges the run-score into the aggregate, destroys the session and
// builds the run summary. Runs under the identity lock held by Answer.
func (s *QuizService) complete(ctx context.Context, session domain.Session, correct bool, feedback string) Outcome {
	total, err := s.scores.Add(ctx, session.Identity, session.RunScore)
	if err != nil {
		// The merge is not durable; keep serving from memory but make sure
		// an operator sees it.
		log.Printf("leaderboard merge for %s failed: %v", session.Identity, err)
	}
	s.sessions.Delete(session.Identity)

	summary := &domain.Summary{
		RunScore: session.RunScore,
		Total:    total,
		Rank:     s.resolver.ResolveLang(session.Lang, rank.LevelKey(total), nil),
	}
	if key, ok := rank.Achievement(total); ok {
		summary.Achievement = s.resolver.ResolveLang(session.Lang, key, nil)
	}
	return Outcome{
		Kind:     OutcomeCompleted,
		Correct:  correct,
		Feedback: feedback,
		Summary:  summary,
	}
}

// InProgress reports whether the identity has an active session.
func (s *QuizService) InProgress(identity string) bool {
	_, ok := s.sessions.Get(identity)
	return ok
}

// Stats returns the identity's all-time points and localized rank label.
func (s *QuizService) Stats(ctx context.Context, identity string) (int, string, error) {
	total, err := s.scores.Total(ctx, identity)
	if err != nil {
		return 0, "", err
	}
	lang := s.resolver.Lang(ctx, identity)
	return total, s.resolver.ResolveLang(lang, rank.LevelKey(total), nil), nil
}

// Leaderboard returns all entries ordered by points descending. Ties keep
// the store's insertion order; rank labels are resolved in lang.
func (s *QuizService) Leaderboard(ctx context.Context, lang string) ([]domain.LeaderboardRow, error) {
	snapshot, err := s.scores.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Points > snapshot[j].Points
	})
	rows := make([]domain.LeaderboardRow, 0, len(snapshot))
	for _, entry := range snapshot {
		rows = append(rows, domain.LeaderboardRow{
			Identity: entry.Identity,
			Points:   entry.Points,
			Rank:     s.resolver.ResolveLang(lang, rank.LevelKey(entry.Points), nil),
		})
	}
	return rows, nil
}

// SetLanguage validates and persists the identity's language preference.
// The language snapshot of any run already in progress is left untouched.
func (s *QuizService) SetLanguage(ctx context.Context, identity, lang string) error {
	supported := false
	for _, tag := range s.opts.Languages {
		if tag == lang {
			supported = true
			break
		}
	}
	if !supported {
		return domain.ErrUnknownLanguage
	}
	return s.prefs.Set(ctx, identity, lang)
}

func (s *QuizService) prompt(lang string, turn int, question domain.Question) domain.Prompt {
	situation := question.Situation[lang]
	if situation == "" {
		situation = question.Situation[s.resolver.DefaultLang()]
	}
	labels := make([]string, 0, len(question.Options))
	for _, opt := range question.Options {
		labels = append(labels, opt.Text[lang])
	}
	return domain.Prompt{
		Text: s.resolver.ResolveLang(lang, "quiz_question", map[string]string{
			"current":   strconv.Itoa(turn + 1),
			"situation": situation,
		}),
		Options: labels,
	}
}

func (s *QuizService) optionFeedback(opt domain.Option, lang string) string {
	if text := opt.Feedback[lang]; text != "" {
		return text
	}
	return opt.Feedback[s.resolver.DefaultLang()]
}

// matchOption compares the reply verbatim against each option's label in the
// session's snapshotted language. First exact match wins; uniqueness of
// labels within a question makes ties impossible.
func matchOption(question domain.Question, lang, text string) (domain.Option, bool) {
	for _, opt := range question.Options {
		if opt.Text[lang] == text {
			return opt, true
		}
	}
	return domain.Option{}, false
}
