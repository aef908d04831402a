package content

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"safequiz-bot/internal/domain"
)

// Bank is a validated, immutable question bank. Selection is uniform with
// replacement, so a short bank legitimately repeats questions within a run.
type Bank struct {
	questions []domain.Question
	byID      map[string]domain.Question

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBank validates questions against the bank invariants and builds the
// lookup index. langs is the set of supported language tags; every question
// must carry a situation and unique option labels for each of them.
func NewBank(questions []domain.Question, langs []string) (*Bank, error) {
	if len(questions) == 0 {
		return nil, domain.ErrEmptyBank
	}
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		if err := validateQuestion(q, langs); err != nil {
			return nil, err
		}
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidQuestion, q.ID)
		}
		byID[q.ID] = q
	}
	return &Bank{
		questions: questions,
		byID:      byID,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func validateQuestion(q domain.Question, langs []string) error {
	if q.ID == "" {
		return fmt.Errorf("%w: empty id", domain.ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %q has %d options, need at least 2", domain.ErrInvalidQuestion, q.ID, len(q.Options))
	}
	correct := 0
	for _, opt := range q.Options {
		if opt.Correct {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("%w: question %q has %d correct options, need exactly 1", domain.ErrInvalidQuestion, q.ID, correct)
	}
	for _, lang := range langs {
		if q.Situation[lang] == "" {
			return fmt.Errorf("%w: question %q has no %s situation", domain.ErrInvalidQuestion, q.ID, lang)
		}
		seen := make(map[string]bool, len(q.Options))
		for _, opt := range q.Options {
			text := opt.Text[lang]
			if text == "" {
				return fmt.Errorf("%w: question %q has an option without %s text", domain.ErrInvalidQuestion, q.ID, lang)
			}
			// Option text is the matching key for free-text replies, so it
			// must be unique within a question per language.
			if seen[text] {
				return fmt.Errorf("%w: question %q repeats option text %q in %s", domain.ErrInvalidQuestion, q.ID, text, lang)
			}
			seen[text] = true
		}
	}
	return nil
}

// Pick returns a uniformly random question.
func (b *Bank) Pick() domain.Question {
	b.mu.Lock()
	i := b.rnd.Intn(len(b.questions))
	b.mu.Unlock()
	return b.questions[i]
}

// ByID looks up a question by identifier.
func (b *Bank) ByID(id string) (domain.Question, bool) {
	q, ok := b.byID[id]
	return q, ok
}

// Size returns the number of questions in the bank.
func (b *Bank) Size() int {
	return len(b.questions)
}
