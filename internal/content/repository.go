package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"safequiz-bot/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches raw question content from a backing store (file,
// Postgres, etc).
type BankLoader interface {
	LoadBank(ctx context.Context) ([]domain.Question, error)
}

// CachedBankRepository caches the validated bank with a TTL so content can be
// hot-reloaded without restarting, while avoiding a reload per message.
// A reload that fails (I/O or validation) keeps serving the last good bank.
type CachedBankRepository struct {
	loader BankLoader
	langs  []string
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu        sync.RWMutex
	bank      *Bank
	expiresAt time.Time
}

func NewCachedBankRepository(loader BankLoader, langs []string, ttl time.Duration) *CachedBankRepository {
	return &CachedBankRepository{
		loader: loader,
		langs:  langs,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetBank returns the cached bank, reloading it when the TTL has lapsed.
func (r *CachedBankRepository) GetBank(ctx context.Context) (*Bank, error) {
	now := r.clock()

	r.mu.RLock()
	if r.bank != nil && r.expiresAt.After(now) {
		bank := r.bank
		r.mu.RUnlock()
		return bank, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("bank", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.bank != nil && r.expiresAt.After(now) {
			bank := r.bank
			r.mu.RUnlock()
			return bank, nil
		}
		last := r.bank
		r.mu.RUnlock()

		bank, err := r.reload(ctx)
		if err != nil {
			if last != nil {
				log.Printf("question bank reload failed, keeping previous bank: %v", err)
				return last, nil
			}
			return nil, err
		}

		r.mu.Lock()
		r.bank = bank
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Bank), nil
}

func (r *CachedBankRepository) reload(ctx context.Context) (*Bank, error) {
	questions, err := r.loader.LoadBank(ctx)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	return NewBank(questions, r.langs)
}

func (r *CachedBankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread reloads
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// FileBankLoader reads the question bank from a JSON file.
type FileBankLoader struct {
	path string
}

func NewFileBankLoader(path string) *FileBankLoader {
	return &FileBankLoader{path: path}
}

func (l *FileBankLoader) LoadBank(_ context.Context) ([]domain.Question, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.path, err)
	}
	return questions, nil
}

// StaticBankLoader serves a fixed question slice (tests and demos).
type StaticBankLoader struct {
	questions []domain.Question
}

func NewStaticBankLoader(questions []domain.Question) *StaticBankLoader {
	return &StaticBankLoader{questions: questions}
}

func (l *StaticBankLoader) LoadBank(_ context.Context) ([]domain.Question, error) {
	return l.questions, nil
}
