package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"safequiz-bot/internal/domain"
)

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx)
}

type failingLoader struct {
	err error
}

func (l *failingLoader) LoadBank(context.Context) ([]domain.Question, error) {
	return nil, l.err
}

func TestCachedBankRepositoryCaches(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticBankLoader([]domain.Question{validQuestion("q1")})}
	repo := NewCachedBankRepository(loader, testLangs, time.Minute)

	if _, err := repo.GetBank(context.Background()); err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetBank(context.Background()); err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestCachedBankRepositoryReloadsAfterTTL(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticBankLoader([]domain.Question{validQuestion("q1")})}
	repo := NewCachedBankRepository(loader, testLangs, time.Minute)

	now := time.Now()
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetBank(context.Background()); err != nil {
		t.Fatalf("get bank: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := repo.GetBank(context.Background()); err != nil {
		t.Fatalf("get bank after ttl: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestCachedBankRepositoryKeepsLastGoodBank(t *testing.T) {
	good := NewStaticBankLoader([]domain.Question{validQuestion("q1")})
	flaky := &switchableLoader{inner: good}
	repo := NewCachedBankRepository(flaky, testLangs, time.Minute)

	now := time.Now()
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetBank(context.Background()); err != nil {
		t.Fatalf("get bank: %v", err)
	}

	flaky.inner = &failingLoader{err: errors.New("disk gone")}
	now = now.Add(2 * time.Minute)

	bank, err := repo.GetBank(context.Background())
	if err != nil {
		t.Fatalf("expected last good bank to be served, got %v", err)
	}
	if _, ok := bank.ByID("q1"); !ok {
		t.Fatalf("expected last good bank content")
	}
}

func TestCachedBankRepositoryFailsWithoutAnyBank(t *testing.T) {
	repo := NewCachedBankRepository(&failingLoader{err: errors.New("no content")}, testLangs, time.Minute)

	if _, err := repo.GetBank(context.Background()); err == nil {
		t.Fatalf("expected error when no bank was ever loaded")
	}
}

type switchableLoader struct {
	inner BankLoader
}

func (l *switchableLoader) LoadBank(ctx context.Context) ([]domain.Question, error) {
	return l.inner.LoadBank(ctx)
}
