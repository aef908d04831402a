package content

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"safequiz-bot/internal/domain"
)

// TipsLibrary holds the per-language worked safety examples served by the
// learn command.
type TipsLibrary struct {
	byLang      map[string][]domain.LearnExample
	defaultLang string

	mu  sync.Mutex
	rnd *rand.Rand
}

type tipsFile struct {
	Examples []domain.LearnExample `json:"examples"`
}

// LoadTips reads <dir>/<lang>.json for each language. Missing files are
// tolerated; the language simply falls back to the default set.
func LoadTips(dir, defaultLang string, langs []string) (*TipsLibrary, error) {
	byLang := make(map[string][]domain.LearnExample, len(langs))
	for _, lang := range langs {
		path := filepath.Join(dir, lang+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("learning examples %s missing: %v", path, err)
			continue
		}
		var file tipsFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse learning examples %s: %w", path, err)
		}
		byLang[lang] = file.Examples
	}
	return &TipsLibrary{
		byLang:      byLang,
		defaultLang: defaultLang,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// NewStaticTipsLibrary serves fixed per-language examples (tests and demos).
func NewStaticTipsLibrary(byLang map[string][]domain.LearnExample, defaultLang string) *TipsLibrary {
	return &TipsLibrary{
		byLang:      byLang,
		defaultLang: defaultLang,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Random returns a uniformly random example in the given language, falling
// back to the default language when none exist. ok is false only when both
// sets are empty.
func (t *TipsLibrary) Random(lang string) (domain.LearnExample, bool) {
	examples := t.byLang[lang]
	if len(examples) == 0 {
		examples = t.byLang[t.defaultLang]
	}
	if len(examples) == 0 {
		return domain.LearnExample{}, false
	}
	t.mu.Lock()
	i := t.rnd.Intn(len(examples))
	t.mu.Unlock()
	return examples[i], true
}
