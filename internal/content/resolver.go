// Package content resolves localized text and quiz questions. Lookups never
// fail hard: a missing key degrades through an explicit fallback chain
// (user language, default language, raw key) so a partial translation
// bundle cannot crash a session.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Bundle is a flat locale bundle: key to translated text.
type Bundle map[string]string

// LanguagePreferences exposes the per-identity language setting to the
// resolver. Implemented by the app-level language store.
type LanguagePreferences interface {
	Get(ctx context.Context, identity string) (string, bool)
}

// Resolver resolves locale keys for a user or an explicit language tag.
type Resolver struct {
	bundles     map[string]Bundle
	defaultLang string
	prefs       LanguagePreferences
}

func NewResolver(bundles map[string]Bundle, defaultLang string, prefs LanguagePreferences) *Resolver {
	return &Resolver{bundles: bundles, defaultLang: defaultLang, prefs: prefs}
}

// DefaultLang returns the system default language tag.
func (r *Resolver) DefaultLang() string {
	return r.defaultLang
}

// HasPreference reports whether the identity has an explicit language set.
func (r *Resolver) HasPreference(ctx context.Context, identity string) bool {
	if r.prefs == nil {
		return false
	}
	_, ok := r.prefs.Get(ctx, identity)
	return ok
}

// Lang returns the identity's current language preference, or the default.
func (r *Resolver) Lang(ctx context.Context, identity string) string {
	if r.prefs != nil {
		if lang, ok := r.prefs.Get(ctx, identity); ok {
			return lang
		}
	}
	return r.defaultLang
}

// Resolve looks key up in the bundle for the identity's current language.
func (r *Resolver) Resolve(ctx context.Context, identity, key string, params map[string]string) string {
	return r.ResolveLang(r.Lang(ctx, identity), key, params)
}

// ResolveLang looks key up in the bundle for an explicit language tag,
// falling back to the default bundle and finally to the raw key literal.
func (r *Resolver) ResolveLang(lang, key string, params map[string]string) string {
	text, ok := r.bundles[lang][key]
	if !ok {
		text, ok = r.bundles[r.defaultLang][key]
	}
	if !ok {
		text = key
	}
	return substitute(text, params)
}

// substitute replaces {name} placeholders with the given values. It is a
// plain string replace, not a templating language.
func substitute(text string, params map[string]string) string {
	for k, v := range params {
		text = strings.ReplaceAll(text, "{"+k+"}", v)
	}
	return text
}

// LoadBundles reads <dir>/<lang>.json for each supported language. A missing
// bundle for a non-default language is tolerated and logged; the default
// language bundle is required.
func LoadBundles(dir, defaultLang string, langs []string) (map[string]Bundle, error) {
	bundles := make(map[string]Bundle, len(langs))
	for _, lang := range langs {
		path := filepath.Join(dir, lang+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			if lang == defaultLang {
				return nil, fmt.Errorf("load default locale %s: %w", lang, err)
			}
			log.Printf("locale bundle %s missing: %v", path, err)
			continue
		}
		var bundle Bundle
		if err := json.Unmarshal(data, &bundle); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", path, err)
		}
		bundles[lang] = bundle
	}
	return bundles, nil
}
