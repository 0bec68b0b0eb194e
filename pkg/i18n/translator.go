// Package i18n looks up user-visible strings in the embedded locale catalogs.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFiles embed.FS

// catalog maps dotted keys ("validation.name_required") to text.
type catalog map[string]string

// Translator resolves keys against one catalog per locale, falling back
// from a regional locale to its base language and then to the default.
type Translator struct {
	mu            sync.RWMutex
	catalogs      map[string]catalog
	defaultLocale string
}

// NewTranslator loads every embedded catalog. defaultLocale must be one of
// them; "" selects en.
func NewTranslator(defaultLocale string) (*Translator, error) {
	catalogs, err := loadCatalogs()
	if err != nil {
		return nil, err
	}
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	if _, ok := catalogs[defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %s missing", defaultLocale)
	}
	return &Translator{catalogs: catalogs, defaultLocale: defaultLocale}, nil
}

func loadCatalogs() (map[string]catalog, error) {
	entries, err := localeFiles.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	out := make(map[string]catalog, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		data, err := localeFiles.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		var tree map[string]interface{}
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		c := make(catalog)
		c.flatten("", tree)
		out[name] = c
	}
	return out, nil
}

func (c catalog) flatten(prefix string, tree map[string]interface{}) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]interface{}:
			c.flatten(key, v)
		case string:
			c[key] = v
		default:
			c[key] = fmt.Sprint(v)
		}
	}
}

// Supported lists the loaded locales, sorted.
func (t *Translator) Supported() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.catalogs))
	for name := range t.catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Text returns the text for key in locale, or key itself when no catalog
// in the fallback chain has it.
func (t *Translator) Text(locale, key string) string {
	if key == "" {
		return ""
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, candidate := range t.chain(locale) {
		if text, ok := t.catalogs[candidate][key]; ok {
			return text
		}
	}
	return key
}

// Format is Text followed by fmt.Sprintf.
func (t *Translator) Format(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(t.Text(locale, key), args...)
}

func (t *Translator) chain(locale string) []string {
	out := make([]string, 0, 3)
	if locale != "" {
		out = append(out, locale)
		if base := baseLocale(locale); base != locale {
			out = append(out, base)
		}
	}
	return append(out, t.defaultLocale)
}

// Match maps a requested locale such as "zh_cn" or "es-AR" onto the
// closest loaded one, or the default.
func (t *Translator) Match(locale string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	base := baseLocale(locale)
	var byBase string
	for name := range t.catalogs {
		if strings.EqualFold(name, locale) {
			return name
		}
		if strings.EqualFold(name, base) || strings.EqualFold(baseLocale(name), base) {
			byBase = name
		}
	}
	if byBase != "" {
		return byBase
	}
	return t.defaultLocale
}

// Missing returns the keys of the default catalog that locale lacks.
func (t *Translator) Missing(locale string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	have := t.catalogs[locale]
	var out []string
	for key := range t.catalogs[t.defaultLocale] {
		if _, ok := have[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// DefaultLocale returns the locale used when nothing else matches.
func (t *Translator) DefaultLocale() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.defaultLocale
}

func baseLocale(locale string) string {
	locale = strings.ReplaceAll(locale, "_", "-")
	if i := strings.IndexByte(locale, '-'); i > 0 {
		return locale[:i]
	}
	return locale
}
