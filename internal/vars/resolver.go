package vars

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/funnyzak/reqkit/pkg/request"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Resolver substitutes {{key}} placeholders from a flattened variable set.
// Keys match literally and case-sensitively. A later variable with the same
// key replaces an earlier one, so environment values shadow globals.
type Resolver struct {
	values  map[string]string
	dynamic bool
	now     func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDynamic enables $uuid, $timestamp, $isoTimestamp and $randomInt.
// User variables with the same name still win.
func WithDynamic(enabled bool) Option {
	return func(r *Resolver) { r.dynamic = enabled }
}

// WithClock overrides the time source used by dynamic values.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver flattens globals followed by the active environment's
// variables. Only enabled rows with a non-blank key and value take part.
func NewResolver(globals, environment []request.KeyValue, opts ...Option) *Resolver {
	r := &Resolver{values: make(map[string]string), now: time.Now}
	for _, scope := range [][]request.KeyValue{globals, environment} {
		for _, v := range scope {
			if !v.Complete() {
				continue
			}
			r.values[strings.TrimSpace(v.Key)] = strings.TrimSpace(v.Value)
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the value bound to key.
func (r *Resolver) Lookup(key string) (string, bool) {
	v, ok := r.values[strings.TrimSpace(key)]
	return v, ok
}

// Len reports how many variables are in effect.
func (r *Resolver) Len() int { return len(r.values) }

// Resolve replaces every known placeholder in a single pass. Substituted
// values are not re-scanned and unknown placeholders are kept verbatim.
func (r *Resolver) Resolve(text string) string {
	if text == "" || !strings.Contains(text, "{{") {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if name == "" {
			return match
		}
		if value, ok := r.values[name]; ok {
			return value
		}
		if r.dynamic && strings.HasPrefix(name, "$") {
			if value, ok := r.resolveDynamic(name); ok {
				return value
			}
		}
		return match
	})
}

// Unresolved lists placeholder names in text that have no binding.
func (r *Resolver) Unresolved(text string) []string {
	var missing []string
	seen := make(map[string]struct{})
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, ok := r.values[name]; ok {
			continue
		}
		if r.dynamic {
			if _, ok := r.resolveDynamic(name); ok {
				continue
			}
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		missing = append(missing, name)
	}
	return missing
}

func (r *Resolver) resolveDynamic(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "$timestamp":
		return fmt.Sprintf("%d", r.now().Unix()), true
	case "$isotimestamp":
		return r.now().UTC().Format(time.RFC3339), true
	case "$randomint":
		n, err := rand.Int(rand.Reader, big.NewInt(1000))
		if err != nil {
			return "0", true
		}
		return n.String(), true
	case "$uuid", "$guid":
		return uuid.NewString(), true
	}
	return "", false
}
