// internal/registry/registry.go
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/xkilldash9x/snapreg/internal/automation"
	"github.com/xkilldash9x/snapreg/internal/config"
)

// minFuzzyLength keeps short names such as "LG" and "GE" out of fuzzy
// matching, where a single edit turns one brand into another.
const minFuzzyLength = 4

var (
	ErrEmptyName   = errors.New("manufacturer name must not be empty")
	ErrNilFactory  = errors.New("strategy factory must not be nil")
	ErrDuplicate   = errors.New("manufacturer already registered")
	ErrUnsupported = errors.New("manufacturer not supported")
)

var fallbackURLFormats = []string{
	"https://www.%s.com/product-registration",
	"https://www.%s.com/register",
	"https://www.%s.com/support/product-registration",
	"https://www.%s.com/warranty-registration",
}

// Factory builds a fresh strategy for one registration.
type Factory func() automation.Strategy

type entry struct {
	name    string
	factory Factory
}

// Registry maps manufacturer names to strategies. It is built once at
// startup and handed to the orchestrator; lookups are safe for concurrent
// use.
type Registry struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	cfg      config.RegistryConfig
	entries  map[string]entry
	names    []string
	detector *Detector
}

// New creates an empty registry with an unknown-manufacturer detector sized
// by cfg.MaxUnknownEntries.
func New(logger *zap.Logger, cfg config.RegistryConfig) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:   logger.Named("registry"),
		cfg:      cfg,
		entries:  make(map[string]entry),
		detector: NewDetector(cfg.MaxUnknownEntries),
	}
}

// Normalize lowercases s and drops everything but letters and digits, so
// "Jenn-Air", "jennair" and " JENN AIR " all resolve to the same key.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Register binds name and its aliases to factory.
func (r *Registry) Register(name string, factory Factory, aliases ...string) error {
	if factory == nil {
		return ErrNilFactory
	}
	key := Normalize(name)
	if key == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	keys := []string{key}
	for _, a := range aliases {
		if k := Normalize(a); k != "" && k != key {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		if existing, ok := r.entries[k]; ok {
			return fmt.Errorf("%w: %q conflicts with %q", ErrDuplicate, k, existing.name)
		}
	}
	for _, k := range keys {
		r.entries[k] = entry{name: name, factory: factory}
	}
	r.names = append(r.names, name)
	sort.Strings(r.names)
	return nil
}

// Supported returns the canonical names of the dedicated strategies.
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Lookup resolves manufacturer to a dedicated strategy name, exactly or
// within the configured edit distance.
func (r *Registry) Lookup(manufacturer string) (string, bool) {
	e, ok := r.resolve(Normalize(manufacturer))
	return e.name, ok
}

// Get returns a fresh strategy for manufacturer. Without a dedicated
// strategy it returns a Generic fallback aimed at guessed registration URLs
// and records the request in the Detector. ErrUnsupported is returned only
// when the fallback is disabled.
func (r *Registry) Get(manufacturer string) (automation.Strategy, error) {
	key := Normalize(manufacturer)
	if key == "" {
		return nil, ErrEmptyName
	}
	if e, ok := r.resolve(key); ok {
		return e.factory(), nil
	}

	r.detector.Record(manufacturer)
	if !r.cfg.FallbackEnabled {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, manufacturer)
	}
	r.logger.Info("No dedicated strategy, using generic fallback.", zap.String("manufacturer", manufacturer))
	return automation.NewGeneric(manufacturer, CandidateURLs(manufacturer),
		automation.WithURLReporter(r.detector.RecordURL)), nil
}

// Detector exposes the unknown-manufacturer counters.
func (r *Registry) Detector() *Detector { return r.detector }

func (r *Registry) resolve(key string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[key]; ok {
		return e, true
	}
	if r.cfg.FuzzyDistance <= 0 || len(key) < minFuzzyLength {
		return entry{}, false
	}

	bestKey, bestDist := "", r.cfg.FuzzyDistance+1
	for k := range r.entries {
		if len(k) < minFuzzyLength {
			continue
		}
		d := levenshtein.ComputeDistance(key, k)
		if d < bestDist || (d == bestDist && k < bestKey) {
			bestKey, bestDist = k, d
		}
	}
	if bestKey == "" {
		return entry{}, false
	}
	e := r.entries[bestKey]
	r.logger.Debug("Fuzzy manufacturer match.", zap.String("input", key),
		zap.String("matched", e.name), zap.Int("distance", bestDist))
	return e, true
}

// CandidateURLs guesses registration pages for a manufacturer without a
// dedicated strategy from its slugified name.
func CandidateURLs(manufacturer string) []string {
	var slugs []string
	for _, sep := range []string{"", "-"} {
		slug := automation.Slugify(manufacturer, sep)
		if slug == "" || (len(slugs) > 0 && slugs[0] == slug) {
			continue
		}
		slugs = append(slugs, slug)
	}
	var urls []string
	for _, slug := range slugs {
		for _, f := range fallbackURLFormats {
			urls = append(urls, fmt.Sprintf(f, slug))
		}
	}
	return urls
}
