package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/snapreg/api/schemas"
)

const (
	defaultMaxUnknown = 500
	maxURLsPerEntry   = 10
)

// Detector counts requests for manufacturers that have no dedicated
// strategy, to rank which ones deserve one next. The counters live in memory
// only and reset with the process. When full, the least recently seen entry
// is evicted.
type Detector struct {
	mu      sync.Mutex
	max     int
	now     func() time.Time
	entries map[string]*schemas.UnknownManufacturer
}

// NewDetector creates a Detector holding at most max entries.
func NewDetector(max int) *Detector {
	if max <= 0 {
		max = defaultMaxUnknown
	}
	return &Detector{
		max:     max,
		now:     time.Now,
		entries: make(map[string]*schemas.UnknownManufacturer),
	}
}

// Record counts one request for name.
func (d *Detector) Record(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e := d.touch(name); e != nil {
		e.Count++
	}
}

// RecordURL notes a registration URL that worked for name. It does not
// count as a request.
func (d *Detector) RecordURL(name, url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.touch(name)
	if e == nil || url == "" {
		return
	}
	for _, u := range e.URLs {
		if u == url {
			return
		}
	}
	if len(e.URLs) < maxURLsPerEntry {
		e.URLs = append(e.URLs, url)
	}
}

// touch returns the entry for name, creating it (and evicting if needed).
// Callers hold d.mu.
func (d *Detector) touch(name string) *schemas.UnknownManufacturer {
	key := Normalize(name)
	if key == "" {
		return nil
	}
	now := d.now()
	if e, ok := d.entries[key]; ok {
		e.LastSeen = now
		return e
	}
	if len(d.entries) >= d.max {
		d.evictOldest()
	}
	e := &schemas.UnknownManufacturer{
		Name:      strings.TrimSpace(name),
		FirstSeen: now,
		LastSeen:  now,
	}
	d.entries[key] = e
	return e
}

func (d *Detector) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range d.entries {
		if oldestKey == "" || e.LastSeen.Before(oldest) || (e.LastSeen.Equal(oldest) && k < oldestKey) {
			oldestKey, oldest = k, e.LastSeen
		}
	}
	delete(d.entries, oldestKey)
}

// Ranking returns a snapshot of all entries, most requested first. Ties go
// to the most recently seen.
func (d *Detector) Ranking() []schemas.UnknownManufacturer {
	d.mu.Lock()
	out := make([]schemas.UnknownManufacturer, 0, len(d.entries))
	for _, e := range d.entries {
		c := *e
		c.URLs = append([]string(nil), e.URLs...)
		out = append(out, c)
	}
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Len is the number of tracked manufacturers.
func (d *Detector) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Reset drops all counters.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = make(map[string]*schemas.UnknownManufacturer)
}
