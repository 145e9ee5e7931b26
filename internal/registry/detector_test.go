package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock advances one second on every read.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestDetector(max int) *Detector {
	d := NewDetector(max)
	d.now = steppingClock()
	return d
}

func TestDetector_Ranking(t *testing.T) {
	t.Parallel()
	d := newTestDetector(10)
	d.Record("Acme")
	d.Record("Globex")
	d.Record("acme ")
	d.Record("Initech")
	d.Record("Globex")
	d.Record("ACME")

	ranking := d.Ranking()
	require.Len(t, ranking, 3)
	assert.Equal(t, "Acme", ranking[0].Name, "name is kept as first seen")
	assert.Equal(t, 3, ranking[0].Count)
	assert.Equal(t, "Globex", ranking[1].Name)
	assert.Equal(t, "Initech", ranking[2].Name)
	assert.True(t, ranking[0].LastSeen.After(ranking[0].FirstSeen))
}

func TestDetector_TiesGoToMostRecent(t *testing.T) {
	t.Parallel()
	d := newTestDetector(10)
	d.Record("Acme")
	d.Record("Globex")

	ranking := d.Ranking()
	require.Len(t, ranking, 2)
	assert.Equal(t, "Globex", ranking[0].Name)
}

func TestDetector_EvictsLeastRecentlySeen(t *testing.T) {
	t.Parallel()
	d := newTestDetector(2)
	d.Record("Acme")
	d.Record("Globex")
	d.Record("Acme")
	d.Record("Initech")

	assert.Equal(t, 2, d.Len())
	var names []string
	for _, e := range d.Ranking() {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"Acme", "Initech"}, names)
}

func TestDetector_RecordURL(t *testing.T) {
	t.Parallel()
	d := newTestDetector(10)
	d.Record("Acme")
	d.RecordURL("Acme", "https://www.acme.com/register")
	d.RecordURL("acme", "https://www.acme.com/register")
	d.RecordURL("Acme", "")
	for i := 0; i < 20; i++ {
		d.RecordURL("Acme", fmt.Sprintf("https://www.acme.com/r%d", i))
	}
	d.RecordURL("", "https://nowhere.example")

	ranking := d.Ranking()
	require.Len(t, ranking, 1)
	assert.Equal(t, 1, ranking[0].Count, "urls do not count as requests")
	assert.Len(t, ranking[0].URLs, maxURLsPerEntry)
	assert.Equal(t, "https://www.acme.com/register", ranking[0].URLs[0])

	// The snapshot is a copy.
	ranking[0].URLs[0] = "mutated"
	assert.Equal(t, "https://www.acme.com/register", d.Ranking()[0].URLs[0])
}

func TestDetector_ConcurrentRecord(t *testing.T) {
	t.Parallel()
	d := NewDetector(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.Record(fmt.Sprintf("brand-%d", i%5))
		}(i)
	}
	wg.Wait()

	ranking := d.Ranking()
	require.Len(t, ranking, 5)
	for _, e := range ranking {
		assert.Equal(t, 10, e.Count)
	}

	d.Reset()
	assert.Zero(t, d.Len())
}
