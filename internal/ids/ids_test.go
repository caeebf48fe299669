package ids

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewIsMonotonicAndUnique(t *testing.T) {
	const total = 500
	out := make([]string, 0, total)
	for i := 0; i < total; i++ {
		out = append(out, New())
	}
	require.True(t, sort.StringsAreSorted(out), "ids should sort in creation order")

	seen := make(map[string]struct{}, total)
	for _, id := range out {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestNewSlugConcurrentUnique(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]struct{}{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				slug := NewSlug()
				mu.Lock()
				seen[slug] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, 16*50)
	for slug := range seen {
		require.Equal(t, strings.ToLower(slug), slug)
		require.Len(t, slug, 26)
		break
	}
}

func TestTimeRoundTrip(t *testing.T) {
	before := time.Now().Add(-time.Second)
	at, err := Time(NewSlug())
	require.NoError(t, err)
	require.True(t, at.After(before))

	_, err = Time("not-a-ulid")
	require.Error(t, err)
}
