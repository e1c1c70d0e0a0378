// Package cache holds search result sets for the duration of a
// session so follow-up operations (delete, tag, filter) can act on the
// full previously-found records without re-querying the gallery.
//
// Entries expire by TTL and expired entries behave as absent on every
// read path; there is no background eviction.
package cache

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/stillframe/gallery-agent/core"
	"github.com/stillframe/gallery-agent/paginate"
)

// DefaultTTL is the entry lifetime used when none is configured.
const DefaultTTL = 30 * time.Minute

// Entry is one cached result set: the full ordered sequence from a
// single search, its summary projection, and its creation time.
type Entry struct {
	Key       string
	Query     core.SearchQuery
	Images    []core.Image
	Summaries []paginate.Summary
	CreatedAt time.Time
	TTL       time.Duration
}

// TotalCount returns the length of the full sequence.
func (e *Entry) TotalCount() int {
	return len(e.Images)
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) >= e.TTL
}

// clone snapshots the entry so callers never share backing arrays
// with the store.
func (e *Entry) clone() *Entry {
	out := &Entry{
		Key:       e.Key,
		Query:     e.Query,
		Images:    core.CloneImages(e.Images),
		Summaries: append([]paginate.Summary(nil), e.Summaries...),
		CreatedAt: e.CreatedAt,
		TTL:       e.TTL,
	}
	return out
}

// Key derives the deterministic cache key for a query: the canonical
// JSON of its normalized form. Equivalent queries (case, whitespace,
// tag order) map to the same key.
func Key(q core.SearchQuery) string {
	b, _ := json.Marshal(q.Normalize())
	return string(b)
}

// Store is a keyed result cache with a uniform TTL. All methods are
// safe for concurrent use; reads lock shared, mutations exclusive.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithTTL sets the entry lifetime for all entries this store creates.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithClock overrides the time source. Tests use this to cross TTL
// boundaries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty result cache.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*Entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured entry lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Put stores the full result sequence under the query's derived key,
// overwriting any previous entry for the same key with a fresh
// timestamp. The stored sequence and its summaries are copies; the
// caller's slice is not retained. Returns the key.
func (s *Store) Put(q core.SearchQuery, images []core.Image) string {
	key := Key(q)
	entry := &Entry{
		Key:       key,
		Query:     q,
		Images:    core.CloneImages(images),
		Summaries: paginate.SummarizeAll(images),
		CreatedAt: s.now(),
		TTL:       s.ttl,
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return key
}

// Get returns a snapshot of the entry under key, or false if the key
// is unknown or the entry's TTL has elapsed. This is the sole expiry
// check point.
func (s *Store) Get(key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(s.now()) {
		return nil, false
	}
	return entry.clone(), true
}

// Latest returns a snapshot of the valid entry with the newest
// creation timestamp, or false if no entry is valid.
func (s *Store) Latest() (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var latest *Entry
	for _, entry := range s.entries {
		if entry.expired(now) {
			continue
		}
		if latest == nil || entry.CreatedAt.After(latest.CreatedAt) {
			latest = entry
		}
	}
	if latest == nil {
		return nil, false
	}
	return latest.clone(), true
}

// GetByIDs scans every valid entry's full sequence and returns copies
// of the records whose id is in ids, deduplicated by id. When the same
// id appears in several entries with divergent values, the most
// recently created entry's version wins. Results follow the order of
// ids; ids with no live record are skipped.
func (s *Store) GetByIDs(ids []string) []core.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	found := make(map[string]core.Image)
	foundAt := make(map[string]time.Time)
	for _, entry := range s.entries {
		if entry.expired(now) {
			continue
		}
		for _, img := range entry.Images {
			if at, ok := foundAt[img.ID]; ok && !entry.CreatedAt.After(at) {
				continue
			}
			for _, id := range ids {
				if img.ID == id {
					found[img.ID] = img.Clone()
					foundAt[img.ID] = entry.CreatedAt
					break
				}
			}
		}
	}

	out := make([]core.Image, 0, len(found))
	for _, id := range ids {
		if img, ok := found[id]; ok {
			out = append(out, img)
		}
	}
	return out
}

// ApplyMutation applies mutate to every record matching ids inside
// every valid entry's full sequence, then regenerates that entry's
// summary projection so summary and full views never diverge.
//
// mutate may modify the record in place; returning false removes it
// from the sequence (delete semantics). Entries reduced to empty stay
// in the cache and report a total count of zero until their TTL.
func (s *Store) ApplyMutation(ids []string, mutate func(img *core.Image) (keep bool)) {
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, entry := range s.entries {
		if entry.expired(now) {
			continue
		}
		changed := false
		kept := entry.Images[:0]
		for i := range entry.Images {
			img := &entry.Images[i]
			if _, hit := idSet[img.ID]; !hit {
				kept = append(kept, *img)
				continue
			}
			changed = true
			if mutate(img) {
				kept = append(kept, *img)
			}
		}
		if changed {
			entry.Images = kept
			entry.Summaries = paginate.SummarizeAll(entry.Images)
		}
	}
}

// Len reports how many valid entries the store currently holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	n := 0
	for _, entry := range s.entries {
		if !entry.expired(now) {
			n++
		}
	}
	return n
}
