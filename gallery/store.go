// Package gallery is the record store: it owns all image records and
// supports predicate search, in-place mutation (tag add, delete),
// aggregate statistics, and relatedness lookup.
package gallery

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto"

	"github.com/stillframe/gallery-agent/core"
)

// Store is an in-memory gallery. Search results preserve insertion
// order. Repeated identical searches are memoized in a lossy ristretto
// cache that is flushed on every mutation, so memoization is never
// externally observable.
type Store struct {
	mu     sync.RWMutex
	images map[string]*core.Image
	order  []string
	memo   *ristretto.Cache
}

// NewStore creates an empty gallery.
func NewStore() (*Store, error) {
	memo, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create search memo: %w", err)
	}
	return &Store{
		images: make(map[string]*core.Image),
		memo:   memo,
	}, nil
}

// Add inserts or replaces records. Later searches see them in
// insertion order.
func (s *Store) Add(images ...core.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, img := range images {
		clone := img.Clone()
		if _, exists := s.images[img.ID]; !exists {
			s.order = append(s.order, img.ID)
		}
		s.images[img.ID] = &clone
	}
	s.memo.Clear()
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (core.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[id]
	if !ok {
		return core.Image{}, false
	}
	return img.Clone(), true
}

// All returns copies of every record in insertion order.
func (s *Store) All() []core.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len reports the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) snapshotLocked() []core.Image {
	out := make([]core.Image, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.images[id].Clone())
	}
	return out
}

// Search runs the predicate search: free text matched case-insensitively
// against filename, tags, and location, then the optional location
// substring, tag overlap, and exact quality filters. Results preserve
// insertion order.
func (s *Store) Search(q core.SearchQuery) []core.Image {
	norm := q.Normalize()
	key := "search:" + cacheKey(norm)
	if hit, ok := s.memo.Get(key); ok {
		if cached, ok := hit.([]core.Image); ok {
			return core.CloneImages(cached)
		}
	}

	s.mu.RLock()
	var results []core.Image
	for _, id := range s.order {
		img := s.images[id]
		if matches(img, norm) {
			results = append(results, img.Clone())
		}
	}
	s.mu.RUnlock()

	s.memo.Set(key, core.CloneImages(results), int64(len(results)+1))
	return results
}

func cacheKey(q core.SearchQuery) string {
	return fmt.Sprintf("%s|%s|%s|%s", q.Text, q.Location, strings.Join(q.Tags, ","), q.Quality)
}

// matches expects a normalized query.
func matches(img *core.Image, q core.SearchQuery) bool {
	if q.Text != "" {
		textMatch := strings.Contains(strings.ToLower(img.Filename), q.Text) ||
			strings.Contains(strings.ToLower(img.Location), q.Text)
		if !textMatch {
			for _, tag := range img.Tags {
				if strings.Contains(strings.ToLower(tag), q.Text) {
					textMatch = true
					break
				}
			}
		}
		if !textMatch {
			return false
		}
	}

	if q.Location != "" && !strings.Contains(strings.ToLower(img.Location), q.Location) {
		return false
	}

	if len(q.Tags) > 0 {
		overlap := false
		for _, tag := range q.Tags {
			if img.HasTag(tag) {
				overlap = true
				break
			}
		}
		if !overlap {
			return false
		}
	}

	if q.Quality != "" && img.Quality != q.Quality {
		return false
	}
	return true
}

// Delete removes the given records. Unknown ids are reported in
// missing rather than failing the batch.
func (s *Store) Delete(ids []string) (deleted, missing []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := s.images[id]; !ok {
			missing = append(missing, id)
			continue
		}
		delete(s.images, id)
		removed[id] = struct{}{}
		deleted = append(deleted, id)
	}
	if len(removed) > 0 {
		kept := s.order[:0]
		for _, id := range s.order {
			if _, gone := removed[id]; !gone {
				kept = append(kept, id)
			}
		}
		s.order = kept
		s.memo.Clear()
	}
	return deleted, missing
}

// AddTags appends tags (deduplicated per record) to the given records.
// Unknown ids are reported in missing rather than failing the batch.
func (s *Store) AddTags(ids, tags []string) (updated, missing []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		img, ok := s.images[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		img.AddTags(tags)
		updated = append(updated, id)
	}
	if len(updated) > 0 {
		s.memo.Clear()
	}
	return updated, missing
}

// Stats is the aggregate view of the whole gallery.
type Stats struct {
	TotalImages         int            `json:"total_images"`
	QualityDistribution map[string]int `json:"quality_distribution"`
	Locations           []string       `json:"locations"`
	UniqueTagCount      int            `json:"total_unique_tags"`
	SampleTags          []string       `json:"sample_tags"`
	TotalSize           int64          `json:"total_storage_size"`
	AverageSize         int64          `json:"average_file_size"`
}

// maxSampleTags caps the tag sample in aggregate statistics.
const maxSampleTags = 10

// Aggregate computes distribution statistics over every record,
// bypassing any caches.
func (s *Store) Aggregate() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		TotalImages:         len(s.order),
		QualityDistribution: make(map[string]int),
	}
	locations := make(map[string]struct{})
	tags := make(map[string]struct{})

	for _, id := range s.order {
		img := s.images[id]
		grade := string(img.Quality)
		if grade == "" {
			grade = "unknown"
		}
		stats.QualityDistribution[grade]++
		if img.Location != "" {
			locations[img.Location] = struct{}{}
		}
		for _, tag := range img.Tags {
			tags[tag] = struct{}{}
		}
		stats.TotalSize += img.Size
	}

	stats.Locations = sortedKeys(locations)
	stats.UniqueTagCount = len(tags)
	stats.SampleTags = sortedKeys(tags)
	if len(stats.SampleTags) > maxSampleTags {
		stats.SampleTags = stats.SampleTags[:maxSampleTags]
	}
	if stats.TotalImages > 0 {
		stats.AverageSize = stats.TotalSize / int64(stats.TotalImages)
	}
	return stats
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Related returns records sharing any tag or the same location with
// the source record, excluding the source itself, capped at limit.
// The source record is returned alongside for echoing to the caller.
func (s *Store) Related(id string, limit int) (related []core.Image, source core.Image, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.images[id]
	if !ok {
		return nil, core.Image{}, fmt.Errorf("image %s: %w", id, core.ErrNotFound)
	}
	if limit <= 0 {
		limit = 5
	}

	for _, candidateID := range s.order {
		if len(related) >= limit {
			break
		}
		if candidateID == id {
			continue
		}
		img := s.images[candidateID]
		if sharesContext(src, img) {
			related = append(related, img.Clone())
		}
	}
	return related, src.Clone(), nil
}

func sharesContext(a, b *core.Image) bool {
	if a.Location != "" && a.Location == b.Location {
		return true
	}
	for _, tag := range a.Tags {
		if b.HasTag(tag) {
			return true
		}
	}
	return false
}
