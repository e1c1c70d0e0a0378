package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillframe/gallery-agent/core"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s, err := NewSeededStore()
	require.NoError(t, err)
	return s
}

func ids(images []core.Image) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.ID
	}
	return out
}

func TestSearchFreeText(t *testing.T) {
	s := seeded(t)

	results := s.Search(core.SearchQuery{Text: "beach"})
	assert.Equal(t, []string{"img_001", "img_002", "img_003"}, ids(results))

	// Case and surrounding whitespace are normalized away.
	results = s.Search(core.SearchQuery{Text: "  BEACH "})
	assert.Equal(t, []string{"img_001", "img_002", "img_003"}, ids(results))
}

func TestSearchTextMatchesLocation(t *testing.T) {
	s := seeded(t)
	results := s.Search(core.SearchQuery{Text: "california"})
	assert.Equal(t, []string{"img_001", "img_002", "img_003", "img_010"}, ids(results))
}

func TestSearchCombinedFilters(t *testing.T) {
	s := seeded(t)

	results := s.Search(core.SearchQuery{
		Text:    "beach",
		Quality: core.QualityExcellent,
	})
	assert.Equal(t, []string{"img_001"}, ids(results))

	results = s.Search(core.SearchQuery{
		Tags:     []string{"hiking", "water"},
		Location: "washington",
	})
	assert.Equal(t, []string{"img_008"}, ids(results))
}

func TestSearchNoMatch(t *testing.T) {
	s := seeded(t)
	results := s.Search(core.SearchQuery{Text: "submarine"})
	assert.Empty(t, results)
}

func TestSearchReturnsCopies(t *testing.T) {
	s := seeded(t)

	results := s.Search(core.SearchQuery{Text: "beach"})
	require.NotEmpty(t, results)
	results[0].Filename = "mutated.jpg"

	img, ok := s.Get("img_001")
	require.True(t, ok)
	assert.Equal(t, "beach_sunset.jpg", img.Filename)
}

func TestSearchSeesMutations(t *testing.T) {
	s := seeded(t)

	before := s.Search(core.SearchQuery{Text: "beach"})
	require.Len(t, before, 3)

	// Identical search after a delete must reflect the new state; the
	// memo is flushed on every mutation.
	deleted, missing := s.Delete([]string{"img_003"})
	assert.Equal(t, []string{"img_003"}, deleted)
	assert.Empty(t, missing)

	after := s.Search(core.SearchQuery{Text: "beach"})
	assert.Equal(t, []string{"img_001", "img_002"}, ids(after))
}

func TestDeletePartialBatch(t *testing.T) {
	s := seeded(t)

	deleted, missing := s.Delete([]string{"img_001", "img_999", "img_004"})
	assert.Equal(t, []string{"img_001", "img_004"}, deleted)
	assert.Equal(t, []string{"img_999"}, missing)
	assert.Equal(t, 8, s.Len())

	_, ok := s.Get("img_001")
	assert.False(t, ok)
}

func TestDeletePreservesInsertionOrder(t *testing.T) {
	s := seeded(t)
	s.Delete([]string{"img_002", "img_005"})

	all := s.All()
	assert.Equal(t,
		[]string{"img_001", "img_003", "img_004", "img_006", "img_007", "img_008", "img_009", "img_010"},
		ids(all))
}

func TestAddTagsDeduplicates(t *testing.T) {
	s := seeded(t)

	updated, missing := s.AddTags([]string{"img_001", "img_404"}, []string{"favorite", "beach"})
	assert.Equal(t, []string{"img_001"}, updated)
	assert.Equal(t, []string{"img_404"}, missing)

	img, ok := s.Get("img_001")
	require.True(t, ok)
	assert.Equal(t, []string{"beach", "sunset", "landscape", "nature", "favorite"}, img.Tags)
}

func TestAggregate(t *testing.T) {
	s := seeded(t)
	stats := s.Aggregate()

	assert.Equal(t, 10, stats.TotalImages)
	assert.Equal(t, map[string]int{
		"excellent": 4,
		"good":      3,
		"poor":      1,
		"blurry":    2,
	}, stats.QualityDistribution)
	assert.Len(t, stats.Locations, 5)
	assert.LessOrEqual(t, len(stats.SampleTags), 10)
	assert.Positive(t, stats.UniqueTagCount)
	assert.Positive(t, stats.TotalSize)
	assert.Equal(t, stats.TotalSize/10, stats.AverageSize)
}

func TestAggregateEmptyStore(t *testing.T) {
	s, err := NewStore()
	require.NoError(t, err)

	stats := s.Aggregate()
	assert.Zero(t, stats.TotalImages)
	assert.Zero(t, stats.AverageSize)
	assert.Empty(t, stats.Locations)
}

func TestRelatedByLocationAndTags(t *testing.T) {
	s := seeded(t)

	related, source, err := s.Related("img_001", 10)
	require.NoError(t, err)
	assert.Equal(t, "img_001", source.ID)

	// Same location (img_002, img_003) plus shared tags: landscape
	// (img_004, img_010), nature (img_008, img_010).
	assert.Equal(t, []string{"img_002", "img_003", "img_004", "img_008", "img_010"}, ids(related))
	for _, img := range related {
		assert.NotEqual(t, "img_001", img.ID)
	}
}

func TestRelatedHonorsLimit(t *testing.T) {
	s := seeded(t)

	related, _, err := s.Related("img_001", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"img_002", "img_003"}, ids(related))
}

func TestRelatedUnknownID(t *testing.T) {
	s := seeded(t)

	_, _, err := s.Related("img_999", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAddReplacesExisting(t *testing.T) {
	s := seeded(t)

	s.Add(core.Image{ID: "img_001", Filename: "replaced.jpg"})
	assert.Equal(t, 10, s.Len())

	img, ok := s.Get("img_001")
	require.True(t, ok)
	assert.Equal(t, "replaced.jpg", img.Filename)

	// Replacement keeps the original insertion position.
	assert.Equal(t, "img_001", s.All()[0].ID)
}
