package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityScoreOrdering(t *testing.T) {
	assert.Greater(t, QualityExcellent.Score(), QualityGood.Score())
	assert.Greater(t, QualityGood.Score(), QualityPoor.Score())
	assert.Greater(t, QualityPoor.Score(), QualityBlurry.Score())
	assert.Zero(t, Quality("stunning").Score())
}

func TestQualityKnown(t *testing.T) {
	assert.True(t, QualityBlurry.Known())
	assert.False(t, Quality("").Known())
	assert.False(t, Quality("stunning").Known())
}

func TestImageCloneIsDeep(t *testing.T) {
	img := Image{
		ID:    "img_001",
		Tags:  []string{"beach"},
		Extra: map[string]string{"camera": "X100"},
	}

	clone := img.Clone()
	clone.Tags[0] = "mutated"
	clone.Extra["camera"] = "mutated"

	assert.Equal(t, "beach", img.Tags[0])
	assert.Equal(t, "X100", img.Extra["camera"])
}

func TestAddTagsSkipsDuplicates(t *testing.T) {
	img := Image{Tags: []string{"beach"}}

	added := img.AddTags([]string{"beach", "sunset"})
	assert.True(t, added)
	assert.Equal(t, []string{"beach", "sunset"}, img.Tags)

	added = img.AddTags([]string{"beach", "sunset"})
	assert.False(t, added)
	assert.Equal(t, []string{"beach", "sunset"}, img.Tags)
}

func TestSearchQueryNormalize(t *testing.T) {
	q := SearchQuery{
		Text:     "  Beach Sunset ",
		Location: " Malibu ",
		Tags:     []string{"zeta", "alpha"},
	}

	norm := q.Normalize()
	assert.Equal(t, "beach sunset", norm.Text)
	assert.Equal(t, "malibu", norm.Location)
	assert.Equal(t, []string{"alpha", "zeta"}, norm.Tags)

	// Normalization works on a copy of the tag slice.
	assert.Equal(t, []string{"zeta", "alpha"}, q.Tags)
}
