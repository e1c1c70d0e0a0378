package core

import (
	"sort"
	"strings"
	"time"
)

// Quality is the ordered quality grade of a gallery image.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityPoor      Quality = "poor"
	QualityBlurry    Quality = "blurry"
)

// qualityScores orders grades for threshold comparisons. Higher is better.
var qualityScores = map[Quality]int{
	QualityExcellent: 4,
	QualityGood:      3,
	QualityPoor:      2,
	QualityBlurry:    1,
}

// Score returns the numeric rank of the grade, or 0 for unknown grades.
func (q Quality) Score() int {
	return qualityScores[q]
}

// Known reports whether q is one of the defined grades.
func (q Quality) Known() bool {
	_, ok := qualityScores[q]
	return ok
}

// Image is a single gallery record. Images are owned by the gallery
// store; everything outside the store works on copies.
type Image struct {
	ID         string            `json:"id"`
	Filename   string            `json:"filename"`
	Path       string            `json:"path"`
	UploadedAt time.Time         `json:"uploaded_at"`
	CapturedAt time.Time         `json:"captured_at,omitempty"`
	Location   string            `json:"location,omitempty"`
	Tags       []string          `json:"tags"`
	Quality    Quality           `json:"quality,omitempty"`
	Width      int               `json:"width,omitempty"`
	Height     int               `json:"height,omitempty"`
	Size       int64             `json:"size,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy of the image.
func (img Image) Clone() Image {
	out := img
	if img.Tags != nil {
		out.Tags = append([]string(nil), img.Tags...)
	}
	if img.Extra != nil {
		out.Extra = make(map[string]string, len(img.Extra))
		for k, v := range img.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// HasTag reports whether the image carries the exact tag.
func (img Image) HasTag(tag string) bool {
	for _, t := range img.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTags appends the given tags, skipping ones already present.
// Returns true if at least one tag was added.
func (img *Image) AddTags(tags []string) bool {
	added := false
	for _, tag := range tags {
		if !img.HasTag(tag) {
			img.Tags = append(img.Tags, tag)
			added = true
		}
	}
	return added
}

// CloneImages deep-copies a result sequence, preserving order.
func CloneImages(images []Image) []Image {
	out := make([]Image, len(images))
	for i, img := range images {
		out[i] = img.Clone()
	}
	return out
}

// SearchQuery describes one predicate search against the gallery.
type SearchQuery struct {
	Text     string   `json:"query"`
	Location string   `json:"location,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Quality  Quality  `json:"quality,omitempty"`
}

// Normalize lowercases and trims the text fields and sorts the tag
// filter so equivalent queries compare equal.
func (q SearchQuery) Normalize() SearchQuery {
	out := q
	out.Text = strings.ToLower(strings.TrimSpace(q.Text))
	out.Location = strings.ToLower(strings.TrimSpace(q.Location))
	if len(q.Tags) > 0 {
		out.Tags = append([]string(nil), q.Tags...)
		sort.Strings(out.Tags)
	}
	return out
}
