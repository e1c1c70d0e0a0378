// Package paginate slices ordered result sequences into fixed-size
// pages and produces field-reduced summaries for prompt injection.
// Everything here is pure: no clocks, no shared state.
package paginate

import "github.com/stillframe/gallery-agent/core"

// DefaultMaxPageSize caps per-page size when no explicit cap is given.
const DefaultMaxPageSize = 10

// maxSummaryTags limits how many tags a summary carries per item.
const maxSummaryTags = 5

// Page is one slice of a result sequence plus its metadata.
type Page struct {
	Items      []core.Image `json:"items"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalCount int          `json:"total"`
	TotalPages int          `json:"pages"`
	HasNext    bool         `json:"has_next"`
	HasPrev    bool         `json:"has_prev"`
}

// Paginate returns the requested page of seq.
//
// perPage is clamped to [1, maxPerPage] (values above the cap are
// silently clamped, never rejected); maxPerPage <= 0 means
// DefaultMaxPageSize. page below 1 is clamped to 1; a page beyond the
// last yields empty Items with HasNext=false rather than an error.
// TotalPages is ceil(len(seq)/perPage), 0 for an empty sequence.
func Paginate(seq []core.Image, page, perPage, maxPerPage int) Page {
	if maxPerPage <= 0 {
		maxPerPage = DefaultMaxPageSize
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page < 1 {
		page = 1
	}

	total := len(seq)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	end := start + perPage
	// Items is never nil so the boundary shape stays a JSON array.
	items := []core.Image{}
	if start < total {
		if end > total {
			end = total
		}
		items = seq[start:end]
	}

	return Page{
		Items:      items,
		Page:       page,
		PerPage:    perPage,
		TotalCount: total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Summary is the minimal projection of an image shown to the model
// collaborator. It is always a strict field subset of the full record.
type Summary struct {
	ID       string       `json:"id"`
	Filename string       `json:"filename"`
	Location string       `json:"location,omitempty"`
	Tags     []string     `json:"tags"`
	Quality  core.Quality `json:"quality,omitempty"`
}

// Summarize projects an image down to its summary fields, keeping at
// most the first five tags in original order.
func Summarize(img core.Image) Summary {
	tags := img.Tags
	if len(tags) > maxSummaryTags {
		tags = tags[:maxSummaryTags]
	}
	return Summary{
		ID:       img.ID,
		Filename: img.Filename,
		Location: img.Location,
		Tags:     append([]string(nil), tags...),
		Quality:  img.Quality,
	}
}

// SummarizeAll projects a whole sequence, preserving order.
func SummarizeAll(seq []core.Image) []Summary {
	out := make([]Summary, len(seq))
	for i, img := range seq {
		out[i] = Summarize(img)
	}
	return out
}
