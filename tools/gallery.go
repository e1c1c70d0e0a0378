package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stillframe/gallery-agent/cache"
	"github.com/stillframe/gallery-agent/core"
	"github.com/stillframe/gallery-agent/gallery"
	"github.com/stillframe/gallery-agent/paginate"
)

// Config carries the dispatcher's tunable limits.
type Config struct {
	// MaxPageSize caps per_page on search results. Zero means
	// paginate.DefaultMaxPageSize.
	MaxPageSize int

	// DefaultPerPage is used when the model omits per_page.
	DefaultPerPage int

	// RelatedLimit caps get_related_images results.
	RelatedLimit int
}

// DefaultConfig returns the limits used when none are supplied.
func DefaultConfig() Config {
	return Config{
		MaxPageSize:    paginate.DefaultMaxPageSize,
		DefaultPerPage: 5,
		RelatedLimit:   5,
	}
}

func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = d.MaxPageSize
	}
	if c.DefaultPerPage <= 0 {
		c.DefaultPerPage = d.DefaultPerPage
	}
	if c.RelatedLimit <= 0 {
		c.RelatedLimit = d.RelatedLimit
	}
}

// GalleryTools builds the closed operation set against the given
// gallery store and result cache.
func GalleryTools(gal *gallery.Store, res *cache.Store, cfg Config) []core.Tool {
	cfg.fillDefaults()
	return []core.Tool{
		newSearchTool(gal, res, cfg),
		newFilterTool(gal, res),
		newDeleteTool(gal, res),
		newTagTool(gal, res),
		newAnalyzeTool(gal),
		newRelatedTool(gal, cfg),
	}
}

// PageMeta is the pagination metadata block every paged response carries.
type PageMeta struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

func pageMeta(p paginate.Page) PageMeta {
	return PageMeta{
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   p.TotalCount,
		Pages:   p.TotalPages,
		HasNext: p.HasNext,
		HasPrev: p.HasPrev,
	}
}

// SearchData is the search_images response payload.
type SearchData struct {
	Summary    []paginate.Summary `json:"summary"`
	Pagination PageMeta           `json:"pagination"`
	CacheKey   string             `json:"cache_key"`
}

func newSearchTool(gal *gallery.Store, res *cache.Store, cfg Config) core.Tool {
	return New("search_images").
		Description("Search the gallery by free text (filenames, tags, locations) with optional location, tag, and quality filters. Results are cached for follow-up operations and returned one page at a time.").
		Schema(BuildSchemaWithThought(map[string]interface{}{
			"query":    StringProperty("Text search query, matched against filenames, tags, and locations"),
			"location": StringProperty("Optional: filter by location substring"),
			"tags":     StringArrayProperty("Optional: filter to images carrying any of these tags"),
			"quality":  StringEnumProperty("Optional: filter by quality grade", "excellent", "good", "poor", "blurry"),
			"page":     IntegerProperty("Page number, starting at 1"),
			"per_page": IntegerProperty(fmt.Sprintf("Results per page (default %d, max %d)", cfg.DefaultPerPage, cfg.MaxPageSize)),
		}, false, "query")).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			var in struct {
				core.BaseInput
				Query    string   `json:"query"`
				Location string   `json:"location"`
				Tags     []string `json:"tags"`
				Quality  string   `json:"quality"`
				Page     int      `json:"page"`
				PerPage  int      `json:"per_page"`
			}
			if err := json.Unmarshal(params.Input, &in); err != nil {
				return core.Fail(core.CodeInvalidParameter, fmt.Sprintf("invalid input: %v", err)), nil
			}
			if strings.TrimSpace(in.Query) == "" {
				return core.Fail(core.CodeInvalidParameter, "query must not be empty"), nil
			}
			quality := core.Quality(in.Quality)
			if in.Quality != "" && !quality.Known() {
				return core.Fail(core.CodeInvalidParameter, fmt.Sprintf("unknown quality grade %q", in.Quality)), nil
			}
			if in.PerPage == 0 {
				in.PerPage = cfg.DefaultPerPage
			}

			q := core.SearchQuery{
				Text:     in.Query,
				Location: in.Location,
				Tags:     in.Tags,
				Quality:  quality,
			}
			results := gal.Search(q)
			key := res.Put(q, results)

			page := paginate.Paginate(results, in.Page, in.PerPage, cfg.MaxPageSize)

			more := "No more results."
			if page.HasNext {
				more = "Use the page parameter to get more results."
			}
			msg := fmt.Sprintf("Found %d total images. Showing %d results on page %d of %d. %s",
				page.TotalCount, len(page.Items), page.Page, page.TotalPages, more)

			return core.OK(msg, SearchData{
				Summary:    paginate.SummarizeAll(page.Items),
				Pagination: pageMeta(page),
				CacheKey:   key,
			}), nil
		}).
		Build()
}

// maxRemovedSample caps how many removed items the filter summarizes.
const maxRemovedSample = 5

// FilterData is the filter_low_quality_images response payload.
type FilterData struct {
	RemovedCount  int                `json:"removed_count"`
	KeptCount     int                `json:"kept_count"`
	RemovedSample []paginate.Summary `json:"removed_sample"`
	Criteria      string             `json:"criteria"`
	Source        string             `json:"source"`
}

func newFilterTool(gal *gallery.Store, res *cache.Store) core.Tool {
	return New("filter_low_quality_images").
		Description("Partition the most recent search results by quality: images at or below the threshold grade are marked for removal. Falls back to scanning the whole gallery when no recent search is cached.").
		Schema(BuildSchemaWithThought(map[string]interface{}{
			"threshold": StringEnumProperty("Quality grade treated as the cutoff; images at or below it are marked for removal", "excellent", "good", "poor", "blurry"),
		}, false)).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			var in struct {
				core.BaseInput
				Threshold string `json:"threshold"`
			}
			if err := json.Unmarshal(params.Input, &in); err != nil {
				return core.Fail(core.CodeInvalidParameter, fmt.Sprintf("invalid input: %v", err)), nil
			}
			if in.Threshold == "" {
				in.Threshold = string(core.QualityPoor)
			}
			threshold := core.Quality(in.Threshold)
			if !threshold.Known() {
				return core.Fail(core.CodeInvalidParameter, fmt.Sprintf("unknown quality threshold %q", in.Threshold)), nil
			}

			// Prefer the latest cached result set; a miss or expiry is
			// not an error, we just re-derive from the gallery.
			source := "cached search"
			var images []core.Image
			if entry, ok := res.Latest(); ok {
				images = entry.Images
			} else {
				images = gal.All()
				source = "gallery scan"
			}

			var removed, kept []core.Image
			for _, img := range images {
				// Ungraded images are never removal candidates.
				if !img.Quality.Known() {
					kept = append(kept, img)
					continue
				}
				if img.Quality.Score() <= threshold.Score() {
					removed = append(removed, img)
				} else {
					kept = append(kept, img)
				}
			}

			sample := removed
			if len(sample) > maxRemovedSample {
				sample = sample[:maxRemovedSample]
			}

			msg := fmt.Sprintf("Quality filter analysis (%s): %d images at or below %s quality, %d images retained. Showing top %d removed.",
				source, len(removed), threshold, len(kept), len(sample))

			return core.OK(msg, FilterData{
				RemovedCount:  len(removed),
				KeptCount:     len(kept),
				RemovedSample: paginate.SummarizeAll(sample),
				Criteria:      fmt.Sprintf("quality <= %s", threshold),
				Source:        source,
			}), nil
		}).
		Build()
}

// DeleteData is the delete_images response payload.
type DeleteData struct {
	DeletedCount int      `json:"deleted_count"`
	DeletedIDs   []string `json:"deleted_ids"`
	MissingIDs   []string `json:"missing_ids,omitempty"`
}

func newDeleteTool(gal *gallery.Store, res *cache.Store) core.Tool {
	return New("delete_images").
		Description("Delete images from the gallery by id. Ids that don't exist are reported back; the rest are still deleted.").
		Schema(BuildSchemaWithThought(map[string]interface{}{
			"image_ids": StringArrayProperty("Ids of the images to delete"),
		}, true, "image_ids")).
		Destructive().
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			var in struct {
				core.BaseInput
				ImageIDs []string `json:"image_ids"`
			}
			if err := json.Unmarshal(params.Input, &in); err != nil {
				return core.Fail(core.CodeInvalidParameter, fmt.Sprintf("invalid input: %v", err)), nil
			}
			if len(in.ImageIDs) == 0 {
				return core.Fail(core.CodeInvalidParameter, "image_ids must not be empty"), nil
			}

			deleted, missing := gal.Delete(in.ImageIDs)
			if len(deleted) > 0 {
				res.ApplyMutation(deleted, func(*core.Image) bool { return false })
			}

			msg := fmt.Sprintf("Deleted %d of %d images.", len(deleted), len(in.ImageIDs))
			if len(missing) > 0 {
				msg += fmt.Sprintf(" %d ids not found: %s.", len(missing), strings.Join(missing, ", "))
			}

			result := core.OK(msg, DeleteData{
				DeletedCount: len(deleted),
				DeletedIDs:   deleted,
				MissingIDs:   missing,
			})
			if len(missing) > 0 {
				result.Code = core.CodeNotFound
			}
			return result, nil
		}).
		Build()
}

// TagData is the tag_images response payload.
type TagData struct {
	UpdatedCount int      `json:"updated_count"`
	TagsAdded    []string `json:"tags_added"`
	MissingIDs   []string `json:"missing_ids,omitempty"`
}

func newTagTool(gal *gallery.Store, res *cache.Store) core.Tool {
	return New("tag_images").
		Description("Add tags to images by id. Tags already present on an image are skipped; ids that don't exist are reported back.").
		Schema(BuildSchemaWithThought(map[string]interface{}{
			"image_ids": StringArrayProperty("Ids of the images to tag"),
			"tags":      StringArrayProperty("Tags to add"),
		}, true, "image_ids", "tags")).
		Destructive().
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			var in struct {
				core.BaseInput
				ImageIDs []string `json:"image_ids"`
				Tags     []string `json:"tags"`
			}
			if err := json.Unmarshal(params.Input, &in); err != nil {
				return core.Fail(core.CodeInvalidParameter, fmt.Sprintf("invalid input: %v", err)), nil
			}
			if len(in.ImageIDs) == 0 || len(in.Tags) == 0 {
				return core.Fail(core.CodeInvalidParameter, "image_ids and tags must not be empty"), nil
			}

			updated, missing := gal.AddTags(in.ImageIDs, in.Tags)
			if len(updated) > 0 {
				res.ApplyMutation(updated, func(img *core.Image) bool {
					img.AddTags(in.Tags)
					return true
				})
			}

			msg := fmt.Sprintf("Added tags to %d of %d images.", len(updated), len(in.ImageIDs))
			if len(missing) > 0 {
				msg += fmt.Sprintf(" %d ids not found: %s.", len(missing), strings.Join(missing, ", "))
			}

			result := core.OK(msg, TagData{
				UpdatedCount: len(updated),
				TagsAdded:    in.Tags,
				MissingIDs:   missing,
			})
			if len(missing) > 0 {
				result.Code = core.CodeNotFound
			}
			return result, nil
		}).
		Build()
}

func newAnalyzeTool(gal *gallery.Store) core.Tool {
	return New("analyze_gallery").
		Description("Compute aggregate statistics over the whole gallery: quality distribution, locations, a tag sample, and storage totals. Reads the gallery directly, never the search cache.").
		Schema(BuildSchemaWithThought(map[string]interface{}{}, false)).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			stats := gal.Aggregate()
			return core.OK(fmt.Sprintf("Analyzed %d images in gallery.", stats.TotalImages), stats), nil
		}).
		Build()
}

// RelatedData is the get_related_images response payload.
type RelatedData struct {
	Source       paginate.Summary   `json:"source_image"`
	Related      []paginate.Summary `json:"related_images"`
	RelatedCount int                `json:"related_count"`
}

func newRelatedTool(gal *gallery.Store, cfg Config) core.Tool {
	return New("get_related_images").
		Description("Find images related to a given image: any shared tag or the same location, excluding the image itself.").
		Schema(BuildSchemaWithThought(map[string]interface{}{
			"image_id": StringProperty("Id of the image to find relations for"),
			"limit":    IntegerProperty(fmt.Sprintf("Maximum related images to return (default %d)", cfg.RelatedLimit)),
		}, false, "image_id")).
		Handler(func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
			var in struct {
				core.BaseInput
				ImageID string `json:"image_id"`
				Limit   int    `json:"limit"`
			}
			if err := json.Unmarshal(params.Input, &in); err != nil {
				return core.Fail(core.CodeInvalidParameter, fmt.Sprintf("invalid input: %v", err)), nil
			}
			if in.ImageID == "" {
				return core.Fail(core.CodeInvalidParameter, "image_id must not be empty"), nil
			}
			if in.Limit <= 0 {
				in.Limit = cfg.RelatedLimit
			}

			related, source, err := gal.Related(in.ImageID, in.Limit)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					return core.Fail(core.CodeNotFound, fmt.Sprintf("image %s not found", in.ImageID)), nil
				}
				return nil, err
			}

			return core.OK(fmt.Sprintf("Found %d related images.", len(related)), RelatedData{
				Source:       paginate.Summarize(source),
				Related:      paginate.SummarizeAll(related),
				RelatedCount: len(related),
			}), nil
		}).
		Build()
}
