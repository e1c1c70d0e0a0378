package gallery

import (
	"time"

	"github.com/stillframe/gallery-agent/core"
)

// SampleGallery returns the demo record set used by the CLI and the
// examples. It is small but covers every quality grade, overlapping
// tags, and repeated locations so relatedness and threshold filtering
// have something to chew on.
func SampleGallery() []core.Image {
	ts := func(y int, m time.Month, d, hh, mm int) time.Time {
		return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
	}
	return []core.Image{
		{
			ID:         "img_001",
			Filename:   "beach_sunset.jpg",
			Path:       "/gallery/beach_sunset.jpg",
			UploadedAt: ts(2024, time.October, 15, 10, 30),
			CapturedAt: ts(2024, time.October, 15, 18, 45),
			Location:   "Malibu Beach, California",
			Tags:       []string{"beach", "sunset", "landscape", "nature"},
			Quality:    core.QualityExcellent,
			Width:      4000, Height: 3000, Size: 2500000,
		},
		{
			ID:         "img_002",
			Filename:   "beach_people.jpg",
			Path:       "/gallery/beach_people.jpg",
			UploadedAt: ts(2024, time.October, 15, 10, 32),
			CapturedAt: ts(2024, time.October, 15, 18, 50),
			Location:   "Malibu Beach, California",
			Tags:       []string{"beach", "people", "group photo"},
			Quality:    core.QualityGood,
			Width:      4000, Height: 3000, Size: 2300000,
		},
		{
			ID:         "img_003",
			Filename:   "beach_blurry.jpg",
			Path:       "/gallery/beach_blurry.jpg",
			UploadedAt: ts(2024, time.October, 15, 10, 35),
			CapturedAt: ts(2024, time.October, 15, 19, 0),
			Location:   "Malibu Beach, California",
			Tags:       []string{"beach", "blurry"},
			Quality:    core.QualityBlurry,
			Width:      4000, Height: 3000, Size: 2100000,
		},
		{
			ID:         "img_004",
			Filename:   "mountain_hike.jpg",
			Path:       "/gallery/mountain_hike.jpg",
			UploadedAt: ts(2024, time.September, 20, 14, 15),
			CapturedAt: ts(2024, time.September, 20, 15, 30),
			Location:   "Rocky Mountains, Colorado",
			Tags:       []string{"mountain", "hiking", "landscape"},
			Quality:    core.QualityExcellent,
			Width:      3840, Height: 2160, Size: 1800000,
		},
		{
			ID:         "img_005",
			Filename:   "mountain_selfie.jpg",
			Path:       "/gallery/mountain_selfie.jpg",
			UploadedAt: ts(2024, time.September, 20, 14, 20),
			CapturedAt: ts(2024, time.September, 20, 15, 45),
			Location:   "Rocky Mountains, Colorado",
			Tags:       []string{"mountain", "selfie", "people"},
			Quality:    core.QualityGood,
			Width:      3840, Height: 2160, Size: 1600000,
		},
		{
			ID:         "img_006",
			Filename:   "city_lights.jpg",
			Path:       "/gallery/city_lights.jpg",
			UploadedAt: ts(2024, time.August, 10, 20, 45),
			CapturedAt: ts(2024, time.August, 10, 22, 30),
			Location:   "New York City, New York",
			Tags:       []string{"city", "night", "lights", "skyline"},
			Quality:    core.QualityExcellent,
			Width:      5120, Height: 3200, Size: 3100000,
		},
		{
			ID:         "img_007",
			Filename:   "city_rain.jpg",
			Path:       "/gallery/city_rain.jpg",
			UploadedAt: ts(2024, time.August, 11, 9, 10),
			CapturedAt: ts(2024, time.August, 10, 23, 5),
			Location:   "New York City, New York",
			Tags:       []string{"city", "night", "rain"},
			Quality:    core.QualityPoor,
			Width:      5120, Height: 3200, Size: 2900000,
		},
		{
			ID:         "img_008",
			Filename:   "forest_trail.jpg",
			Path:       "/gallery/forest_trail.jpg",
			UploadedAt: ts(2024, time.July, 2, 8, 5),
			CapturedAt: ts(2024, time.July, 1, 16, 40),
			Location:   "Olympic National Park, Washington",
			Tags:       []string{"forest", "hiking", "nature", "trail"},
			Quality:    core.QualityGood,
			Width:      4000, Height: 3000, Size: 2200000,
		},
		{
			ID:         "img_009",
			Filename:   "forest_blurry.jpg",
			Path:       "/gallery/forest_blurry.jpg",
			UploadedAt: ts(2024, time.July, 2, 8, 7),
			CapturedAt: ts(2024, time.July, 1, 17, 2),
			Location:   "Olympic National Park, Washington",
			Tags:       []string{"forest", "blurry"},
			Quality:    core.QualityBlurry,
			Width:      4000, Height: 3000, Size: 2000000,
		},
		{
			ID:         "img_010",
			Filename:   "lake_morning.jpg",
			Path:       "/gallery/lake_morning.jpg",
			UploadedAt: ts(2024, time.June, 18, 7, 55),
			CapturedAt: ts(2024, time.June, 18, 6, 30),
			Location:   "Lake Tahoe, California",
			Tags:       []string{"lake", "sunrise", "landscape", "nature", "water"},
			Quality:    core.QualityExcellent,
			Width:      6000, Height: 4000, Size: 4100000,
		},
	}
}

// NewSeededStore creates a gallery pre-loaded with SampleGallery.
func NewSeededStore() (*Store, error) {
	s, err := NewStore()
	if err != nil {
		return nil, err
	}
	s.Add(SampleGallery()...)
	return s, nil
}
