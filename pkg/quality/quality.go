// Package quality maps a vertical pixel height to a human quality label.
package quality

import (
	"fmt"
	"sort"
)

// MinHeight is the smallest height that is classified at all.
// Formats below it are dropped by the catalog builder before classification.
const MinHeight = 360

// Unknown is returned for heights outside every bucket.
const Unknown = "Unknown"

// Bucket is a half-open height range [Min, Max) with its label.
type Bucket struct {
	Min   int    `toml:"min" json:"min"`
	Max   int    `toml:"max" json:"max"`
	Label string `toml:"label" json:"label"`
}

// DefaultBuckets are the empirically chosen boundaries.
// They are not a guarantee of any extractor; override them through config.
var DefaultBuckets = []Bucket{
	{Min: 360, Max: 480, Label: "360p"},
	{Min: 480, Max: 720, Label: "480p"},
	{Min: 720, Max: 1080, Label: "720p"},
	{Min: 1080, Max: 1440, Label: "1080p"},
	{Min: 1440, Max: 2160, Label: "1440p"},
	{Min: 2160, Max: 4320, Label: "4K"},
}

// Classifier assigns labels using an ordered, contiguous bucket table.
type Classifier struct {
	buckets []Bucket
}

// New creates a Classifier. An empty table uses DefaultBuckets.
func New(buckets []Bucket) (*Classifier, error) {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	if err := ValidateBuckets(buckets); err != nil {
		return nil, err
	}
	sorted := make([]Bucket, len(buckets))
	copy(sorted, buckets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	return &Classifier{buckets: sorted}, nil
}

// Default returns a Classifier over DefaultBuckets.
func Default() *Classifier {
	return &Classifier{buckets: DefaultBuckets}
}

// Classify returns the label of the bucket containing height, or Unknown.
func (c *Classifier) Classify(height int) string {
	for _, b := range c.buckets {
		if height >= b.Min && height < b.Max {
			return b.Label
		}
	}
	return Unknown
}

// Classify labels height with DefaultBuckets.
func Classify(height int) string {
	return Default().Classify(height)
}

// ValidateBuckets checks that buckets are non-empty ranges that tile without gaps or overlap.
func ValidateBuckets(buckets []Bucket) error {
	sorted := make([]Bucket, len(buckets))
	copy(sorted, buckets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	for i, b := range sorted {
		if b.Label == "" {
			return fmt.Errorf("bucket %d: empty label", i)
		}
		if b.Max <= b.Min {
			return fmt.Errorf("bucket %q: max %d must exceed min %d", b.Label, b.Max, b.Min)
		}
		if i > 0 && sorted[i-1].Max != b.Min {
			return fmt.Errorf("bucket %q: min %d does not continue previous max %d", b.Label, b.Min, sorted[i-1].Max)
		}
	}
	return nil
}
