package library

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Metadata is the open descriptive bag attached to an entry.
// Unset values are omitted from the catalog, never written as null.
type Metadata struct {
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category,omitempty"`
	Tags          []string `json:"selected_tags,omitempty"`
	ViewCount     *int64   `json:"view_count,omitempty"`
	LikeCount     *int64   `json:"like_count,omitempty"`
	DislikeCount  *int64   `json:"dislike_count,omitempty"`
	CommentCount  *int64   `json:"comment_count,omitempty"`
	AverageRating *float64 `json:"average_rating,omitempty"`
	Uploader      string   `json:"uploader,omitempty"`
	ChannelID     string   `json:"channel_id,omitempty"`
	ChannelURL    string   `json:"channel_url,omitempty"`
	UploadDate    string   `json:"upload_date,omitempty"`
	Duration      *float64 `json:"duration,omitempty"`
	AgeLimit      *int     `json:"age_limit,omitempty"`
}

func (m Metadata) clone() Metadata {
	m.Tags = slices.Clone(m.Tags)
	return m
}

// HasTag reports whether tag is in the entry's tag set (exact match).
func (m Metadata) HasTag(tag string) bool {
	return slices.Contains(m.Tags, tag)
}

// Entry is one permanent catalog record. Entries are never mutated once committed.
type Entry struct {
	ID                string    `json:"id"`
	VideoURL          string    `json:"video_url"`
	Title             string    `json:"video_page_name"`
	OriginalFileName  string    `json:"original_file_name"`
	LibraryFileName   string    `json:"library_file_name"`
	FilePath          string    `json:"file_path"`
	FileSize          int64     `json:"file_size"`
	LocalURL          string    `json:"video_local_url"`
	DirectURL         string    `json:"video_direct_url"`
	SavedAt           Timestamp `json:"saved_at"`
	ThumbnailFileName string    `json:"thumbnail_filename,omitempty"`
	ThumbnailPath     string    `json:"thumbnail_path,omitempty"`
	ThumbnailURL      string    `json:"thumbnail_url,omitempty"`
	Metadata
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Metadata = e.Metadata.clone()
	return &c
}

// LocalURL is the served path for an entry's media by id.
func LocalURL(id string) string {
	return "/videopage_file/" + id
}

// DirectURL is the served path for a file directly under the library root.
func DirectURL(fileName string) string {
	return "/video_library/" + fileName
}

// timestampLayouts are accepted when reading a catalog. Older catalogs carry
// local ISO timestamps without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp is a save time that tolerates zone-less ISO values on read and
// always writes RFC 3339.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("saved_at: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("saved_at: unrecognized time %q", s)
}
