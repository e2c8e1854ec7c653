// internal/api/v1/types.go
package v1

import (
	"github.com/vmunix/vidvault/internal/acquire"
	"github.com/vmunix/vidvault/internal/formats"
	"github.com/vmunix/vidvault/internal/library"
)

// urlRequest is the body of the analyze and metadata endpoints.
type urlRequest struct {
	URL string `json:"url" validate:"notblank"`
}

// analyzeResponse is the response for POST /videopage_analyze.
type analyzeResponse struct {
	Message     string               `json:"message"`
	URL         string               `json:"url"`
	VideosFound int                  `json:"videos_found"`
	Videos      []*formats.VideoInfo `json:"videos"`
}

// metadataDocument is the descriptive half of a source document, for tag selection.
type metadataDocument struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Uploader      string   `json:"uploader,omitempty"`
	Description   string   `json:"description,omitempty"`
	UploadDate    string   `json:"upload_date,omitempty"`
	AvailableTags []string `json:"available_tags"`
	Categories    []string `json:"categories"`
	ViewCount     *int64   `json:"view_count,omitempty"`
	LikeCount     *int64   `json:"like_count,omitempty"`
	DislikeCount  *int64   `json:"dislike_count,omitempty"`
	CommentCount  *int64   `json:"comment_count,omitempty"`
	AverageRating *float64 `json:"average_rating,omitempty"`
	ChannelID     string   `json:"channel_id,omitempty"`
	ChannelURL    string   `json:"channel_url,omitempty"`
	Duration      *float64 `json:"duration,omitempty"`
	AgeLimit      *int     `json:"age_limit,omitempty"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
}

// metadataResponse is the response for POST /videopage_metadata.
type metadataResponse struct {
	Message  string           `json:"message"`
	Metadata metadataDocument `json:"metadata"`
}

// downloadRequest is the body of POST /videopage_download.
type downloadRequest struct {
	URL      string `json:"url" validate:"notblank"`
	FormatID string `json:"format_id" validate:"notblank"`
}

// downloadResponse is the response for POST /videopage_download.
type downloadResponse struct {
	Message string `json:"message"`
	*acquire.Result
}

// saveRequest is the body of POST /videopage_save. Metadata keys are the catalog's.
type saveRequest struct {
	VideoURL string `json:"video_url" validate:"notblank"`
	Title    string `json:"video_page_name"`
	FileName string `json:"video_file_name" validate:"notblank"`
	library.Metadata
}

// saveResponse is the response for POST /videopage_save.
type saveResponse struct {
	Message           string   `json:"message"`
	ID                string   `json:"video_id"`
	Title             string   `json:"video_page_name"`
	LibraryFileName   string   `json:"library_file_name"`
	FilePath          string   `json:"file_path"`
	FileSize          int64    `json:"file_size"`
	LocalURL          string   `json:"video_local_url"`
	DirectURL         string   `json:"video_direct_url"`
	ThumbnailFileName string   `json:"thumbnail_filename,omitempty"`
	ThumbnailPath     string   `json:"thumbnail_path,omitempty"`
	ThumbnailURL      string   `json:"thumbnail_url,omitempty"`
	SyncedFields      []string `json:"synced_fields,omitempty"`
	MetadataWarning   string   `json:"metadata_warning,omitempty"`
	Total             int      `json:"total_videos_in_library"`
}

// listResponse is the response for GET /videopage_list.
type listResponse struct {
	Total    int             `json:"total_videos"`
	Filtered int             `json:"filtered_videos"`
	Videos   []*library.Entry `json:"videos"`
	Filters  library.Filters `json:"available_filters"`
}
