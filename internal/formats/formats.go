// Package formats turns extractor metadata documents into ranked, selectable variants.
package formats

import (
	"sort"
	"strconv"
	"strings"

	"github.com/vmunix/vidvault/internal/extractor"
	"github.com/vmunix/vidvault/pkg/quality"
)

// unknownDimension stands in for a missing width or height in a composed resolution.
const unknownDimension = "unknown"

// Descriptor is one selectable variant. It is derived per analysis and never persisted.
type Descriptor struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	Resolution string   `json:"resolution"`
	Filesize   *int64   `json:"filesize,omitempty"`
	TBR        *float64 `json:"tbr,omitempty"`
	VBR        *float64 `json:"vbr,omitempty"`
	ABR        *float64 `json:"abr,omitempty"`
	FormatNote string   `json:"format_note"`
	Quality    string   `json:"quality"`
}

// VideoInfo summarizes one analyzed video together with its ranked formats.
type VideoInfo struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	URL           string       `json:"url"`
	Duration      *float64     `json:"duration,omitempty"`
	Thumbnail     string       `json:"thumbnail,omitempty"`
	Uploader      string       `json:"uploader,omitempty"`
	ViewCount     *int64       `json:"view_count,omitempty"`
	Description   string       `json:"description,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	Categories    []string     `json:"categories,omitempty"`
	LikeCount     *int64       `json:"like_count,omitempty"`
	DislikeCount  *int64       `json:"dislike_count,omitempty"`
	CommentCount  *int64       `json:"comment_count,omitempty"`
	AverageRating *float64     `json:"average_rating,omitempty"`
	ChannelID     string       `json:"channel_id,omitempty"`
	ChannelURL    string       `json:"channel_url,omitempty"`
	UploadDate    string       `json:"upload_date,omitempty"`
	AgeLimit      *int         `json:"age_limit,omitempty"`
	Formats       []Descriptor `json:"formats"`
}

// Builder builds format catalogs using a quality classifier.
type Builder struct {
	classifier *quality.Classifier
}

// NewBuilder creates a builder. A nil classifier uses the default bucket table.
func NewBuilder(c *quality.Classifier) *Builder {
	if c == nil {
		c = quality.Default()
	}
	return &Builder{classifier: c}
}

// Build converts one metadata document into a VideoInfo with a ranked catalog.
func (b *Builder) Build(info *extractor.Info) *VideoInfo {
	v := &VideoInfo{
		ID:            info.ID,
		Title:         info.Title,
		URL:           info.WebpageURL,
		Duration:      info.Duration,
		Thumbnail:     info.Thumbnail,
		Uploader:      info.Uploader,
		ViewCount:     info.ViewCount,
		Description:   info.Description,
		Tags:          info.Tags,
		Categories:    info.Categories,
		LikeCount:     info.LikeCount,
		DislikeCount:  info.DislikeCount,
		CommentCount:  info.CommentCount,
		AverageRating: info.AverageRating,
		ChannelID:     info.ChannelID,
		ChannelURL:    info.ChannelURL,
		UploadDate:    info.UploadDate,
		AgeLimit:      info.AgeLimit,
		Formats:       b.Catalog(info.Formats),
	}
	if v.Title == "" {
		v.Title = "Unknown"
	}
	if v.URL == "" {
		v.URL = info.URL
	}
	return v
}

// BuildAll builds every document, preserving extractor order.
func (b *Builder) BuildAll(infos []*extractor.Info) []*VideoInfo {
	out := make([]*VideoInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, b.Build(info))
	}
	return out
}

// Catalog filters raw formats and ranks the survivors by descending height.
// Formats without video, without a height, or below quality.MinHeight are dropped.
func (b *Builder) Catalog(raw []extractor.Format) []Descriptor {
	out := make([]Descriptor, 0, len(raw))
	for _, f := range raw {
		if !f.HasVideo() || f.Height == nil || *f.Height < quality.MinHeight {
			continue
		}
		out = append(out, Descriptor{
			FormatID:   f.FormatID,
			Ext:        f.Ext,
			Resolution: resolution(f),
			Filesize:   f.Filesize,
			TBR:        f.TBR,
			VBR:        f.VBR,
			ABR:        f.ABR,
			FormatNote: f.FormatNote,
			Quality:    b.classifier.Classify(*f.Height),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return RankHeight(out[i].Resolution) > RankHeight(out[j].Resolution)
	})
	return out
}

func resolution(f extractor.Format) string {
	if f.Resolution != "" {
		return f.Resolution
	}
	w, h := unknownDimension, unknownDimension
	if f.Width != nil {
		w = strconv.Itoa(*f.Width)
	}
	if f.Height != nil {
		h = strconv.Itoa(*f.Height)
	}
	return w + "x" + h
}

// RankHeight parses the vertical resolution out of a "WxH" string.
// Anything unparsable ranks as 0.
func RankHeight(res string) int {
	i := strings.LastIndexByte(res, 'x')
	if i < 0 {
		return 0
	}
	h, err := strconv.Atoi(res[i+1:])
	if err != nil || h < 0 {
		return 0
	}
	return h
}
