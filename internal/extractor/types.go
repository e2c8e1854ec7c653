package extractor

// Info is one metadata document as reported by the extractor.
// Optional values are pointers so absent fields stay distinguishable from zero.
type Info struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	WebpageURL    string   `json:"webpage_url"`
	URL           string   `json:"url"`
	Duration      *float64 `json:"duration"`
	Thumbnail     string   `json:"thumbnail"`
	Uploader      string   `json:"uploader"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	Categories    []string `json:"categories"`
	ViewCount     *int64   `json:"view_count"`
	LikeCount     *int64   `json:"like_count"`
	DislikeCount  *int64   `json:"dislike_count"`
	CommentCount  *int64   `json:"comment_count"`
	AverageRating *float64 `json:"average_rating"`
	ChannelID     string   `json:"channel_id"`
	ChannelURL    string   `json:"channel_url"`
	UploadDate    string   `json:"upload_date"`
	AgeLimit      *int     `json:"age_limit"`
	Formats       []Format `json:"formats"`
}

// Format is one raw downloadable variant.
type Format struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	VCodec     string   `json:"vcodec"`
	ACodec     string   `json:"acodec"`
	Resolution string   `json:"resolution"`
	FormatNote string   `json:"format_note"`
	Width      *int     `json:"width"`
	Height     *int     `json:"height"`
	Filesize   *int64   `json:"filesize"`
	TBR        *float64 `json:"tbr"`
	VBR        *float64 `json:"vbr"`
	ABR        *float64 `json:"abr"`
}

// HasVideo reports whether the format carries a decodable video track.
func (f Format) HasVideo() bool {
	return f.VCodec != "none"
}

// AcquireRequest asks the extractor to fetch one variant.
type AcquireRequest struct {
	URL string
	// Format is an extractor format expression, e.g. "137+bestaudio/best".
	Format string
	// OutputTemplate is the path template the extractor writes to, keyed by a run token.
	OutputTemplate string
}
