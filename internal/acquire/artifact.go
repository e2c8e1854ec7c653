package acquire

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Kind is the inferred role of a staged file. Nothing is decoded; the extension decides.
type Kind int

const (
	KindOther Kind = iota
	KindVideo
	KindAudio
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	default:
		return "other"
	}
}

var kindByExt = map[string]Kind{
	".mp4":  KindVideo,
	".mkv":  KindVideo,
	".webm": KindVideo,
	".avi":  KindVideo,
	".mov":  KindVideo,
	".m4a":  KindAudio,
	".aac":  KindAudio,
	".mp3":  KindAudio,
	".opus": KindAudio,
	".ogg":  KindAudio,
	".webp": KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
}

// ThumbnailExts is the preference order when several images belong to one run.
var ThumbnailExts = []string{".webp", ".jpg", ".jpeg", ".png"}

// inProgressExts are partial files the extractor leaves while (or after failing) writing.
var inProgressExts = map[string]bool{".part": true, ".ytdl": true, ".tmp": true}

// perStreamSuffix matches the extractor's format-id segment, e.g. "abc.f137".
var perStreamSuffix = regexp.MustCompile(`\.f\d+$`)

// Artifact is one staged file owned by a run.
type Artifact struct {
	Path      string
	Name      string
	Kind      Kind
	Size      int64
	PerStream bool
}

// ClassifyName returns the kind implied by a file name's extension.
func ClassifyName(name string) Kind {
	return kindByExt[strings.ToLower(filepath.Ext(name))]
}

// IsPerStream reports whether name carries a numeric format suffix, marking a
// single-stream (unmerged) artifact.
func IsPerStream(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return perStreamSuffix.MatchString(stem)
}

func isInProgress(name string) bool {
	return inProgressExts[strings.ToLower(filepath.Ext(name))]
}

// pickThumbnail returns the first image under the ThumbnailExts preference order.
func pickThumbnail(images []Artifact) *Artifact {
	for _, ext := range ThumbnailExts {
		for i := range images {
			if strings.EqualFold(filepath.Ext(images[i].Name), ext) {
				return &images[i]
			}
		}
	}
	return nil
}
