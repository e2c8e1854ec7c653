package v1

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/vmunix/vidvault/internal/acquire"
	"github.com/vmunix/vidvault/internal/extractor"
	"github.com/vmunix/vidvault/internal/saver"
)

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !s.decode(w, r, &req) {
		return
	}
	url := strings.TrimSpace(req.URL)

	infos, err := s.deps.Extractor.Analyze(r.Context(), url)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.remember(r.Context(), url, infos...)

	videos := s.deps.Formats.BuildAll(infos)
	writeJSON(w, http.StatusOK, analyzeResponse{
		Message:     "Video analysis completed",
		URL:         url,
		VideosFound: len(videos),
		Videos:      videos,
	})
}

func (s *Server) probe(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !s.decode(w, r, &req) {
		return
	}
	url := strings.TrimSpace(req.URL)

	info, err := s.deps.Extractor.Probe(r.Context(), url)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.remember(r.Context(), url, info)

	writeJSON(w, http.StatusOK, metadataResponse{
		Message:  "Video metadata retrieved successfully",
		Metadata: toDocument(info),
	})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.Acquirer.Acquire(r.Context(), acquire.Request{
		URL:      strings.TrimSpace(req.URL),
		FormatID: strings.TrimSpace(req.FormatID),
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, downloadResponse{Message: "Video download completed", Result: res})
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.Saver.Save(r.Context(), saver.Request{
		URL:      req.VideoURL,
		FileName: req.FileName,
		Title:    req.Title,
		Fields:   req.Metadata,
	})
	if err != nil {
		if errors.Is(err, acquire.ErrArtifactNotFound) {
			writeError(w, http.StatusNotFound, "FILE_NOT_FOUND", err.Error())
			return
		}
		s.writeFailure(w, r, err)
		return
	}
	entry := res.Entry

	total, err := s.deps.Library.Len()
	if err != nil {
		s.log.Warn("failed to count library entries", "error", err)
	}

	resp := saveResponse{
		Message:           "Video saved to library successfully",
		ID:                entry.ID,
		Title:             entry.Title,
		LibraryFileName:   entry.LibraryFileName,
		FilePath:          entry.FilePath,
		FileSize:          entry.FileSize,
		LocalURL:          entry.LocalURL,
		DirectURL:         entry.DirectURL,
		ThumbnailFileName: entry.ThumbnailFileName,
		ThumbnailPath:     entry.ThumbnailPath,
		ThumbnailURL:      entry.ThumbnailURL,
		SyncedFields:      res.Synced,
		Total:             total,
	}
	if res.MetadataWarning != nil {
		resp.MetadataWarning = res.MetadataWarning.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// remember caches analyzed documents so a later save can skip the re-query.
func (s *Server) remember(ctx context.Context, url string, infos ...*extractor.Info) {
	if s.deps.Cache == nil {
		return
	}
	put := func(key string, info *extractor.Info) {
		if err := s.deps.Cache.PutInfo(ctx, key, info, s.cfg.CacheTTL); err != nil {
			s.log.Warn("failed to cache analysis", "url", key, "error", err)
		}
	}
	if len(infos) == 1 {
		put(url, infos[0])
	}
	for _, info := range infos {
		if info != nil && info.WebpageURL != "" && info.WebpageURL != url {
			put(info.WebpageURL, info)
		}
	}
}

func toDocument(info *extractor.Info) metadataDocument {
	url := info.WebpageURL
	if url == "" {
		url = info.URL
	}

	tags := make([]string, 0, len(info.Tags))
	for _, t := range info.Tags {
		if t = strings.TrimSpace(t); t != "" && !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	categories := info.Categories
	if categories == nil {
		categories = []string{}
	}

	return metadataDocument{
		ID:            info.ID,
		Title:         info.Title,
		URL:           url,
		Uploader:      info.Uploader,
		Description:   info.Description,
		UploadDate:    info.UploadDate,
		AvailableTags: tags,
		Categories:    categories,
		ViewCount:     info.ViewCount,
		LikeCount:     info.LikeCount,
		DislikeCount:  info.DislikeCount,
		CommentCount:  info.CommentCount,
		AverageRating: info.AverageRating,
		ChannelID:     info.ChannelID,
		ChannelURL:    info.ChannelURL,
		Duration:      info.Duration,
		AgeLimit:      info.AgeLimit,
		Thumbnail:     info.Thumbnail,
	}
}
