package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"audiostory-backend-go/internal/models"
	"audiostory-backend-go/internal/storage"
)

const sniffLen = 512

// Extensions trusted when content sniffing is inconclusive.
var (
	audioExtensions = map[string]string{
		".mp3":  "audio/mpeg",
		".m4a":  "audio/mp4",
		".aac":  "audio/aac",
		".ogg":  "audio/ogg",
		".oga":  "audio/ogg",
		".opus": "audio/ogg",
		".wav":  "audio/wav",
		".flac": "audio/flac",
		".webm": "audio/webm",
	}
	imageExtensions = map[string]string{
		".avif": "image/avif",
		".heic": "image/heic",
	}
	// Content types http.DetectContentType reports for audio containers.
	ambiguousTypes = map[string]bool{
		"application/octet-stream": true,
		"application/ogg":          true,
		"video/mp4":                true,
		"video/webm":               true,
	}
	defaultExtensions = map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/gif":  ".gif",
		"image/webp": ".webp",
		"image/bmp":  ".bmp",
		"audio/mpeg": ".mp3",
		"audio/wave": ".wav",
		"audio/wav":  ".wav",
		"audio/aiff": ".aiff",
		"audio/midi": ".mid",
		"audio/ogg":  ".ogg",
		"audio/mp4":  ".m4a",
		"audio/aac":  ".aac",
		"audio/flac": ".flac",
		"audio/webm": ".webm",
	}
)

type uploadService struct {
	store    storage.FileStore
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

// NewUploadService creates the admin UploadService.
func NewUploadService(store storage.FileStore, maxBytes int64, logger *zap.Logger) UploadService {
	return &uploadService{store: store, maxBytes: maxBytes, logger: logger, now: time.Now}
}

// Upload checks that the file content matches the declared kind and stores
// it as images/cover_{millis}_{hex}{ext} or audio/audio_{millis}_{hex}{ext}.
// Nothing is stored when the check fails.
func (s *uploadService) Upload(ctx context.Context, in UploadInput) (*models.UploadResult, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: type must be '%s' or '%s'", ErrValidation, UploadCover, UploadAudio)
	}
	if in.Body == nil || in.Size == 0 {
		return nil, fmt.Errorf("%w: file is required", ErrValidation)
	}
	if s.maxBytes > 0 && in.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrUploadTooLarge, in.Size, s.maxBytes)
	}

	contentType, err := sniff(in.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(in.Filename))
	contentType = resolveContentType(contentType, ext)

	dir, prefix := "audio", "audio/"
	if in.Kind == UploadCover {
		dir, prefix = "images", "image/"
	}
	if !strings.HasPrefix(contentType, prefix) {
		return nil, fmt.Errorf("%w: '%s' upload has content type '%s'", ErrUploadTypeMismatch, in.Kind, contentType)
	}
	if !extensionFits(ext, contentType) {
		ext = defaultExtensions[contentType]
	}

	filename := fmt.Sprintf("%s_%d_%s%s", in.Kind, s.now().UnixMilli(), uuid.NewString()[:8], ext)
	url, err := s.store.Save(ctx, storage.Object{
		Key:         dir + "/" + filename,
		Body:        in.Body,
		Size:        in.Size,
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("storing upload in %s store: %w", s.store.Name(), err)
	}

	s.logger.Info("Upload stored", zap.String("type", string(in.Kind)), zap.String("filename", filename), zap.Int64("size", in.Size))
	return &models.UploadResult{
		Success:  true,
		URL:      url,
		Filename: filename,
		Type:     string(in.Kind),
		Size:     in.Size,
	}, nil
}

// sniff detects the content type from the first bytes and rewinds.
func sniff(body io.ReadSeeker) (string, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(body, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	contentType := http.DetectContentType(buf[:n])
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return contentType, nil
}

func resolveContentType(sniffed, ext string) string {
	if !ambiguousTypes[sniffed] {
		return sniffed
	}
	if ct, ok := audioExtensions[ext]; ok {
		return ct
	}
	if ct, ok := imageExtensions[ext]; ok && sniffed == "application/octet-stream" {
		return ct
	}
	return sniffed
}

func extensionFits(ext, contentType string) bool {
	if ext == "" {
		return false
	}
	if ct, ok := audioExtensions[ext]; ok {
		return ct == contentType
	}
	if ct, ok := imageExtensions[ext]; ok {
		return ct == contentType
	}
	switch contentType {
	case "image/jpeg":
		return ext == ".jpg" || ext == ".jpeg"
	case "audio/aiff":
		return ext == ".aiff" || ext == ".aif"
	}
	return defaultExtensions[contentType] == ext
}
