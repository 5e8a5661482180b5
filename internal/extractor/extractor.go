// Package extractor implements the Metadata Extractor: classifying a
// file (Detect) and producing its catalog record (Extract), dispatching
// image files to EXIF/pixel probing, audio files to tag-library parsing
// with a streaming-pipeline fallback, and video files straight to the
// streaming-pipeline probe running in a crash-isolated worker process.
package extractor

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/franz/music-janitor/internal/extractorworker"
	"github.com/franz/music-janitor/internal/media"
	"github.com/franz/music-janitor/internal/util"
)

// blacklistedContentTypes are audio playlist formats known to produce
// garbage tag-library output; Detect rejects these outright.
var blacklistedContentTypes = map[string]bool{
	"audio/x-mpegurl":   true,
	"audio/x-ms-asx":    true,
	"audio/x-scpls":     true,
	"audio/x-iriver-pla": true,
}

// Extractor classifies and extracts metadata from files on disk. The
// zero value is ready to use; a fresh worker subprocess is spawned lazily
// the first time a streaming-pipeline probe is needed.
type Extractor struct {
	worker extractorworker.Client
}

// New returns a ready Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Close releases the probe worker process, if one was started.
func (e *Extractor) Close() {
	e.worker.Close()
}

// Detect classifies path: stats it for mtime, sniffs its content type,
// and derives an opaque etag. Rejects blacklisted playlist types with
// util.ErrBlacklisted and anything outside audio/video/image content
// types with util.ErrUnsupportedType.
func (e *Extractor) Detect(path string) (*media.DetectedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	contentType := mt.String()
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = contentType[:idx]
	}

	if blacklistedContentTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", util.ErrBlacklisted, contentType)
	}

	var t media.Type
	switch {
	case strings.HasPrefix(contentType, "audio/"):
		t = media.Audio
	case strings.HasPrefix(contentType, "video/"):
		t = media.Video
	case strings.HasPrefix(contentType, "image/"):
		t = media.Image
	default:
		return nil, fmt.Errorf("%w: %s", util.ErrUnsupportedType, contentType)
	}

	etag, err := util.GenerateEtag(path)
	if err != nil {
		return nil, fmt.Errorf("generate etag: %w", err)
	}

	return &media.DetectedFile{
		Filename:    path,
		Etag:        etag,
		ContentType: contentType,
		Mtime:       uint64(info.ModTime().Unix()),
		Type:        t,
	}, nil
}

// Extract dispatches d to the per-type extraction path and returns the
// resulting record.
func (e *Extractor) Extract(d *media.DetectedFile) (*media.File, error) {
	switch d.Type {
	case media.Image:
		return extractImage(d)
	case media.Audio:
		f, err := extractAudioTags(d)
		if err != nil {
			return e.probe(d)
		}
		if p, perr := e.probe(d); perr == nil {
			f.Duration = p.Duration
		}
		return f, nil
	case media.Video:
		return e.probe(d)
	default:
		return nil, fmt.Errorf("%w: %v", util.ErrUnsupportedType, d.Type)
	}
}

// FallbackExtract returns the minimally populated record Extract's
// caller falls back to when extraction fails: only the identity and type
// fields are set, everything display-worthy is derived at read time.
func FallbackExtract(d *media.DetectedFile) *media.File {
	return &media.File{
		Filename:         d.Filename,
		ContentType:      d.ContentType,
		Etag:             d.Etag,
		ModificationTime: d.Mtime,
		Type:             d.Type,
	}
}

// probe runs the streaming-pipeline probe via the worker process,
// recreating the worker once and retrying on a NoReply before surfacing
// util.ErrExtractFailed.
func (e *Extractor) probe(d *media.DetectedFile) (*media.File, error) {
	req := extractorworker.Request{
		Filename:    d.Filename,
		Etag:        d.Etag,
		ContentType: d.ContentType,
		Mtime:       d.Mtime,
		Type:        int(d.Type),
	}

	f, err := e.worker.Extract(req)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, util.ErrNoReply) {
		return nil, err
	}

	e.worker.Restart()
	f, err = e.worker.Extract(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrExtractFailed, err)
	}
	return f, nil
}
