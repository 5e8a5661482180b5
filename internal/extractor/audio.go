package extractor

import (
	"fmt"
	"os"
	"time"

	"github.com/dhowden/tag"

	"github.com/franz/music-janitor/internal/media"
)

// extractAudioTags reads common tags via the format-sensitive tag
// library path (ID3v1/2, MP4 atoms, Vorbis/FLAC/Ogg comments). Returns
// an error when the library can't identify the format at all, signaling
// the caller to fall back to the streaming-pipeline probe.
func extractAudioTags(d *media.DetectedFile) (*media.File, error) {
	file, err := os.Open(d.Filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Filename, err)
	}
	defer file.Close()

	m, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("read audio tags: %w", err)
	}

	track, _ := m.Track()
	disc, _ := m.Disc()

	f := &media.File{
		Filename:         d.Filename,
		ContentType:      d.ContentType,
		Etag:             d.Etag,
		ModificationTime: d.Mtime,
		Type:             media.Audio,

		Title:       m.Title(),
		Author:      m.Artist(),
		Album:       m.Album(),
		AlbumArtist: m.AlbumArtist(),
		Genre:       m.Genre(),
		TrackNumber: track,
		DiscNumber:  disc,

		HasThumbnail: m.Picture() != nil,
	}

	if year := m.Year(); year >= 1 && year <= 9999 {
		f.Date = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	}

	return f, nil
}
