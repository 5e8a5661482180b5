package extractorworker

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/franz/music-janitor/internal/media"
)

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeInfo struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

// probe runs the streaming-pipeline probe (ffprobe) over filename and
// fills in the duration and, for video, the frame dimensions of req's
// resulting record. Audio probes simply carry no width/height.
func probe(req Request) (*media.File, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, fmt.Errorf("ffprobe not available: %w", err)
	}

	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		req.Filename,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var info ffprobeInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	f := &media.File{
		Filename:         req.Filename,
		Etag:             req.Etag,
		ContentType:      req.ContentType,
		ModificationTime: req.Mtime,
		Type:             media.Type(req.Type),
	}

	if d, ok := parseSeconds(info.Format.Duration); ok {
		f.Duration = d
	}

	if f.Type == media.Video {
		for _, s := range info.Streams {
			if s.CodecType == "video" {
				f.Width = s.Width
				f.Height = s.Height
				break
			}
		}
	}

	return f, nil
}

func parseSeconds(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(v + 0.5), true
}
