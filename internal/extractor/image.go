package extractor

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/franz/music-janitor/internal/media"
)

// extractImage tries an EXIF parse first; on failure (or for formats
// EXIF doesn't apply to) it falls back to a pure-pixel dimension probe,
// dating the record from the file's own mtime.
func extractImage(d *media.DetectedFile) (*media.File, error) {
	f := &media.File{
		Filename:         d.Filename,
		ContentType:      d.ContentType,
		Etag:             d.Etag,
		ModificationTime: d.Mtime,
		Type:             media.Image,
	}

	if extractEXIF(d.Filename, f) {
		return f, nil
	}

	file, err := os.Open(d.Filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Filename, err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("decode image dimensions: %w", err)
	}
	f.Width = cfg.Width
	f.Height = cfg.Height
	f.Date = time.Unix(int64(d.Mtime), 0).UTC().Format("2006-01-02")
	return f, nil
}

// extractEXIF populates f's date, dimensions and GPS fields from path's
// EXIF block, returning false if the file carries no usable EXIF data.
func extractEXIF(path string, f *media.File) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return false
	}

	populated := false

	if date, ok := exifDate(x); ok {
		f.Date = date
		populated = true
	}

	width, height, ok := exifDimensions(x)
	if ok {
		f.Width, f.Height = width, height
		populated = true
	}

	if lat, lon, ok := exifGPS(x); ok {
		f.Latitude, f.Longitude = lat, lon
		populated = true
	}

	return populated
}

var dateFieldPriority = []exif.FieldName{
	exif.DateTimeOriginal,
	exif.DateTimeDigitized,
	exif.DateTime,
}

func exifDate(x *exif.Exif) (string, bool) {
	for _, field := range dateFieldPriority {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		t, err := time.Parse("2006:01:02 15:04:05", raw)
		if err != nil {
			continue
		}
		// Round-trip through ISO-8601; a date that can't survive this
		// is dropped rather than stored malformed.
		iso := t.Format("2006-01-02T15:04:05")
		if _, err := time.Parse("2006-01-02T15:04:05", iso); err != nil {
			continue
		}
		return iso, true
	}
	return "", false
}

func exifDimensions(x *exif.Exif) (int, int, bool) {
	widthTag, errW := x.Get(exif.PixelXDimension)
	heightTag, errH := x.Get(exif.PixelYDimension)
	if errW != nil || errH != nil {
		return 0, 0, false
	}
	width, err := widthTag.Int(0)
	if err != nil {
		return 0, 0, false
	}
	height, err := heightTag.Int(0)
	if err != nil {
		return 0, 0, false
	}

	if orientationTag, err := x.Get(exif.Orientation); err == nil {
		if o, err := orientationTag.Int(0); err == nil {
			switch o {
			case 5, 6, 7, 8:
				width, height = height, width
			}
		}
	}

	return width, height, true
}

func exifGPS(x *exif.Exif) (float64, float64, bool) {
	lat, err := gpsDecimalDegrees(x, exif.GPSLatitude, exif.GPSLatitudeRef, "S")
	if err != nil {
		return 0, 0, false
	}
	lon, err := gpsDecimalDegrees(x, exif.GPSLongitude, exif.GPSLongitudeRef, "W")
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func gpsDecimalDegrees(x *exif.Exif, coordField, refField exif.FieldName, negativeRef string) (float64, error) {
	coordTag, err := x.Get(coordField)
	if err != nil {
		return 0, err
	}

	var parts [3]float64
	for i := range parts {
		num, den, err := coordTag.Rat2(i)
		if err != nil || den == 0 {
			return 0, errors.New("malformed GPS rational")
		}
		parts[i] = float64(num) / float64(den)
	}
	decimal := parts[0] + parts[1]/60 + parts[2]/3600

	if refTag, err := x.Get(refField); err == nil {
		if ref, err := refTag.StringVal(); err == nil && ref == negativeRef {
			decimal = -decimal
		}
	}
	return decimal, nil
}
