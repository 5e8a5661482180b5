// Package media holds the catalog's shared record types: the media type
// tag, the persisted MediaFile record, query filters and the transient
// DetectedFile tuple produced by classification.
package media

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Type is the tagged variant over the kinds of media the catalog stores.
// AllMedia is a query-side wildcard and is never itself persisted.
type Type int

const (
	Unknown Type = iota
	Audio
	Video
	Image
	AllMedia
)

func (t Type) String() string {
	switch t {
	case Audio:
		return "audio"
	case Video:
		return "video"
	case Image:
		return "image"
	case AllMedia:
		return "all"
	default:
		return "unknown"
	}
}

// Order enumerates the sort orders a query may request.
type Order int

const (
	OrderDefault Order = iota
	OrderRank
	OrderTitle
	OrderDate
	OrderModified
)

// Filter carries the independent, optional parameters of a catalog query.
type Filter struct {
	Artist      *string
	Album       *string
	AlbumArtist *string
	Genre       *string

	Offset int
	Limit  int // -1 means unlimited

	Order   Order
	Reverse bool
}

// DefaultFilter returns the zero-value filter with spec defaults applied
// (offset 0, unlimited, natural order, not reversed).
func DefaultFilter() Filter {
	return Filter{Offset: 0, Limit: -1, Order: OrderDefault}
}

// File is the catalog's persisted media record.
type File struct {
	ID int64

	Filename    string // absolute path; primary identity
	ContentType string
	Etag        string

	Title       string
	Author      string // per-track artist
	Album       string
	AlbumArtist string
	Date        string // ISO-8601, possibly empty
	Genre       string

	DiscNumber  int
	TrackNumber int
	Duration    int // whole seconds

	Width  int
	Height int

	Latitude  float64
	Longitude float64

	HasThumbnail bool

	ModificationTime uint64

	Type Type
}

// Validate enforces the two store-side invariants on a record about to be
// inserted: an absolute filename, and a concrete (non-wildcard) type.
func (f *File) Validate() error {
	if !strings.HasPrefix(f.Filename, "/") {
		return fmt.Errorf("filename %q is not absolute", f.Filename)
	}
	switch f.Type {
	case Audio, Video, Image:
		return nil
	default:
		return fmt.Errorf("record type %v is not a storable media type", f.Type)
	}
}

// filenameToTitle derives a display title from the final path segment,
// stripping its extension and replacing each of the characters
// ._()[]{}\ with a space — matches
// mediascanner's filenameToTitle exactly.
func filenameToTitle(filename string) string {
	base := path.Base(filename)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	const replaceChars = "._()[]{}\\"
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(replaceChars, r) {
			return ' '
		}
		return r
	}, base)
}

// DisplayTitle returns f.Title, or a filename-derived fallback when empty.
// This fallback is computed at read time and never stored.
func (f *File) DisplayTitle() string {
	if f.Title != "" {
		return f.Title
	}
	return filenameToTitle(f.Filename)
}

// DisplayAlbumArtist returns f.AlbumArtist, or f.Author when empty. Also a
// read-time fallback, never stored.
func (f *File) DisplayAlbumArtist() string {
	if f.AlbumArtist != "" {
		return f.AlbumArtist
	}
	return f.Author
}

// fileURI converts an absolute filesystem path to a file:// URI with
// percent-encoded path segments.
func fileURI(absPath string) string {
	u := url.URL{Scheme: "file", Path: absPath}
	return u.String()
}

func thumbnailURI(fileOrFolderURI string) string {
	return "image://thumbnailer/" + fileOrFolderURI
}

func albumArtURI(artist, album string) string {
	return "image://albumart/artist=" + url.PathEscape(artist) + "&album=" + url.PathEscape(album)
}

// FolderArtResolver is the capability the media package needs from the
// folder-art resolver to compose an audio record's art URI when no
// embedded thumbnail exists: the art file path inside a directory, or
// empty if none.
type FolderArtResolver interface {
	ArtForFile(filename string) string
}

// ArtURI derives the art_uri field for a record per spec §3: audio with
// an embedded thumbnail uses the file itself; audio without one consults
// the folder-art resolver, then falls back to the artist/album
// composition; video and image always reference the file's own thumbnail.
func (f *File) ArtURI(resolver FolderArtResolver) string {
	uri := fileURI(f.Filename)
	if f.Type != Audio {
		return thumbnailURI(uri)
	}
	if f.HasThumbnail {
		return thumbnailURI(uri)
	}
	if resolver != nil {
		if standalone := resolver.ArtForFile(f.Filename); standalone != "" {
			return thumbnailURI(fileURI(standalone))
		}
	}
	return albumArtURI(f.Author, f.Album)
}

// Album is the derived aggregate over audio records sharing (title, album
// artist). art fields mirror whichever member record supplied them.
type Album struct {
	Title        string
	Artist       string // album artist, not per-track artist
	Date         string
	Genre        string
	ArtFilePath  string
	HasThumbnail bool
	ModTime      uint64
}

// ArtURI composes an Album's art URI the same way a File's is composed,
// given the representative member record's thumbnail/art-path state.
func (a *Album) ArtURI(resolver FolderArtResolver, sampleFilename string) string {
	if a.HasThumbnail {
		return thumbnailURI(fileURI(sampleFilename))
	}
	if a.ArtFilePath != "" {
		return thumbnailURI(fileURI(a.ArtFilePath))
	}
	return albumArtURI(a.Artist, a.Title)
}

// DetectedFile is the transient tuple produced by classification
// (Extractor.Detect) and consumed by extraction (Extractor.Extract).
type DetectedFile struct {
	Filename    string
	Etag        string
	ContentType string
	Mtime       uint64
	Type        Type
}
