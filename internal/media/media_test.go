package media

import "testing"

func TestValidateRejectsRelativePath(t *testing.T) {
	f := &File{Filename: "relative/path.mp3", Type: Audio}
	if err := f.Validate(); err == nil {
		t.Error("expected error for non-absolute filename")
	}
}

func TestValidateRejectsWildcardType(t *testing.T) {
	f := &File{Filename: "/a.mp3", Type: AllMedia}
	if err := f.Validate(); err == nil {
		t.Error("expected error for AllMedia type on a stored record")
	}
}

func TestValidateAccepts(t *testing.T) {
	f := &File{Filename: "/a.mp3", Type: Audio}
	if err := f.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDisplayTitleFallback(t *testing.T) {
	f := &File{Filename: "/music/The_Beatles.(Remastered)[2009].mp3"}
	got := f.DisplayTitle()
	want := "The Beatles  Remastered  2009 "
	if got != want {
		t.Errorf("DisplayTitle() = %q, want %q", got, want)
	}
}

func TestDisplayTitleUsesStoredTitle(t *testing.T) {
	f := &File{Filename: "/a.mp3", Title: "Real Title"}
	if got := f.DisplayTitle(); got != "Real Title" {
		t.Errorf("DisplayTitle() = %q, want stored title", got)
	}
}

func TestDisplayAlbumArtistFallsBackToAuthor(t *testing.T) {
	f := &File{Author: "Some Artist"}
	if got := f.DisplayAlbumArtist(); got != "Some Artist" {
		t.Errorf("DisplayAlbumArtist() = %q, want %q", got, "Some Artist")
	}
}

type stubResolver struct{ art string }

func (s stubResolver) ArtForFile(string) string { return s.art }

func TestArtURIAudioWithThumbnail(t *testing.T) {
	f := &File{Filename: "/music/song.mp3", Type: Audio, HasThumbnail: true}
	got := f.ArtURI(nil)
	want := "image://thumbnailer/file:///music/song.mp3"
	if got != want {
		t.Errorf("ArtURI() = %q, want %q", got, want)
	}
}

func TestArtURIAudioFolderArt(t *testing.T) {
	f := &File{Filename: "/music/song.mp3", Type: Audio}
	got := f.ArtURI(stubResolver{art: "/music/cover.jpg"})
	want := "image://thumbnailer/file:///music/cover.jpg"
	if got != want {
		t.Errorf("ArtURI() = %q, want %q", got, want)
	}
}

func TestArtURIAudioFallsBackToAlbumArt(t *testing.T) {
	f := &File{Filename: "/music/song.mp3", Type: Audio, Author: "Artist", Album: "Album"}
	got := f.ArtURI(stubResolver{})
	want := "image://albumart/artist=Artist&album=Album"
	if got != want {
		t.Errorf("ArtURI() = %q, want %q", got, want)
	}
}

func TestArtURIAudioAlbumArtEscapesSpacesAsPercent20(t *testing.T) {
	f := &File{Filename: "/music/song.mp3", Type: Audio, Author: "The Beatles", Album: "Abbey Road"}
	got := f.ArtURI(stubResolver{})
	want := "image://albumart/artist=The%20Beatles&album=Abbey%20Road"
	if got != want {
		t.Errorf("ArtURI() = %q, want %q", got, want)
	}
}

func TestArtURIVideoAlwaysThumbnail(t *testing.T) {
	f := &File{Filename: "/movies/clip.mp4", Type: Video}
	got := f.ArtURI(stubResolver{art: "/movies/cover.jpg"})
	want := "image://thumbnailer/file:///movies/clip.mp4"
	if got != want {
		t.Errorf("ArtURI() = %q, want %q", got, want)
	}
}
