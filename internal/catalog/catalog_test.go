package catalog

import (
	"errors"
	"os"
	"testing"

	"github.com/franz/music-janitor/internal/media"
	"github.com/franz/music-janitor/internal/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := t.TempDir() + "/catalog.db"
	s, err := Open(path, ReadWrite)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)
	version, err := s.readSchemaVersion()
	if err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpenReadOnlyFailsOnMismatch(t *testing.T) {
	path := t.TempDir() + "/catalog.db"
	s, err := Open(path, ReadWrite)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE schema_version SET version = 999`); err != nil {
		t.Fatalf("force version mismatch: %v", err)
	}
	s.Close()

	if _, err := Open(path, ReadOnly); err == nil {
		t.Error("expected ErrSchemaMismatch opening read-only against mismatched schema")
	}
}

func sampleFile(filename string) *media.File {
	return &media.File{
		Filename:    filename,
		ContentType: "audio/mpeg",
		Etag:        "etag-1",
		Title:       "Sample Title",
		Author:      "Sample Artist",
		Album:       "Sample Album",
		AlbumArtist: "Sample Artist",
		Type:        media.Audio,
	}
}

func TestInsertLookupRemove(t *testing.T) {
	s := openTestStore(t)
	f := sampleFile("/music/a.mp3")

	if err := s.Insert(f); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.Lookup(f.Filename)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Title != f.Title || got.Author != f.Author {
		t.Errorf("lookup mismatch: got %+v", got)
	}

	if err := s.Remove(f.Filename); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Lookup(f.Filename); err == nil {
		t.Error("expected ErrNotFound after remove")
	}
}

func TestInsertRejectsInvalidRecord(t *testing.T) {
	s := openTestStore(t)
	bad := sampleFile("relative/path.mp3")
	if err := s.Insert(bad); err == nil {
		t.Error("expected error inserting record with non-absolute filename")
	}
}

func TestBrokenFiles(t *testing.T) {
	s := openTestStore(t)
	if err := s.InsertBrokenFile("/music/broken.mp3", "etag-1"); err != nil {
		t.Fatalf("insert broken: %v", err)
	}
	broken, err := s.IsBrokenFile("/music/broken.mp3", "etag-1")
	if err != nil {
		t.Fatalf("is broken: %v", err)
	}
	if !broken {
		t.Error("expected file to be marked broken at matching etag")
	}
	broken, err = s.IsBrokenFile("/music/broken.mp3", "etag-2")
	if err != nil {
		t.Fatalf("is broken (new etag): %v", err)
	}
	if broken {
		t.Error("expected file not broken once its etag changes")
	}

	if err := s.Insert(sampleFile("/music/broken.mp3")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	broken, err = s.IsBrokenFile("/music/broken.mp3", "etag-1")
	if err != nil {
		t.Fatalf("is broken after insert: %v", err)
	}
	if broken {
		t.Error("expected broken marker cleared once the file is successfully inserted")
	}
}

func TestQueryRanking(t *testing.T) {
	s := openTestStore(t)

	records := []*media.File{
		{Filename: "/m/all.mp3", Title: "wonder", Author: "wonder", Album: "wonder", Type: media.Audio},
		{Filename: "/m/title.mp3", Title: "wonder", Author: "other", Album: "other", Type: media.Audio},
		{Filename: "/m/album.mp3", Title: "other", Author: "other", Album: "wonder", Type: media.Audio},
		{Filename: "/m/artist.mp3", Title: "other", Author: "wonder", Album: "other", Type: media.Audio},
		{Filename: "/m/none.mp3", Title: "other", Author: "other", Album: "other", Type: media.Audio},
	}
	for _, r := range records {
		r.Etag = "e"
		r.ContentType = "audio/mpeg"
		if err := s.Insert(r); err != nil {
			t.Fatalf("insert %s: %v", r.Filename, err)
		}
	}

	results, err := s.Query("wonder", media.Audio, media.DefaultFilter())
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	var order []string
	for _, r := range results {
		order = append(order, r.Filename)
	}
	want := []string{"/m/all.mp3", "/m/title.mp3", "/m/album.mp3", "/m/artist.mp3"}
	if len(order) != len(want) {
		t.Fatalf("got %d results %v, want %d %v", len(order), order, len(want), want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("result[%d] = %s, want %s (full order %v)", i, order[i], want[i], order)
		}
	}
}

func TestArchiveAndRestoreItems(t *testing.T) {
	s := openTestStore(t)
	f := sampleFile("/music/band/song.mp3")
	if err := s.Insert(f); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.ArchiveItems("/music/band/"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := s.Lookup(f.Filename); err == nil {
		t.Error("expected record gone from live table after archive")
	}

	if err := s.RestoreItems("/music/band/"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err := s.Lookup(f.Filename)
	if err != nil {
		t.Fatalf("lookup after restore: %v", err)
	}
	if got.Title != f.Title {
		t.Errorf("restored record title = %q, want %q", got.Title, f.Title)
	}
}

func TestRemoveSubtreeDoesNotMatchSiblingWithSharedPrefix(t *testing.T) {
	s := openTestStore(t)
	inside := sampleFile("/music/band/song.mp3")
	sibling := sampleFile("/music/banditos/song.mp3")
	for _, f := range []*media.File{inside, sibling} {
		if err := s.Insert(f); err != nil {
			t.Fatalf("insert %s: %v", f.Filename, err)
		}
	}

	if err := s.RemoveSubtree("/music/band"); err != nil {
		t.Fatalf("remove subtree: %v", err)
	}

	if _, err := s.Lookup(inside.Filename); err == nil {
		t.Error("expected file under /music/band/ to be removed")
	}
	if _, err := s.Lookup(sibling.Filename); err != nil {
		t.Errorf("expected /music/banditos/song.mp3 to survive, got error: %v", err)
	}
}

func TestPruneDeletedRemovesMissingFiles(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	present := dir + "/present.mp3"
	if err := os.WriteFile(present, []byte("data"), 0o644); err != nil {
		t.Fatalf("write present file: %v", err)
	}
	missing := dir + "/missing.mp3"

	for _, path := range []string{present, missing} {
		if err := s.Insert(sampleFile(path)); err != nil {
			t.Fatalf("insert %s: %v", path, err)
		}
	}

	if err := s.PruneDeleted(); err != nil {
		t.Fatalf("prune: %v", err)
	}

	if _, err := s.Lookup(present); err != nil {
		t.Errorf("expected present file to survive prune, got error: %v", err)
	}
	if _, err := s.Lookup(missing); err == nil {
		t.Error("expected missing file to be pruned")
	}
}

func TestPruneDeletedRemovesOptedOutDirectory(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/.nomedia", nil, 0o644); err != nil {
		t.Fatalf("write .nomedia: %v", err)
	}
	path := dir + "/song.mp3"
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write song: %v", err)
	}
	if err := s.Insert(sampleFile(path)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.PruneDeleted(); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if _, err := s.Lookup(path); err == nil {
		t.Error("expected file under opted-out directory to be pruned even though it still exists")
	}
}

func TestSizeAndHasMedia(t *testing.T) {
	s := openTestStore(t)
	n, err := s.Size()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty store, got size %d", n)
	}

	if err := s.Insert(sampleFile("/music/a.mp3")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	n, err = s.Size()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if n != 1 {
		t.Errorf("size = %d, want 1", n)
	}

	has, err := s.HasMedia(media.Audio)
	if err != nil {
		t.Fatalf("has media audio: %v", err)
	}
	if !has {
		t.Error("expected HasMedia(Audio) true")
	}
	has, err = s.HasMedia(media.Video)
	if err != nil {
		t.Fatalf("has media video: %v", err)
	}
	if has {
		t.Error("expected HasMedia(Video) false")
	}
}

func libraryFixture(t *testing.T, s *Store) {
	t.Helper()
	records := []*media.File{
		{Filename: "/m/1.mp3", Title: "Help", Author: "The Beatles", Album: "Help!", AlbumArtist: "The Beatles", Genre: "Rock", TrackNumber: 1, DiscNumber: 1, Type: media.Audio},
		{Filename: "/m/2.mp3", Title: "Ticket To Ride", Author: "The Beatles", Album: "Help!", AlbumArtist: "The Beatles", Genre: "Rock", TrackNumber: 2, DiscNumber: 1, Type: media.Audio},
		{Filename: "/m/3.mp3", Title: "So What", Author: "Miles Davis", Album: "Kind of Blue", AlbumArtist: "Miles Davis", Genre: "Jazz", TrackNumber: 1, DiscNumber: 1, Type: media.Audio},
	}
	for _, r := range records {
		r.Etag = "e"
		r.ContentType = "audio/mpeg"
		if err := s.Insert(r); err != nil {
			t.Fatalf("insert %s: %v", r.Filename, err)
		}
	}
}

func TestListSongs(t *testing.T) {
	s := openTestStore(t)
	libraryFixture(t, s)

	got, err := s.ListSongs(media.Audio, media.DefaultFilter())
	if err != nil {
		t.Fatalf("list songs: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d songs, want 3", len(got))
	}
}

func TestGetAlbumSongs(t *testing.T) {
	s := openTestStore(t)
	libraryFixture(t, s)

	got, err := s.GetAlbumSongs("Help!", "The Beatles")
	if err != nil {
		t.Fatalf("get album songs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d songs, want 2", len(got))
	}
	if got[0].TrackNumber != 1 || got[1].TrackNumber != 2 {
		t.Errorf("expected track order 1,2, got %d,%d", got[0].TrackNumber, got[1].TrackNumber)
	}
}

func TestListArtists(t *testing.T) {
	s := openTestStore(t)
	libraryFixture(t, s)

	got, err := s.ListArtists(media.DefaultFilter())
	if err != nil {
		t.Fatalf("list artists: %v", err)
	}
	want := []string{"Miles Davis", "The Beatles"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("artist[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestQueryArtists(t *testing.T) {
	s := openTestStore(t)
	libraryFixture(t, s)

	got, err := s.QueryArtists("beatles", media.DefaultFilter())
	if err != nil {
		t.Fatalf("query artists: %v", err)
	}
	if len(got) != 1 || got[0] != "The Beatles" {
		t.Fatalf("got %v, want [The Beatles]", got)
	}

	none, err := s.QueryArtists("nonesuch", media.DefaultFilter())
	if err != nil {
		t.Fatalf("query artists (no match): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no matches, got %v", none)
	}
}

func TestQueryArtistsRejectsInvalidOrder(t *testing.T) {
	s := openTestStore(t)
	libraryFixture(t, s)

	for _, order := range []media.Order{media.OrderRank, media.OrderDate, media.OrderModified} {
		filter := media.DefaultFilter()
		filter.Order = order
		if _, err := s.QueryArtists("beatles", filter); !errors.Is(err, util.ErrInvalidOrder) {
			t.Errorf("order %v: got err %v, want ErrInvalidOrder", order, err)
		}
	}
}

func TestListAlbumArtists(t *testing.T) {
	s := openTestStore(t)
	libraryFixture(t, s)

	got, err := s.ListAlbumArtists(media.DefaultFilter())
	if err != nil {
		t.Fatalf("list album artists: %v", err)
	}
	want := []string{"Miles Davis", "The Beatles"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestListGenres(t *testing.T) {
	s := openTestStore(t)
	libraryFixture(t, s)

	got, err := s.ListGenres(media.DefaultFilter())
	if err != nil {
		t.Fatalf("list genres: %v", err)
	}
	want := []string{"Jazz", "Rock"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestListAlbums(t *testing.T) {
	s := openTestStore(t)
	libraryFixture(t, s)

	got, err := s.ListAlbums(media.DefaultFilter())
	if err != nil {
		t.Fatalf("list albums: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d albums, want 2", len(got))
	}
}

func TestQueryAlbums(t *testing.T) {
	s := openTestStore(t)
	libraryFixture(t, s)

	got, err := s.QueryAlbums("blue", media.DefaultFilter())
	if err != nil {
		t.Fatalf("query albums: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Kind of Blue" {
		t.Fatalf("got %v, want [Kind of Blue]", got)
	}
}

func TestQueryAlbumsRejectsRankAndDateOrder(t *testing.T) {
	s := openTestStore(t)
	libraryFixture(t, s)

	for _, order := range []media.Order{media.OrderRank, media.OrderDate} {
		filter := media.DefaultFilter()
		filter.Order = order
		if _, err := s.QueryAlbums("blue", filter); !errors.Is(err, util.ErrInvalidOrder) {
			t.Errorf("order %v: got err %v, want ErrInvalidOrder", order, err)
		}
	}
}
