package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/franz/music-janitor/internal/media"
	"github.com/franz/music-janitor/internal/util"
)

// execer is satisfied by both *sql.DB and *sql.Tx, letting the upsert
// body run either standalone or as part of a caller-managed transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Insert upserts a record by filename. Writes all scalar columns,
// refreshes the FTS row via trigger, and clears any broken-file entry
// for this filename. Fails with ErrConstraint if f fails validation.
func (s *Store) Insert(f *media.File) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %v", util.ErrConstraint, err)
	}
	return s.withLock(func() error {
		return insertInto(s.db, f)
	})
}

// InsertTx is Insert's transaction-scoped counterpart, used by the bulk
// scanner to batch many upserts behind t's periodic commits instead of
// committing one at a time.
func (s *Store) InsertTx(t *Transaction, f *media.File) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %v", util.ErrConstraint, err)
	}
	return insertInto(t.tx, f)
}

func insertInto(db execer, f *media.File) error {
	_, err := db.Exec(`
			INSERT INTO media (
				filename, content_type, etag, title, author, album, album_artist,
				date, genre, disc_number, track_number, duration, width, height,
				latitude, longitude, has_thumbnail, modification_time, type
			) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(filename) DO UPDATE SET
				content_type=excluded.content_type, etag=excluded.etag,
				title=excluded.title, author=excluded.author, album=excluded.album,
				album_artist=excluded.album_artist, date=excluded.date,
				genre=excluded.genre, disc_number=excluded.disc_number,
				track_number=excluded.track_number, duration=excluded.duration,
				width=excluded.width, height=excluded.height,
				latitude=excluded.latitude, longitude=excluded.longitude,
				has_thumbnail=excluded.has_thumbnail,
				modification_time=excluded.modification_time, type=excluded.type
		`,
		f.Filename, f.ContentType, f.Etag, f.Title, f.Author, f.Album, f.AlbumArtist,
		f.Date, f.Genre, f.DiscNumber, f.TrackNumber, f.Duration, f.Width, f.Height,
		f.Latitude, f.Longitude, boolToInt(f.HasThumbnail), f.ModificationTime, int(f.Type),
	)
	if err != nil {
		return fmt.Errorf("insert media row: %w", err)
	}
	if _, err := db.Exec(`DELETE FROM broken_files WHERE filename = ?`, f.Filename); err != nil {
		return fmt.Errorf("clear broken marker: %w", err)
	}
	return nil
}

// Remove deletes the live row for filename, if present. No-op otherwise.
func (s *Store) Remove(filename string) error {
	return s.withLock(func() error {
		_, err := s.db.Exec(`DELETE FROM media WHERE filename = ?`, filename)
		if err != nil {
			return fmt.Errorf("remove media row: %w", err)
		}
		return nil
	})
}

// Lookup returns the live record for filename, or ErrNotFound.
func (s *Store) Lookup(filename string) (*media.File, error) {
	var f *media.File
	err := s.withLock(func() error {
		row := s.db.QueryRow(selectColumns+` FROM media WHERE filename = ?`, filename)
		rec, err := scanFile(row)
		if errors.Is(err, sql.ErrNoRows) {
			return util.ErrNotFound
		}
		if err != nil {
			return err
		}
		f = rec
		return nil
	})
	return f, err
}

// GetETag returns the stored etag for filename, or "" if unknown.
func (s *Store) GetETag(filename string) (string, error) {
	var etag string
	err := s.withLock(func() error {
		err := s.db.QueryRow(`SELECT etag FROM media WHERE filename = ?`, filename).Scan(&etag)
		if errors.Is(err, sql.ErrNoRows) {
			etag = ""
			return nil
		}
		return err
	})
	return etag, err
}

// InsertBrokenFile records filename as having killed the extractor at etag.
func (s *Store) InsertBrokenFile(filename, etag string) error {
	return s.withLock(func() error {
		_, err := s.db.Exec(`
			INSERT INTO broken_files(filename, etag) VALUES (?, ?)
			ON CONFLICT(filename) DO UPDATE SET etag=excluded.etag
		`, filename, etag)
		return err
	})
}

// RemoveBrokenFile clears any broken-file marker for filename.
func (s *Store) RemoveBrokenFile(filename string) error {
	return s.withLock(func() error {
		_, err := s.db.Exec(`DELETE FROM broken_files WHERE filename = ?`, filename)
		return err
	})
}

// IsBrokenFile reports whether (filename, etag) is a recorded broken pair.
func (s *Store) IsBrokenFile(filename, etag string) (bool, error) {
	var known string
	err := s.withLock(func() error {
		err := s.db.QueryRow(`SELECT etag FROM broken_files WHERE filename = ?`, filename).Scan(&known)
		if errors.Is(err, sql.ErrNoRows) {
			known = ""
			return nil
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return known != "" && known == etag, nil
}

// Size returns the number of distinct paths among live records.
func (s *Store) Size() (int, error) {
	var n int
	err := s.withLock(func() error {
		return s.db.QueryRow(`SELECT COUNT(*) FROM media`).Scan(&n)
	})
	return n, err
}

// HasMedia reports whether any live record of the given type exists.
// AllMedia checks across every type.
func (s *Store) HasMedia(t media.Type) (bool, error) {
	var n int
	err := s.withLock(func() error {
		if t == media.AllMedia {
			return s.db.QueryRow(`SELECT COUNT(*) FROM media LIMIT 1`).Scan(&n)
		}
		return s.db.QueryRow(`SELECT COUNT(*) FROM media WHERE type = ? LIMIT 1`, int(t)).Scan(&n)
	})
	return n > 0, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const selectColumns = `SELECT id, filename, content_type, etag, title, author, album, album_artist,
	date, genre, disc_number, track_number, duration, width, height,
	latitude, longitude, has_thumbnail, modification_time, type`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*media.File, error) {
	var f media.File
	var hasThumb, typ int
	err := row.Scan(
		&f.ID, &f.Filename, &f.ContentType, &f.Etag, &f.Title, &f.Author, &f.Album, &f.AlbumArtist,
		&f.Date, &f.Genre, &f.DiscNumber, &f.TrackNumber, &f.Duration, &f.Width, &f.Height,
		&f.Latitude, &f.Longitude, &hasThumb, &f.ModificationTime, &typ,
	)
	if err != nil {
		return nil, err
	}
	f.HasThumbnail = hasThumb != 0
	f.Type = media.Type(typ)
	return &f, nil
}
