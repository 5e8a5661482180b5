package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/franz/music-janitor/internal/fsguard"
)

// likeEscape is the escape character used for SQL LIKE prefix matching so
// literal '%' and '_' in a path do not act as wildcards.
const likeEscape = '!'

// escapeLike escapes likeEscape itself plus the two LIKE wildcards.
func escapeLike(s string) string {
	r := strings.NewReplacer(
		string(likeEscape), string(likeEscape)+string(likeEscape),
		"%", string(likeEscape)+"%",
		"_", string(likeEscape)+"_",
	)
	return r.Replace(s)
}

// ArchiveItems moves every live row whose filename begins with prefix
// into the attic, in one transaction.
func (s *Store) ArchiveItems(prefix string) error {
	pattern := escapeLike(prefix) + "%"
	return s.withLock(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin archive: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO media_attic (
				filename, content_type, etag, title, author, album, album_artist,
				date, genre, disc_number, track_number, duration, width, height,
				latitude, longitude, has_thumbnail, modification_time, type
			)
			SELECT filename, content_type, etag, title, author, album, album_artist,
				date, genre, disc_number, track_number, duration, width, height,
				latitude, longitude, has_thumbnail, modification_time, type
			FROM media WHERE filename LIKE ? ESCAPE '`+string(likeEscape)+`'
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
		`, pattern); err != nil {
			return fmt.Errorf("copy to attic: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM media WHERE filename LIKE ? ESCAPE '`+string(likeEscape)+`'`, pattern); err != nil {
			return fmt.Errorf("delete archived live rows: %w", err)
		}
		return tx.Commit()
	})
}

// RestoreItems moves every attic row whose filename begins with prefix
// back into the live table, in one transaction. Every field is preserved.
func (s *Store) RestoreItems(prefix string) error {
	pattern := escapeLike(prefix) + "%"
	return s.withLock(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin restore: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO media (
				filename, content_type, etag, title, author, album, album_artist,
				date, genre, disc_number, track_number, duration, width, height,
				latitude, longitude, has_thumbnail, modification_time, type
			)
			SELECT filename, content_type, etag, title, author, album, album_artist,
				date, genre, disc_number, track_number, duration, width, height,
				latitude, longitude, has_thumbnail, modification_time, type
			FROM media_attic WHERE filename LIKE ? ESCAPE '`+string(likeEscape)+`'
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
		`, pattern); err != nil {
			return fmt.Errorf("copy from attic: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM media_attic WHERE filename LIKE ? ESCAPE '`+string(likeEscape)+`'`, pattern); err != nil {
			return fmt.Errorf("delete restored attic rows: %w", err)
		}
		return tx.Commit()
	})
}

// RemoveSubtree deletes every live row whose path has directory as a
// proper directory ancestor. A trailing slash is enforced on the prefix
// so "/a/b" does not also match "/a/bc/x".
func (s *Store) RemoveSubtree(directory string) error {
	if !strings.HasSuffix(directory, "/") {
		directory += "/"
	}
	pattern := escapeLike(directory) + "%"
	return s.withLock(func() error {
		_, err := s.db.Exec(`DELETE FROM media WHERE filename LIKE ? ESCAPE '`+string(likeEscape)+`'`, pattern)
		if err != nil {
			return fmt.Errorf("remove subtree: %w", err)
		}
		return nil
	})
}

// PruneDeleted deletes every live row whose file no longer exists on disk,
// or whose path now falls under a directory carrying the opt-out marker.
// Ancestor-marker checks are memoized for the duration of the call.
func (s *Store) PruneDeleted() error {
	return s.withLock(func() error {
		rows, err := s.db.Query(`SELECT id, filename FROM media`)
		if err != nil {
			return fmt.Errorf("list for prune: %w", err)
		}
		type row struct {
			id       int64
			filename string
		}
		var all []row
		for rows.Next() {
			var r row
			if err := rows.Scan(&r.id, &r.filename); err != nil {
				rows.Close()
				return err
			}
			all = append(all, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		cache := fsguard.AncestorCache{}
		var toDelete []int64
		for _, r := range all {
			if _, err := os.Stat(r.filename); err != nil {
				toDelete = append(toDelete, r.id)
				continue
			}
			if cache.Blocked(r.filename) {
				toDelete = append(toDelete, r.id)
			}
		}
		if len(toDelete) == 0 {
			return nil
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin prune: %w", err)
		}
		defer tx.Rollback()
		stmt, err := tx.Prepare(`DELETE FROM media WHERE id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, id := range toDelete {
			if _, err := stmt.Exec(id); err != nil {
				return fmt.Errorf("prune row %d: %w", id, err)
			}
		}
		return tx.Commit()
	})
}
