package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/franz/music-janitor/internal/media"
	"github.com/franz/music-janitor/internal/util"
)

// buildMatchQuery turns a free-text search term into an FTS5 query string
// that prefix-matches only the last whitespace-separated token, per the
// contract ("restrict to rows whose FTS row matches term*"). Earlier
// tokens are quoted literals so stray FTS5 operator keywords in the
// search text (AND/OR/NOT) are treated as plain words, not operators.
func buildMatchQuery(term string) string {
	tokens := strings.Fields(term)
	if len(tokens) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		tok = strings.ReplaceAll(tok, `"`, `""`)
		if i == len(tokens)-1 {
			parts = append(parts, tok+"*")
			continue
		}
		parts = append(parts, `"`+tok+`"`)
	}
	return strings.Join(parts, " ")
}

// Query runs a free-text + type-filtered search over media. type AllMedia
// is rejected — callers pick one concrete class per call.
func (s *Store) Query(term string, t media.Type, filter media.Filter) ([]*media.File, error) {
	if t == media.AllMedia {
		return nil, fmt.Errorf("%w: query requires a concrete media type", util.ErrConstraint)
	}

	var results []*media.File
	err := s.withLock(func() error {
		var candidateIDs []int64
		var cands []rankCandidate
		useRank := term != "" && (filter.Order == media.OrderDefault || filter.Order == media.OrderRank)

		var rows rowsScanner
		var err error
		if term != "" {
			rows, err = s.db.Query(
				selectColumns+` FROM media WHERE type = ? AND id IN (
					SELECT rowid FROM media_fts WHERE media_fts MATCH ?
				)`, int(t), buildMatchQuery(term))
		} else {
			rows, err = s.db.Query(selectColumns+` FROM media WHERE type = ?`, int(t))
		}
		if err != nil {
			return fmt.Errorf("query media: %w", err)
		}
		defer rows.Close()

		var files []*media.File
		for rows.Next() {
			f, err := scanFile(rows)
			if err != nil {
				return fmt.Errorf("scan media row: %w", err)
			}
			files = append(files, f)
			candidateIDs = append(candidateIDs, f.ID)
			if useRank {
				cands = append(cands, rankCandidate{id: f.ID, title: f.Title, author: f.Author, album: f.Album})
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}

		switch filter.Order {
		case media.OrderDefault, media.OrderRank:
			if term != "" {
				scores := rank(cands, term)
				sort.SliceStable(files, func(i, j int) bool {
					si, sj := scores[files[i].ID], scores[files[j].ID]
					if si != sj {
						return si > sj
					}
					return files[i].ID < files[j].ID
				})
			} else {
				sort.SliceStable(files, func(i, j int) bool { return files[i].ID < files[j].ID })
			}
		case media.OrderTitle:
			sort.SliceStable(files, func(i, j int) bool { return files[i].DisplayTitle() < files[j].DisplayTitle() })
		case media.OrderDate:
			sort.SliceStable(files, func(i, j int) bool { return files[i].Date < files[j].Date })
		case media.OrderModified:
			sort.SliceStable(files, func(i, j int) bool { return files[i].ModificationTime < files[j].ModificationTime })
		}
		if filter.Reverse {
			reverseFiles(files)
		}
		results = paginate(files, filter.Offset, filter.Limit)
		return nil
	})
	return results, err
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func reverseFiles(files []*media.File) {
	for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
		files[i], files[j] = files[j], files[i]
	}
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit < 0 || limit > len(items) {
		return items
	}
	return items[:limit]
}

// ListSongs enumerates audio (or the caller's chosen type) without a text
// term, applying the filter's equality predicates as AND conjunctions.
// Sorted by natural (album_artist, album, disc_number, track_number)
// grouping unless overridden.
func (s *Store) ListSongs(t media.Type, filter media.Filter) ([]*media.File, error) {
	var results []*media.File
	err := s.withLock(func() error {
		where, args := equalityWhere(filter)
		where = append([]string{"type = ?"}, where...)
		args = append([]any{int(t)}, args...)

		query := selectColumns + ` FROM media WHERE ` + strings.Join(where, " AND ") +
			` ORDER BY album_artist, album, disc_number, track_number, id`
		rows, err := s.db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("list songs: %w", err)
		}
		defer rows.Close()
		files, err := scanAll(rows)
		if err != nil {
			return err
		}
		files = applyOrder(files, filter)
		results = paginate(files, filter.Offset, filter.Limit)
		return nil
	})
	return results, err
}

// GetAlbumSongs returns all audio rows for (album, albumArtist), ordered
// by (disc_number, track_number).
func (s *Store) GetAlbumSongs(album, albumArtist string) ([]*media.File, error) {
	var results []*media.File
	err := s.withLock(func() error {
		rows, err := s.db.Query(selectColumns+` FROM media
			WHERE type = ? AND album = ? AND album_artist = ?
			ORDER BY disc_number, track_number, id`, int(media.Audio), album, albumArtist)
		if err != nil {
			return fmt.Errorf("get album songs: %w", err)
		}
		defer rows.Close()
		results, err = scanAll(rows)
		return err
	})
	return results, err
}

// ListArtists returns the distinct per-track artists over audio records.
// Only Default/Title order is supported.
func (s *Store) ListArtists(filter media.Filter) ([]string, error) {
	if filter.Order != media.OrderDefault && filter.Order != media.OrderTitle {
		return nil, fmt.Errorf("%w: artists support only Default/Title order", util.ErrInvalidOrder)
	}
	var out []string
	err := s.withLock(func() error {
		where, args := equalityWhere(filter)
		where = append([]string{"type = ?", "author <> ''"}, where...)
		args = append([]any{int(media.Audio)}, args...)
		rows, err := s.db.Query(`SELECT DISTINCT author FROM media WHERE `+strings.Join(where, " AND ")+` ORDER BY author`, args...)
		if err != nil {
			return fmt.Errorf("list artists: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var a string
			if err := rows.Scan(&a); err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	if filter.Reverse {
		reverseStrings(out)
	}
	out = paginate(out, filter.Offset, filter.Limit)
	return out, err
}

// QueryArtists is ListArtists restricted to rows whose FTS row matches
// term. Only Default/Title order is supported, same as ListArtists.
func (s *Store) QueryArtists(term string, filter media.Filter) ([]string, error) {
	if filter.Order != media.OrderDefault && filter.Order != media.OrderTitle {
		return nil, fmt.Errorf("%w: artists support only Default/Title order", util.ErrInvalidOrder)
	}
	var out []string
	err := s.withLock(func() error {
		where, args := equalityWhere(filter)
		where = append([]string{"type = ?", "author <> ''"}, where...)
		args = append([]any{int(media.Audio)}, args...)
		query := `SELECT DISTINCT author FROM media WHERE ` + strings.Join(where, " AND ")
		if term != "" {
			query += ` AND id IN (SELECT rowid FROM media_fts WHERE media_fts MATCH ?)`
			args = append(args, buildMatchQuery(term))
		}
		query += ` ORDER BY author`

		rows, err := s.db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("query artists: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var a string
			if err := rows.Scan(&a); err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	if filter.Reverse {
		reverseStrings(out)
	}
	out = paginate(out, filter.Offset, filter.Limit)
	return out, err
}

// ListAlbumArtists returns distinct album-artist values over audio.
func (s *Store) ListAlbumArtists(filter media.Filter) ([]string, error) {
	var out []string
	err := s.withLock(func() error {
		where, args := equalityWhere(filter)
		where = append([]string{"type = ?", "album_artist <> ''"}, where...)
		args = append([]any{int(media.Audio)}, args...)
		rows, err := s.db.Query(`SELECT DISTINCT album_artist FROM media WHERE `+strings.Join(where, " AND ")+` ORDER BY album_artist`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a string
			if err := rows.Scan(&a); err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	if filter.Reverse {
		reverseStrings(out)
	}
	out = paginate(out, filter.Offset, filter.Limit)
	return out, err
}

// ListGenres returns distinct genre values over audio.
func (s *Store) ListGenres(filter media.Filter) ([]string, error) {
	var out []string
	err := s.withLock(func() error {
		where, args := equalityWhere(filter)
		where = append([]string{"type = ?", "genre <> ''"}, where...)
		args = append([]any{int(media.Audio)}, args...)
		rows, err := s.db.Query(`SELECT DISTINCT genre FROM media WHERE `+strings.Join(where, " AND ")+` ORDER BY genre`, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a string
			if err := rows.Scan(&a); err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	if filter.Reverse {
		reverseStrings(out)
	}
	out = paginate(out, filter.Offset, filter.Limit)
	return out, err
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// equalityWhere translates the filter's equality predicates into SQL AND
// conjunctions, skipping any predicate left unset.
func equalityWhere(filter media.Filter) ([]string, []any) {
	var where []string
	var args []any
	if filter.Artist != nil {
		where = append(where, "author = ?")
		args = append(args, *filter.Artist)
	}
	if filter.Album != nil {
		where = append(where, "album = ?")
		args = append(args, *filter.Album)
	}
	if filter.AlbumArtist != nil {
		where = append(where, "album_artist = ?")
		args = append(args, *filter.AlbumArtist)
	}
	if filter.Genre != nil {
		where = append(where, "genre = ?")
		args = append(args, *filter.Genre)
	}
	if len(where) == 0 {
		where = append(where, "1=1")
	}
	return where, args
}

func applyOrder(files []*media.File, filter media.Filter) []*media.File {
	switch filter.Order {
	case media.OrderTitle:
		sort.SliceStable(files, func(i, j int) bool { return files[i].DisplayTitle() < files[j].DisplayTitle() })
	case media.OrderDate:
		sort.SliceStable(files, func(i, j int) bool { return files[i].Date < files[j].Date })
	case media.OrderModified:
		sort.SliceStable(files, func(i, j int) bool { return files[i].ModificationTime < files[j].ModificationTime })
	default:
		// Default/Rank with no term: natural insertion order, already
		// produced by the SQL ORDER BY / id ascending.
	}
	if filter.Reverse {
		reverseFiles(files)
	}
	return files
}

func scanAll(rows rowsScanner) ([]*media.File, error) {
	var out []*media.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// albumKey identifies an Album aggregate's identity: (title, album artist).
type albumKey struct {
	title  string
	artist string
}

// ListAlbums aggregates over audio records with a non-empty album,
// grouped by (album, album_artist). Aggregated fields take the
// first-seen value per group, where "first" is stable ascending-id
// order — any deterministic tie-break is acceptable per the contract.
func (s *Store) ListAlbums(filter media.Filter) ([]*media.Album, error) {
	return s.queryAlbums("", filter)
}

// QueryAlbums is ListAlbums restricted to rows whose FTS row matches the
// term. Only Default/Title/Modified order is supported; Rank and Date
// signal ErrInvalidOrder.
func (s *Store) QueryAlbums(term string, filter media.Filter) ([]*media.Album, error) {
	if filter.Order == media.OrderRank || filter.Order == media.OrderDate {
		return nil, fmt.Errorf("%w: albums do not support Rank/Date order", util.ErrInvalidOrder)
	}
	return s.queryAlbums(term, filter)
}

func (s *Store) queryAlbums(term string, filter media.Filter) ([]*media.Album, error) {
	var out []*media.Album
	err := s.withLock(func() error {
		where, args := equalityWhere(filter)
		where = append([]string{"type = ?", "album <> ''"}, where...)
		args = append([]any{int(media.Audio)}, args...)
		query := selectColumns + ` FROM media WHERE ` + strings.Join(where, " AND ")
		if term != "" {
			query += ` AND id IN (SELECT rowid FROM media_fts WHERE media_fts MATCH ?)`
			args = append(args, buildMatchQuery(term))
		}
		query += ` ORDER BY id`

		rows, err := s.db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("query albums: %w", err)
		}
		defer rows.Close()
		files, err := scanAll(rows)
		if err != nil {
			return err
		}

		seen := make(map[albumKey]*media.Album)
		var order []albumKey
		for _, f := range files {
			key := albumKey{title: f.Album, artist: f.DisplayAlbumArtist()}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = &media.Album{
				Title:        f.Album,
				Artist:       key.artist,
				Date:         f.Date,
				Genre:        f.Genre,
				HasThumbnail: f.HasThumbnail,
				ModTime:      f.ModificationTime,
			}
			order = append(order, key)
		}

		albums := make([]*media.Album, 0, len(order))
		for _, k := range order {
			albums = append(albums, seen[k])
		}
		switch filter.Order {
		case media.OrderTitle, media.OrderDefault:
			sort.SliceStable(albums, func(i, j int) bool { return albums[i].Title < albums[j].Title })
		case media.OrderModified:
			sort.SliceStable(albums, func(i, j int) bool { return albums[i].ModTime < albums[j].ModTime })
		}
		if filter.Reverse {
			for i, j := 0, len(albums)-1; i < j; i, j = i+1, j-1 {
				albums[i], albums[j] = albums[j], albums[i]
			}
		}
		out = paginateAlbums(albums, filter.Offset, filter.Limit)
		return nil
	})
	return out, err
}

func paginateAlbums(albums []*media.Album, offset, limit int) []*media.Album {
	return paginate(albums, offset, limit)
}
