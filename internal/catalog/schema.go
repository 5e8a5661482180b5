package catalog

// currentSchemaVersion is the compiled-in schema version. A store opened
// for write against a different on-disk version drops and recreates every
// table below (no migration path — see Open). A store opened read-only
// against a mismatched version fails with ErrSchemaMismatch instead.
const currentSchemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS media (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  filename TEXT UNIQUE NOT NULL CHECK (filename LIKE '/%'),
  content_type TEXT NOT NULL DEFAULT '',
  etag TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  author TEXT NOT NULL DEFAULT '',
  album TEXT NOT NULL DEFAULT '',
  album_artist TEXT NOT NULL DEFAULT '',
  date TEXT NOT NULL DEFAULT '',
  genre TEXT NOT NULL DEFAULT '',
  disc_number INTEGER NOT NULL DEFAULT 0,
  track_number INTEGER NOT NULL DEFAULT 0,
  duration INTEGER NOT NULL DEFAULT 0,
  width INTEGER NOT NULL DEFAULT 0,
  height INTEGER NOT NULL DEFAULT 0,
  latitude REAL NOT NULL DEFAULT 0,
  longitude REAL NOT NULL DEFAULT 0,
  has_thumbnail INTEGER NOT NULL DEFAULT 0,
  modification_time INTEGER NOT NULL DEFAULT 0,
  type INTEGER NOT NULL CHECK (type IN (1, 2, 3))
);

CREATE INDEX IF NOT EXISTS idx_media_type ON media(type);
CREATE INDEX IF NOT EXISTS idx_media_album ON media(album, album_artist);
CREATE INDEX IF NOT EXISTS idx_media_artist ON media(author);
CREATE INDEX IF NOT EXISTS idx_media_genre ON media(genre);

-- Attic: shadow table for archived items, same columns minus the
-- surrogate key (the original id is not preserved across archive/restore).
CREATE TABLE IF NOT EXISTS media_attic (
  filename TEXT UNIQUE NOT NULL,
  content_type TEXT NOT NULL DEFAULT '',
  etag TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  author TEXT NOT NULL DEFAULT '',
  album TEXT NOT NULL DEFAULT '',
  album_artist TEXT NOT NULL DEFAULT '',
  date TEXT NOT NULL DEFAULT '',
  genre TEXT NOT NULL DEFAULT '',
  disc_number INTEGER NOT NULL DEFAULT 0,
  track_number INTEGER NOT NULL DEFAULT 0,
  duration INTEGER NOT NULL DEFAULT 0,
  width INTEGER NOT NULL DEFAULT 0,
  height INTEGER NOT NULL DEFAULT 0,
  latitude REAL NOT NULL DEFAULT 0,
  longitude REAL NOT NULL DEFAULT 0,
  has_thumbnail INTEGER NOT NULL DEFAULT 0,
  modification_time INTEGER NOT NULL DEFAULT 0,
  type INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS broken_files (
  filename TEXT PRIMARY KEY,
  etag TEXT NOT NULL
);

-- External-content FTS5 index over the three ranked columns. Content
-- lives in media; this table only carries the inverted index.
CREATE VIRTUAL TABLE IF NOT EXISTS media_fts USING fts5(
  title, author, album,
  content='media', content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS media_ai AFTER INSERT ON media BEGIN
  INSERT INTO media_fts(rowid, title, author, album)
  VALUES (new.id, new.title, new.author, new.album);
END;

CREATE TRIGGER IF NOT EXISTS media_ad AFTER DELETE ON media BEGIN
  INSERT INTO media_fts(media_fts, rowid, title, author, album)
  VALUES ('delete', old.id, old.title, old.author, old.album);
END;

CREATE TRIGGER IF NOT EXISTS media_au AFTER UPDATE ON media BEGIN
  INSERT INTO media_fts(media_fts, rowid, title, author, album)
  VALUES ('delete', old.id, old.title, old.author, old.album);
  INSERT INTO media_fts(rowid, title, author, album)
  VALUES (new.id, new.title, new.author, new.album);
END;
`

func dropAllTablesDDL() string {
	return `
DROP TABLE IF EXISTS media_fts;
DROP TABLE IF EXISTS media;
DROP TABLE IF EXISTS media_attic;
DROP TABLE IF EXISTS broken_files;
DROP TABLE IF EXISTS schema_version;
`
}
