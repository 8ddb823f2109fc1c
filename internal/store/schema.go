package store

const Schema = `
CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	category_id TEXT NOT NULL,
	category_name TEXT NOT NULL DEFAULT '',
	stream_type TEXT NOT NULL,
	stream_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_categories_stream_type ON categories(stream_type);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_type_category ON categories(stream_type, category_id);

CREATE TABLE IF NOT EXISTS streams (
	id TEXT PRIMARY KEY,
	-- composite "<streamType>_<categoryId>", references categories(id)
	category_id TEXT NOT NULL,
	stream_id TEXT NOT NULL,
	stream_type TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	name_folded TEXT NOT NULL DEFAULT '',
	data TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_streams_category_id ON streams(category_id);
CREATE INDEX IF NOT EXISTS idx_streams_category_stream ON streams(category_id, stream_id);
CREATE INDEX IF NOT EXISTS idx_streams_name ON streams(name);
CREATE INDEX IF NOT EXISTS idx_streams_stream_type ON streams(stream_type);

CREATE TABLE IF NOT EXISTS import_runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	forced BOOLEAN NOT NULL DEFAULT 0,
	progress REAL DEFAULT 0,
	categories INTEGER NOT NULL DEFAULT 0,
	streams INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	error TEXT
);

-- At most one queued or running import at a time
CREATE UNIQUE INDEX IF NOT EXISTS idx_import_runs_active ON import_runs(status)
WHERE status IN ('queued', 'running');

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
