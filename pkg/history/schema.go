package history

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	root TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	file_count INTEGER NOT NULL,
	total_bytes INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS summaries (
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	strategy TEXT NOT NULL,
	total_pages INTEGER NOT NULL,
	total_parsing_time TEXT NOT NULL,
	error_count INTEGER NOT NULL,
	errors TEXT NOT NULL,
	PRIMARY KEY (run_id, strategy)
);
`
