package index

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	directory TEXT NOT NULL,
	phone_numbers TEXT NOT NULL,
	names TEXT NOT NULL DEFAULT '',
	first_timestamp DATETIME NOT NULL,
	last_timestamp DATETIME NOT NULL,
	entries INTEGER NOT NULL,
	path TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_directory ON conversations(directory);
CREATE INDEX IF NOT EXISTS idx_conversations_run ON conversations(run_id);
`
