package storage

import "fmt"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	url TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id INTEGER REFERENCES sources(id) ON DELETE SET NULL,
	source_name TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	link TEXT NOT NULL UNIQUE,
	author TEXT NOT NULL DEFAULT '',
	pub_date INTEGER NOT NULL,
	word_count INTEGER NOT NULL DEFAULT 0,
	cover_image TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles(pub_date DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_articles_source_pub_date ON articles(source_id, pub_date DESC, id DESC);

CREATE TABLE IF NOT EXISTS article_extras (
	article_id INTEGER PRIMARY KEY REFERENCES articles(id) ON DELETE CASCADE,
	overview TEXT NOT NULL DEFAULT '',
	key_information TEXT,
	tags TEXT,
	vector BLOB,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS topics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content TEXT NOT NULL UNIQUE,
	vector BLOB NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('RSS', 'TOPIC')),
	source_id INTEGER REFERENCES sources(id) ON DELETE CASCADE,
	topic_id INTEGER REFERENCES topics(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL,
	UNIQUE (user_id, source_id),
	UNIQUE (user_id, topic_id)
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id);

CREATE TABLE IF NOT EXISTS article_favorites (
	user_id INTEGER NOT NULL,
	article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, article_id)
);
`

// postgresSchema returns the Postgres DDL for vectors of the given dimension. Lexical
// recall is served by trigram GIN indexes, vector recall by an HNSW cosine index.
func postgresSchema(dims int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE TABLE IF NOT EXISTS sources (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	url TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS articles (
	id BIGSERIAL PRIMARY KEY,
	source_id BIGINT REFERENCES sources(id) ON DELETE SET NULL,
	source_name TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	link TEXT NOT NULL UNIQUE,
	author TEXT NOT NULL DEFAULT '',
	pub_date TIMESTAMPTZ NOT NULL,
	word_count BIGINT NOT NULL DEFAULT 0,
	cover_image TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_articles_pub_date ON articles(pub_date DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_articles_source_pub_date ON articles(source_id, pub_date DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_articles_title_trgm ON articles USING gin (title gin_trgm_ops);
CREATE INDEX IF NOT EXISTS idx_articles_author_trgm ON articles USING gin (author gin_trgm_ops);
CREATE INDEX IF NOT EXISTS idx_articles_source_name_trgm ON articles USING gin (source_name gin_trgm_ops);

CREATE TABLE IF NOT EXISTS article_extras (
	article_id BIGINT PRIMARY KEY REFERENCES articles(id) ON DELETE CASCADE,
	overview TEXT NOT NULL DEFAULT '',
	key_information TEXT,
	tags TEXT,
	vector vector(%[1]d),
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_article_extras_vector ON article_extras USING hnsw (vector vector_cosine_ops);

CREATE TABLE IF NOT EXISTS topics (
	id BIGSERIAL PRIMARY KEY,
	content TEXT NOT NULL UNIQUE,
	vector vector(%[1]d) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('RSS', 'TOPIC')),
	source_id BIGINT REFERENCES sources(id) ON DELETE CASCADE,
	topic_id BIGINT REFERENCES topics(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, source_id),
	UNIQUE (user_id, topic_id)
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id);

CREATE TABLE IF NOT EXISTS article_favorites (
	user_id BIGINT NOT NULL,
	article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, article_id)
);
`, dims)
}
