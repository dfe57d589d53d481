package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/rssai/internal/vector"
)

// sqliteDriverName is go-sqlite3 with cosine_distance(a, b) and rssai_lower(s) registered
// on every connection.
const sqliteDriverName = "sqlite3_rssai"

// sqliteLowerFunc folds case with Unicode rules. The built-in LOWER only folds ASCII.
const sqliteLowerFunc = "rssai_lower"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("cosine_distance", sqliteCosineDistance, true); err != nil {
				return err
			}
			return conn.RegisterFunc(sqliteLowerFunc, strings.ToLower, true)
		},
	})
}

// sqliteCosineDistance decodes two vector BLOBs. NULL or malformed input yields the
// maximum distance so the row never passes a threshold.
func sqliteCosineDistance(a, b any) float64 {
	va, ok := blobVector(a)
	if !ok {
		return 2
	}
	vb, ok := blobVector(b)
	if !ok {
		return 2
	}
	return vector.CosineDistance(va, vb)
}

func blobVector(v any) ([]float32, bool) {
	b, ok := v.([]byte)
	if !ok || len(b) == 0 {
		return nil, false
	}
	out, err := vector.Decode(b)
	if err != nil {
		return nil, false
	}
	return out, true
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" is supported for tests.
func NewSQLiteStore(dbPath string, opts ...StoreOption) (*SQLStore, error) {
	memory := dbPath == ":memory:"
	dsn := dbPath
	if !memory {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = "file:" + dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return newSQLStore(db, sqliteDialect, opts...), nil
}
