package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// dbTime scans a publish date stored as unix microseconds (SQLite) or a timestamp (Postgres).
type dbTime struct {
	Time time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case int64:
		t.Time = time.UnixMicro(v).UTC()
	case time.Time:
		t.Time = v.UTC()
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
	return nil
}

func (t *dbTime) parse(s string) error {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05.999999999"} {
		if p, err := time.Parse(layout, s); err == nil {
			t.Time = p.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

// dbVector scans a stored embedding with the decoder of the backend that wrote it: a
// little-endian float32 BLOB on SQLite, a pgvector text literal on Postgres.
type dbVector struct {
	decode func([]byte) ([]float32, error)
	Vec    []float32
}

func (v *dbVector) Scan(src any) error {
	var err error
	switch b := src.(type) {
	case nil:
		v.Vec = nil
	case []byte:
		v.Vec, err = v.decode(b)
	case string:
		v.Vec, err = v.decode([]byte(b))
	default:
		err = fmt.Errorf("cannot scan %T into vector", src)
	}
	return err
}

// dbStrings stores a string list as a JSON array.
type dbStrings []string

func (s dbStrings) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *dbStrings) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into string list", src)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("invalid string list: %w", err)
	}
	*s = out
	return nil
}
