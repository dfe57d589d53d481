package storage

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/hyperjump/rssai/internal/vector"
)

// dialect holds what differs between the SQLite and Postgres backends. Everything else
// is built once with squirrel.
type dialect struct {
	name        string
	placeholder sq.PlaceholderFormat
	// distance renders the cosine distance between column col and one bound query vector.
	distance func(col string) string
	// vectorArg binds a query or stored vector.
	vectorArg func(v []float32) any
	// decodeVector reads a vector column back.
	decodeVector func(b []byte) ([]float32, error)
	// timeArg binds a publish date.
	timeArg func(t time.Time) any
	// containsFold renders a case-insensitive literal substring match on col.
	containsFold func(col string) string
	// inInt64 renders col IN (ids); an empty list matches nothing.
	inInt64 func(col string, ids []int64) sq.Sqlizer
}

func (d *dialect) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.placeholder)
}

func (d *dialect) vectorScanner() *dbVector {
	return &dbVector{decode: d.decodeVector}
}

var sqliteDialect = &dialect{
	name:        "sqlite",
	placeholder: sq.Question,
	distance: func(col string) string {
		return "cosine_distance(" + col + ", ?)"
	},
	vectorArg:    func(v []float32) any { return vector.Encode(v) },
	decodeVector: vector.Decode,
	timeArg:      func(t time.Time) any { return t.UTC().UnixMicro() },
	containsFold: func(col string) string {
		return sqliteLowerFunc + "(" + col + ") LIKE ? ESCAPE '\\'"
	},
	inInt64: func(col string, ids []int64) sq.Sqlizer {
		if len(ids) == 0 {
			return sq.Expr("1 = 0")
		}
		return sq.Eq{col: ids}
	},
}

var postgresDialect = &dialect{
	name:        "postgres",
	placeholder: sq.Dollar,
	distance: func(col string) string {
		return "(" + col + " <=> ?::vector)"
	},
	vectorArg: func(v []float32) any {
		if v == nil {
			return nil
		}
		return vector.Literal(v)
	},
	decodeVector: func(b []byte) ([]float32, error) { return vector.ParseLiteral(string(b)) },
	timeArg:      func(t time.Time) any { return t.UTC() },
	containsFold: func(col string) string {
		return col + " ILIKE ? ESCAPE '\\'"
	},
	inInt64: func(col string, ids []int64) sq.Sqlizer {
		if len(ids) == 0 {
			return sq.Expr("1 = 0")
		}
		return sq.Expr(col+" = ANY(?)", pq.Array(ids))
	},
}

// containsPattern builds the LIKE argument for a literal, case-insensitive substring match.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
