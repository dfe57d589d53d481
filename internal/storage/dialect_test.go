package storage

import (
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/rssai/internal/vector"
)

func encodeForTest(v []float32) []byte {
	return vector.Encode(v)
}

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Go", "%go%"},
		{"100%", `%100\%%`},
		{"snake_case", `%snake\_case%`},
		{`a\b`, `%a\\b%`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, containsPattern(tt.in))
		})
	}
}

func TestPostgresDialect(t *testing.T) {
	d := postgresDialect
	sql, args, err := d.builder().Select("a.id").From("articles a").
		Where(d.inInt64("a.source_id", []int64{1, 2})).
		Where(sq.Expr(d.containsFold("a.title"), "%go%")).
		Where(sq.Expr(d.distance("ae.vector")+" < ?", d.vectorArg([]float32{1, 0.5}), 0.3)).
		ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT a.id FROM articles a WHERE a.source_id = ANY($1) AND a.title ILIKE $2 ESCAPE '\' AND (ae.vector <=> $3::vector) < $4`,
		sql)
	require.Len(t, args, 4)
	assert.Equal(t, "[1,0.5]", args[2])

	assert.Nil(t, d.vectorArg(nil))
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	assert.Equal(t, time.UTC, d.timeArg(ts).(time.Time).Location())
}

func TestSQLiteDialect(t *testing.T) {
	d := sqliteDialect
	sql, args, err := d.builder().Select("a.id").From("articles a").
		Where(d.inInt64("a.source_id", nil)).
		Where(sq.Expr(d.containsFold("a.title"), "%go%")).
		ToSql()
	require.NoError(t, err)
	assert.Equal(t, `SELECT a.id FROM articles a WHERE 1 = 0 AND rssai_lower(a.title) LIKE ? ESCAPE '\'`, sql)
	assert.Equal(t, []any{"%go%"}, args)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC)
	assert.Equal(t, ts.UnixMicro(), d.timeArg(ts))
}

func TestScopeString(t *testing.T) {
	assert.Equal(t, "all", AllSources().String())
	assert.Equal(t, "sources[1 2]", SourceSet(1, 2).String())
	assert.Equal(t, "favorites(user=3)", FavoritesOf(3).String())
	assert.Equal(t, "subscribed(user=4)", SubscribedSourcesOf(4).String())
	assert.Nil(t, AllSources().predicate(sqliteDialect))
}

func TestDialectDecodeVector(t *testing.T) {
	vec := []float32{1.0000108, 0.5, 0.25}

	got, err := sqliteDialect.vectorScanner().decode(vector.Encode(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	v := postgresDialect.vectorScanner()
	require.NoError(t, v.Scan([]byte(vector.Literal(vec))))
	assert.Equal(t, vec, v.Vec)

	v = sqliteDialect.vectorScanner()
	require.NoError(t, v.Scan(nil))
	assert.Nil(t, v.Vec)
	assert.Error(t, v.Scan([]byte{1, 2, 3}))
}
