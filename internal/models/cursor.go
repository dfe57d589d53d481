package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// cursorLayouts are tried in order when parsing the timestamp half of a cursor.
// The zone-less layout is what browsers echo back for LocalDateTime values; it is read as UTC.
var cursorLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// FeedCursor is a position in the (PubDate DESC, ID DESC) order. A page holds only
// items strictly after the cursor.
type FeedCursor struct {
	Time time.Time
	ID   int64
}

// StartCursor returns the cursor for the first page: everything published up to now.
func StartCursor(now time.Time) FeedCursor {
	return FeedCursor{Time: NormalizeTime(now), ID: math.MaxInt64}
}

// ParseCursor parses "<timestamp>,<id>". A blank string yields StartCursor(now).
// Any other malformed input is ErrInvalidInput.
func ParseCursor(s string, now time.Time) (FeedCursor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return StartCursor(now), nil
	}
	ts, idPart, ok := strings.Cut(s, ",")
	if !ok {
		return FeedCursor{}, InvalidInputf("cursor %q: missing id", s)
	}
	t, err := parseCursorTime(strings.TrimSpace(ts))
	if err != nil {
		return FeedCursor{}, InvalidInputf("cursor %q: bad timestamp", s)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
	if err != nil {
		return FeedCursor{}, InvalidInputf("cursor %q: bad id", s)
	}
	return FeedCursor{Time: NormalizeTime(t), ID: id}, nil
}

func parseCursorTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range cursorLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// String encodes the cursor in the form ParseCursor accepts.
func (c FeedCursor) String() string {
	return NormalizeTime(c.Time).Format(time.RFC3339Nano) + "," + strconv.FormatInt(c.ID, 10)
}

// EncodeCursor returns the cursor for the page after item, or "" when item is nil.
func EncodeCursor(item *FeedItem) string {
	if item == nil {
		return ""
	}
	return FeedCursor{Time: item.PubDate, ID: item.ID}.String()
}

// Before reports whether an item at (t, id) sorts strictly after the cursor
// in the feed order, i.e. belongs on the next page.
func (c FeedCursor) Before(t time.Time, id int64) bool {
	t = NormalizeTime(t)
	return t.Before(c.Time) || (t.Equal(c.Time) && id < c.ID)
}
