package sqlite

import (
	"fmt"
	"time"
)

// timeLayout is how timestamps are rendered into the updated_at column.
// SQLite has no native datetime type; we store RFC3339 TEXT.
const timeLayout = "2006-01-02T15:04:05.999999999Z"

// parseRFC3339 parses the timestamp strings stored in SQLite.
func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
