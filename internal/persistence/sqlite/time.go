package sqlite

import (
	"fmt"
	"time"
)

// storedTimeLayout is the canonical on-disk timestamp format. Storing UTC
// RFC3339 text keeps lexicographic and chronological order identical, which
// the overlap queries rely on.
const storedTimeLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseStoredTime(column, value string) (time.Time, error) {
	t, err := time.Parse(storedTimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s %q: %w", column, value, err)
	}
	return t.UTC(), nil
}
