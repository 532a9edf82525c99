package data

import "time"

// Clock supplies the timestamps repositories stamp onto new rows.
// Production code uses the system clock; tests substitute a fixed one
// to make created_at and updated_at assertions deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
