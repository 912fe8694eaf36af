package types

import "time"

// CounterUpdate is a compare-and-set write of a free usage counter.
// The write only lands when the stored row still matches the Expected* values;
// an absent row matches ExpectedCount 0 with a nil ExpectedLastSearchAt.
type CounterUpdate struct {
	UserID               int64
	ChatID               int64
	ExpectedCount        int
	ExpectedLastSearchAt *time.Time
	NewCount             int
	LastSearchAt         time.Time
}

type Stats struct {
	ActivePremiumAccounts int64
	ActiveAuthorizedChats int64
	FreeCounterRows       int64
	SearchesToday         int64
	PricePerSearch        int64
}

// DayBounds returns [midnight, next midnight) of now's calendar day in loc, in UTC.
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	y, m, d := local.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
