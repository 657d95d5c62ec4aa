package wakeup

import "time"

// nextFireInstant returns the next local occurrence of hhmm strictly
// after now: today if hhmm has not yet passed in the local day,
// otherwise tomorrow (spec 4.7: set()'s "today or tomorrow" rule).
func nextFireInstant(now time.Time, loc *time.Location, hhmm string) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", hhmm, loc)
	if err != nil {
		return time.Time{}, invalidTime(hhmm, err)
	}

	local := now.In(loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate, nil
}

func localDateFor(now time.Time, loc *time.Location) string {
	return now.In(loc).Format("2006-01-02")
}
