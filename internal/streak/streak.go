// Package streak computes current and best completion streaks from a set of
// ISO dates. Both storage backends delegate here so the numbers can never
// diverge between them.
package streak

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// Compute returns (current, best) for the given completion dates.
//
// Current counts consecutive days backwards from today, inclusive; it is 0
// when today itself has no record. Best is the longest run of consecutive
// calendar dates ever recorded; it is at least 1 whenever dates is non-empty.
// Malformed date strings are ignored.
func Compute(dates []string, today time.Time) (current, best int) {
	if len(dates) == 0 {
		return 0, 0
	}

	set := make(map[string]struct{}, len(dates))
	distinct := make([]time.Time, 0, len(dates))
	for _, raw := range dates {
		if _, dup := set[raw]; dup {
			continue
		}
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			continue
		}
		set[raw] = struct{}{}
		distinct = append(distinct, d)
	}
	if len(distinct) == 0 {
		return 0, 0
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	for {
		if _, ok := set[day.Format(dateLayout)]; !ok {
			break
		}
		current++
		day = day.AddDate(0, 0, -1)
	}

	sort.Slice(distinct, func(i, j int) bool { return distinct[i].Before(distinct[j]) })
	best = 1
	run := 1
	for i := 1; i < len(distinct); i++ {
		if distinct[i].Sub(distinct[i-1]) == 24*time.Hour {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}
	return current, best
}
