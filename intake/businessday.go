package intake

import "time"

const (
	// DefaultDueDateBusinessDays is how far out the proposed due date lands.
	DefaultDueDateBusinessDays = 5
	// RushThresholdBusinessDays flags requests due in fewer business days.
	RushThresholdBusinessDays = 5
)

// DateOf truncates t to its calendar date in t's own location, returned as
// midnight UTC so dates from different sources compare directly.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether t falls Monday through Friday. There is no
// holiday calendar.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// AddBusinessDays walks forward one calendar day at a time, counting only
// business days, and returns the day on which the count reaches n. The start
// date itself is never counted. n <= 0 returns the start date.
func AddBusinessDays(start time.Time, n int) time.Time {
	result := DateOf(start)
	for added := 0; added < n; {
		result = result.AddDate(0, 0, 1)
		if IsBusinessDay(result) {
			added++
		}
	}
	return result
}

// BusinessDaysBetween counts the weekdays in the inclusive range
// [start, end]. It is 0 when end is before start.
func BusinessDaysBetween(start, end time.Time) int {
	cur, last := DateOf(start), DateOf(end)
	count := 0
	for !cur.After(last) {
		if IsBusinessDay(cur) {
			count++
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return count
}

// IsRush reports whether a due date is fewer than five business days after
// creation. A missing due date is never rush.
func IsRush(createdAt time.Time, dueDate *time.Time) bool {
	if dueDate == nil {
		return false
	}
	return BusinessDaysBetween(createdAt, *dueDate) < RushThresholdBusinessDays
}
