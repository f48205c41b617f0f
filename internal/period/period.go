// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package period computes ISO-calendar-week identifiers. Week IDs
// partition items and pipeline runs: "<ISO year>-W<ISO week, 2 digits>".
package period

import (
	"fmt"
	"regexp"
	"time"
)

var weekIDPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// FromTime returns the week ID for t using ISO 8601 week rules (the
// week containing the year's first Thursday). Note the ISO year can
// differ from the calendar year at year boundaries.
func FromTime(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Current returns the week ID for the current time.
func Current() string {
	return FromTime(time.Now())
}

// Valid reports whether s is a well-formed week ID.
func Valid(s string) bool {
	m := weekIDPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	var week int
	fmt.Sscanf(m[2], "%d", &week)
	return week >= 1 && week <= 53
}
