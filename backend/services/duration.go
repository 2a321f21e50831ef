// Package services holds the enrollment, payment, progress and account logic
// shared by the HTTP controllers.
package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"studynotion/backend/models"
)

// ParseSeconds reads a stored duration. Decimal text is truncated; anything
// non-numeric or negative counts as zero.
func ParseSeconds(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int64(f)
}

func TotalSeconds(sections []models.Section) int64 {
	var total int64
	for _, section := range sections {
		for _, sub := range section.SubSections {
			total += ParseSeconds(sub.TimeDuration)
		}
	}
	return total
}

// FormatDuration renders at most the two most significant units; zero is "".
func FormatDuration(total int64) string {
	if total <= 0 {
		return ""
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		if minutes > 0 {
			return plural(hours, "hour") + " " + plural(minutes, "minute")
		}
		return plural(hours, "hour")
	case minutes > 0:
		if seconds > 0 {
			return plural(minutes, "minute") + " " + plural(seconds, "second")
		}
		return plural(minutes, "minute")
	default:
		return plural(seconds, "second")
	}
}

func CourseDuration(course *models.Course) string {
	return FormatDuration(TotalSeconds(course.CourseContent))
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
