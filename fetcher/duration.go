package fetcher

import (
	"fmt"
	"regexp"
	"strconv"
)

var durationRE = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// FormatDuration converts an ISO 8601 duration as returned by the videos API
// (PT1H5M9S) into a display string (1:05:09, or 45:00 when there is no hour
// component). Empty or unparseable input formats as the empty string.
func FormatDuration(iso string) string {
	m := durationRE.FindStringSubmatch(iso)
	if m == nil || iso == "PT" {
		return ""
	}

	hours, minutes, seconds := atoi(m[1]), atoi(m[2]), atoi(m[3])
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
