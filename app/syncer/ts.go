package syncer

import (
	"strconv"
	"strings"
)

// compareTS orders Slack timestamps ("seconds.micros"). Unparseable values
// fall back to string comparison.
func compareTS(a, b string) int {
	aSec, aFrac, aOK := splitTS(a)
	bSec, bFrac, bOK := splitTS(b)
	if !aOK || !bOK {
		return strings.Compare(a, b)
	}

	switch {
	case aSec < bSec:
		return -1
	case aSec > bSec:
		return 1
	case aFrac < bFrac:
		return -1
	case aFrac > bFrac:
		return 1
	}
	return 0
}

func splitTS(ts string) (int64, int64, bool) {
	if ts == "" {
		return 0, 0, false
	}

	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return 0, 0, false
	}

	// Pad so "1.5" and "1.500000" compare equal
	fracPart = (fracPart + "000000")[:6]
	frac, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, 0, false
	}

	return sec, frac, true
}

func maxTS(messages []string) string {
	latest := ""
	for _, ts := range messages {
		if latest == "" || compareTS(ts, latest) > 0 {
			latest = ts
		}
	}
	return latest
}
