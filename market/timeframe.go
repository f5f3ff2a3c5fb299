package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// TimeframeSeconds parses a timeframe like "5m", "1h", "1d" or "1w" and
// returns its length in seconds. Units: m=60, h=3600, d=86400, w=604800.
func TimeframeSeconds(timeframe string) (int64, error) {
	tf := strings.TrimSpace(timeframe)
	if tf == "" {
		return 0, fmt.Errorf("timeframe cannot be empty")
	}

	var num, unit string
	for _, ch := range tf {
		if unicode.IsDigit(ch) {
			if unit != "" {
				return 0, fmt.Errorf("invalid timeframe %q", timeframe)
			}
			num += string(ch)
		} else {
			unit += string(ch)
		}
	}
	if num == "" || unit == "" {
		return 0, fmt.Errorf("invalid timeframe %q", timeframe)
	}

	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid timeframe %q", timeframe)
	}

	switch strings.ToLower(unit) {
	case "m":
		return n * 60, nil
	case "h":
		return n * 3600, nil
	case "d":
		return n * 86400, nil
	case "w":
		return n * 604800, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe unit %q (expected m/h/d/w)", unit)
	}
}

// TimeframeDuration is TimeframeSeconds as a time.Duration.
func TimeframeDuration(timeframe string) (time.Duration, error) {
	secs, err := TimeframeSeconds(timeframe)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}
