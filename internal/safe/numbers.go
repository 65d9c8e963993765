package safe

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/shinji-kodama/procman/internal/model"
)

// ParseInt parses a base-10 integer. Malformed input is a ReaderError.
func ParseInt(s string) Result[int] {
	return Try(func() (int, error) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, model.WrapFault(model.ReaderError, fmt.Sprintf("invalid integer %q", s), err)
		}
		return n, nil
	})
}

// ParseDuration parses a Go duration string such as "1m30s".
// Malformed input is a ReaderError.
func ParseDuration(s string) Result[time.Duration] {
	return Try(func() (time.Duration, error) {
		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return 0, model.WrapFault(model.ReaderError, fmt.Sprintf("invalid duration %q", s), err)
		}
		return d, nil
	})
}

// Percent returns part/total as a percentage. A zero total is a fault,
// not a zero percentage.
func Percent(part, total int) Result[float64] {
	if total == 0 {
		return Fail[float64](model.NewFault(model.CustomError, "percent of zero total"))
	}
	return Ok(float64(part) * 100 / float64(total))
}

// Ratio is the legacy form of Percent: a zero total yields 0, which is
// indistinguishable from a zero part.
func Ratio(part, total int) float64 {
	return OrDefault[float64](0, Percent(part, total).Unpack)
}

// FormatBytes renders a byte count for humans ("1.2 kB"). Negative
// counts render as "0 B".
func FormatBytes(n int64) string {
	return OrDefault("0 B", func() (string, error) {
		if n < 0 {
			return "", fmt.Errorf("negative byte count %d", n)
		}
		return humanize.Bytes(uint64(n)), nil
	})
}

// FormatCount renders an integer with thousands separators ("12,345").
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatDuration renders d rounded to milliseconds. Negative durations
// render as "0s".
func FormatDuration(d time.Duration) string {
	return OrDefault("0s", func() (string, error) {
		if d < 0 {
			return "", fmt.Errorf("negative duration %s", d)
		}
		return d.Round(time.Millisecond).String(), nil
	})
}
