package rec

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// MP Replay v101.101.34793.0 @2020.02.13 213505 (1).aoe2record
	replayPattern = regexp.MustCompile(`^MP Replay v(\S+) @(\d{4})\.(\d{2})\.(\d{2}) (\d{2})(\d{2})(\d{2})`)
	// rec.20190615-112706-anything.mgz
	defaultPattern = regexp.MustCompile(`^rec\.(\d{4})(\d{2})(\d{2})-(\d{2})(\d{2})(\d{2})`)
	// recorded game -  29-Mar-2001 00`35`51 3v3 iketh vs woogy.mgx
	recordedPattern = regexp.MustCompile("^recorded game -\\s+(\\d{1,2})-([A-Za-z]{3})-(\\d{4}) (\\d{2})`(\\d{2})`(\\d{2})")
	// partida-grabada-21-sep-2010-22-19-44.mgx
	spanishPattern = regexp.MustCompile(`^partida-grabada-(\d{1,2})-([a-z]{3})-(\d{4})-(\d{2})-(\d{2})-(\d{2})`)
)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
	// Spanish clients
	"ene": time.January, "abr": time.April, "ago": time.August, "dic": time.December,
}

// ParseFilenameTime extracts the start time encoded in a default recording
// file name, plus the game version when the name carries one. Times are
// returned in UTC since clients do not record their zone.
func ParseFilenameTime(name string) (time.Time, string, bool) {
	base := filepath.Base(strings.TrimSpace(name))

	if m := replayPattern.FindStringSubmatch(base); m != nil {
		ts, ok := buildTime(m[2], m[3], m[4], m[5], m[6], m[7])
		return ts, m[1], ok
	}
	if m := defaultPattern.FindStringSubmatch(base); m != nil {
		ts, ok := buildTime(m[1], m[2], m[3], m[4], m[5], m[6])
		return ts, "", ok
	}
	if m := recordedPattern.FindStringSubmatch(base); m != nil {
		month, ok := monthAbbrev[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, "", false
		}
		ts, ok := buildTime(m[3], strconv.Itoa(int(month)), m[1], m[4], m[5], m[6])
		return ts, "", ok
	}
	if m := spanishPattern.FindStringSubmatch(base); m != nil {
		month, ok := monthAbbrev[m[2]]
		if !ok {
			return time.Time{}, "", false
		}
		ts, ok := buildTime(m[3], strconv.Itoa(int(month)), m[1], m[4], m[5], m[6])
		return ts, "", ok
	}
	return time.Time{}, "", false
}

func buildTime(year, month, day, hour, minute, second string) (time.Time, bool) {
	values := make([]int, 0, 6)
	for _, raw := range []string{year, month, day, hour, minute, second} {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return time.Time{}, false
		}
		values = append(values, v)
	}
	if values[1] < 1 || values[1] > 12 || values[2] < 1 || values[2] > 31 ||
		values[3] > 23 || values[4] > 59 || values[5] > 59 {
		return time.Time{}, false
	}
	ts := time.Date(values[0], time.Month(values[1]), values[2], values[3], values[4], values[5], 0, time.UTC)
	if ts.Day() != values[2] {
		return time.Time{}, false
	}
	return ts, true
}
