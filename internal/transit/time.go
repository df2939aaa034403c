package transit

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsedMinutes is a sum type distinguishing a successfully parsed
// minutes-since-midnight value from a parse failure, replacing the
// untyped sentinel -1.0 the source uses: callers must check OK before
// trusting Minutes.
type ParsedMinutes struct {
	Minutes float64
	OK      bool
}

// ParseGTFSTime parses a GTFS stop_times time string of the form
// "H+:MM" or "H+:MM:SS" into minutes since midnight. Hours may exceed 23
// (and commonly exceed 47) to represent overnight service. Any string not
// matching that shape returns a ParsedMinutes with OK == false.
func ParseGTFSTime(s string) ParsedMinutes {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return ParsedMinutes{}
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return ParsedMinutes{}
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 || len(parts[1]) != 2 {
		return ParsedMinutes{}
	}

	seconds := 0
	if len(parts) == 3 {
		if len(parts[2]) != 2 {
			return ParsedMinutes{}
		}
		seconds, err = strconv.Atoi(parts[2])
		if err != nil || seconds < 0 || seconds > 59 {
			return ParsedMinutes{}
		}
	}

	total := float64(hours*60+minutes) + float64(seconds)/60.0
	return ParsedMinutes{Minutes: total, OK: true}
}

// FormatMinutes renders a ParsedMinutes as "HH:MM", with hours allowed to
// run past 24 for overnight values, or "--:--" for a parse failure.
func FormatMinutes(m ParsedMinutes) string {
	if !m.OK {
		return "--:--"
	}
	total := int(m.Minutes)
	h := total / 60
	mi := total % 60
	return fmt.Sprintf("%02d:%02d", h, mi)
}

// minutesSinceMidnight is a small convenience for call sites that already
// know parsing succeeded (e.g. re-deriving minutes from a value produced
// elsewhere in this package) and want the bare float64.
func minutesSinceMidnight(s string) (float64, bool) {
	p := ParseGTFSTime(s)
	return p.Minutes, p.OK
}
