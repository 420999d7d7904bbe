// Package recurrence computes successor occurrences for recurring posts.
// It is pure: no storage, no clock, no side effects.
package recurrence

import (
	"strings"
	"time"
)

const (
	FreqDaily   = "DAILY"
	FreqWeekly  = "WEEKLY"
	FreqMonthly = "MONTHLY"
)

// Rule is the parsed form of a "FREQ=WEEKLY;UNTIL=2025-12-31" string.
type Rule struct {
	Freq  string
	Until time.Time // zero when the rule has no end date
	// UnknownFreq is set when the FREQ value was not recognized and the
	// weekly fallback applied. Callers can log it; the calculation itself
	// proceeds.
	UnknownFreq bool
}

func (r Rule) HasUntil() bool { return !r.Until.IsZero() }

// String re-encodes the rule so a successor post carries the same rule
// forward.
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString("FREQ=")
	b.WriteString(r.Freq)
	if r.HasUntil() {
		b.WriteString(";UNTIL=")
		b.WriteString(r.Until.Format("2006-01-02"))
	}
	return b.String()
}

// ParseRule reads a semicolon-delimited key=value rule. An unrecognized FREQ
// falls back to weekly rather than failing, preserving long-standing
// behavior; the fallback is reported through Rule.UnknownFreq. UNTIL accepts
// a plain date or RFC 3339.
func ParseRule(s string) Rule {
	rule := Rule{Freq: FreqWeekly}
	freqSeen := false

	for _, part := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "FREQ":
			freqSeen = true
			switch strings.ToUpper(strings.TrimSpace(value)) {
			case FreqDaily:
				rule.Freq = FreqDaily
			case FreqWeekly:
				rule.Freq = FreqWeekly
			case FreqMonthly:
				rule.Freq = FreqMonthly
			default:
				rule.Freq = FreqWeekly
				rule.UnknownFreq = true
			}
		case "UNTIL":
			v := strings.TrimSpace(value)
			if t, err := time.Parse("2006-01-02", v); err == nil {
				rule.Until = t
			} else if t, err := time.Parse(time.RFC3339, v); err == nil {
				rule.Until = t
			}
		}
	}

	if !freqSeen {
		rule.UnknownFreq = true
	}
	return rule
}

// Next returns the occurrence one frequency unit after prev, or ok=false when
// that occurrence would fall strictly after the rule's UNTIL date. Month
// arithmetic is calendar-aware via AddDate, not a fixed 30-day step.
func Next(prev time.Time, rule Rule) (time.Time, bool) {
	var next time.Time
	switch rule.Freq {
	case FreqDaily:
		next = prev.AddDate(0, 0, 1)
	case FreqMonthly:
		next = prev.AddDate(0, 1, 0)
	default:
		next = prev.AddDate(0, 0, 7)
	}

	if rule.HasUntil() && next.After(rule.Until) {
		return time.Time{}, false
	}
	return next, true
}
