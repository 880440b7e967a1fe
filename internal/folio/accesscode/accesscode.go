// Package accesscode holds the rules for PT-##### access codes: formatting,
// parsing, next-code allocation and the active-flag check.
package accesscode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Prefix starts every issued code.
const Prefix = "PT-"

// MaxSequence is the largest sequence number a code may carry. Larger
// suffixes are treated as foreign rows.
const MaxSequence = math.MaxInt32

// ActiveFlag is the value written to the active column of new rows.
const ActiveFlag = "TRUE"

// Format renders n as PT- followed by at least five zero-padded digits.
func Format(n int) string {
	return fmt.Sprintf("%s%05d", Prefix, n)
}

// Parse extracts the sequence number from a code. Codes without the prefix,
// with an empty suffix or with any non-digit in the suffix are rejected.
func Parse(code string) (int, bool) {
	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, Prefix) {
		return 0, false
	}
	digits := code[len(Prefix):]
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n > MaxSequence {
		return 0, false
	}
	return int(n), true
}

// Next returns the code following the highest well-formed code in existing.
// Malformed and foreign rows are ignored; an empty table yields PT-00001.
// Once MaxSequence is taken, the lowest unused number is handed out instead.
func Next(existing []string) string {
	highest := 0
	used := make(map[int]bool, len(existing))
	for _, c := range existing {
		n, ok := Parse(c)
		if !ok {
			continue
		}
		used[n] = true
		if n > highest {
			highest = n
		}
	}
	if highest < MaxSequence {
		return Format(highest + 1)
	}
	n := 1
	for used[n] {
		n++
	}
	return Format(n)
}

// IsActive reports whether an active column value marks the code usable.
func IsActive(flag string) bool {
	switch strings.ToUpper(strings.TrimSpace(flag)) {
	case "TRUE", "YES", "1":
		return true
	default:
		return false
	}
}
