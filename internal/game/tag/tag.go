// Package tag decodes the node tags that make up a dungeon map: locations,
// monster encounters, and the exit hatch.
package tag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind classifies a decoded tag.
type Kind int

const (
	// KindLocation is a location the player can move into.
	KindLocation Kind = iota + 1
	// KindEncounter is a Mob or Boss that can be attacked.
	KindEncounter
	// KindExit is the hatch that ends the run.
	KindExit
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindLocation:
		return "location"
	case KindEncounter:
		return "encounter"
	case KindExit:
		return "exit"
	default:
		return "unknown"
	}
}

const (
	locationPrefix = "Location_"
	mobPrefix      = "Mob_exp"
	bossPrefix     = "Boss_exp"
	hatchPrefix    = "Hatch_tm"
	timeMarker     = "_tm"
)

// Tag is a decoded node tag.
//
// Invariant: Time is never negative; Experience is never negative.
type Tag struct {
	// Raw is the tag exactly as it appeared in the map.
	Raw string
	// Kind is the node classification.
	Kind Kind
	// Section is the optional letter before a location number ("B" in Location_B1_tm5).
	Section string
	// Number is the location number. Zero for encounters and exits.
	Number int
	// Boss is true for Boss encounters. Mob and Boss behave identically.
	Boss bool
	// Experience is the encounter reward. Zero for locations and exits.
	Experience int64
	// Time is the travel, fight or opening cost in seconds.
	Time decimal.Decimal
}

// String returns the raw tag.
func (t Tag) String() string {
	return t.Raw
}

// MalformedTagError reports a tag that matches no grammar or carries a bad numeral.
type MalformedTagError struct {
	Tag    string
	Reason string
}

// Error implements error.
func (e *MalformedTagError) Error() string {
	return fmt.Sprintf("tag: malformed tag %q: %s", e.Tag, e.Reason)
}

func malformed(raw, format string, args ...any) error {
	return &MalformedTagError{Tag: raw, Reason: fmt.Sprintf(format, args...)}
}

// Parse classifies raw by prefix and extracts its numeric fields.
// Supported forms: "Location_<N>_tm<T>", "Location_<L><N>_tm<T>",
// "Mob_exp<K>_tm<M>", "Boss_exp<K>_tm<M>", "Hatch_tm<T>".
//
// Precondition: none; any string may be passed.
// Postcondition: Returns a Tag whose Time holds the exact numeral from raw, or a
// *MalformedTagError.
func Parse(raw string) (Tag, error) {
	switch {
	case strings.HasPrefix(raw, locationPrefix):
		return parseLocation(raw, raw[len(locationPrefix):])
	case strings.HasPrefix(raw, mobPrefix):
		return parseEncounter(raw, raw[len(mobPrefix):], false)
	case strings.HasPrefix(raw, bossPrefix):
		return parseEncounter(raw, raw[len(bossPrefix):], true)
	case strings.HasPrefix(raw, hatchPrefix):
		t, err := parseDecimal(raw, raw[len(hatchPrefix):])
		if err != nil {
			return Tag{}, err
		}
		return Tag{Raw: raw, Kind: KindExit, Time: t}, nil
	default:
		return Tag{}, malformed(raw, "unknown prefix")
	}
}

// MustParse parses raw and panics on error. Useful in tests and fixtures.
//
// Precondition: raw must be a valid tag.
func MustParse(raw string) Tag {
	t, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return t
}

func parseLocation(raw, rest string) (Tag, error) {
	var section string
	if rest != "" && isLetter(rest[0]) {
		section = rest[:1]
		rest = rest[1:]
	}

	digits, rest := leadingDigits(rest)
	if digits == "" {
		return Tag{}, malformed(raw, "missing location number")
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return Tag{}, malformed(raw, "location number %q out of range", digits)
	}

	if !strings.HasPrefix(rest, timeMarker) {
		return Tag{}, malformed(raw, "missing %q after location number", timeMarker)
	}
	t, err := parseDecimal(raw, rest[len(timeMarker):])
	if err != nil {
		return Tag{}, err
	}

	return Tag{Raw: raw, Kind: KindLocation, Section: section, Number: n, Time: t}, nil
}

func parseEncounter(raw, rest string, boss bool) (Tag, error) {
	digits, rest := leadingDigits(rest)
	if digits == "" {
		return Tag{}, malformed(raw, "missing experience value")
	}
	exp, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Tag{}, malformed(raw, "experience %q out of range", digits)
	}

	if !strings.HasPrefix(rest, timeMarker) {
		return Tag{}, malformed(raw, "missing %q after experience value", timeMarker)
	}
	t, err := parseDecimal(raw, rest[len(timeMarker):])
	if err != nil {
		return Tag{}, err
	}

	return Tag{Raw: raw, Kind: KindEncounter, Boss: boss, Experience: exp, Time: t}, nil
}

// parseDecimal accepts digits, optionally followed by "." and more digits, and
// nothing else. The numeral never passes through float64.
func parseDecimal(raw, s string) (decimal.Decimal, error) {
	whole, rest := leadingDigits(s)
	if whole == "" {
		return decimal.Decimal{}, malformed(raw, "missing time value")
	}

	numeral := whole
	if rest != "" {
		if rest[0] != '.' {
			return decimal.Decimal{}, malformed(raw, "unexpected %q after time value", rest)
		}
		frac, tail := leadingDigits(rest[1:])
		if tail != "" {
			return decimal.Decimal{}, malformed(raw, "unexpected %q after time value", tail)
		}
		if frac != "" {
			numeral = whole + "." + frac
		}
	}

	d, err := decimal.NewFromString(numeral)
	if err != nil {
		return decimal.Decimal{}, malformed(raw, "invalid time value %q", numeral)
	}
	return d, nil
}

func leadingDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
