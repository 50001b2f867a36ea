package format

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidMagnitude is returned for an energy quantity that is negative or
// not an integer. Such quantities are a fault in the producing application.
var ErrInvalidMagnitude = errors.New("invalid energy magnitude")

// ErrMagnitudeTooLarge is returned when the glyphs for an energy quantity would
// not fit in one chat message.
var ErrMagnitudeTooLarge = errors.New("energy magnitude too large to draw")

// MaxRenderedLength bounds the glyph text drawn for one quantity. It matches
// the chat platform's message limit.
const MaxRenderedLength = 2000

// MaxMagnitude is the largest value Decompose accepts. Every glyph is at least
// one character, so anything above it can never be drawn.
const MaxMagnitude = 3 * MaxRenderedLength

// denominations is the decomposition table, largest magnitude first.
var denominations = []struct {
	magnitude int
	icon      string
}{
	{3, IconEnergy3},
	{2, IconEnergy2},
	{1, IconEnergy1},
}

// energyPattern also captures signs and fractions so that they are reported
// instead of silently matching their integer tail.
var energyPattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?) energy`)

// Formatter turns raw log text into display text.
type Formatter struct {
	icons         *IconRegistry
	entityPattern *regexp.Regexp
	entityIcons   map[string]string
}

// NewFormatter creates a Formatter using the given icons.
func NewFormatter(icons *IconRegistry) *Formatter {
	names := make([]string, 0, len(Entities))
	entityIcons := make(map[string]string, len(Entities))
	for _, e := range Entities {
		names = append(names, e.DisplayName)
		entityIcons[e.DisplayName] = e.IconName
	}
	// Longest first so a name that prefixes another never wins the alternation.
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}

	return &Formatter{
		icons:         icons,
		entityPattern: regexp.MustCompile(`^(.) (` + strings.Join(quoted, "|") + `)`),
		entityIcons:   entityIcons,
	}
}

// Format applies entity icon substitution and energy decomposition. On
// ErrInvalidMagnitude the returned text is still usable: only the energy
// quantity is left untouched.
func (f *Formatter) Format(text string) (string, error) {
	text = f.substituteEntity(text)
	return f.substituteEnergy(text)
}

// substituteEntity replaces an entity name directly after a one-character
// token at the start of the text.
func (f *Formatter) substituteEntity(text string) string {
	m := f.entityPattern.FindStringSubmatchIndex(text)
	if m == nil {
		return text
	}
	start, end := m[4], m[5]
	glyph, ok := f.icons.Glyph(f.entityIcons[text[start:end]])
	if !ok {
		return text
	}
	return text[:start] + glyph + text[end:]
}

// substituteEnergy replaces the first "<n> energy" with energy glyphs.
func (f *Formatter) substituteEnergy(text string) (string, error) {
	m := energyPattern.FindStringSubmatchIndex(text)
	if m == nil {
		return text, nil
	}

	raw := text[m[2]:m[3]]
	v, err := strconv.Atoi(raw)
	if err != nil {
		return text, fmt.Errorf("%w: %q", ErrInvalidMagnitude, raw)
	}
	if v < 0 {
		return text, fmt.Errorf("%w: %d", ErrInvalidMagnitude, v)
	}
	if err := f.checkRenderedLength(v); err != nil {
		return text, err
	}
	parts, err := Decompose(v)
	if err != nil {
		return text, err
	}
	if len(parts) == 0 {
		return text, nil
	}

	var b strings.Builder
	for _, magnitude := range parts {
		glyph, ok := f.icons.Glyph(iconFor(magnitude))
		if !ok {
			// A missing denomination cannot be drawn; keep the number.
			return text, nil
		}
		b.WriteString(glyph)
	}
	return text[:m[0]] + b.String() + text[m[1]:], nil
}

// checkRenderedLength rejects v when its glyphs would exceed MaxRenderedLength,
// without decomposing it. Missing glyphs count as one character; the caller
// keeps the number as text in that case anyway.
func (f *Formatter) checkRenderedLength(v int) error {
	glyphLen := func(icon string) int {
		if g, ok := f.icons.Glyph(icon); ok && len(g) > 0 {
			return len(g)
		}
		return 1
	}

	threes, rest := v/3, v%3
	l3 := glyphLen(IconEnergy3)
	if threes > MaxRenderedLength/l3 {
		return fmt.Errorf("%w: %d", ErrMagnitudeTooLarge, v)
	}
	total := threes * l3
	switch rest {
	case 2:
		total += glyphLen(IconEnergy2)
	case 1:
		total += glyphLen(IconEnergy1)
	}
	if total > MaxRenderedLength {
		return fmt.Errorf("%w: %d", ErrMagnitudeTooLarge, v)
	}
	return nil
}

// Decompose greedily splits v into 3s, then 2s, then 1s.
func Decompose(v int) ([]int, error) {
	if v < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMagnitude, v)
	}
	if v > MaxMagnitude {
		return nil, fmt.Errorf("%w: %d", ErrMagnitudeTooLarge, v)
	}
	var parts []int
	for _, d := range denominations {
		for v >= d.magnitude {
			parts = append(parts, d.magnitude)
			v -= d.magnitude
		}
	}
	return parts, nil
}

func iconFor(magnitude int) string {
	for _, d := range denominations {
		if d.magnitude == magnitude {
			return d.icon
		}
	}
	return ""
}
