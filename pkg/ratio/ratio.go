// Package ratio holds the fixed table of width/height buckets a generation model was
// trained on and the nearest-ratio matcher over it.
package ratio

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidRatio is returned for NaN or non-positive ratios
	ErrInvalidRatio = errors.New("ratio must be a positive number")
	// ErrEmptyTable is returned when matching against a table with no entries
	ErrEmptyTable = errors.New("aspect ratio table is empty")
	// ErrInvalidDimensions is returned when a width or height is not positive
	ErrInvalidDimensions = errors.New("width and height must be positive")
)

// Entry is one bucket of the table. Ratio is the published width/height value,
// rounded to two decimals, and is what matching compares against.
type Entry struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Ratio  float64 `json:"ratio"`
}

// Orientation names the shape of an entry
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Square    Orientation = "square"
	Landscape Orientation = "landscape"
)

// String returns the entry as WxH
func (e Entry) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// Orientation reports whether the entry is portrait, square or landscape
func (e Entry) Orientation() Orientation {
	switch {
	case e.Width < e.Height:
		return Portrait
	case e.Width > e.Height:
		return Landscape
	default:
		return Square
	}
}

// LatentSize returns the entry's width and height divided by factor
func (e Entry) LatentSize(factor int) (int, int) {
	if factor <= 0 {
		factor = 1
	}
	return e.Width / factor, e.Height / factor
}

// table is ordered by ascending ratio and never mutated.
var table = [...]Entry{
	{512, 2048, 0.25}, {512, 1984, 0.26}, {512, 1920, 0.27}, {512, 1856, 0.28},
	{576, 1792, 0.32}, {576, 1728, 0.33}, {576, 1664, 0.35}, {640, 1600, 0.4},
	{640, 1536, 0.42}, {704, 1472, 0.48}, {704, 1408, 0.5}, {704, 1344, 0.52},
	{768, 1344, 0.57}, {768, 1280, 0.6}, {832, 1216, 0.68}, {832, 1152, 0.72},
	{896, 1152, 0.78}, {896, 1088, 0.82}, {960, 1088, 0.88}, {960, 1024, 0.94},
	{1024, 1024, 1.0}, {1024, 960, 1.07}, {1088, 960, 1.13}, {1088, 896, 1.21},
	{1152, 896, 1.29}, {1152, 832, 1.38}, {1216, 832, 1.46}, {1280, 768, 1.67},
	{1344, 768, 1.75}, {1408, 704, 2.0}, {1472, 704, 2.09}, {1536, 640, 2.4},
	{1600, 640, 2.5}, {1664, 576, 2.89}, {1728, 576, 3.0}, {1792, 576, 3.11},
	{1856, 512, 3.62}, {1920, 512, 3.75}, {1984, 512, 3.88}, {2048, 512, 4.0},
}

// defaultIndex points at the 1024x1024 entry
const defaultIndex = 20

// Size is the number of entries in the table
const Size = len(table)

// Entries returns a copy of the table in ascending ratio order
func Entries() []Entry {
	out := make([]Entry, len(table))
	copy(out, table[:])
	return out
}

// Default returns the square 1024x1024 entry used when no ratio can be resolved
func Default() Entry {
	return table[defaultIndex]
}

// Match returns the table entry whose ratio is closest to requested. Ties go to
// the entry that comes first in the table. Ratios beyond either end of the
// table, +Inf included, match the entry at that end. NaN or non-positive input
// yields Default.
func Match(requested float64) Entry {
	e, _, err := MatchIn(table[:], requested)
	if err != nil {
		return Default()
	}
	return e
}

// MatchIn scans entries for the ratio closest to requested and returns the entry
// together with its index. requested is first clamped into the range of the
// entries' ratios, so huge values cannot collapse every distance to the same
// float.
func MatchIn(entries []Entry, requested float64) (Entry, int, error) {
	if len(entries) == 0 {
		return Entry{}, -1, ErrEmptyTable
	}
	if !valid(requested) {
		return Entry{}, -1, fmt.Errorf("%w: %v", ErrInvalidRatio, requested)
	}

	lo, hi := entries[0].Ratio, entries[0].Ratio
	for _, e := range entries[1:] {
		lo, hi = math.Min(lo, e.Ratio), math.Max(hi, e.Ratio)
	}
	requested = math.Max(lo, math.Min(hi, requested))

	best := 0
	minDiff := math.Abs(entries[0].Ratio - requested)
	for i := 1; i < len(entries); i++ {
		// strict comparison keeps the earlier entry on ties
		if diff := math.Abs(entries[i].Ratio - requested); diff < minDiff {
			minDiff = diff
			best = i
		}
	}
	return entries[best], best, nil
}

// MatchDimensions matches the ratio width/height against the table
func MatchDimensions(width, height int) (Entry, error) {
	if width <= 0 || height <= 0 {
		return Entry{}, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}
	return Match(float64(width) / float64(height)), nil
}

// Lookup finds the entry with exactly the given width and height
func Lookup(width, height int) (Entry, bool) {
	for _, e := range table {
		if e.Width == width && e.Height == height {
			return e, true
		}
	}
	return Entry{}, false
}

// valid accepts any positive ratio, +Inf included; NaN fails the comparison
func valid(r float64) bool {
	return r > 0
}
