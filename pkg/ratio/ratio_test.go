package ratio

import (
	"errors"
	"math"
	"testing"
)

func TestTableShape(t *testing.T) {
	entries := Entries()
	if len(entries) != 40 {
		t.Fatalf("Expected 40 entries, got %d", len(entries))
	}

	for i, e := range entries {
		if e.Width%64 != 0 || e.Height%64 != 0 {
			t.Errorf("Entry %d (%s) is not a multiple of 64", i, e)
		}
		actual := float64(e.Width) / float64(e.Height)
		if math.Abs(actual-e.Ratio) > 0.01 {
			t.Errorf("Entry %d (%s) states ratio %.2f but is %.4f", i, e, e.Ratio, actual)
		}
		if i > 0 && e.Ratio <= entries[i-1].Ratio {
			t.Errorf("Entry %d ratio %.2f is not above previous %.2f", i, e.Ratio, entries[i-1].Ratio)
		}
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	entries := Entries()
	entries[0].Width = 1

	if Entries()[0].Width != 512 {
		t.Error("Mutating the returned slice changed the table")
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		requested float64
		want      Entry
	}{
		{"square", 1.0, Entry{1024, 1024, 1.0}},
		{"tallest", 0.25, Entry{512, 2048, 0.25}},
		{"widest", 4.0, Entry{2048, 512, 4.0}},
		{"below range", 0.01, Entry{512, 2048, 0.25}},
		{"above range", 100, Entry{2048, 512, 4.0}},
		{"16:9", 16.0 / 9.0, Entry{1344, 768, 1.75}},
		{"9:16", 9.0 / 16.0, Entry{768, 1344, 0.57}},
		{"4:3", 4.0 / 3.0, Entry{1152, 896, 1.29}},
		{"3:2", 1.5, Entry{1216, 832, 1.46}},
		{"tie goes to first", 1.875, Entry{1344, 768, 1.75}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.requested)
			if got != tt.want {
				t.Errorf("Match(%v) = %+v, want %+v", tt.requested, got, tt.want)
			}
		})
	}
}

func TestMatchInvalidFallsBackToDefault(t *testing.T) {
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(-1)} {
		if got := Match(r); got != Default() {
			t.Errorf("Match(%v) = %+v, want default", r, got)
		}
	}
}

func TestMatchOutOfRange(t *testing.T) {
	widest := Entry{2048, 512, 4.0}
	tallest := Entry{512, 2048, 0.25}

	tests := []struct {
		name      string
		requested float64
		want      Entry
	}{
		{"just above range", 4.5, widest},
		{"huge", 1e300, widest},
		{"above float precision of the table", 4e16, widest},
		{"positive infinity", math.Inf(1), widest},
		{"max float", math.MaxFloat64, widest},
		{"just below range", 0.2, tallest},
		{"tiny", 1e-300, tallest},
		{"smallest positive", math.SmallestNonzeroFloat64, tallest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Match(tt.requested); got != tt.want {
				t.Errorf("Match(%v) = %s, want %s", tt.requested, got, tt.want)
			}
		})
	}
}

func TestMatchDimensionsExtreme(t *testing.T) {
	e, err := MatchDimensions(math.MaxInt, 1)
	if err != nil {
		t.Fatalf("MatchDimensions failed: %v", err)
	}
	if e.String() != "2048x512" {
		t.Errorf("Expected 2048x512, got %s", e)
	}

	e, err = MatchDimensions(1, math.MaxInt)
	if err != nil {
		t.Fatalf("MatchDimensions failed: %v", err)
	}
	if e.String() != "512x2048" {
		t.Errorf("Expected 512x2048, got %s", e)
	}
}

func TestMatchAlwaysReturnsTableEntry(t *testing.T) {
	for r := 0.001; r < 20; r *= 1.07 {
		got := Match(r)
		if _, ok := Lookup(got.Width, got.Height); !ok {
			t.Fatalf("Match(%v) returned %+v which is not in the table", r, got)
		}
	}
}

func TestMatchIn(t *testing.T) {
	custom := []Entry{{1, 1, 1.0}, {3, 1, 3.0}, {2, 1, 2.0}}

	e, idx, err := MatchIn(custom, 2.0)
	if err != nil {
		t.Fatalf("MatchIn failed: %v", err)
	}
	if idx != 2 || e.Width != 2 {
		t.Errorf("Expected index 2, got %d (%+v)", idx, e)
	}

	// 2.5 is equidistant from 3.0 (index 1) and 2.0 (index 2)
	_, idx, _ = MatchIn(custom, 2.5)
	if idx != 1 {
		t.Errorf("Expected tie to resolve to index 1, got %d", idx)
	}

	if _, _, err := MatchIn(nil, 1.0); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("Expected ErrEmptyTable, got %v", err)
	}
	if _, _, err := MatchIn(custom, -2); !errors.Is(err, ErrInvalidRatio) {
		t.Errorf("Expected ErrInvalidRatio, got %v", err)
	}
	if _, _, err := MatchIn(custom, math.NaN()); !errors.Is(err, ErrInvalidRatio) {
		t.Errorf("Expected ErrInvalidRatio for NaN, got %v", err)
	}

	// unsorted table: the clamp uses the true extremes, so 1e300 lands on 3.0
	if _, idx, err := MatchIn(custom, 1e300); err != nil || idx != 1 {
		t.Errorf("Expected index 1 for 1e300, got %d (%v)", idx, err)
	}
}

func TestMatchDimensions(t *testing.T) {
	e, err := MatchDimensions(1920, 1080)
	if err != nil {
		t.Fatalf("MatchDimensions failed: %v", err)
	}
	if e.String() != "1344x768" {
		t.Errorf("Expected 1344x768, got %s", e)
	}

	if _, err := MatchDimensions(0, 1080); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Expected ErrInvalidDimensions, got %v", err)
	}
}

func TestEntryHelpers(t *testing.T) {
	e := Entry{1216, 832, 1.46}
	if e.Orientation() != Landscape {
		t.Errorf("Expected landscape, got %s", e.Orientation())
	}
	if Default().Orientation() != Square {
		t.Errorf("Expected square default, got %s", Default().Orientation())
	}
	if (Entry{512, 2048, 0.25}).Orientation() != Portrait {
		t.Error("Expected portrait")
	}

	w, h := e.LatentSize(8)
	if w != 152 || h != 104 {
		t.Errorf("Expected latent 152x104, got %dx%d", w, h)
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup(1024, 1024); !ok {
		t.Error("Expected 1024x1024 to be in the table")
	}
	if _, ok := Lookup(1000, 1000); ok {
		t.Error("Did not expect 1000x1000 in the table")
	}
}

func BenchmarkMatch(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Match(1.777)
	}
}
