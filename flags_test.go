package h5link

import (
	"errors"
	"slices"
	"testing"
)

func TestClose_IdempotentForAllSubsets(t *testing.T) {
	all := FlagValues()

	for mask := 0; mask < 1<<len(all); mask++ {
		var subset []Flag
		for i, f := range all {
			if mask&(1<<i) != 0 {
				subset = append(subset, f)
			}
		}

		closed, err := Close(subset...)
		if err != nil {
			t.Fatalf("Close(%v) error = %v", subset, err)
		}
		again, err := Close(closed...)
		if err != nil {
			t.Fatalf("Close(closed) error = %v", err)
		}
		if !slices.Equal(closed, again) {
			t.Errorf("closure of %v not idempotent: %v != %v", subset, closed, again)
		}
	}
}

func TestClose_DeduplicatesAndSorts(t *testing.T) {
	closed, err := Close(FlagDeprecated, FlagZlib, FlagZlib, FlagHL)
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := []Flag{FlagZlib, FlagHL, FlagDeprecated}
	if !slices.Equal(closed, want) {
		t.Errorf("Close() = %v, want %v", closed, want)
	}
}

func TestCloseOver_TransitiveImplication(t *testing.T) {
	// The shipped table has no implications; exercise the mechanism
	// with a synthetic one: zlib -> hl -> deprecated.
	table := map[Flag]flagSpec{
		FlagZlib:       {implies: []Flag{FlagHL}},
		FlagHL:         {implies: []Flag{FlagDeprecated}},
		FlagDeprecated: {},
	}

	closed, err := closeOver(table, []Flag{FlagZlib})
	if err != nil {
		t.Fatalf("closeOver() error = %v", err)
	}

	want := []Flag{FlagZlib, FlagHL, FlagDeprecated}
	if !slices.Equal(closed, want) {
		t.Errorf("closeOver() = %v, want %v", closed, want)
	}
}

func TestCloseOver_CyclicImplicationTerminates(t *testing.T) {
	table := map[Flag]flagSpec{
		FlagZlib: {implies: []Flag{FlagHL}},
		FlagHL:   {implies: []Flag{FlagZlib}},
	}

	closed, err := closeOver(table, []Flag{FlagZlib})
	if err != nil {
		t.Fatalf("closeOver() error = %v", err)
	}
	if len(closed) != 2 {
		t.Errorf("closeOver() = %v, want both flags exactly once", closed)
	}
}

func TestClose_UnknownFlag(t *testing.T) {
	_, err := Close(Flag(42))
	var unknown *UnknownFlagError
	if !errors.As(err, &unknown) {
		t.Fatalf("Close(Flag(42)) error = %v, want *UnknownFlagError", err)
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Flag
		wantErr bool
	}{
		{"single", "mpio", []Flag{FlagMPIO}, false},
		{"multiple", "zlib,hl,static", []Flag{FlagZlib, FlagHL, FlagStatic}, false},
		{"case insensitive with spaces", " ZLIB , Threadsafe ", []Flag{FlagZlib, FlagThreadsafe}, false},
		{"empty", "  ", nil, false},
		{"trailing comma", "hl,", []Flag{FlagHL}, false},
		{"unknown", "hl,frobnicate", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlags(tt.input)
			if tt.wantErr {
				var unknown *UnknownFlagError
				if !errors.As(err, &unknown) {
					t.Fatalf("ParseFlags(%q) error = %v, want *UnknownFlagError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFlags(%q) error = %v", tt.input, err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseFlags(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequiredCapabilities(t *testing.T) {
	reqs := requiredCapabilities([]Flag{FlagZlib, FlagMPIO, FlagStatic})

	if len(reqs) != 2 {
		t.Fatalf("got %d requirements, want 2 (static has none)", len(reqs))
	}
	if reqs[0].flag != FlagZlib || reqs[0].capability != CapDeflate {
		t.Errorf("reqs[0] = {%v %v}, want {zlib deflate}", reqs[0].flag, reqs[0].capability)
	}
	if reqs[1].flag != FlagMPIO || reqs[1].capability != CapParallel {
		t.Errorf("reqs[1] = {%v %v}, want {mpio parallel}", reqs[1].flag, reqs[1].capability)
	}
}

func TestFlagNames_CoverAllValues(t *testing.T) {
	names := FlagNames()
	if len(names) != len(FlagValues()) {
		t.Fatalf("FlagNames() has %d entries, want %d", len(names), len(FlagValues()))
	}
	for _, name := range names {
		if name == "" {
			t.Error("empty flag name")
		}
	}
	if Flag(42).String() != "Flag(42)" {
		t.Errorf("Flag(42).String() = %q", Flag(42).String())
	}
}

func TestSymbolGroupMapping_RoundTrips(t *testing.T) {
	for _, f := range FlagValues() {
		group := symbolGroupFor(f)
		if f == FlagStatic {
			if group != "" {
				t.Errorf("static maps to group %q, want none", group)
			}
			continue
		}
		back, ok := flagForGroup(group)
		if !ok || back != f {
			t.Errorf("flagForGroup(%q) = %v, %v; want %v", group, back, ok, f)
		}
	}
}
