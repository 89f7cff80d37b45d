package h5link

import (
	"testing"

	"github.com/Masterminds/semver/v3"
)

func TestCapabilitySetHas(t *testing.T) {
	cs := &CapabilitySet{Parallel: true, Deflate: true}

	tests := []struct {
		c    Capability
		want bool
	}{
		{CapParallel, true},
		{CapDeflate, true},
		{CapThreadsafe, false},
		{CapHighLevel, false},
		{CapDeprecated, false},
		{Capability(99), false},
	}
	for _, tt := range tests {
		if got := cs.Has(tt.c); got != tt.want {
			t.Errorf("Has(%s) = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestSyntheticCapabilities(t *testing.T) {
	version := semver.MustParse("1.14.6")
	cs := SyntheticCapabilities([]Flag{FlagZlib, FlagThreadsafe, FlagStatic}, version)

	if !cs.Deflate || !cs.Threadsafe {
		t.Errorf("synthetic capabilities = %+v, want deflate and threadsafe", cs)
	}
	if cs.Parallel || cs.HighLevel || cs.DeprecatedSymbols {
		t.Errorf("synthetic capabilities = %+v, carry features that were not requested", cs)
	}
	if !cs.StaticLib || cs.SharedLib {
		t.Errorf("synthetic artifacts = shared %v static %v, want static only", cs.SharedLib, cs.StaticLib)
	}
	if !cs.Version.Equal(version) {
		t.Errorf("Version = %s, want %s", cs.Version, version)
	}
}

func TestCapabilityString(t *testing.T) {
	tests := []struct {
		c    Capability
		want string
	}{
		{CapParallel, "parallel"},
		{CapThreadsafe, "threadsafe"},
		{CapDeflate, "deflate"},
		{CapHighLevel, "high-level"},
		{CapDeprecated, "deprecated-symbols"},
		{Capability(99), "Capability(99)"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
