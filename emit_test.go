package h5link

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"
)

func testPlan(t *testing.T, flags ...Flag) *LinkagePlan {
	t.Helper()
	plan, err := Resolve(flags, testCaps(func(cs *CapabilitySet) {
		cs.Parallel = true
		cs.Threadsafe = true
		cs.DeprecatedSymbols = true
	}))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return plan
}

func TestRender_GroupsMatchPlanExactly(t *testing.T) {
	tests := []struct {
		name  string
		flags []Flag
	}{
		{"core only", nil},
		{"zlib and hl", []Flag{FlagZlib, FlagHL}},
		{"everything dynamic", []Flag{FlagZlib, FlagHL, FlagThreadsafe, FlagMPIO, FlagDeprecated}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := testPlan(t, tt.flags...)

			files, err := Render(plan, "")
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}

			var groups []string
			for name := range files {
				if group, ok := groupFromFileName(name); ok {
					groups = append(groups, group)
				}
			}
			sort.Strings(groups)
			if !reflect.DeepEqual(groups, plan.SymbolGroups) {
				t.Errorf("emitted groups = %v, want plan groups %v", groups, plan.SymbolGroups)
			}
			if _, ok := files[linkageFileName]; !ok {
				t.Errorf("no %s in output", linkageFileName)
			}
		})
	}
}

func TestRender_LinkageFile(t *testing.T) {
	plan := testPlan(t, FlagZlib, FlagHL)

	files, err := Render(plan, "")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	src := string(files[linkageFileName])

	for _, want := range []string{
		"package hdf5",
		"#cgo CFLAGS: -I/opt/hdf5/include",
		"#cgo LDFLAGS: -L/opt/hdf5/lib -lhdf5_hl -lhdf5",
		"#include <hdf5.h>",
		"NOT thread-safe",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("linkage file missing %q:\n%s", want, src)
		}
	}
}

func TestRender_ThreadsafePlanDropsWarning(t *testing.T) {
	plan := testPlan(t, FlagThreadsafe)

	files, err := Render(plan, "")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if src := string(files[linkageFileName]); strings.Contains(src, "NOT thread-safe") {
		t.Error("thread-safe plan still carries the serialization warning")
	}
}

func TestRender_VersionWindowGatesSymbols(t *testing.T) {
	// H5Fstart_swmr_write appeared in 1.10.0; a 1.8.x plan must not
	// declare it.
	old := testPlan(t)
	old.Version = semver.MustParse("1.8.12")

	files, err := Render(old, "")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	core := string(files[groupFileName(GroupCore)])
	if strings.Contains(core, "H5Fstart_swmr_write") {
		t.Error("1.8.12 core file declares H5Fstart_swmr_write (since 1.10.0)")
	}

	current := testPlan(t)
	files, err = Render(current, "")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if core := string(files[groupFileName(GroupCore)]); !strings.Contains(core, "H5Fstart_swmr_write") {
		t.Error("1.14.x core file omits H5Fstart_swmr_write")
	}
}

func TestRender_GroupFileShape(t *testing.T) {
	plan := testPlan(t, FlagHL)

	files, err := Render(plan, "bindings")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	hl := string(files[groupFileName(GroupHL)])

	for _, want := range []string{
		"package bindings",
		"#include <hdf5_hl.h>",
		"import \"C\"",
		"import \"unsafe\"",
		"func LTmakeDataset(",
		"return C.H5LTmake_dataset(",
	} {
		if !strings.Contains(hl, want) {
			t.Errorf("hl file missing %q:\n%s", want, hl)
		}
	}
}

func TestEmit_WritesSortedFiles(t *testing.T) {
	plan := testPlan(t, FlagZlib)
	dir := filepath.Join(t.TempDir(), "gen")

	names, err := Emit(plan, EmitConfig{Dir: dir})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	want := []string{"h5_core.go", "h5_linkage.go", "h5_zlib.go"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Emit() = %v, want %v", names, want)
	}
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing output file %s: %v", name, err)
		}
	}
}

func TestGroupFileNameRoundTrip(t *testing.T) {
	for _, group := range SymbolGroupNames() {
		got, ok := groupFromFileName(groupFileName(group))
		if !ok || got != group {
			t.Errorf("groupFromFileName(groupFileName(%q)) = %q, %v", group, got, ok)
		}
	}
	if _, ok := groupFromFileName(linkageFileName); ok {
		t.Errorf("groupFromFileName(%q) = ok, want the linkage file excluded", linkageFileName)
	}
	if _, ok := groupFromFileName("doc.go"); ok {
		t.Error("groupFromFileName(\"doc.go\") = ok, want false")
	}
}

func TestGoSymbolName(t *testing.T) {
	tests := []struct {
		c, want string
	}{
		{"H5Fcreate", "Fcreate"},
		{"H5open", "Open"},
		{"H5LTmake_dataset", "LTmakeDataset"},
		{"H5Pset_fapl_mpio", "PsetFaplMpio"},
		{"H5TSmutex_acquire", "TSmutexAcquire"},
	}
	for _, tt := range tests {
		if got := goSymbolName(tt.c); got != tt.want {
			t.Errorf("goSymbolName(%q) = %q, want %q", tt.c, got, tt.want)
		}
	}
}
