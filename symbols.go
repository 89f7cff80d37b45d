package h5link

import "github.com/Masterminds/semver/v3"

// Symbol-group tags. Each gated group corresponds 1:1 to a feature
// flag; the core group is always exposed.
const (
	GroupCore       = "core"
	GroupHL         = "hl"
	GroupMPIO       = "mpio"
	GroupZlib       = "zlib"
	GroupDeprecated = "deprecated"
	GroupThreadsafe = "threadsafe"
)

// Param is one C parameter of a native entry point.
type Param struct {
	Name string
	Type string // C type, mapped to a cgo type at emission
}

// Symbol describes one native entry point: its C signature and the
// version window it exists in. Signatures must match the native ABI for
// the resolved version exactly; a symbol outside its window is omitted
// from emission.
type Symbol struct {
	Name   string
	Ret    string // C return type
	Params []Param
	Since  string // first version providing this signature, "" = always
	Until  string // version that removed/changed it, "" = never
}

// SymbolGroup is a named subset of the native exports gated by one
// feature flag.
type SymbolGroup struct {
	Name string
	// Headers to include in the generated cgo preamble, in order.
	Headers []string
	Symbols []Symbol
}

// symbolGroups are the shipped declaration tables. The selection is the
// low-level surface consumers gate on; signatures follow the public
// HDF5 headers for the supported version range.
var symbolGroups = map[string]SymbolGroup{
	GroupCore: {
		Name:    GroupCore,
		Headers: []string{"hdf5.h"},
		Symbols: []Symbol{
			{Name: "H5open", Ret: "herr_t"},
			{Name: "H5close", Ret: "herr_t"},
			{Name: "H5garbage_collect", Ret: "herr_t"},
			{Name: "H5get_libversion", Ret: "herr_t", Params: []Param{
				{"majnum", "unsigned *"}, {"minnum", "unsigned *"}, {"relnum", "unsigned *"},
			}},
			{Name: "H5Fcreate", Ret: "hid_t", Params: []Param{
				{"filename", "const char *"}, {"flags", "unsigned"}, {"fcpl_id", "hid_t"}, {"fapl_id", "hid_t"},
			}},
			{Name: "H5Fopen", Ret: "hid_t", Params: []Param{
				{"filename", "const char *"}, {"flags", "unsigned"}, {"fapl_id", "hid_t"},
			}},
			{Name: "H5Fflush", Ret: "herr_t", Params: []Param{
				{"object_id", "hid_t"}, {"scope", "H5F_scope_t"},
			}},
			{Name: "H5Fclose", Ret: "herr_t", Params: []Param{{"file_id", "hid_t"}}},
			{Name: "H5Gcreate2", Ret: "hid_t", Params: []Param{
				{"loc_id", "hid_t"}, {"name", "const char *"}, {"lcpl_id", "hid_t"}, {"gcpl_id", "hid_t"}, {"gapl_id", "hid_t"},
			}},
			{Name: "H5Gopen2", Ret: "hid_t", Params: []Param{
				{"loc_id", "hid_t"}, {"name", "const char *"}, {"gapl_id", "hid_t"},
			}},
			{Name: "H5Gclose", Ret: "herr_t", Params: []Param{{"group_id", "hid_t"}}},
			{Name: "H5Dcreate2", Ret: "hid_t", Params: []Param{
				{"loc_id", "hid_t"}, {"name", "const char *"}, {"type_id", "hid_t"}, {"space_id", "hid_t"},
				{"lcpl_id", "hid_t"}, {"dcpl_id", "hid_t"}, {"dapl_id", "hid_t"},
			}},
			{Name: "H5Dopen2", Ret: "hid_t", Params: []Param{
				{"loc_id", "hid_t"}, {"name", "const char *"}, {"dapl_id", "hid_t"},
			}},
			{Name: "H5Dread", Ret: "herr_t", Params: []Param{
				{"dset_id", "hid_t"}, {"mem_type_id", "hid_t"}, {"mem_space_id", "hid_t"},
				{"file_space_id", "hid_t"}, {"dxpl_id", "hid_t"}, {"buf", "void *"},
			}},
			{Name: "H5Dwrite", Ret: "herr_t", Params: []Param{
				{"dset_id", "hid_t"}, {"mem_type_id", "hid_t"}, {"mem_space_id", "hid_t"},
				{"file_space_id", "hid_t"}, {"dxpl_id", "hid_t"}, {"buf", "const void *"},
			}},
			{Name: "H5Dclose", Ret: "herr_t", Params: []Param{{"dset_id", "hid_t"}}},
			{Name: "H5Screate_simple", Ret: "hid_t", Params: []Param{
				{"rank", "int"}, {"dims", "const hsize_t *"}, {"maxdims", "const hsize_t *"},
			}},
			{Name: "H5Sclose", Ret: "herr_t", Params: []Param{{"space_id", "hid_t"}}},
			{Name: "H5Acreate2", Ret: "hid_t", Params: []Param{
				{"loc_id", "hid_t"}, {"attr_name", "const char *"}, {"type_id", "hid_t"}, {"space_id", "hid_t"},
				{"acpl_id", "hid_t"}, {"aapl_id", "hid_t"},
			}},
			{Name: "H5Aread", Ret: "herr_t", Params: []Param{
				{"attr_id", "hid_t"}, {"type_id", "hid_t"}, {"buf", "void *"},
			}},
			{Name: "H5Awrite", Ret: "herr_t", Params: []Param{
				{"attr_id", "hid_t"}, {"type_id", "hid_t"}, {"buf", "const void *"},
			}},
			{Name: "H5Aclose", Ret: "herr_t", Params: []Param{{"attr_id", "hid_t"}}},
			{Name: "H5Pcreate", Ret: "hid_t", Params: []Param{{"cls_id", "hid_t"}}},
			{Name: "H5Pclose", Ret: "herr_t", Params: []Param{{"plist_id", "hid_t"}}},
			{Name: "H5Tcopy", Ret: "hid_t", Params: []Param{{"type_id", "hid_t"}}},
			{Name: "H5Tclose", Ret: "herr_t", Params: []Param{{"type_id", "hid_t"}}},
			// Single-writer/multiple-reader entry points arrived in 1.10.
			{Name: "H5Fstart_swmr_write", Ret: "herr_t", Params: []Param{{"file_id", "hid_t"}}, Since: "1.10.0"},
		},
	},
	GroupHL: {
		Name:    GroupHL,
		Headers: []string{"hdf5.h", "hdf5_hl.h"},
		Symbols: []Symbol{
			{Name: "H5LTmake_dataset", Ret: "herr_t", Params: []Param{
				{"loc_id", "hid_t"}, {"dset_name", "const char *"}, {"rank", "int"},
				{"dims", "const hsize_t *"}, {"type_id", "hid_t"}, {"buffer", "const void *"},
			}},
			{Name: "H5LTread_dataset", Ret: "herr_t", Params: []Param{
				{"loc_id", "hid_t"}, {"dset_name", "const char *"}, {"type_id", "hid_t"}, {"buffer", "void *"},
			}},
			{Name: "H5LTfind_dataset", Ret: "htri_t", Params: []Param{
				{"loc_id", "hid_t"}, {"name", "const char *"},
			}},
			{Name: "H5LTset_attribute_string", Ret: "herr_t", Params: []Param{
				{"loc_id", "hid_t"}, {"obj_name", "const char *"}, {"attr_name", "const char *"}, {"attr_data", "const char *"},
			}},
			{Name: "H5DSattach_scale", Ret: "herr_t", Params: []Param{
				{"did", "hid_t"}, {"dsid", "hid_t"}, {"idx", "unsigned"},
			}},
			{Name: "H5DSset_label", Ret: "herr_t", Params: []Param{
				{"did", "hid_t"}, {"idx", "unsigned"}, {"label", "const char *"},
			}},
		},
	},
	GroupMPIO: {
		Name:    GroupMPIO,
		Headers: []string{"mpi.h", "hdf5.h"},
		Symbols: []Symbol{
			{Name: "H5Pset_fapl_mpio", Ret: "herr_t", Params: []Param{
				{"fapl_id", "hid_t"}, {"comm", "MPI_Comm"}, {"info", "MPI_Info"},
			}},
			{Name: "H5Pget_fapl_mpio", Ret: "herr_t", Params: []Param{
				{"fapl_id", "hid_t"}, {"comm", "MPI_Comm *"}, {"info", "MPI_Info *"},
			}},
			{Name: "H5Pset_dxpl_mpio", Ret: "herr_t", Params: []Param{
				{"dxpl_id", "hid_t"}, {"xfer_mode", "H5FD_mpio_xfer_t"},
			}},
			{Name: "H5Fset_mpi_atomicity", Ret: "herr_t", Params: []Param{
				{"file_id", "hid_t"}, {"flag", "hbool_t"},
			}, Since: "1.8.9"},
		},
	},
	GroupZlib: {
		Name:    GroupZlib,
		Headers: []string{"hdf5.h"},
		Symbols: []Symbol{
			{Name: "H5Pset_deflate", Ret: "herr_t", Params: []Param{
				{"plist_id", "hid_t"}, {"level", "unsigned"},
			}},
			{Name: "H5Zfilter_avail", Ret: "htri_t", Params: []Param{
				{"id", "H5Z_filter_t"},
			}},
		},
	},
	GroupDeprecated: {
		Name:    GroupDeprecated,
		Headers: []string{"stdio.h", "hdf5.h"},
		Symbols: []Symbol{
			{Name: "H5Dopen1", Ret: "hid_t", Params: []Param{
				{"loc_id", "hid_t"}, {"name", "const char *"},
			}},
			{Name: "H5Dcreate1", Ret: "hid_t", Params: []Param{
				{"loc_id", "hid_t"}, {"name", "const char *"}, {"type_id", "hid_t"}, {"space_id", "hid_t"}, {"dcpl_id", "hid_t"},
			}},
			{Name: "H5Gcreate1", Ret: "hid_t", Params: []Param{
				{"loc_id", "hid_t"}, {"name", "const char *"}, {"size_hint", "size_t"},
			}},
			{Name: "H5Gopen1", Ret: "hid_t", Params: []Param{
				{"loc_id", "hid_t"}, {"name", "const char *"},
			}},
			{Name: "H5Eprint1", Ret: "herr_t", Params: []Param{
				{"stream", "FILE *"},
			}},
		},
	},
	GroupThreadsafe: {
		Name:    GroupThreadsafe,
		Headers: []string{"hdf5.h"},
		Symbols: []Symbol{
			// The lock-count signatures arrived in 1.12; older builds
			// expose no public mutex API.
			{Name: "H5TSmutex_acquire", Ret: "herr_t", Params: []Param{
				{"lock_count", "unsigned"},
			}, Since: "1.12.0"},
			{Name: "H5TSmutex_release", Ret: "herr_t", Params: []Param{
				{"lock_count", "unsigned *"},
			}, Since: "1.12.0"},
			{Name: "H5TSmutex_get_attempt_count", Ret: "herr_t", Params: []Param{
				{"count", "unsigned *"},
			}, Since: "1.12.0"},
		},
	},
}

// SymbolGroupNames returns all known group tags in a stable order.
func SymbolGroupNames() []string {
	return []string{GroupCore, GroupHL, GroupMPIO, GroupZlib, GroupDeprecated, GroupThreadsafe}
}

// inWindow reports whether a symbol exists at the given native version.
func (s Symbol) inWindow(v *semver.Version) bool {
	if s.Since != "" {
		if v.LessThan(semver.MustParse(s.Since)) {
			return false
		}
	}
	if s.Until != "" {
		if !v.LessThan(semver.MustParse(s.Until)) {
			return false
		}
	}
	return true
}

// flagsForSymbols maps a set of referenced native symbol names to the
// feature flags whose groups gate them. Core symbols need no flag;
// names outside every table are ignored (the core headers expose far
// more than the tables enumerate).
func flagsForSymbols(names map[string]struct{}) []Flag {
	var flags []Flag
	seen := make(map[Flag]struct{})
	for _, groupName := range SymbolGroupNames() {
		if groupName == GroupCore {
			continue
		}
		group := symbolGroups[groupName]
		for _, sym := range group.Symbols {
			if _, used := names[sym.Name]; !used {
				continue
			}
			f, ok := flagForGroup(groupName)
			if !ok {
				continue
			}
			if _, dup := seen[f]; !dup {
				seen[f] = struct{}{}
				flags = append(flags, f)
			}
			break
		}
	}
	return flags
}
