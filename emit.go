package h5link

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultEmitPackage is the package name generated declaration files
// carry unless the caller chooses another.
const DefaultEmitPackage = "hdf5"

// EmitConfig controls where generated declarations land.
type EmitConfig struct {
	// Dir is the output directory; created if missing.
	Dir string
	// Package is the generated package name; defaults to
	// [DefaultEmitPackage].
	Package string
}

// Emit renders the declarations for the plan and writes them into
// cfg.Dir. It returns the written file names, sorted. All decisions
// were made during resolution; emission is a pure transformation of the
// plan into source text.
func Emit(plan *LinkagePlan, cfg EmitConfig) ([]string, error) {
	files, err := Render(plan, cfg.Package)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if err := os.WriteFile(filepath.Join(cfg.Dir, name), files[name], 0o644); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// Render produces the generated source files for the plan, keyed by
// file name: one linkage file carrying the #cgo directives, and one
// declarations file per exposed symbol group. The set of groups named
// in the output equals plan.SymbolGroups exactly.
func Render(plan *LinkagePlan, pkg string) (map[string][]byte, error) {
	if pkg == "" {
		pkg = DefaultEmitPackage
	}

	files := make(map[string][]byte, len(plan.SymbolGroups)+1)

	linkage, err := renderLinkageFile(plan, pkg)
	if err != nil {
		return nil, err
	}
	files[linkageFileName] = linkage

	for _, group := range plan.SymbolGroups {
		sg, ok := symbolGroups[group]
		if !ok {
			return nil, fmt.Errorf("render: no declaration table for symbol group %q", group)
		}
		src, err := renderGroupFile(plan, pkg, sg)
		if err != nil {
			return nil, err
		}
		files[groupFileName(group)] = src
	}
	return files, nil
}

const linkageFileName = "h5_linkage.go"

func groupFileName(group string) string {
	return "h5_" + group + ".go"
}

// groupFromFileName inverts groupFileName; ok=false for the linkage
// file or anything else.
func groupFromFileName(name string) (string, bool) {
	if name == linkageFileName {
		return "", false
	}
	group, found := strings.CutPrefix(name, "h5_")
	if !found {
		return "", false
	}
	group, found = strings.CutSuffix(group, ".go")
	if !found {
		return "", false
	}
	return group, true
}

// renderLinkageFile emits the file holding the #cgo compiler and linker
// directives derived from the plan.
func renderLinkageFile(plan *LinkagePlan, pkg string) ([]byte, error) {
	var b bytes.Buffer

	fmt.Fprintf(&b, "// Code generated by h5link. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "// Package %s exposes the native HDF5 C API surface selected by the\n", pkg)
	fmt.Fprintf(&b, "// resolved linkage plan: version %s, %s linkage, symbol groups %s.\n",
		plan.Version, plan.Mode, strings.Join(plan.SymbolGroups, ", "))
	if !plan.ThreadsafeSatisfied {
		fmt.Fprintf(&b, "//\n// The linked library is NOT thread-safe: callers must serialize all\n")
		fmt.Fprintf(&b, "// entry points through a single lock themselves.\n")
	}
	fmt.Fprintf(&b, "package %s\n\n", pkg)

	b.WriteString("/*\n")
	if len(plan.IncludeDirs) > 0 {
		fmt.Fprintf(&b, "#cgo CFLAGS:%s\n", dirFlags(" -I", plan.IncludeDirs))
	}
	var ld strings.Builder
	ld.WriteString(dirFlags(" -L", plan.SearchPaths))
	for _, lib := range plan.Libraries {
		ld.WriteString(" -l" + lib)
	}
	fmt.Fprintf(&b, "#cgo LDFLAGS:%s\n", ld.String())
	b.WriteString("#include <hdf5.h>\n*/\n")
	b.WriteString("import \"C\"\n")

	return format.Source(b.Bytes())
}

func dirFlags(flag string, dirs []string) string {
	var b strings.Builder
	for _, dir := range dirs {
		b.WriteString(flag + dir)
	}
	return b.String()
}

// renderGroupFile emits the Go-callable declarations for one symbol
// group, omitting symbols outside the resolved version's window.
func renderGroupFile(plan *LinkagePlan, pkg string, sg SymbolGroup) ([]byte, error) {
	var decls bytes.Buffer
	needUnsafe := false

	for _, sym := range sg.Symbols {
		if !sym.inWindow(plan.Version) {
			continue
		}

		goParams := make([]string, 0, len(sym.Params))
		callArgs := make([]string, 0, len(sym.Params))
		for _, p := range sym.Params {
			goType, err := cgoType(p.Type)
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", sym.Name, err)
			}
			if goType == "unsafe.Pointer" {
				needUnsafe = true
			}
			goParams = append(goParams, p.Name+" "+goType)
			callArgs = append(callArgs, p.Name)
		}
		ret, err := cgoType(sym.Ret)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", sym.Name, err)
		}

		goName := goSymbolName(sym.Name)
		fmt.Fprintf(&decls, "// %s wraps %s.\n", goName, sym.Name)
		fmt.Fprintf(&decls, "func %s(%s) %s {\n", goName, strings.Join(goParams, ", "), ret)
		fmt.Fprintf(&decls, "\treturn C.%s(%s)\n}\n\n", sym.Name, strings.Join(callArgs, ", "))
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "// Code generated by h5link. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	b.WriteString("/*\n")
	for _, header := range sg.Headers {
		fmt.Fprintf(&b, "#include <%s>\n", header)
	}
	b.WriteString("*/\n")
	b.WriteString("import \"C\"\n\n")
	if needUnsafe {
		b.WriteString("import \"unsafe\"\n\n")
	}
	b.Write(decls.Bytes())

	return format.Source(b.Bytes())
}

// cgoTypes maps the C types the declaration tables use to their cgo
// spellings. An unmapped type is a table defect, not a user error.
var cgoTypes = map[string]string{
	"herr_t":           "C.herr_t",
	"hid_t":            "C.hid_t",
	"htri_t":           "C.htri_t",
	"hbool_t":          "C.hbool_t",
	"hsize_t":          "C.hsize_t",
	"const hsize_t *":  "*C.hsize_t",
	"const char *":     "*C.char",
	"unsigned":         "C.uint",
	"unsigned *":       "*C.uint",
	"int":              "C.int",
	"size_t":           "C.size_t",
	"void *":           "unsafe.Pointer",
	"const void *":     "unsafe.Pointer",
	"FILE *":           "*C.FILE",
	"MPI_Comm":         "C.MPI_Comm",
	"MPI_Comm *":       "*C.MPI_Comm",
	"MPI_Info":         "C.MPI_Info",
	"MPI_Info *":       "*C.MPI_Info",
	"H5F_scope_t":      "C.H5F_scope_t",
	"H5FD_mpio_xfer_t": "C.H5FD_mpio_xfer_t",
	"H5Z_filter_t":     "C.H5Z_filter_t",
}

func cgoType(cType string) (string, error) {
	if goType, ok := cgoTypes[cType]; ok {
		return goType, nil
	}
	return "", fmt.Errorf("no cgo mapping for C type %q", cType)
}

// goSymbolName derives the exported wrapper name from the native one:
// strip the H5 prefix, split on underscores, capitalize each part.
// H5Fcreate -> Fcreate, H5open -> Open, H5LTmake_dataset -> LTmakeDataset.
func goSymbolName(cName string) string {
	name := strings.TrimPrefix(cName, "H5")
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}
