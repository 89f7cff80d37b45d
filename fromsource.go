package h5link

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// FromSource derives the feature flags a consuming package needs by
// scanning its Go sources for references to gated native symbols
// (C.H5Pset_fapl_mpio implies mpio, and so on).
//
// Output is deduplicated and stably ordered, directly consumable by
// [Close] and [Resolve]. Core symbols need no flag and contribute
// nothing; unparseable source fails the scan rather than being skipped.
func FromSource(dir string) ([]Flag, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("from source: empty path")
	}

	used := make(map[string]struct{})
	fset := token.NewFileSet()

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		collectNativeRefs(file, used)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("from source %q: %w", dir, err)
	}

	flags := flagsForSymbols(used)
	slices.Sort(flags)
	return flags, nil
}

// collectNativeRefs records every C.H5xxx selector in the file.
func collectNativeRefs(file *ast.File, used map[string]struct{}) {
	ast.Inspect(file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		ident, ok := sel.X.(*ast.Ident)
		if !ok || ident.Name != "C" {
			return true
		}
		if strings.HasPrefix(sel.Sel.Name, "H5") {
			used[sel.Sel.Name] = struct{}{}
		}
		return true
	})
}
