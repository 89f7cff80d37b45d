package h5link

import (
	"fmt"
	"strings"
)

// String returns a human-readable summary of the discovered instance.
func (cs *CapabilitySet) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "HDF5: %s\n", cs.Version)
	if cs.Prefix != "" {
		fmt.Fprintf(&b, "Prefix: %s\n", cs.Prefix)
	}
	if cs.Source != "" {
		fmt.Fprintf(&b, "Metadata: %s\n", cs.Source)
	}
	b.WriteString("\n")

	b.WriteString("Capabilities:\n")
	writeYesNo(&b, "  parallel", cs.Parallel)
	writeYesNo(&b, "  threadsafe", cs.Threadsafe)
	writeYesNo(&b, "  deflate", cs.Deflate)
	writeYesNo(&b, "  high-level", cs.HighLevel)
	writeYesNo(&b, "  deprecated-symbols", cs.DeprecatedSymbols)
	b.WriteString("\n")

	b.WriteString("Artifacts:\n")
	writeYesNo(&b, "  shared", cs.SharedLib)
	writeYesNo(&b, "  static", cs.StaticLib)

	return b.String()
}

// String returns a human-readable summary of the resolved plan.
func (p *LinkagePlan) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Link mode: %s\n", p.Mode)
	fmt.Fprintf(&b, "Version: %s\n", p.Version)
	fmt.Fprintf(&b, "Symbol groups: %s\n", strings.Join(p.SymbolGroups, ", "))
	if len(p.IncludeDirs) > 0 {
		fmt.Fprintf(&b, "Include dirs: %s\n", strings.Join(p.IncludeDirs, ", "))
	}
	if len(p.SearchPaths) > 0 {
		fmt.Fprintf(&b, "Search paths: %s\n", strings.Join(p.SearchPaths, ", "))
	}
	fmt.Fprintf(&b, "Libraries: %s\n", strings.Join(p.Libraries, ", "))
	writeYesNo(&b, "Threadsafe", p.ThreadsafeSatisfied)
	if !p.ThreadsafeSatisfied {
		b.WriteString("  (consumer must serialize all calls itself)\n")
	}

	return b.String()
}

func writeYesNo(b *strings.Builder, name string, v bool) {
	status := "no"
	if v {
		status = "yes"
	}
	fmt.Fprintf(b, "%s: %s\n", name, status)
}
