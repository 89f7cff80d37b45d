package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/leodido/structcli"
	"github.com/scigolib/h5link"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"
)

// Build metadata injected via ldflags. When built without ldflags
// (e.g., plain `go build`), these remain at their zero values and the
// version command omits them gracefully.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	root := &cobra.Command{
		Use:   "h5link",
		Short: "Capability-gated linkage resolution for native HDF5",
		Long: `h5link resolves how a Go program links against the native HDF5 library.

It discovers an installed HDF5 (or builds one from source), verifies the
requested feature flags against the capabilities compiled into that build,
and emits the cgo declarations and linker directives for exactly the
symbol groups the resolved plan exposes.`,
		SilenceUsage: true,
	}

	root.AddCommand(probeCmd())
	root.AddCommand(resolveCmd())
	root.AddCommand(emitCmd())
	root.AddCommand(buildCmd())
	root.AddCommand(deriveCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// ProbeOptions defines flags for the probe subcommand.
type ProbeOptions struct {
	Dir  string `flag:"dir" flagshort:"d" flagdescr:"Extra installation prefix to try first"`
	JSON bool   `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
}

func (o *ProbeOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func probeCmd() *cobra.Command {
	opts := &ProbeOptions{}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Discover the installed native HDF5 and its capabilities",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			caps, err := h5link.ProbeWith(probeOptions(opts.Dir)...)
			if err != nil {
				return err
			}

			if opts.JSON {
				return printJSON(caps)
			}

			fmt.Print(caps)
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// ResolveOptions defines flags for the resolve subcommand.
type ResolveOptions struct {
	Features featureFlags `flag:"features" flagshort:"f" flagdescr:"Feature flags to enable (see available flags above)" flagcustom:"true"`
	Project  string       `flag:"project" flagshort:"p" flagdescr:"Project file to read flags from (default h5link.toml if present)"`
	Dir      string       `flag:"dir" flagshort:"d" flagdescr:"Extra installation prefix to try first"`
	JSON     bool         `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
}

func (o *ResolveOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *ResolveOptions) DefineFeatures(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*featureFlags)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *ResolveOptions) DecodeFeatures(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parseFeatureFlags(s)
}

func resolveCmd() *cobra.Command {
	opts := &ResolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve feature flags against the discovered library",
		Long:  resolveLongDescription(),
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			flags, probeOpts, err := gatherFlags(opts.Features, opts.Project, opts.Dir)
			if err != nil {
				return err
			}

			caps, err := h5link.ProbeWith(probeOpts...)
			if err != nil {
				return err
			}

			plan, err := h5link.Resolve(flags, caps)
			if err != nil {
				return reportResolveError(err, opts.JSON)
			}

			if opts.JSON {
				return printJSON(plan)
			}
			fmt.Print(plan)
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// EmitOptions defines flags for the emit subcommand.
type EmitOptions struct {
	Features featureFlags `flag:"features" flagshort:"f" flagdescr:"Feature flags to enable" flagcustom:"true"`
	Project  string       `flag:"project" flagshort:"p" flagdescr:"Project file to read flags from"`
	Dir      string       `flag:"dir" flagshort:"d" flagdescr:"Extra installation prefix to try first"`
	Out      string       `flag:"out" flagshort:"o" flagdescr:"Output directory for generated declarations" flagrequired:"true"`
	Package  string       `flag:"package" flagdescr:"Package name for generated files"`
}

func (o *EmitOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *EmitOptions) DefineFeatures(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*featureFlags)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *EmitOptions) DecodeFeatures(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parseFeatureFlags(s)
}

func emitCmd() *cobra.Command {
	opts := &EmitOptions{}

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Resolve and emit cgo declarations for the selected symbol groups",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			flags, probeOpts, err := gatherFlags(opts.Features, opts.Project, opts.Dir)
			if err != nil {
				return err
			}

			plan, err := h5link.Run(c.Context(), h5link.PipelineConfig{
				Flags:        flags,
				ProbeOptions: probeOpts,
				Emit: &h5link.EmitConfig{
					Dir:     opts.Out,
					Package: opts.Package,
				},
			})
			if err != nil {
				return reportResolveError(err, false)
			}

			fmt.Printf("emitted %s (groups: %s) to %s\n",
				plan.Mode, strings.Join(plan.SymbolGroups, ", "), opts.Out)
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// BuildOptions defines flags for the build subcommand.
type BuildOptions struct {
	Features featureFlags `flag:"features" flagshort:"f" flagdescr:"Feature flags to configure the native build with" flagcustom:"true"`
	Source   string       `flag:"source" flagshort:"s" flagdescr:"Unpacked HDF5 source tree" flagrequired:"true"`
	Prefix   string       `flag:"prefix" flagdescr:"Installation prefix for built artifacts" flagrequired:"true"`
	Out      string       `flag:"out" flagshort:"o" flagdescr:"Also emit declarations into this directory"`
	JSON     bool         `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
}

func (o *BuildOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *BuildOptions) DefineFeatures(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*featureFlags)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *BuildOptions) DecodeFeatures(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parseFeatureFlags(s)
}

func buildCmd() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the native library from source and resolve static linkage",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			flags := append([]h5link.Flag{h5link.FlagStatic}, opts.Features...)

			cfg := h5link.PipelineConfig{
				Flags: flags,
				Build: &h5link.BuildConfig{
					SourceDir:  opts.Source,
					InstallDir: opts.Prefix,
					Logger:     log.New(os.Stderr),
				},
			}
			if opts.Out != "" {
				cfg.Emit = &h5link.EmitConfig{Dir: opts.Out}
			}

			plan, err := h5link.Run(c.Context(), cfg)
			if err != nil {
				return reportResolveError(err, opts.JSON)
			}

			if opts.JSON {
				return printJSON(plan)
			}
			fmt.Print(plan)
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func deriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive <dir>",
		Short: "Derive required feature flags from a consuming package's sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			flags, err := h5link.FromSource(args[0])
			if err != nil {
				return err
			}
			if len(flags) == 0 {
				fmt.Println("no gated symbols referenced; core only")
				return nil
			}

			names := make([]string, 0, len(flags))
			for _, f := range flags {
				names = append(names, f.String())
			}
			fmt.Println(strings.Join(names, ","))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tool and discovered library version",
		RunE: func(c *cobra.Command, args []string) error {
			if version != "" {
				fmt.Printf("h5link %s", version)
				if commit != "" {
					fmt.Printf(" (%s)", commit)
				}
				if date != "" {
					fmt.Printf(" built %s", date)
				}
				fmt.Println()
			} else {
				fmt.Println("h5link (dev)")
			}

			caps, err := h5link.ProbeWith()
			if err != nil {
				fmt.Println("HDF5: not found")
				return nil
			}
			fmt.Printf("HDF5: %s (%s)\n", caps.Version, caps.Prefix)
			return nil
		},
	}
}

// gatherFlags merges explicit flags with the project file, explicit
// winning. With neither, an existing h5link.toml in the working
// directory is picked up.
func gatherFlags(explicit featureFlags, project, dir string) ([]h5link.Flag, []h5link.ProbeOption, error) {
	probeOpts := probeOptions(dir)

	if len(explicit) > 0 {
		return explicit, probeOpts, nil
	}

	path := project
	if path == "" {
		if _, err := os.Stat(h5link.ProjectFileName); err != nil {
			return explicit, probeOpts, nil
		}
		path = h5link.ProjectFileName
	}

	pf, err := h5link.LoadProjectFile(path)
	if err != nil {
		return nil, nil, err
	}
	flags, err := pf.Flags()
	if err != nil {
		return nil, nil, err
	}
	return flags, append(probeOpts, pf.ProbeOptions()...), nil
}

func probeOptions(dir string) []h5link.ProbeOption {
	if dir == "" {
		return nil
	}
	return []h5link.ProbeOption{h5link.WithSearchPaths(dir)}
}

// reportResolveError prints capability mismatches the way operators
// need them: naming the flag and the missing capability, not a generic
// failure.
func reportResolveError(err error, asJSON bool) error {
	var mismatch *h5link.CapabilityMismatchError
	if errors.As(err, &mismatch) {
		if asJSON {
			return printJSON(map[string]any{
				"ok":      false,
				"flag":    mismatch.Flag.String(),
				"missing": mismatch.Missing.String(),
				"reason":  mismatch.Error(),
			})
		}
		fmt.Fprintf(os.Stderr, "FAIL: %s\n", mismatch)
		os.Exit(1)
	}
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func availableFlags() string {
	return strings.Join(h5link.FlagNames(), ", ")
}

func resolveLongDescription() string {
	return fmt.Sprintf(`Resolve the requested feature flags against the discovered native library.
Exits with code 0 and prints the linkage plan when every flag's required
capability is present, 1 on any mismatch.

Available flags:
  %s`, availableFlags())
}

type featureFlags []h5link.Flag

var flagIdentifierMap = func() map[h5link.Flag][]string {
	ids := make(map[h5link.Flag][]string, len(h5link.FlagValues()))
	for _, f := range h5link.FlagValues() {
		ids[f] = []string{f.String()}
	}
	return ids
}()

func (r *featureFlags) String() string {
	names := make([]string, 0, len(*r))
	for _, f := range *r {
		names = append(names, f.String())
	}

	return strings.Join(names, ",")
}

func (r *featureFlags) Set(input string) error {
	flags, err := parseFeatureFlags(input)
	if err != nil {
		return err
	}

	*r = append(*r, flags...)
	return nil
}

func (r *featureFlags) Type() string {
	return "flag"
}

func parseFeatureFlags(input string) (featureFlags, error) {
	if strings.TrimSpace(input) == "" {
		return featureFlags{}, nil
	}

	parts := strings.Split(input, ",")
	flags := make(featureFlags, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}

		var flag h5link.Flag
		enumValue := enumflag.New(&flag, "h5link.Flag", flagIdentifierMap, enumflag.EnumCaseInsensitive)
		if err := enumValue.Set(name); err != nil {
			return nil, fmt.Errorf("unknown feature flag: %q (available: %s)", name, availableFlags())
		}

		flags = append(flags, flag)
	}

	return flags, nil
}
