package h5link

import (
	"context"
	"errors"
	"slices"
)

// PipelineConfig drives one full resolution run.
type PipelineConfig struct {
	// Flags is the requested feature set.
	Flags []Flag
	// ProbeOptions configure library discovery on the dynamic path.
	ProbeOptions []ProbeOption
	// Build configures the source build; required when the closed flag
	// set contains static, ignored otherwise.
	Build *BuildConfig
	// Emit, when non-nil, writes the generated declarations after the
	// plan resolves.
	Emit *EmitConfig
}

// ErrStaticNeedsBuild is returned when the static flag is requested
// without a build configuration.
var ErrStaticNeedsBuild = errors.New("static flag requires a source build configuration")

// Run executes the whole resolution pipeline:
//
//	flags closed -> capabilities known (probe or source build) ->
//	plan resolved -> declarations emitted
//
// There are no backward transitions: any failure aborts the run.
// Nothing is retried, because probing or building an unchanged
// environment again yields the same result.
func Run(ctx context.Context, cfg PipelineConfig) (*LinkagePlan, error) {
	closed, err := Close(cfg.Flags...)
	if err != nil {
		return nil, err
	}

	var caps *CapabilitySet
	if slices.Contains(closed, FlagStatic) {
		if cfg.Build == nil {
			return nil, ErrStaticNeedsBuild
		}
		build := *cfg.Build
		build.Flags = closed
		caps, err = SourceBuild(ctx, build)
	} else {
		caps, err = ProbeWith(cfg.ProbeOptions...)
	}
	if err != nil {
		return nil, err
	}

	plan, err := Resolve(closed, caps)
	if err != nil {
		return nil, err
	}

	if cfg.Emit != nil {
		if _, err := Emit(plan, *cfg.Emit); err != nil {
			return nil, err
		}
	}
	return plan, nil
}
