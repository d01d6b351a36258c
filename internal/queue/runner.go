package queue

import (
	"context"

	"github.com/ytget/fetchmux/internal/model"
)

// RunResult carries a runner's non-fatal outcome details
type RunResult struct {
	// Warning is set when the output verification found something odd
	// (missing or zero-length file) after an otherwise successful run.
	Warning string

	// SizeBytes is the final output file size
	SizeBytes int64
}

// Runner executes one external transcoder invocation for a resolved request.
// Implementations call attach exactly once, as soon as the process has
// spawned, and onProgress for every merged progress snapshot. Run blocks
// until the process terminates.
type Runner interface {
	Run(ctx context.Context, req model.ResolvedRequest, outputPath string,
		attach func(model.ProcessHandle), onProgress func(model.Progress)) (RunResult, error)
}
