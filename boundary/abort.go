package boundary

import (
	"log/slog"
	"os"
	"sync"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/ports"
)

// AbortExitCode is the process exit status after an unrecoverable failure
// (EX_SOFTWARE).
const AbortExitCode = 70

var _ ports.Aborter = (*ProcessAborter)(nil)

// ProcessAborter terminates the hosting process. Deferred functions do not
// run and no cleanup is attempted beyond writing the log record.
type ProcessAborter struct {
	logger *slog.Logger
	exit   func(code int)
}

// NewProcessAborter creates an aborter that logs to logger before exiting.
// A nil logger uses slog.Default().
func NewProcessAborter(logger *slog.Logger) *ProcessAborter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessAborter{logger: logger, exit: os.Exit}
}

// Abort logs detail and exits with AbortExitCode. It does not return.
func (a *ProcessAborter) Abort(detail *entities.ErrorDetail) {
	a.logger.Error("stdexport: unrecoverable failure, aborting", detail.LogAttrs()...)
	if len(detail.Stack) > 0 {
		_, _ = os.Stderr.Write(detail.Stack)
	}
	a.exit(AbortExitCode)
}

// RecordingAborter records aborts instead of terminating. It lets tests
// observe the abort path in-process.
type RecordingAborter struct {
	mu      sync.Mutex
	details []*entities.ErrorDetail
}

// Abort records detail and returns.
func (r *RecordingAborter) Abort(detail *entities.ErrorDetail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.details = append(r.details, detail)
}

// Aborts returns the recorded failures.
func (r *RecordingAborter) Aborts() []*entities.ErrorDetail {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.ErrorDetail, len(r.details))
	copy(out, r.details)
	return out
}

// Aborted reports whether any abort was recorded.
func (r *RecordingAborter) Aborted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.details) > 0
}
