package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"IndexLens/internal/pipeline"
)

// RunRecord holds one pipeline run for archiving.
type RunRecord struct {
	Result *pipeline.Result
	Err    error
}

// Recorder archives pipeline runs for later analysis.
type Recorder interface {
	RecordRun(ctx context.Context, rec *RunRecord) error
	Close() error
}

// Open returns a SQL recorder for driver, or a NoopRecorder when driver is empty.
func Open(driver, dsn string, logger *zap.Logger) (Recorder, error) {
	if driver == "" {
		return NewNoopRecorder(), nil
	}
	if driver == "sqlite" {
		if dir := filepath.Dir(dsn); dir != "." && !strings.Contains(dsn, ":") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create recorder dir: %w", err)
			}
		}
	}
	return NewSQLRecorder(driver, dsn, logger)
}
