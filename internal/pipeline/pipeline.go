// Package pipeline runs fetch, download, reshape and join as one explicit call.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"IndexLens/internal/collector"
	"IndexLens/internal/membership"
	"IndexLens/internal/model"
	"IndexLens/internal/transform"
)

// Stage identifies a pipeline step.
type Stage int

const (
	StageFetch Stage = iota + 1
	StageDownload
	StageReshape
	StageJoin
)

func (s Stage) String() string {
	switch s {
	case StageFetch:
		return "fetch"
	case StageDownload:
		return "download"
	case StageReshape:
		return "reshape"
	case StageJoin:
		return "join"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// action is the user-facing description used in banners.
func (s Stage) action() string {
	switch s {
	case StageFetch:
		return "fetching index membership"
	case StageDownload:
		return "downloading price history"
	case StageReshape:
		return "processing price data"
	case StageJoin:
		return "merging company info"
	}
	return "running " + s.String()
}

// StageError reports which step failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return e.Stage.String() + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Banner is the message shown to the user for a failed run.
func (e *StageError) Banner() string {
	return fmt.Sprintf("Error %s: %v", e.Stage.action(), e.Err)
}

// MembershipSource provides the membership table.
type MembershipSource interface {
	Fetch(ctx context.Context) (*model.Table, error)
}

// PriceSource downloads price history for a symbol set.
type PriceSource interface {
	Download(ctx context.Context, symbols []string) (*collector.Download, error)
	Name() string
}

// Result holds everything a run produced. On failure the fields of the
// stages that completed are set and the rest are nil.
type Result struct {
	RunID      string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Members    *model.Table
	Symbols    []string
	Download   *collector.Download
	Tidy       *model.TidyTable
	Final      *model.TidyTable
}

// Failed returns the symbols whose download failed.
func (r *Result) Failed() map[string]error {
	if r == nil || r.Download == nil {
		return nil
	}
	return r.Download.Failed
}

// Pipeline wires the sources used by Run.
type Pipeline struct {
	Membership MembershipSource
	Prices     PriceSource
	Logger     *zap.Logger
	now        func() time.Time
}

// New creates a Pipeline.
func New(members MembershipSource, prices PriceSource, logger *zap.Logger) *Pipeline {
	return &Pipeline{Membership: members, Prices: prices, Logger: logger, now: time.Now}
}

// Run executes one pass. The returned Result is never nil; the error, when
// set, is a *StageError.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		Source:    p.Prices.Name(),
		StartedAt: p.now(),
	}
	log := p.Logger.With(zap.String("run_id", res.RunID))
	log.Info("pipeline started", zap.String("source", res.Source))

	fail := func(stage Stage, err error) (*Result, error) {
		res.FinishedAt = p.now()
		se := &StageError{Stage: stage, Err: err}
		log.Error("pipeline failed", zap.Stringer("stage", stage), zap.Error(err))
		return res, se
	}

	members, err := p.Membership.Fetch(ctx)
	if err != nil {
		return fail(StageFetch, err)
	}
	if members == nil {
		return fail(StageFetch, membership.ErrNoTable)
	}
	res.Members = members

	symbols, err := membership.Symbols(members)
	if err != nil {
		return fail(StageFetch, err)
	}
	res.Symbols = symbols

	dl, err := p.Prices.Download(ctx, symbols)
	if err != nil {
		return fail(StageDownload, err)
	}
	if dl == nil || dl.Table == nil {
		return fail(StageDownload, collector.ErrDownload)
	}
	res.Download = dl

	tidy, err := transform.Reshape(dl.Table)
	if err != nil {
		return fail(StageReshape, err)
	}
	res.Tidy = tidy

	final, err := transform.Join(tidy, members)
	if err != nil {
		return fail(StageJoin, err)
	}
	res.Final = final
	res.FinishedAt = p.now()

	log.Info("pipeline finished",
		zap.Int("symbols", len(symbols)),
		zap.Int("failed", len(dl.Failed)),
		zap.Int("rows", final.Len()),
		zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)))
	return res, nil
}

// Banner returns the user-facing message for any run error.
func Banner(err error) string {
	if err == nil {
		return ""
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Banner()
	}
	return "Error: " + err.Error()
}
