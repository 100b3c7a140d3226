package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTargetValue   = 3000.0
	DefaultSourceTimeout = 30 * time.Second
)

var ErrSourceTimeout = errors.New("insight source timed out")

// ConsensusResult is the merged outcome of one run. Successful only reports
// whether TotalValue reached Target.
type ConsensusResult struct {
	Insights         []Insight         `json:"insights"`
	TotalValue       float64           `json:"total_value"`
	BySource         map[string]int    `json:"by_source"`
	AcceptedBySource map[string]int    `json:"accepted_by_source"`
	SourcesSucceeded []string          `json:"sources_succeeded"`
	SourcesFailed    map[string]string `json:"sources_failed"`
	Target           float64           `json:"target"`
	Successful       bool              `json:"successful"`
}

type AggregatorOptions struct {
	Target        float64
	SourceTimeout time.Duration
}

// Aggregator fans one business summary out to every source and merges what
// comes back.
type Aggregator struct {
	sources []Source
	filter  *Filter
	target  float64
	timeout time.Duration
	logger  *zap.Logger
}

func NewAggregator(sources []Source, filter *Filter, opts AggregatorOptions, logger *zap.Logger) *Aggregator {
	if opts.Target <= 0 {
		opts.Target = DefaultTargetValue
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = DefaultSourceTimeout
	}
	return &Aggregator{
		sources: sources,
		filter:  filter,
		target:  opts.Target,
		timeout: opts.SourceTimeout,
		logger:  logger,
	}
}

type sourceOutcome struct {
	insights []Insight
	err      error
}

// Run never fails: a source that errors, panics or times out contributes
// nothing and is listed in SourcesFailed.
func (a *Aggregator) Run(ctx context.Context, summary BusinessSummary) ConsensusResult {
	outcomes := make([]sourceOutcome, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			ins, err := a.call(gctx, src, summary)
			outcomes[i] = sourceOutcome{insights: ins, err: err}
			return nil
		})
	}
	_ = g.Wait()

	res := ConsensusResult{
		BySource:         make(map[string]int, len(a.sources)),
		AcceptedBySource: make(map[string]int, len(a.sources)),
		SourcesFailed:    make(map[string]string),
		Target:           a.target,
	}

	seen := make(map[string]struct{})
	for i, src := range a.sources {
		name := src.Name()
		out := outcomes[i]
		if out.err != nil {
			a.logger.Warn("Insight source failed", zap.String("source", name), zap.Error(out.err))
			res.SourcesFailed[name] = out.err.Error()
			res.BySource[name] = 0
			continue
		}
		res.SourcesSucceeded = append(res.SourcesSucceeded, name)
		res.BySource[name] = len(out.insights)

		for _, in := range out.insights {
			if in.Source == "" {
				in.Source = name
			}
			key := dedupKey(in)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if reason := a.filter.Reason(in); reason != Accepted {
				a.logger.Debug("Insight rejected",
					zap.String("source", name),
					zap.String("reason", string(reason)),
					zap.String("description", in.Description))
				continue
			}
			res.Insights = append(res.Insights, in)
			res.AcceptedBySource[name]++
			res.TotalValue += in.Value
		}
	}

	res.Successful = res.TotalValue >= a.target
	a.logger.Info("Consensus run complete",
		zap.Int("sources", len(a.sources)),
		zap.Int("failed", len(res.SourcesFailed)),
		zap.Int("insights", len(res.Insights)),
		zap.Float64("total_value", res.TotalValue),
		zap.Bool("successful", res.Successful))
	return res
}

// call isolates one source. The source runs in its own goroutine so a
// source that ignores ctx still cannot hold the run past the timeout.
func (a *Aggregator) call(ctx context.Context, src Source, summary BusinessSummary) ([]Insight, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan sourceOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- sourceOutcome{err: fmt.Errorf("source panicked: %v", r)}
			}
		}()
		ins, err := src.Insights(ctx, summary)
		done <- sourceOutcome{insights: ins, err: err}
	}()

	select {
	case out := <-done:
		return out.insights, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrSourceTimeout, a.timeout)
		}
		return nil, ctx.Err()
	}
}

// Repeats within one source collapse; the same claim from two sources
// counts twice.
func dedupKey(in Insight) string {
	return in.Source + "\x00" + in.Category + "\x00" + strings.ToLower(strings.TrimSpace(in.Description))
}

// LocalSource exposes the built-in detectors over a fixed snapshot as a
// consensus source.
type LocalSource struct {
	snapshot  Snapshot
	detectors []Detector
	logger    *zap.Logger
}

func NewLocalSource(s Snapshot, detectors []Detector, logger *zap.Logger) *LocalSource {
	if len(detectors) == 0 {
		detectors = DefaultDetectors()
	}
	return &LocalSource{snapshot: s, detectors: detectors, logger: logger}
}

func (l *LocalSource) Name() string { return "local" }

func (l *LocalSource) Insights(ctx context.Context, _ BusinessSummary) ([]Insight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return RunDetectors(l.snapshot, l.detectors, l.logger).Insights, nil
}
