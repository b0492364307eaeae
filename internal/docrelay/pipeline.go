package docrelay

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

const defaultPollInterval = 300 * time.Second

type PipelineOptions struct {
	Source       DocumentSource
	Sink         DocumentSink
	Staging      *Staging
	StateBackend StateBackend
	Logger       *zap.Logger
	PollInterval time.Duration
	// MaxDeliveryAttempts bounds per-file delivery retries; once exceeded
	// the file moves to the dead-letter directory. 0 retries forever.
	MaxDeliveryAttempts int
}

// Pipeline runs the fetch and forward stages over a shared staging
// directory. It is single-threaded: one cycle runs fetch to completion,
// then forward, then sleeps. The watermark and per-file delivery attempt
// counts are persisted through the state backend after every change.
type Pipeline struct {
	source       DocumentSource
	sink         DocumentSink
	staging      *Staging
	stateBackend StateBackend
	logger       *zap.Logger
	pollInterval time.Duration
	maxAttempts  int

	tracker  *WatermarkTracker
	attempts map[string]int
}

func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Source == nil || opts.Sink == nil || opts.Staging == nil {
		return nil, ErrInvalidInput
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	maxAttempts := opts.MaxDeliveryAttempts
	if maxAttempts < 0 {
		maxAttempts = 0
	}

	p := &Pipeline{
		source:       opts.Source,
		sink:         opts.Sink,
		staging:      opts.Staging,
		stateBackend: opts.StateBackend,
		logger:       logger,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		tracker:      NewWatermarkTracker(),
		attempts:     map[string]int{},
	}
	if err := p.loadState(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) Watermark() int64 {
	return p.tracker.Watermark()
}

// PollOnce performs one fetch cycle. Source failures skip the cycle
// without touching the watermark or staging; a download failure stops
// the cycle at the failed id so it is retried next poll.
func (p *Pipeline) PollOnce(ctx context.Context) {
	ids, err := p.source.ListDocumentIDs(ctx)
	if err != nil {
		p.logger.Warn("listing documents failed, skipping poll", zap.Error(err))
		return
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if !p.tracker.Primed() {
		if len(ids) == 0 {
			return
		}
		maxVisible := ids[len(ids)-1]
		p.tracker.Bootstrap(maxVisible)
		p.logger.Info("watermark bootstrapped, backlog skipped",
			zap.Int64("watermark", maxVisible))
		p.saveState()
		return
	}

	for _, id := range ids {
		if !p.tracker.ShouldProcess(id) {
			continue
		}
		if ctx.Err() != nil {
			p.logger.Info("poll interrupted", zap.Int64("documentID", id))
			return
		}
		p.logger.Info("downloading document", zap.Int64("documentID", id))
		content, err := p.source.DownloadDocument(ctx, id)
		if err != nil {
			p.logger.Warn("download failed, stopping poll",
				zap.Int64("documentID", id), zap.Error(err))
			return
		}
		name := StagedName(id)
		if err := p.staging.Store(name, content); err != nil {
			p.logger.Warn("staging write failed, stopping poll",
				zap.Int64("documentID", id), zap.String("file", name), zap.Error(err))
			return
		}
		p.tracker.Advance(id)
		p.saveState()
	}
}

// FlushOnce delivers every staged file to the sink, deleting each local
// copy only after confirmed delivery. Files that fail delivery stay in
// place for the next cycle; once MaxDeliveryAttempts is exceeded a file
// moves to the dead-letter directory instead.
func (p *Pipeline) FlushOnce(ctx context.Context) {
	names, err := p.staging.List()
	if err != nil {
		p.logger.Warn("staging scan failed", zap.Error(err))
		return
	}
	for _, name := range names {
		if ctx.Err() != nil {
			p.logger.Info("flush interrupted", zap.String("file", name))
			return
		}
		content, err := p.staging.Read(name)
		if err != nil {
			p.logger.Warn("staged file unreadable", zap.String("file", name), zap.Error(err))
			continue
		}
		p.logger.Info("delivering document", zap.String("file", name))
		if err := p.sink.Deliver(ctx, name, content); err != nil {
			p.logger.Warn("delivery failed, keeping file staged",
				zap.String("file", name), zap.Error(err))
			p.recordDeliveryFailure(name)
			continue
		}
		if _, tracked := p.attempts[name]; tracked {
			delete(p.attempts, name)
			p.saveState()
		}
		if err := p.staging.Remove(name); err != nil {
			p.logger.Warn("removing delivered file failed, it will be redelivered",
				zap.String("file", name), zap.Error(err))
		}
	}
}

// Run executes the fetch/forward cycle until ctx is cancelled. A signal
// on wake (normally the staging watcher) triggers an extra flush between
// ticks; polling stays on the fixed interval.
func (p *Pipeline) Run(ctx context.Context, wake <-chan struct{}) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()
	for {
		p.PollOnce(ctx)
		p.FlushOnce(ctx)
		waiting := true
		for waiting {
			select {
			case <-ctx.Done():
				p.logger.Info("shutdown requested, stopping pipeline")
				return
			case <-ticker.C:
				waiting = false
			case _, ok := <-wake:
				if !ok {
					wake = nil
					continue
				}
				p.FlushOnce(ctx)
			}
		}
	}
}

func (p *Pipeline) recordDeliveryFailure(name string) {
	p.attempts[name]++
	if p.maxAttempts > 0 && p.attempts[name] >= p.maxAttempts {
		if err := p.staging.DeadLetter(name); err != nil {
			p.logger.Warn("dead-lettering failed, file stays staged",
				zap.String("file", name), zap.Error(err))
			p.saveState()
			return
		}
		p.logger.Warn("delivery attempts exhausted, file dead-lettered",
			zap.String("file", name), zap.Int("attempts", p.attempts[name]))
		delete(p.attempts, name)
	}
	p.saveState()
}

func (p *Pipeline) loadState() error {
	if p.stateBackend == nil {
		return nil
	}
	state, err := p.stateBackend.Load()
	if err != nil {
		return err
	}
	state = state.normalize()
	p.tracker = RestoreWatermarkTracker(state.Watermark)
	p.attempts = state.DeliveryAttempts
	return nil
}

func (p *Pipeline) saveState() {
	if p.stateBackend == nil {
		return
	}
	state := &relayState{
		Watermark:        p.tracker.Watermark(),
		DeliveryAttempts: p.attempts,
	}
	if err := p.stateBackend.Save(state); err != nil {
		p.logger.Warn("saving relay state failed", zap.Error(err))
	}
}
