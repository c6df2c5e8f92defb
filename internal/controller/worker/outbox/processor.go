package outbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mgrimsby/property-ops/internal/entity"
	"github.com/mgrimsby/property-ops/internal/usecase"
	"github.com/mgrimsby/property-ops/pkg/logger"
	"github.com/mgrimsby/property-ops/pkg/types/errs"
)

// Processor drains the outbox on a fixed interval. One recurring worker per
// process; cross-process safety rests on the conditional claim, not on any
// distributed lock.
type Processor struct {
	outbox   usecase.OutboxUseCase
	handlers map[string]Handler
	logger   logger.Interface

	pollInterval   time.Duration
	tickTimeout    time.Duration
	handlerTimeout time.Duration
	batchSize      int
	maxRetries     int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	outbox usecase.OutboxUseCase,
	l logger.Interface,
	pollInterval time.Duration,
	tickTimeout time.Duration,
	handlerTimeout time.Duration,
	batchSize int,
	maxRetries int,
	handlers ...Handler,
) *Processor {
	p := &Processor{
		outbox:         outbox,
		handlers:       make(map[string]Handler, len(handlers)),
		logger:         l,
		pollInterval:   pollInterval,
		tickTimeout:    tickTimeout,
		handlerTimeout: handlerTimeout,
		batchSize:      batchSize,
		maxRetries:     maxRetries,
	}

	for _, h := range handlers {
		p.handlers[h.EventType()] = h
	}

	return p
}

func (p *Processor) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("Processor - Start - worker already started")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				tickCtx, tickCancel := context.WithTimeout(p.ctx, p.tickTimeout)
				sent, err := p.RunTick(tickCtx)
				tickCancel()
				if err != nil {
					p.logger.Error(err, "Processor - Start - p.RunTick")

					continue
				}
				if sent > 0 {
					p.logger.Info("outbox tick: %d events succeeded", sent)
				}
			}
		}
	}()

	return nil
}

// RunTick claims and dispatches one batch of due events. Exported so the
// state machine can be driven synchronously without waiting on the timer.
// Returns the number of events that reached succeeded in this tick.
func (p *Processor) RunTick(ctx context.Context) (int, error) {
	events, err := p.outbox.GetDueEvents(ctx, p.batchSize, time.Now())
	if err != nil {
		return 0, fmt.Errorf("Processor - RunTick - p.outbox.GetDueEvents: %w", err)
	}

	succeeded := 0
	for _, event := range events {
		// outcomes are independent; one event's failure never aborts the tick
		if p.processEvent(ctx, event) {
			succeeded++
		}
	}

	return succeeded, nil
}

func (p *Processor) processEvent(ctx context.Context, event *entity.OutboxEvent) bool {
	// claim before any handler runs, so a crash mid-handler leaves the event
	// visibly in flight rather than silently pending
	claimed, err := p.outbox.ClaimProcessing(ctx, event.ID)
	if err != nil {
		p.logger.Error(err, "Processor - processEvent - p.outbox.ClaimProcessing")

		return false
	}
	if !claimed {
		// another worker got there first
		return false
	}

	handler, ok := p.handlers[event.EventType]

	var handleErr error
	if !ok {
		handleErr = fmt.Errorf("Processor - processEvent: %w: %s", errs.ErrUnknownEventType, event.EventType)
	} else {
		handlerCtx, handlerCancel := context.WithTimeout(ctx, p.handlerTimeout)
		handleErr = handler.Handle(handlerCtx, event)
		handlerCancel()
	}

	if handleErr == nil {
		err = p.outbox.MarkSucceeded(ctx, event)
		if err != nil {
			p.logger.Error(err, "Processor - processEvent - p.outbox.MarkSucceeded")

			return false
		}

		return true
	}

	// attempt that just failed, counted in
	attempt := event.RetryCount + 1

	if attempt < p.maxRetries {
		nextRetryAt := time.Now().Add(backoffDelay(event.RetryCount))

		err = p.outbox.ScheduleRetry(ctx, event, handleErr.Error(), nextRetryAt)
		if err != nil {
			p.logger.Error(err, "Processor - processEvent - p.outbox.ScheduleRetry")
		}

		return false
	}

	// retries exhausted; terminal
	err = p.outbox.MarkFailed(ctx, event, handleErr.Error())
	if err != nil {
		p.logger.Error(err, "Processor - processEvent - p.outbox.MarkFailed")

		return false
	}

	if ok {
		handler.OnExhausted(ctx, event, handleErr.Error())
	}

	return false
}

func (p *Processor) Shutdown(ctx context.Context) error {
	if !p.started.Load() {
		return nil
	}

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	}
}
