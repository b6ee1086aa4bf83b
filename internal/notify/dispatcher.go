package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"hunnydu/internal/model"
)

// Sink delivers completion events somewhere outside the process.
type Sink interface {
	Deliver(ctx context.Context, ev model.CompletionEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev model.CompletionEvent) error

func (f SinkFunc) Deliver(ctx context.Context, ev model.CompletionEvent) error {
	return f(ctx, ev)
}

// Dispatcher fans completion events out to sinks on a background worker.
// Publish never blocks: when the queue is full the event is dropped and logged.
type Dispatcher struct {
	queue   chan model.CompletionEvent
	sinks   []Sink
	log     *zap.SugaredLogger
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(log *zap.SugaredLogger, size int, sinks ...Sink) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	return &Dispatcher{
		queue:   make(chan model.CompletionEvent, size),
		sinks:   sinks,
		log:     log,
		timeout: 30 * time.Second,
	}
}

// AddSink registers a sink. Call before Start.
func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Publish queues an event for delivery.
func (d *Dispatcher) Publish(ev model.CompletionEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warnw("dispatcher closed, dropping event", "taskID", ev.TaskID)
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.log.Warnw("notification queue full, dropping event", "taskID", ev.TaskID)
	}
}

// Start runs the delivery worker until ctx is cancelled or Close is called.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-d.queue:
				if !ok {
					return
				}
				d.deliver(ctx, ev)
			}
		}
	}()
}

// Close stops accepting events, drains what is queued and waits for the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, ev model.CompletionEvent) {
	for _, sink := range d.sinks {
		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		if err := sink.Deliver(sendCtx, ev); err != nil {
			d.log.Errorw("deliver completion", "taskID", ev.TaskID, "error", err)
		}
		cancel()
	}
}

// LogSink records completions in the application log.
func LogSink(log *zap.SugaredLogger) Sink {
	return SinkFunc(func(_ context.Context, ev model.CompletionEvent) error {
		log.Infow("task completed",
			"taskID", ev.TaskID,
			"task", ev.TaskName,
			"assignee", ev.AssigneeName,
			"nextDue", ev.NextDue.Format("2006-01-02"),
		)
		return nil
	})
}
