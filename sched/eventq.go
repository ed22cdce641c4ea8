package sched

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const defaultQueueDepth = 64

// Event is a deferred callback. An event that is already queued is not queued
// a second time.
type Event struct {
	Fn     func(*Event)
	Arg    any
	queued atomic.Bool
}

// NewEvent binds fn and arg.
func NewEvent(fn func(*Event), arg any) *Event {
	return &Event{Fn: fn, Arg: arg}
}

// EventQueue runs events on its own goroutine, outside the caller's context.
type EventQueue struct {
	log    *zap.Logger
	events chan *Event
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewEventQueue starts a queue. A nil logger disables logging.
func NewEventQueue(depth int, log *zap.Logger) *EventQueue {
	if depth < 1 {
		depth = defaultQueueDepth
	}
	if log == nil {
		log = zap.NewNop()
	}
	q := &EventQueue{
		log:    log,
		events: make(chan *Event, depth),
		done:   make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

var (
	defaultQueue     *EventQueue
	defaultQueueOnce sync.Once
)

// Default returns the process-wide queue, started on first use.
func Default() *EventQueue {
	defaultQueueOnce.Do(func() {
		defaultQueue = NewEventQueue(defaultQueueDepth, nil)
	})
	return defaultQueue
}

// Put queues ev unless it is already pending. It never blocks: when the
// queue is full the event is dropped and Put returns false.
func (q *EventQueue) Put(ev *Event) bool {
	if ev == nil || ev.Fn == nil {
		return false
	}
	if !ev.queued.CompareAndSwap(false, true) {
		return true
	}
	select {
	case <-q.done:
		ev.queued.Store(false)
		return false
	default:
	}
	select {
	case q.events <- ev:
		return true
	default:
		ev.queued.Store(false)
		q.log.Warn("sched: event queue full, dropping event")
		return false
	}
}

// Stop discards pending events and waits for the running one to finish.
func (q *EventQueue) Stop() {
	q.once.Do(func() { close(q.done) })
	q.wg.Wait()
}

func (q *EventQueue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case ev := <-q.events:
			ev.queued.Store(false)
			q.dispatch(ev)
		}
	}
}

func (q *EventQueue) dispatch(ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("sched: event panicked", zap.Any("panic", r))
		}
	}()
	ev.Fn(ev)
}
