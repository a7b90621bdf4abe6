// Package realtime fans row changes out to scoped subscribers and bridges
// them onto WebSocket sessions.
package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/worktrail/worktrail/internal/metrics"
)

// Dispatcher channel buffer sizes and limits.
const (
	publishBuffer        = 256
	registerBuffer       = 64
	DefaultSubscriberBuf = 64
	maxSubscribers       = 1000
)

// Errors returned by Subscribe.
var (
	ErrEmptyScope       = errors.New("subscription scope requires a project or account")
	ErrDispatcherClosed = errors.New("dispatcher is shut down")
	ErrTooManySubs      = errors.New("subscriber limit reached")
)

// Dispatcher delivers published events to matching subscriptions.
// The subscriber set is owned by the Run goroutine; delivery never blocks on
// a slow subscriber.
type Dispatcher struct {
	subs       map[*Subscription]struct{}
	register   chan *Subscription
	unregister chan *Subscription
	publish    chan Event
	shutdown   chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
	regMu      sync.Mutex
	closed     bool // guarded by regMu
	count      atomic.Int64
	dropped    atomic.Uint64
	log        *logrus.Logger
	seq        *EventSequence
	bufSize    int
}

// NewDispatcher creates a Dispatcher. bufSize bounds each subscriber's
// pending events; values below 1 use DefaultSubscriberBuf.
func NewDispatcher(log *logrus.Logger, bufSize int) *Dispatcher {
	if bufSize < 1 {
		bufSize = DefaultSubscriberBuf
	}

	return &Dispatcher{
		subs:       make(map[*Subscription]struct{}),
		register:   make(chan *Subscription, registerBuffer),
		unregister: make(chan *Subscription, registerBuffer),
		publish:    make(chan Event, publishBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
		seq:        NewEventSequence(),
		bufSize:    bufSize,
	}
}

// Run is the dispatch loop. It exits when Shutdown is called or ctx is
// cancelled, closing every remaining subscription.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			d.stop()

			return
		case <-d.shutdown:
			d.stop()

			return

		case sub := <-d.register:
			if len(d.subs) >= maxSubscribers {
				d.log.Warn("realtime.subscriber_limit")
				close(sub.ch)

				continue
			}

			d.subs[sub] = struct{}{}
			d.setCount()
			d.log.WithField("total", len(d.subs)).Debug("realtime.subscribed")

		case sub := <-d.unregister:
			if _, ok := d.subs[sub]; ok {
				delete(d.subs, sub)
				close(sub.ch)
				d.seq.Forget(sub.seqKey)
			}

			d.setCount()
			d.log.WithField("total", len(d.subs)).Debug("realtime.unsubscribed")

		case ev := <-d.publish:
			d.deliver(&ev)
		}
	}
}

func (d *Dispatcher) deliver(ev *Event) {
	for sub := range d.subs {
		if !sub.scope.Matches(ev) {
			continue
		}

		out := *ev
		out.ID = d.seq.Next(sub.seqKey)

		select {
		case sub.ch <- out:
		default:
			sub.dropped.Add(1)
			d.dropped.Add(1)
			metrics.RealtimeDropped.Inc()
		}
	}
}

// stop refuses further registrations, then closes every subscription,
// including ones still queued on register.
func (d *Dispatcher) stop() {
	d.stopOnce.Do(func() { close(d.shutdown) })

	d.regMu.Lock()
	d.closed = true
	d.regMu.Unlock()

	d.closeAll()
}

func (d *Dispatcher) closeAll() {
	for sub := range d.subs {
		close(sub.ch)
		delete(d.subs, sub)
	}

	// Registrations queued behind the shutdown signal.
	for {
		select {
		case sub := <-d.register:
			close(sub.ch)
		default:
			d.setCount()

			return
		}
	}
}

func (d *Dispatcher) setCount() {
	d.count.Store(int64(len(d.subs)))
	metrics.RealtimeSubscribers.Set(float64(len(d.subs)))
}

// Subscribe registers interest in events matching scope. The returned
// subscription's channel is closed after Unsubscribe or shutdown.
func (d *Dispatcher) Subscribe(scope Scope) (*Subscription, error) {
	if scope.Empty() {
		return nil, ErrEmptyScope
	}

	if d.count.Load() >= maxSubscribers {
		return nil, ErrTooManySubs
	}

	sub := &Subscription{
		scope: scope,
		id:    uuid.New(),
		ch:    make(chan Event, d.bufSize),
		d:     d,
	}
	sub.seqKey = scope.key() + "#" + sub.id.String()

	// A send made while holding regMu lands before stop marks the
	// dispatcher closed, so the final drain in closeAll sees it.
	d.regMu.Lock()
	defer d.regMu.Unlock()

	if d.closed {
		return nil, ErrDispatcherClosed
	}

	select {
	case d.register <- sub:
		return sub, nil
	case <-d.shutdown:
		return nil, ErrDispatcherClosed
	}
}

// Publish hands an event to the dispatch loop. It never blocks; when the
// loop is saturated the event is dropped.
func (d *Dispatcher) Publish(ev Event) {
	select {
	case d.publish <- ev:
	default:
		d.dropped.Add(1)
		metrics.RealtimeDropped.Inc()
		d.log.WithField("table", ev.Table).Warn("realtime.publish_dropped")
	}
}

// SubscriberCount returns the number of active subscriptions.
func (d *Dispatcher) SubscriberCount() int {
	return int(d.count.Load())
}

// Dropped returns the number of events dropped since start.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Shutdown stops the loop and waits until it has closed all subscriptions
// or ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.stopOnce.Do(func() { close(d.shutdown) })

	select {
	case <-d.done:
	case <-ctx.Done():
	}
}
