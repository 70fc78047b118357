package adminauth

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// loginDispatcher delivers login-history records to the recorder on a
// background goroutine. Dispatch never blocks the login path: when the
// buffer is full the record is dropped and counted. Recorder failures are
// logged here and go no further.
type loginDispatcher struct {
	recorder  LoginRecorder
	log       logrus.FieldLogger
	ch        chan LoginRecord
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newLoginDispatcher(recorder LoginRecorder, buffer int, log logrus.FieldLogger) *loginDispatcher {
	if recorder == nil {
		return nil
	}
	if buffer <= 0 {
		buffer = 1
	}

	d := &loginDispatcher{
		recorder: recorder,
		log:      log,
		ch:       make(chan LoginRecord, buffer),
		done:     make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *loginDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case rec := <-d.ch:
			d.deliver(rec)
		case <-d.done:
			for {
				select {
				case rec := <-d.ch:
					d.deliver(rec)
				default:
					return
				}
			}
		}
	}
}

func (d *loginDispatcher) deliver(rec LoginRecord) {
	if err := d.recorder.Record(context.Background(), rec); err != nil && d.log != nil {
		d.log.WithError(err).WithField("username", rec.Username).Warn("login history write failed")
	}
}

// Dispatch enqueues a record without waiting. A nil dispatcher (no recorder
// configured) accepts and discards records.
func (d *loginDispatcher) Dispatch(rec LoginRecord) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- rec:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
}

// Dropped reports how many records were discarded due to a full buffer.
func (d *loginDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Close drains queued records and stops the worker.
func (d *loginDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}
