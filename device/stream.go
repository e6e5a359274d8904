// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package device

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"
)

// task is one unit of stream work. Tasks marked always run even after the
// stream has faulted; they carry bookkeeping such as releasing scratch memory
// that must happen whatever the kernels did.
type task struct {
	run    func() error
	always bool
}

// Stream is an ordered queue of device work. Work enqueued on one stream
// runs in enqueue order, one item at a time; streams are unordered with
// respect to each other unless joined with events.
type Stream struct {
	dev *Device
	id  int

	mu      sync.Mutex
	cond    *sync.Cond
	q       *queue.Queue
	pending int
	fault   error
	closed  bool
	done    chan struct{}
}

func newStream(d *Device, id int) *Stream {
	s := &Stream{
		dev:  d,
		id:   id,
		q:    queue.New(),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.worker()
	return s
}

// ID returns the stream number, unique per device.
func (s *Stream) ID() int {
	return s.id
}

// Device returns the device the stream belongs to.
func (s *Stream) Device() *Device {
	return s.dev
}

func (s *Stream) worker() {
	for {
		s.mu.Lock()
		for s.q.Length() == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.q.Length() == 0 {
			s.mu.Unlock()
			close(s.done)
			return
		}
		t := s.q.Remove().(task)
		skip := s.fault != nil && !t.always
		s.mu.Unlock()

		var err error
		if !skip {
			err = runTask(t)
		}

		s.mu.Lock()
		if err != nil && s.fault == nil {
			s.fault = err
		}
		s.pending--
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

func runTask(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrLaunchFailure, r)
		}
	}()
	return t.run()
}

func (s *Stream) push(t task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.q.Add(t)
	s.pending++
	s.cond.Broadcast()
	return nil
}

// Enqueue appends fn to the stream. An error returned or a panic raised by fn
// faults the stream: later ordinary work is skipped until Synchronize.
func (s *Stream) Enqueue(fn func() error) error {
	return s.push(task{run: fn})
}

// Always appends fn to the stream. fn runs in stream order even if the
// stream has faulted.
func (s *Stream) Always(fn func()) error {
	return s.push(task{run: func() error {
		fn()
		return nil
	}, always: true})
}

// Memset fills n bytes at p with value, in stream order.
func (s *Stream) Memset(p Ptr, value byte, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: memset of %d bytes", ErrInvalidValue, n)
	}
	if err := checkCopy(p, n); err != nil {
		return err
	}
	return s.Enqueue(func() error {
		b := View[byte](p, n)
		for i := range b {
			b[i] = value
		}
		return nil
	})
}

// Query reports whether all work enqueued so far has completed.
func (s *Stream) Query() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending == 0
}

// Synchronize blocks until all work enqueued so far has completed and
// returns the first fault raised since the previous Synchronize, clearing it.
func (s *Stream) Synchronize() error {
	s.mu.Lock()
	for s.pending > 0 {
		s.cond.Wait()
	}
	err := s.fault
	s.fault = nil
	s.mu.Unlock()

	if err != nil {
		s.dev.log.WithError(err).WithField("stream", s.id).Debug("stream fault")
	}
	return err
}

// Close drains the stream and stops its worker. Enqueueing on a closed
// stream fails with ErrStreamClosed. Calling Close multiple times is safe.
func (s *Stream) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.cond.Broadcast()
	}
	s.mu.Unlock()

	<-s.done
	s.dev.forget(s)
}

// Event marks a point in a stream. It completes once all work enqueued on
// the stream before it has completed.
type Event struct {
	done chan struct{}
}

// Record enqueues an event on the stream.
func (s *Stream) Record() (*Event, error) {
	e := &Event{done: make(chan struct{})}
	if err := s.Always(func() { close(e.done) }); err != nil {
		return nil, err
	}
	return e, nil
}

// WaitEvent makes later work on s wait until e completes.
func (s *Stream) WaitEvent(e *Event) error {
	return s.Always(func() { <-e.done })
}

// Wait blocks the calling goroutine until the event completes.
func (e *Event) Wait() {
	<-e.done
}

// Done reports whether the event has completed.
func (e *Event) Done() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}
