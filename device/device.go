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
	"os"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ajroetker/hwcv/device/workerpool"
)

const (
	// Alignment is the byte alignment of every Malloc result.
	Alignment = 256

	// PitchAlignment is the byte alignment of the row pitch chosen by MallocPitch.
	PitchAlignment = 256

	// MaxThreadsPerBlock bounds Block.X*Block.Y*Block.Z of a launch.
	MaxThreadsPerBlock = 1024

	// SharedMemPerBlock bounds LaunchConfig.SharedBytes.
	SharedMemPerBlock = 48 * 1024
)

// Device is a simulated accelerator: a private memory space plus a set of
// compute units shared by all of its streams. A Device is safe for
// concurrent use.
type Device struct {
	props Properties
	units *workerpool.Pool
	log   logrus.FieldLogger

	mu      sync.Mutex
	inUse   int64
	limit   int64
	allocs  int
	nextID  int
	closed  bool
	streams []*Stream
}

type options struct {
	computeUnits int
	memoryLimit  int64
	logger       logrus.FieldLogger
}

// Option configures a Device.
type Option func(*options)

// WithComputeUnits sets the number of compute units. Zero means GOMAXPROCS.
func WithComputeUnits(n int) Option {
	return func(o *options) { o.computeUnits = n }
}

// WithMemoryLimit caps the bytes of device memory that may be allocated at
// once. Zero means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) { o.memoryLimit = bytes }
}

// WithLogger sets the logger used for device diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// ComputeUnitsEnv returns the HWCV_COMPUTE_UNITS override, or 0 if it is
// unset or not a positive integer.
func ComputeUnitsEnv() int {
	val := os.Getenv("HWCV_COMPUTE_UNITS")
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// New creates a device.
func New(opts ...Option) (*Device, error) {
	o := options{computeUnits: ComputeUnitsEnv()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.computeUnits < 0 {
		return nil, fmt.Errorf("%w: %d compute units", ErrInvalidValue, o.computeUnits)
	}
	if o.memoryLimit < 0 {
		return nil, fmt.Errorf("%w: memory limit %d", ErrInvalidValue, o.memoryLimit)
	}
	if o.logger == nil {
		o.logger = logrus.StandardLogger()
	}

	units := workerpool.New(o.computeUnits)
	d := &Device{
		props: probe(units.NumWorkers(), o.memoryLimit),
		units: units,
		log:   o.logger.WithField("device", "hwcv"),
		limit: o.memoryLimit,
	}
	d.log.WithFields(logrus.Fields{
		"name":          d.props.Name,
		"compute_units": d.props.ComputeUnits,
	}).Debug("device created")
	return d, nil
}

// Properties returns the static properties of the device.
func (d *Device) Properties() Properties {
	return d.props
}

// Logger returns the device logger.
func (d *Device) Logger() logrus.FieldLogger {
	return d.log
}

// Close waits for every stream to drain, then stops the compute units.
// Outstanding allocations stay valid until freed.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	streams := d.streams
	d.streams = nil
	d.mu.Unlock()

	for _, s := range streams {
		s.Close()
	}
	d.units.Close()
	d.log.Debug("device closed")
	return nil
}

// NewStream creates an ordered work queue on the device.
// Work enqueued on a stream of a closed device fails with ErrStreamClosed.
func (d *Device) NewStream() *Stream {
	d.mu.Lock()
	d.nextID++
	s := newStream(d, d.nextID)
	closed := d.closed
	if !closed {
		d.streams = append(d.streams, s)
	}
	d.mu.Unlock()

	if closed {
		s.Close()
	}
	return s
}

func (d *Device) forget(s *Stream) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, other := range d.streams {
		if other == s {
			d.streams = append(d.streams[:i], d.streams[i+1:]...)
			return
		}
	}
}
