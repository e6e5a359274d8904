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

package cv

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ajroetker/hwcv/device"
	"github.com/ajroetker/hwcv/device/mempool"
)

// FallbackPolicy decides what an operation does when the active memory pool
// cannot serve one of its scratch buffers.
type FallbackPolicy int

const (
	// FallbackDirect allocates the buffer directly from the device.
	FallbackDirect FallbackPolicy = iota
	// FallbackStrict fails the operation with StatusPoolExhausted.
	FallbackStrict
)

func (p FallbackPolicy) String() string {
	if p == FallbackStrict {
		return "strict"
	}
	return "direct"
}

// ParseFallbackPolicy parses "direct" or "strict".
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct":
		return FallbackDirect, nil
	case "strict":
		return FallbackStrict, nil
	}
	return FallbackDirect, fmt.Errorf("%w: fallback policy %q", ErrInvalidParameter, s)
}

// Context carries the per-device state operations share: the memory pool,
// the scratch fallback policy and whether arguments are validated. A Context
// may be used from several goroutines and streams at once.
type Context struct {
	dev      *device.Device
	pool     *mempool.Pool
	fallback FallbackPolicy
	validate bool
	log      logrus.FieldLogger
}

type contextOptions struct {
	pool     *mempool.Pool
	fallback FallbackPolicy
	validate bool
	logger   logrus.FieldLogger
}

// Option configures a Context.
type Option func(*contextOptions)

// WithPool makes the Context use an existing pool, for example one shared
// with another Context on the same device.
func WithPool(p *mempool.Pool) Option {
	return func(o *contextOptions) { o.pool = p }
}

// WithFallback sets the scratch fallback policy.
func WithFallback(p FallbackPolicy) Option {
	return func(o *contextOptions) { o.fallback = p }
}

// WithValidation enables or disables argument validation.
func WithValidation(on bool) Option {
	return func(o *contextOptions) { o.validate = on }
}

// WithLogger sets the logger. The default is the device logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *contextOptions) { o.logger = l }
}

func envBool(name string) bool {
	on, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && on
}

// NewContext returns a Context for dev with an inactive memory pool.
//
// HWCV_VALIDATE=1 turns validation on and HWCV_POOL_FALLBACK=strict selects
// FallbackStrict; options override both.
func NewContext(dev *device.Device, opts ...Option) *Context {
	o := contextOptions{validate: validateByDefault || envBool("HWCV_VALIDATE")}
	if p, err := ParseFallbackPolicy(os.Getenv("HWCV_POOL_FALLBACK")); err == nil {
		o.fallback = p
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = dev.Logger()
	}
	if o.pool == nil {
		o.pool = mempool.New(dev, mempool.WithLogger(o.logger))
	}
	return &Context{
		dev:      dev,
		pool:     o.pool,
		fallback: o.fallback,
		validate: o.validate,
		log:      o.logger.WithField("component", "cv"),
	}
}

// Device returns the device the Context runs on.
func (c *Context) Device() *device.Device { return c.dev }

// Pool returns the Context's memory pool.
func (c *Context) Pool() *mempool.Pool { return c.pool }

// Fallback returns the scratch fallback policy.
func (c *Context) Fallback() FallbackPolicy { return c.fallback }

// Validating reports whether argument validation is on.
func (c *Context) Validating() bool { return c.validate }

// ActivatePool reserves capacity bytes of device memory for scratch buffers.
// It fails with StatusPoolAlreadyActive if the pool is already active.
func (c *Context) ActivatePool(capacity int) error {
	return c.pool.Activate(capacity)
}

// ShutdownPool releases the pool's device memory. Operations still queued
// on a stream may hold pool blocks; synchronize those streams first.
func (c *Context) ShutdownPool() error {
	return c.pool.Shutdown()
}

// scratch is a temporary device buffer owned by one operation.
type scratch struct {
	ptr    device.Ptr
	handle mempool.Handle
	pooled bool
}

func (c *Context) acquire(size int) (scratch, error) {
	if c.pool.Active() {
		h, err := c.pool.Acquire(size)
		switch {
		case err == nil:
			return scratch{ptr: h.Ptr(), handle: h, pooled: true}, nil
		case errors.Is(err, mempool.ErrPoolExhausted):
			if c.fallback == FallbackStrict {
				return scratch{}, err
			}
			c.log.WithField("size", size).Debug("pool exhausted, allocating scratch directly")
		case errors.Is(err, mempool.ErrNotActive):
			// Shut down since the Active check.
		default:
			return scratch{}, err
		}
	}
	p, err := c.dev.Malloc(size)
	if err != nil {
		return scratch{}, fmt.Errorf("scratch of %d bytes: %w", size, err)
	}
	return scratch{ptr: p}, nil
}

func (c *Context) release(bufs []scratch) {
	for _, b := range bufs {
		if b.pooled {
			c.pool.Release(b.handle)
			continue
		}
		if err := c.dev.Free(b.ptr); err != nil {
			c.log.WithError(err).Warn("freeing scratch buffer")
		}
	}
}

// retire releases bufs once the work already enqueued on s has run, even if
// the stream faults. If the stream no longer accepts work the buffers are
// released at once.
func (c *Context) retire(s *device.Stream, bufs ...scratch) {
	if len(bufs) == 0 {
		return
	}
	if err := s.Always(func() { c.release(bufs) }); err != nil {
		c.release(bufs)
	}
}
