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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ajroetker/hwcv/device"
)

// region is one strided 2D operand of an operation, measured in elements.
type region struct {
	name   string
	height int
	rowLen int // elements per row: width * channels
	stride int
	ptr    device.Ptr
}

// extent returns the number of elements the region spans.
func (r region) extent() int {
	return device.Extent(r.height, r.rowLen, r.stride)
}

func invalidf(op, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidParameter, op, fmt.Sprintf(format, args...))
}

// check makes the argument checks every operation pays for, then the full
// validation when it is enabled.
func (c *Context) check(op string, s *device.Stream, elem int, inPlace bool, in, out region) error {
	if c == nil {
		return invalidf(op, "nil context")
	}
	if s == nil {
		return invalidf(op, "nil stream")
	}
	if s.Device() != c.dev {
		return invalidf(op, "stream %d belongs to another device", s.ID())
	}
	for _, r := range [...]region{in, out} {
		switch {
		case r.ptr.IsNil():
			return invalidf(op, "nil %s pointer", r.name)
		case r.height <= 0 || r.rowLen <= 0:
			return invalidf(op, "%s region is %dx%d elements", r.name, r.rowLen, r.height)
		case r.stride <= 0:
			return invalidf(op, "%s stride %d", r.name, r.stride)
		}
	}
	if c.validate {
		return validateRegions(op, elem, inPlace, in, out)
	}
	return nil
}

// launch enqueues one phase of an operation.
func (c *Context) launch(s *device.Stream, op string, cfg device.LaunchConfig, k device.Kernel) error {
	if err := c.dev.Launch(s, cfg, k); err != nil {
		return fmt.Errorf("cv: %s: %w", op, err)
	}
	if c.log != nil {
		c.log.WithFields(logrus.Fields{
			"op":     op,
			"stream": s.ID(),
			"grid":   cfg.Grid,
			"block":  cfg.Block,
		}).Trace("launch")
	}
	return nil
}
