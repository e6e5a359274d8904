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

// validateRegions checks the preconditions that are undefined behavior when
// validation is off: strides cover a row, regions stay inside their
// allocations, pointers are aligned to the element size, and input and
// output do not overlap unless the operation runs in place on identical
// regions.
func validateRegions(op string, elem int, inPlace bool, in, out region) error {
	for _, r := range [...]region{in, out} {
		if r.stride < r.rowLen {
			return invalidf(op, "%s stride %d is less than row length %d", r.name, r.stride, r.rowLen)
		}
		if r.ptr.Addr()%uintptr(elem) != 0 {
			return invalidf(op, "%s pointer %v is not aligned to %d bytes", r.name, r.ptr, elem)
		}
		if need := r.extent() * elem; need > r.ptr.Len() {
			return invalidf(op, "%s region needs %d bytes, allocation has %d", r.name, need, r.ptr.Len())
		}
	}
	if overlaps(in, out, elem) && !(inPlace && sameRegion(in, out)) {
		return invalidf(op, "%s and %s regions overlap", in.name, out.name)
	}
	return nil
}

func overlaps(a, b region, elem int) bool {
	if a.ptr.Base() != b.ptr.Base() {
		return false
	}
	aLo, bLo := a.ptr.Offset(), b.ptr.Offset()
	aHi, bHi := aLo+a.extent()*elem, bLo+b.extent()*elem
	return aLo < bHi && bLo < aHi
}

func sameRegion(a, b region) bool {
	return a.ptr == b.ptr && a.stride == b.stride && a.rowLen == b.rowLen && a.height == b.height
}
