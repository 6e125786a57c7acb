// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape, the typed dimensions descriptor of an operand
// or tensor.
//
// A Shape holds a dtype, the static extents, and optionally a dynamic profile:
// the {opt, min, max} extent triple describing the valid runtime range of the
// axes whose static extent is the dynamic marker -1. The rank is always fixed;
// only extents vary.
//
// Quantized dtypes additionally carry a QuantParams with their scale
// information.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/splice-ml/splice/types/dtypes"
)

// DynamicDim marks an axis whose extent is only known at invocation time.
const DynamicDim = -1

// DynamicProfile is the {opt, min, max} extent triple of a dynamic shape.
// All three vectors have the shape's rank.
type DynamicProfile struct {
	Opt, Min, Max []int
}

// QuantParams holds the scale information of a quantized operand.
// Scales/ChannelDim are only used by the per-channel variant.
type QuantParams struct {
	Scale      float32
	ZeroPoint  int32
	Scales     []float32
	ChannelDim int
}

// Shape of an operand or tensor: dtype plus extents.
//
// Create it with Make or MakeDynamic. Shape is a value type; Clone deep-copies
// the slices when an independent copy is needed.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
	Dynamic    *DynamicProfile
	Quant      *QuantParams
}

// Make returns a static Shape with the given extents.
// It panics (fatal) on a zero or below -1 extent.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim == 0 || dim < DynamicDim {
			exceptions.Panicf("shapes.Make(%s): invalid axis extent %d", s, dim)
		}
	}
	return s
}

// MakeDynamic returns a Shape whose -1 extents range over the {opt, min, max}
// triple. The triple vectors must have the same rank as dimensions.
func MakeDynamic(dtype dtypes.DType, dimensions, opt, minDims, maxDims []int) Shape {
	s := Make(dtype, dimensions...)
	s.Dynamic = &DynamicProfile{
		Opt: slices.Clone(opt),
		Min: slices.Clone(minDims),
		Max: slices.Clone(maxDims),
	}
	s.assertDynamicOk()
	return s
}

func (s Shape) assertDynamicOk() {
	d := s.Dynamic
	if d == nil {
		return
	}
	rank := s.Rank()
	if len(d.Opt) != rank || len(d.Min) != rank || len(d.Max) != rank {
		exceptions.Panicf("shape %s: dynamic profile must carry exactly the {opt, min, max} triple at rank %d", s, rank)
	}
	for axis := 0; axis < rank; axis++ {
		if d.Min[axis] > d.Max[axis] || d.Opt[axis] < d.Min[axis] || d.Opt[axis] > d.Max[axis] {
			exceptions.Panicf("shape %s: dynamic profile violates min <= opt <= max at axis %d", s, axis)
		}
	}
}

// Rank returns the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsDynamic reports whether any axis carries the dynamic marker.
func (s Shape) IsDynamic() bool {
	return slices.Contains(s.Dimensions, DynamicDim)
}

// Size returns the number of elements. It panics (fatal) if called on a shape
// that still has dynamic markers -- runtime shapes are always concrete.
func (s Shape) Size() int {
	size := 1
	for _, dim := range s.Dimensions {
		if dim == DynamicDim {
			exceptions.Panicf("shape %s: Size of a shape with unresolved dynamic axes", s)
		}
		size *= dim
	}
	return size
}

// ByteSize returns the storage size in bytes of a tensor of this shape.
func (s Shape) ByteSize() int { return s.Size() * s.DType.Size() }

// MaxDimensions returns the largest possible extents: the "max" vector of the
// dynamic profile, or the static extents if the shape is fully static.
func (s Shape) MaxDimensions() []int {
	if s.Dynamic != nil {
		return slices.Clone(s.Dynamic.Max)
	}
	return slices.Clone(s.Dimensions)
}

// Equal compares dtype and static extents. Dynamic profiles and quantization
// params are not part of the identity.
func (s Shape) Equal(o Shape) bool {
	return s.DType == o.DType && slices.Equal(s.Dimensions, o.Dimensions)
}

// Clone returns a deep copy.
func (s Shape) Clone() Shape {
	c := s
	c.Dimensions = slices.Clone(s.Dimensions)
	if s.Dynamic != nil {
		c.Dynamic = &DynamicProfile{
			Opt: slices.Clone(s.Dynamic.Opt),
			Min: slices.Clone(s.Dynamic.Min),
			Max: slices.Clone(s.Dynamic.Max),
		}
	}
	if s.Quant != nil {
		q := *s.Quant
		q.Scales = slices.Clone(s.Quant.Scales)
		c.Quant = &q
	}
	return c
}

// NormalizeDynamic canonicalizes the dynamic descriptor in place:
//
//   - axes whose min == max collapse into a static extent;
//   - if no axis remains dynamic, the profile is dropped;
//   - otherwise the profile is validated (exactly the {opt, min, max} triple
//     at the shape's rank), panicking (fatal) on an inconsistent descriptor.
func (s *Shape) NormalizeDynamic() {
	if !s.IsDynamic() {
		s.Dynamic = nil
		return
	}
	if s.Dynamic == nil {
		exceptions.Panicf("shape %s: dynamic axes without a {opt, min, max} profile", *s)
	}
	s.assertDynamicOk()
	for axis, dim := range s.Dimensions {
		if dim != DynamicDim {
			continue
		}
		if s.Dynamic.Min[axis] == s.Dynamic.Max[axis] {
			s.Dimensions[axis] = s.Dynamic.Min[axis]
		}
	}
	if !s.IsDynamic() {
		s.Dynamic = nil
	}
}

// CheckRuntimeDims verifies the concrete extents of an invocation against the
// declared shape: rank must match; extents must either match the static
// declaration exactly or, for a dynamic shape, lie within [min, max]
// inclusive. The returned error is the recoverable shape-mismatch case.
func (s Shape) CheckRuntimeDims(dims []int) error {
	if len(dims) != s.Rank() {
		return errors.Errorf("rank %d given, %d declared (%s)", len(dims), s.Rank(), s)
	}
	if slices.Equal(dims, s.Dimensions) {
		return nil
	}
	if s.Dynamic == nil {
		return errors.Errorf("extents %v given, %v declared with no dynamic range (%s)", dims, s.Dimensions, s)
	}
	for axis, dim := range dims {
		if dim < s.Dynamic.Min[axis] || dim > s.Dynamic.Max[axis] {
			return errors.Errorf("extent %d at axis %d outside the declared range [%d, %d] (%s)",
				dim, axis, s.Dynamic.Min[axis], s.Dynamic.Max[axis], s)
		}
	}
	return nil
}

// String implements fmt.Stringer, e.g. "(Float32)[1 3 224 224]".
func (s Shape) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%s)%v", s.DType, s.Dimensions)
	if s.Dynamic != nil {
		fmt.Fprintf(&b, "{opt=%v min=%v max=%v}", s.Dynamic.Opt, s.Dynamic.Min, s.Dynamic.Max)
	}
	return b.String()
}
