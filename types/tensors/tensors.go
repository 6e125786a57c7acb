// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors provides Tensor, the concrete buffer fed through compiled
// programs at execution time.
//
// A Tensor is the device-memory analog of this layer: storage is allocated
// lazily on first resize and kept across calls, so repeated executions with
// stable maximum extents never reallocate. Typed accessors reinterpret the
// backing bytes in place; Float16 elements use github.com/x448/float16.
package tensors

import (
	"slices"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/x448/float16"

	"github.com/splice-ml/splice/types/dtypes"
	"github.com/splice-ml/splice/types/shapes"
)

// Tensor is a reference type: sub-programs share and alias tensors through
// pointers, so writes through one holder are visible to all.
//
// The zero value (or New) is an empty tensor with no dtype and no storage.
type Tensor struct {
	dtype dtypes.DType
	dims  []int
	data  []byte
}

// New returns an empty tensor. Storage is allocated on the first Resize.
func New() *Tensor { return &Tensor{} }

// FromShape returns a tensor sized for the given concrete shape.
func FromShape(s shapes.Shape) *Tensor {
	t := New()
	t.SetDType(s.DType)
	t.Resize(s.Dimensions)
	return t
}

// SetDType sets the element precision. Changing it invalidates the current
// contents but keeps the allocation.
func (t *Tensor) SetDType(dtype dtypes.DType) {
	if !dtype.Ok() {
		exceptions.Panicf("tensors: SetDType(%s) is not a valid precision code", dtype)
	}
	t.dtype = dtype
	t.grow()
}

// DType returns the element precision.
func (t *Tensor) DType() dtypes.DType { return t.dtype }

// Resize sets the concrete extents, growing the backing storage if needed.
// Shrinking keeps the larger allocation for reuse.
func (t *Tensor) Resize(dims []int) {
	for _, dim := range dims {
		if dim <= 0 {
			exceptions.Panicf("tensors: Resize to non-concrete extents %v", dims)
		}
	}
	t.dims = slices.Clone(dims)
	t.grow()
}

func (t *Tensor) grow() {
	if t.dtype == dtypes.InvalidDType || t.dims == nil {
		return
	}
	n := t.ByteLen()
	if cap(t.data) < n {
		data := make([]byte, n)
		copy(data, t.data)
		t.data = data
	} else {
		t.data = t.data[:n]
	}
}

// Dims returns a copy of the current extents, or nil if never resized.
func (t *Tensor) Dims() []int { return slices.Clone(t.dims) }

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return len(t.dims) }

// NumElements returns the element count of the current extents.
func (t *Tensor) NumElements() int {
	n := 1
	for _, dim := range t.dims {
		n *= dim
	}
	return n
}

// ByteLen returns the size in bytes of the current contents.
func (t *Tensor) ByteLen() int { return t.NumElements() * t.dtype.Size() }

// Allocated reports whether backing storage exists yet.
func (t *Tensor) Allocated() bool { return t.data != nil }

// Bytes returns the backing bytes of the current contents. The slice aliases
// the tensor storage: writes are visible to every holder of the tensor.
func (t *Tensor) Bytes() []byte {
	if t.data == nil {
		exceptions.Panicf("tensors: Bytes on an unallocated tensor")
	}
	return t.data
}

// CopyFrom fills the tensor from a host buffer. The buffer must carry exactly
// the tensor's byte length.
func (t *Tensor) CopyFrom(src []byte) {
	if len(src) != t.ByteLen() {
		exceptions.Panicf("tensors: CopyFrom with %d bytes, tensor holds %d", len(src), t.ByteLen())
	}
	copy(t.Bytes(), src)
}

func flatView[T any](t *Tensor, want dtypes.DType) []T {
	if t.dtype != want {
		exceptions.Panicf("tensors: %s view of a %s tensor", want, t.dtype)
	}
	n := t.NumElements()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&t.Bytes()[0])), n)
}

// Float32s reinterprets the storage as []float32. It panics (fatal) on a
// dtype mismatch.
func (t *Tensor) Float32s() []float32 { return flatView[float32](t, dtypes.Float32) }

// Float16s reinterprets the storage as []float16.Float16.
func (t *Tensor) Float16s() []float16.Float16 { return flatView[float16.Float16](t, dtypes.Float16) }

// Int8s reinterprets the storage as []int8. Valid for Int8 and the int8
// quantized variants.
func (t *Tensor) Int8s() []int8 {
	switch t.dtype {
	case dtypes.Int8, dtypes.QInt8SymmPerLayer, dtypes.QInt8SymmPerChannel:
		return flatView[int8](t, t.dtype)
	}
	exceptions.Panicf("tensors: int8 view of a %s tensor", t.dtype)
	return nil
}

// Int32s reinterprets the storage as []int32.
func (t *Tensor) Int32s() []int32 { return flatView[int32](t, dtypes.Int32) }

// Int64s reinterprets the storage as []int64.
func (t *Tensor) Int64s() []int64 { return flatView[int64](t, dtypes.Int64) }
