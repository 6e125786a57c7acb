// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/splice-ml/splice/types/dtypes"
	"github.com/splice-ml/splice/types/shapes"
)

func TestTensorResize(t *testing.T) {
	x := New()
	require.False(t, x.Allocated())
	x.SetDType(dtypes.Float32)
	x.Resize([]int{2, 3})
	require.Equal(t, []int{2, 3}, x.Dims())
	require.Equal(t, 6, x.NumElements())
	require.Equal(t, 24, x.ByteLen())
	require.Len(t, x.Bytes(), 24)

	data := x.Float32s()
	for i := range data {
		data[i] = float32(i)
	}

	// Shrinking keeps the prefix, the backing store keeps its capacity.
	x.Resize([]int{3})
	require.Equal(t, []float32{0, 1, 2}, x.Float32s())
	x.Resize([]int{2, 3})
	require.Equal(t, float32(5), x.Float32s()[5])
}

func TestTensorFromShape(t *testing.T) {
	x := FromShape(shapes.Make(dtypes.Int32, 4))
	require.Equal(t, dtypes.Int32, x.DType())
	require.Equal(t, []int{4}, x.Dims())
	x.Int32s()[3] = 7
	require.Equal(t, int32(7), x.Int32s()[3])
}

func TestTensorCopyFrom(t *testing.T) {
	src := New()
	src.SetDType(dtypes.Float32)
	src.Resize([]int{2})
	src.Float32s()[0] = 1.5
	src.Float32s()[1] = -2.5

	dst := New()
	dst.SetDType(dtypes.Float32)
	dst.Resize([]int{2})
	dst.CopyFrom(src.Bytes())
	require.Equal(t, []float32{1.5, -2.5}, dst.Float32s())
}

func TestTensorFloat16(t *testing.T) {
	x := New()
	x.SetDType(dtypes.Float16)
	x.Resize([]int{2})
	require.Equal(t, 4, x.ByteLen())
	x.Float16s()[0] = float16.Fromfloat32(0.5)
	require.Equal(t, float32(0.5), x.Float16s()[0].Float32())
}

func TestTensorViewChecksDType(t *testing.T) {
	x := New()
	x.SetDType(dtypes.Float32)
	x.Resize([]int{1})
	require.Panics(t, func() { x.Int32s() })
}
