// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splice-ml/splice/types/dtypes"
)

func TestShape(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3)
	require.Equal(t, 2, s.Rank())
	require.False(t, s.IsDynamic())
	require.Equal(t, 6, s.Size())
	require.Equal(t, 24, s.ByteSize())
	require.Equal(t, []int{2, 3}, s.MaxDimensions())

	clone := s.Clone()
	clone.Dimensions[0] = 7
	require.Equal(t, 2, s.Dimensions[0])
	require.True(t, s.Equal(Make(dtypes.Float32, 2, 3)))
	require.False(t, s.Equal(Make(dtypes.Float64, 2, 3)))
}

func TestDynamicShape(t *testing.T) {
	s := MakeDynamic(dtypes.Float32, []int{DynamicDim, 4},
		[]int{8, 4}, []int{1, 4}, []int{16, 4})
	require.True(t, s.IsDynamic())
	require.Equal(t, []int{16, 4}, s.MaxDimensions())
	require.Panics(t, func() { s.Size() })

	// Size resolves once the dynamic axis is pinned.
	resolved := s.Clone()
	resolved.Dimensions[0] = 8
	resolved.Dynamic = nil
	require.Equal(t, 32, resolved.Size())
}

func TestNormalizeDynamic(t *testing.T) {
	// An axis whose min and max agree is not dynamic.
	s := MakeDynamic(dtypes.Float32, []int{DynamicDim, DynamicDim},
		[]int{8, 4}, []int{1, 4}, []int{16, 4})
	s.NormalizeDynamic()
	require.True(t, s.IsDynamic())
	require.Equal(t, []int{DynamicDim, 4}, s.Dimensions)

	// With every axis collapsed the profile goes away entirely.
	s = MakeDynamic(dtypes.Float32, []int{DynamicDim}, []int{3}, []int{3}, []int{3})
	s.NormalizeDynamic()
	require.False(t, s.IsDynamic())
	require.Nil(t, s.Dynamic)
	require.Equal(t, []int{3}, s.Dimensions)
}

func TestCheckRuntimeDims(t *testing.T) {
	static := Make(dtypes.Float32, 2, 3)
	require.NoError(t, static.CheckRuntimeDims([]int{2, 3}))
	require.Error(t, static.CheckRuntimeDims([]int{2, 4}))
	require.Error(t, static.CheckRuntimeDims([]int{2, 3, 1}))

	dynamic := MakeDynamic(dtypes.Float32, []int{DynamicDim, 4},
		[]int{8, 4}, []int{2, 4}, []int{16, 4})
	require.NoError(t, dynamic.CheckRuntimeDims([]int{2, 4}))
	require.NoError(t, dynamic.CheckRuntimeDims([]int{16, 4}))
	require.Error(t, dynamic.CheckRuntimeDims([]int{1, 4}))
	require.Error(t, dynamic.CheckRuntimeDims([]int{17, 4}))
	require.Error(t, dynamic.CheckRuntimeDims([]int{8, 5}))
}

func TestQuantizedShape(t *testing.T) {
	s := Make(dtypes.QInt8SymmPerLayer, 10)
	s.Quant = &QuantParams{Scale: 0.5}
	clone := s.Clone()
	require.NotSame(t, s.Quant, clone.Quant)
	require.Equal(t, float32(0.5), clone.Quant.Scale)
	require.Equal(t, 10, s.ByteSize())
}
