// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/pkg/errors"

	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/types/tensors"
)

func init() {
	hostKernels[model.OpTypeReshape] = func() Kernel { return &reshapeKernel{} }
	hostKernels[model.OpTypeTranspose] = func() Kernel { return &transposeKernel{} }
	hostKernels[model.OpTypeConcat] = func() Kernel { return &concatKernel{} }
}

type reshapeKernel struct{}

// Run reshapes to the target extents given by the attribute operand; one
// target extent may be -1 and is inferred from the element count.
func (k *reshapeKernel) Run(op *model.Operation, operands map[*model.Operand]*tensors.Tensor) error {
	x := tensorOf(operands, op.Inputs[0])
	out := tensorOf(operands, op.Outputs[0])
	target := attrInts(operands, op.Inputs[1])
	known, inferred := 1, -1
	for axis, dim := range target {
		if dim == -1 {
			if inferred >= 0 {
				return errors.Errorf("Reshape: more than one inferred extent in %v", target)
			}
			inferred = axis
			continue
		}
		known *= dim
	}
	n := x.NumElements()
	if inferred >= 0 {
		if known == 0 || n%known != 0 {
			return errors.Errorf("Reshape: %d elements do not fit %v", n, target)
		}
		target[inferred] = n / known
		known *= target[inferred]
	}
	if known != n {
		return errors.Errorf("Reshape: %d elements reshaped to %v (%d elements)", n, target, known)
	}
	out.SetDType(x.DType())
	out.Resize(target)
	out.CopyFrom(x.Bytes())
	return nil
}

type transposeKernel struct{}

// Run permutes the axes by the permutation given in the attribute operand.
func (k *transposeKernel) Run(op *model.Operation, operands map[*model.Operand]*tensors.Tensor) error {
	x := tensorOf(operands, op.Inputs[0])
	out := tensorOf(operands, op.Outputs[0])
	perm := attrInts(operands, op.Inputs[1])
	dims := x.Dims()
	if len(perm) != len(dims) {
		return errors.Errorf("Transpose: permutation %v does not match rank %d", perm, len(dims))
	}
	outDims := make([]int, len(dims))
	for axis, p := range perm {
		if p < 0 || p >= len(dims) {
			return errors.Errorf("Transpose: invalid permutation %v", perm)
		}
		outDims[axis] = dims[p]
	}
	out.SetDType(x.DType())
	out.Resize(outDims)

	elemSize := x.DType().Size()
	srcStrides := rowMajorStrides(dims)
	dstStrides := rowMajorStrides(outDims)
	src, dst := x.Bytes(), out.Bytes()
	idx := make([]int, len(dims))
	for flat := 0; flat < x.NumElements(); flat++ {
		srcOff, dstOff := 0, 0
		for axis := range dims {
			srcOff += idx[axis] * srcStrides[axis]
		}
		for axis, p := range perm {
			dstOff += idx[p] * dstStrides[axis]
		}
		copy(dst[dstOff*elemSize:(dstOff+1)*elemSize], src[srcOff*elemSize:(srcOff+1)*elemSize])
		for axis := len(idx) - 1; axis >= 0; axis-- {
			idx[axis]++
			if idx[axis] < dims[axis] {
				break
			}
			idx[axis] = 0
		}
	}
	return nil
}

type concatKernel struct{}

// Run concatenates all inputs but the trailing axis attribute along that
// axis.
func (k *concatKernel) Run(op *model.Operation, operands map[*model.Operand]*tensors.Tensor) error {
	if len(op.Inputs) < 2 {
		return errors.Errorf("Concat: needs at least one input and the axis attribute")
	}
	parts := make([]*tensors.Tensor, len(op.Inputs)-1)
	for i := range parts {
		parts[i] = tensorOf(operands, op.Inputs[i])
	}
	axis := attrInt(operands, op.Inputs[len(op.Inputs)-1])
	out := tensorOf(operands, op.Outputs[0])
	first := parts[0].Dims()
	if axis < 0 {
		axis += len(first)
	}
	if axis < 0 || axis >= len(first) {
		return errors.Errorf("Concat: axis %d out of range for rank %d", axis, len(first))
	}
	outDims := append([]int{}, first...)
	for _, part := range parts[1:] {
		d := part.Dims()
		if len(d) != len(first) {
			return errors.Errorf("Concat: rank mismatch between inputs")
		}
		for a := range d {
			if a != axis && d[a] != first[a] {
				return errors.Errorf("Concat: extent mismatch at axis %d", a)
			}
		}
		outDims[axis] += d[axis]
	}
	out.SetDType(parts[0].DType())
	out.Resize(outDims)

	elemSize := parts[0].DType().Size()
	outer := 1
	for _, d := range first[:axis] {
		outer *= d
	}
	inner := 1
	for _, d := range first[axis+1:] {
		inner *= d
	}
	dst := out.Bytes()
	rowBytes := outDims[axis] * inner * elemSize
	colOff := 0
	for _, part := range parts {
		src := part.Bytes()
		partRow := part.Dims()[axis] * inner * elemSize
		for o := 0; o < outer; o++ {
			copy(dst[o*rowBytes+colOff:], src[o*partRow:(o+1)*partRow])
		}
		colOff += partRow
	}
	return nil
}

func rowMajorStrides(dims []int) []int {
	strides := make([]int, len(dims))
	stride := 1
	for axis := len(dims) - 1; axis >= 0; axis-- {
		strides[axis] = stride
		stride *= dims[axis]
	}
	return strides
}
