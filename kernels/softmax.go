// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"

	"github.com/pkg/errors"

	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/types/dtypes"
	"github.com/splice-ml/splice/types/tensors"
)

func init() {
	hostKernels[model.OpTypeSoftmax] = func() Kernel { return &softmaxKernel{} }
	computeKernels[model.OpTypeSoftmax] = func(pool *Pool) Kernel { return &softmaxKernel{pool: pool} }
}

// softmaxKernel computes softmax along the axis given by the optional second
// (attribute) operand; the axis defaults to the last one. Negative axes count
// from the back.
type softmaxKernel struct {
	pool *Pool
}

func (k *softmaxKernel) Run(op *model.Operation, operands map[*model.Operand]*tensors.Tensor) error {
	x := tensorOf(operands, op.Inputs[0])
	out := tensorOf(operands, op.Outputs[0])
	dims := x.Dims()
	axis := len(dims) - 1
	if len(op.Inputs) > 1 {
		axis = attrInt(operands, op.Inputs[1])
		if axis < 0 {
			axis += len(dims)
		}
	}
	if axis < 0 || axis >= len(dims) {
		return errors.Errorf("Softmax: axis %d out of range for rank %d", axis, len(dims))
	}
	if x.DType() != dtypes.Float32 {
		return errors.Errorf("Softmax: unsupported dtype %s", x.DType())
	}
	out.SetDType(x.DType())
	out.Resize(dims)

	outer := 1
	for _, d := range dims[:axis] {
		outer *= d
	}
	n := dims[axis]
	inner := 1
	for _, d := range dims[axis+1:] {
		inner *= d
	}
	xs, outs := x.Float32s(), out.Float32s()
	run(k.pool, outer*inner, func(start, end int) {
		for row := start; row < end; row++ {
			o, i := row/inner, row%inner
			base := o*n*inner + i
			maxV := float32(math.Inf(-1))
			for j := 0; j < n; j++ {
				maxV = max(maxV, xs[base+j*inner])
			}
			var sum float64
			for j := 0; j < n; j++ {
				e := math.Exp(float64(xs[base+j*inner] - maxV))
				outs[base+j*inner] = float32(e)
				sum += e
			}
			inv := float32(1 / sum)
			for j := 0; j < n; j++ {
				outs[base+j*inner] *= inv
			}
		}
	})
	return nil
}
