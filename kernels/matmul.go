// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/pkg/errors"

	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/types/dtypes"
	"github.com/splice-ml/splice/types/tensors"
)

func init() {
	hostKernels[model.OpTypeMatMul] = func() Kernel { return &matMulKernel{} }
	hostKernels[model.OpTypeFullyConnected] = func() Kernel { return &fullyConnectedKernel{} }
}

type matMulKernel struct{}

// Run multiplies [m, k] by [k, n] into [m, n].
func (k *matMulKernel) Run(op *model.Operation, operands map[*model.Operand]*tensors.Tensor) error {
	x := tensorOf(operands, op.Inputs[0])
	y := tensorOf(operands, op.Inputs[1])
	out := tensorOf(operands, op.Outputs[0])
	xd, yd := x.Dims(), y.Dims()
	if len(xd) != 2 || len(yd) != 2 || xd[1] != yd[0] {
		return errors.Errorf("MatMul: incompatible extents %v x %v", xd, yd)
	}
	if x.DType() != dtypes.Float32 || y.DType() != dtypes.Float32 {
		return errors.Errorf("MatMul: unsupported dtypes %s x %s", x.DType(), y.DType())
	}
	out.SetDType(dtypes.Float32)
	out.Resize([]int{xd[0], yd[1]})
	matMulF32(x.Float32s(), y.Float32s(), out.Float32s(), xd[0], xd[1], yd[1])
	return nil
}

type fullyConnectedKernel struct{}

// Run computes input [batch, in] times weightᵀ [out, in] plus the optional
// bias [out], into [batch, out].
func (k *fullyConnectedKernel) Run(op *model.Operation, operands map[*model.Operand]*tensors.Tensor) error {
	x := tensorOf(operands, op.Inputs[0])
	w := tensorOf(operands, op.Inputs[1])
	out := tensorOf(operands, op.Outputs[0])
	xd, wd := x.Dims(), w.Dims()
	if len(xd) != 2 || len(wd) != 2 || xd[1] != wd[1] {
		return errors.Errorf("FullyConnected: incompatible extents %v and weight %v", xd, wd)
	}
	if x.DType() != dtypes.Float32 {
		return errors.Errorf("FullyConnected: unsupported dtype %s", x.DType())
	}
	batch, in, units := xd[0], xd[1], wd[0]
	out.SetDType(dtypes.Float32)
	out.Resize([]int{batch, units})
	xs, ws, outs := x.Float32s(), w.Float32s(), out.Float32s()
	var bias []float32
	if len(op.Inputs) > 2 {
		b := tensorOf(operands, op.Inputs[2])
		if b.NumElements() != units {
			return errors.Errorf("FullyConnected: bias holds %d values, %d units declared", b.NumElements(), units)
		}
		bias = b.Float32s()
	}
	for r := 0; r < batch; r++ {
		for u := 0; u < units; u++ {
			var acc float32
			for c := 0; c < in; c++ {
				acc += xs[r*in+c] * ws[u*in+c]
			}
			if bias != nil {
				acc += bias[u]
			}
			outs[r*units+u] = acc
		}
	}
	return nil
}

func matMulF32(x, y, out []float32, m, k, n int) {
	for r := 0; r < m; r++ {
		for c := 0; c < n; c++ {
			var acc float32
			for i := 0; i < k; i++ {
				acc += x[r*k+i] * y[i*n+c]
			}
			out[r*n+c] = acc
		}
	}
}
