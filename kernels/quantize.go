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
	hostKernels[model.OpTypeQuantize] = func() Kernel { return &quantizeKernel{} }
	hostKernels[model.OpTypeDequantize] = func() Kernel { return &dequantizeKernel{} }
}

type quantizeKernel struct{}

// Run maps float32 values to symmetric per-layer int8 using the scale
// declared on the output operand.
func (k *quantizeKernel) Run(op *model.Operation, operands map[*model.Operand]*tensors.Tensor) error {
	x := tensorOf(operands, op.Inputs[0])
	out := tensorOf(operands, op.Outputs[0])
	quant := op.Outputs[0].Type.Quant
	if quant == nil || quant.Scale == 0 {
		return errors.Errorf("Quantize: output operand %q carries no scale", op.Outputs[0].Name)
	}
	if x.DType() != dtypes.Float32 {
		return errors.Errorf("Quantize: unsupported input dtype %s", x.DType())
	}
	out.SetDType(dtypes.QInt8SymmPerLayer)
	out.Resize(x.Dims())
	src := x.Float32s()
	dst := out.Int8s()
	invScale := 1.0 / float64(quant.Scale)
	for i, v := range src {
		q := math.Round(float64(v)*invScale) + float64(quant.ZeroPoint)
		if q > 127 {
			q = 127
		} else if q < -128 {
			q = -128
		}
		dst[i] = int8(q)
	}
	return nil
}

type dequantizeKernel struct{}

// Run maps symmetric per-layer int8 values back to float32 using the scale
// declared on the input operand.
func (k *dequantizeKernel) Run(op *model.Operation, operands map[*model.Operand]*tensors.Tensor) error {
	x := tensorOf(operands, op.Inputs[0])
	out := tensorOf(operands, op.Outputs[0])
	quant := op.Inputs[0].Type.Quant
	if quant == nil || quant.Scale == 0 {
		return errors.Errorf("Dequantize: input operand %q carries no scale", op.Inputs[0].Name)
	}
	if x.DType() != dtypes.QInt8SymmPerLayer && x.DType() != dtypes.Int8 {
		return errors.Errorf("Dequantize: unsupported input dtype %s", x.DType())
	}
	out.SetDType(dtypes.Float32)
	out.Resize(x.Dims())
	src := x.Int8s()
	dst := out.Float32s()
	for i, q := range src {
		dst[i] = float32(int32(q)-quant.ZeroPoint) * quant.Scale
	}
	return nil
}
