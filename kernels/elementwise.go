// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"
	"slices"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/types/dtypes"
	"github.com/splice-ml/splice/types/tensors"
)

func init() {
	binaries := map[model.OpType]func(a, b float32) float32{
		model.OpTypeAdd: func(a, b float32) float32 { return a + b },
		model.OpTypeSub: func(a, b float32) float32 { return a - b },
		model.OpTypeMul: func(a, b float32) float32 { return a * b },
		model.OpTypeDiv: func(a, b float32) float32 { return a / b },
		model.OpTypeMax: func(a, b float32) float32 { return max(a, b) },
		model.OpTypeMin: func(a, b float32) float32 { return min(a, b) },
	}
	for opType, fn := range binaries {
		fn := fn
		hostKernels[opType] = func() Kernel { return &binaryKernel{fn: fn} }
	}
	unaries := map[model.OpType]func(a float32) float32{
		model.OpTypeIdentity: func(a float32) float32 { return a },
		model.OpTypeRelu:     func(a float32) float32 { return max(a, 0) },
		model.OpTypeSigmoid: func(a float32) float32 {
			return float32(1 / (1 + math.Exp(-float64(a))))
		},
		model.OpTypeTanh: func(a float32) float32 {
			return float32(math.Tanh(float64(a)))
		},
	}
	for opType, fn := range unaries {
		fn := fn
		hostKernels[opType] = func() Kernel { return &unaryKernel{fn: fn} }
	}

	// The compute backend accelerates the elementwise subset worth splitting
	// across workers.
	for _, opType := range []model.OpType{model.OpTypeAdd, model.OpTypeMul} {
		fn := binaries[opType]
		computeKernels[opType] = func(pool *Pool) Kernel { return &binaryKernel{fn: fn, pool: pool} }
	}
	relu := unaries[model.OpTypeRelu]
	computeKernels[model.OpTypeRelu] = func(pool *Pool) Kernel { return &unaryKernel{fn: relu, pool: pool} }
}

// run invokes body over [0, n): inline, or chunked on the pool when the
// kernel belongs to the compute backend. Pool kernels return before the work
// drains; the backend's post-kernel Sync is the completion barrier.
func run(pool *Pool, n int, body func(start, end int)) {
	if pool == nil {
		body(0, n)
		return
	}
	pool.ParallelFor(n, body)
}

type binaryKernel struct {
	fn   func(a, b float32) float32
	pool *Pool
}

func (k *binaryKernel) Run(op *model.Operation, operands map[*model.Operand]*tensors.Tensor) error {
	x := tensorOf(operands, op.Inputs[0])
	y := tensorOf(operands, op.Inputs[1])
	out := tensorOf(operands, op.Outputs[0])
	if !slices.Equal(x.Dims(), y.Dims()) {
		return errors.Errorf("%s: input extents %v and %v differ", op.Type, x.Dims(), y.Dims())
	}
	if x.DType() != y.DType() {
		return errors.Errorf("%s: input dtypes %s and %s differ", op.Type, x.DType(), y.DType())
	}
	out.SetDType(x.DType())
	out.Resize(x.Dims())
	switch x.DType() {
	case dtypes.Float32:
		xs, ys, outs := x.Float32s(), y.Float32s(), out.Float32s()
		run(k.pool, len(outs), func(start, end int) {
			for i := start; i < end; i++ {
				outs[i] = k.fn(xs[i], ys[i])
			}
		})
	case dtypes.Float16:
		xs, ys, outs := x.Float16s(), y.Float16s(), out.Float16s()
		run(k.pool, len(outs), func(start, end int) {
			for i := start; i < end; i++ {
				outs[i] = float16.Fromfloat32(k.fn(xs[i].Float32(), ys[i].Float32()))
			}
		})
	default:
		return errors.Errorf("%s: unsupported dtype %s", op.Type, x.DType())
	}
	return nil
}

type unaryKernel struct {
	fn   func(a float32) float32
	pool *Pool
}

func (k *unaryKernel) Run(op *model.Operation, operands map[*model.Operand]*tensors.Tensor) error {
	x := tensorOf(operands, op.Inputs[0])
	out := tensorOf(operands, op.Outputs[0])
	out.SetDType(x.DType())
	out.Resize(x.Dims())
	switch x.DType() {
	case dtypes.Float32:
		xs, outs := x.Float32s(), out.Float32s()
		run(k.pool, len(outs), func(start, end int) {
			for i := start; i < end; i++ {
				outs[i] = k.fn(xs[i])
			}
		})
	case dtypes.Float16:
		xs, outs := x.Float16s(), out.Float16s()
		run(k.pool, len(outs), func(start, end int) {
			for i := start; i < end; i++ {
				outs[i] = float16.Fromfloat32(k.fn(xs[i].Float32()))
			}
		})
	default:
		return errors.Errorf("%s: unsupported dtype %s", op.Type, x.DType())
	}
	return nil
}
