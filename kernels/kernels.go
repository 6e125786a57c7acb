// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels implements the per-operation kernels executed by the
// compute and host backends, behind dispatch tables keyed by operation kind.
//
// The host table covers the full recognized op set and also backs the
// reference engine's interpreter; the compute table is the smaller set of
// kernels worth dispatching through the worker pool. A backend asked to
// build an operation kind missing from its table is a fatal
// unsupported-operation error.
package kernels

import (
	"github.com/gomlx/exceptions"

	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/types/tensors"
)

// Kernel runs one operation against the shared operand→tensor map.
// Run infers the output extents from the concrete input extents, resizes the
// output tensors accordingly and fills them.
type Kernel interface {
	Run(op *model.Operation, operands map[*model.Operand]*tensors.Tensor) error
}

// hostKernels is populated by the init functions of the kernel files.
var hostKernels = map[model.OpType]func() Kernel{}

// computeKernels is populated by the init functions of the kernel files.
// Compute kernels dispatch their work through a Pool and rely on the caller
// draining the pool after every kernel.
var computeKernels = map[model.OpType]func(*Pool) Kernel{}

// NewHostKernel instantiates the host kernel for an operation kind.
// An unregistered kind is fatal.
func NewHostKernel(t model.OpType) Kernel {
	factory, ok := hostKernels[t]
	if !ok {
		exceptions.Panicf("kernels: unsupported operation (%s) is found for the host backend", t)
	}
	return factory()
}

// NewComputeKernel instantiates the compute kernel for an operation kind.
// An unregistered kind is fatal.
func NewComputeKernel(t model.OpType, pool *Pool) Kernel {
	factory, ok := computeKernels[t]
	if !ok {
		exceptions.Panicf("kernels: unsupported operation (%s) is found for the compute backend", t)
	}
	return factory(pool)
}

// HasHostKernel reports whether the host table covers the operation kind.
func HasHostKernel(t model.OpType) bool {
	_, ok := hostKernels[t]
	return ok
}

// HasComputeKernel reports whether the compute table covers the operation kind.
func HasComputeKernel(t model.OpType) bool {
	_, ok := computeKernels[t]
	return ok
}

// tensorOf resolves an operand's backing tensor. A missing tensor means the
// executor failed to materialize the operand map first, which is fatal.
func tensorOf(operands map[*model.Operand]*tensors.Tensor, o *model.Operand) *tensors.Tensor {
	t, ok := operands[o]
	if !ok || t == nil {
		exceptions.Panicf("kernels: operand %q has no backing tensor", o.Name)
	}
	return t
}

// attrInts reads an attribute operand (a constant int32 tensor) as ints.
func attrInts(operands map[*model.Operand]*tensors.Tensor, o *model.Operand) []int {
	t := tensorOf(operands, o)
	flat := t.Int32s()
	out := make([]int, len(flat))
	for i, v := range flat {
		out[i] = int(v)
	}
	return out
}

// attrInt reads a scalar attribute operand.
func attrInt(operands map[*model.Operand]*tensors.Tensor, o *model.Operand) int {
	ints := attrInts(operands, o)
	if len(ints) != 1 {
		exceptions.Panicf("kernels: attribute operand %q must be a scalar, has %d values", o.Name, len(ints))
	}
	return ints[0]
}
