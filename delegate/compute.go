// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"github.com/pkg/errors"

	"github.com/splice-ml/splice/kernels"
	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/optimizer"
	"github.com/splice-ml/splice/types/tensors"
)

// computeProgram interprets its sub-graph with the parallel compute
// kernels, sharing one worker pool across all compute sub-programs of a
// Program. Kernels may return before their work items drain; the pool sync
// after each kernel is the ordering barrier between dependent operations.
type computeProgram struct {
	sub    *optimizer.SubModel
	pool   *kernels.Pool
	ops    []*model.Operation
	kerns  []kernels.Kernel
	consts map[*model.Operand]*tensors.Tensor
}

func newComputeProgram(sub *optimizer.SubModel, pool *kernels.Pool) *computeProgram {
	return &computeProgram{sub: sub, pool: pool}
}

// Build orders the operations and instantiates their parallel kernels,
// fatal for operations outside the compute kernel set.
func (p *computeProgram) Build() error {
	p.ops = model.SortOperationsInTopologicalOrder(p.sub.Graph)
	p.kerns = make([]kernels.Kernel, len(p.ops))
	for i, op := range p.ops {
		p.kerns[i] = kernels.NewComputeKernel(op.Type, p.pool)
	}
	p.consts = materializeConstants(p.sub.Graph)
	return nil
}

func (p *computeProgram) Execute(inputs, outputs []*tensors.Tensor) error {
	operands, copies := bindBoundary(p.sub.Graph, p.consts, inputs, outputs)
	for i, op := range p.ops {
		for _, out := range op.Outputs {
			if _, found := operands[out]; !found {
				operands[out] = tensors.New()
			}
		}
		if err := p.kerns[i].Run(op, operands); err != nil {
			p.pool.Sync()
			return errors.WithMessagef(err, "delegate: compute %s", op.Type)
		}
		p.pool.Sync()
	}
	copyDuplicateOutputs(p.sub.Graph, operands, outputs, copies)
	return nil
}

func (p *computeProgram) Finalize() {
	p.ops = nil
	p.kerns = nil
	p.consts = nil
}
