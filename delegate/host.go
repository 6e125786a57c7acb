// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"github.com/pkg/errors"

	"github.com/splice-ml/splice/kernels"
	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/optimizer"
	"github.com/splice-ml/splice/types/tensors"
)

// hostProgram interprets its sub-graph one operation at a time with the
// single-threaded host kernels.
type hostProgram struct {
	sub    *optimizer.SubModel
	ops    []*model.Operation
	kerns  []kernels.Kernel
	consts map[*model.Operand]*tensors.Tensor
}

func newHostProgram(sub *optimizer.SubModel) *hostProgram {
	return &hostProgram{sub: sub}
}

// Build orders the operations, instantiates their kernels (fatal for
// operations without a host kernel) and materializes the constants.
func (p *hostProgram) Build() error {
	p.ops = model.SortOperationsInTopologicalOrder(p.sub.Graph)
	p.kerns = make([]kernels.Kernel, len(p.ops))
	for i, op := range p.ops {
		p.kerns[i] = kernels.NewHostKernel(op.Type)
	}
	p.consts = materializeConstants(p.sub.Graph)
	return nil
}

func (p *hostProgram) Execute(inputs, outputs []*tensors.Tensor) error {
	operands, copies := bindBoundary(p.sub.Graph, p.consts, inputs, outputs)
	for i, op := range p.ops {
		for _, out := range op.Outputs {
			if _, found := operands[out]; !found {
				operands[out] = tensors.New()
			}
		}
		if err := p.kerns[i].Run(op, operands); err != nil {
			return errors.WithMessagef(err, "delegate: host %s", op.Type)
		}
	}
	copyDuplicateOutputs(p.sub.Graph, operands, outputs, copies)
	return nil
}

func (p *hostProgram) Finalize() {
	p.ops = nil
	p.kerns = nil
	p.consts = nil
}

// materializeConstants turns the graph's constant operands into tensors
// once, at build time.
func materializeConstants(m *model.Model) map[*model.Operand]*tensors.Tensor {
	consts := make(map[*model.Operand]*tensors.Tensor)
	for _, o := range m.Operands {
		if !o.IsConstant() {
			continue
		}
		t := tensors.New()
		t.SetDType(o.Type.DType)
		t.Resize(o.Type.Dimensions)
		t.CopyFrom(o.Buffer)
		consts[o] = t
	}
	return consts
}

// bindBoundary builds the operand-to-tensor map of one interpreted run:
// graph inputs alias the incoming tensors, graph outputs alias the outgoing
// ones, constants come pre-materialized. Output positions whose operand is
// already mapped (duplicate listings, passthroughs, constants) are returned
// for a post-run copy instead.
func bindBoundary(m *model.Model, consts map[*model.Operand]*tensors.Tensor,
	inputs, outputs []*tensors.Tensor) (map[*model.Operand]*tensors.Tensor, []int) {
	operands := make(map[*model.Operand]*tensors.Tensor, len(m.Operands))
	for i, in := range m.Inputs {
		operands[in] = inputs[i]
	}
	for o, t := range consts {
		operands[o] = t
	}
	var copies []int
	for j, out := range m.Outputs {
		if _, taken := operands[out]; taken {
			copies = append(copies, j)
			continue
		}
		operands[out] = outputs[j]
	}
	return operands, copies
}

func copyDuplicateOutputs(m *model.Model, operands map[*model.Operand]*tensors.Tensor,
	outputs []*tensors.Tensor, copies []int) {
	for _, j := range copies {
		src := operands[m.Outputs[j]]
		dst := outputs[j]
		dst.SetDType(src.DType())
		dst.Resize(src.Dims())
		dst.CopyFrom(src.Bytes())
	}
}
