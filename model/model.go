// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

// Package model defines the backend-neutral operator graph consumed by the
// splice compilation layer: typed tensor placeholders (Operand), computation
// nodes over them (Operation), and the Model tying them together with its
// graph-level input/output boundary.
//
// Operations form a DAG over operands: every operand is produced by exactly
// one operation, or is a graph input, or is a constant carrying its data
// in Operand.Buffer.
package model

import (
	"github.com/gomlx/exceptions"

	"github.com/splice-ml/splice/types/shapes"
)

// Operand is a typed tensor placeholder, not a concrete buffer.
// A non-nil Buffer makes it a constant.
type Operand struct {
	Name   string
	Type   shapes.Shape
	Buffer []byte
}

// IsConstant reports whether the operand carries constant data.
func (o *Operand) IsConstant() bool { return o.Buffer != nil }

// Operation is one computation node, referencing its operands by identity.
type Operation struct {
	Type    OpType
	Inputs  []*Operand
	Outputs []*Operand
}

// Model is an operator graph plus its graph-level boundary.
type Model struct {
	Operands   []*Operand
	Inputs     []*Operand
	Outputs    []*Operand
	Operations []*Operation
}

// New returns an empty model.
func New() *Model { return &Model{} }

// AddOperand creates a variable operand and registers it with the model.
func (m *Model) AddOperand(name string, typ shapes.Shape) *Operand {
	o := &Operand{Name: name, Type: typ}
	m.Operands = append(m.Operands, o)
	return o
}

// AddConstant creates a constant operand holding data.
func (m *Model) AddConstant(name string, typ shapes.Shape, data []byte) *Operand {
	o := m.AddOperand(name, typ)
	o.Buffer = data
	return o
}

// AddOperation creates an operation node and registers it with the model.
func (m *Model) AddOperation(t OpType, inputs, outputs []*Operand) *Operation {
	if !t.IsAOpType() || t == OpTypeInvalid {
		exceptions.Panicf("model: AddOperation with invalid operation kind %d", int32(t))
	}
	op := &Operation{Type: t, Inputs: inputs, Outputs: outputs}
	m.Operations = append(m.Operations, op)
	return op
}

// OperandIndex returns the position of o in m.Operands, or -1.
func (m *Model) OperandIndex(o *Operand) int {
	for i, cand := range m.Operands {
		if cand == o {
			return i
		}
	}
	return -1
}

// Producers returns the operation producing each operand. Operands with no
// producer (graph inputs, constants) are absent from the map. An operand
// with two producers is a malformed graph and fatal.
func (m *Model) Producers() map[*Operand]*Operation {
	producers := make(map[*Operand]*Operation, len(m.Operands))
	for _, op := range m.Operations {
		for _, out := range op.Outputs {
			if prev, dup := producers[out]; dup {
				exceptions.Panicf("model: operand %q produced by both %s and %s", out.Name, prev.Type, op.Type)
			}
			producers[out] = op
		}
	}
	return producers
}

// Finalize releases the model's resources: constant buffers and node lists.
// The model is invalid afterwards. Safe to call more than once.
func (m *Model) Finalize() {
	if m == nil {
		return
	}
	for _, o := range m.Operands {
		o.Buffer = nil
	}
	m.Operands = nil
	m.Inputs = nil
	m.Outputs = nil
	m.Operations = nil
}
