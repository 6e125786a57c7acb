// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

// Package optimizer holds the graph-level transformations applied before
// compilation: rewrite passes and the partitioner that splits a model into
// the ordered per-backend sub-models executed by the delegate layer.
package optimizer

import (
	"slices"

	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/splice-ml/splice/model"
)

// Backend identifies one of the three fixed execution backend classes.
type Backend int32

const (
	// BackendAccelerator is the engine-compiled backend, and the default
	// bucket for any operation not claimed by an allow-list.
	BackendAccelerator Backend = iota
	// BackendCompute is the parallel compute-kernel backend.
	BackendCompute
	// BackendHost is the fallback host-execution backend.
	BackendHost
)

// String implements fmt.Stringer.
func (b Backend) String() string {
	switch b {
	case BackendAccelerator:
		return "accelerator"
	case BackendCompute:
		return "compute"
	case BackendHost:
		return "host"
	}
	return "invalid"
}

// SubModel is one partition of a model: a contiguous same-backend sub-graph
// plus its boundary tensor index lists.
//
// Index convention: -(i+1) denotes the i-th graph-level input (in
// InputIndices) or output (in OutputIndices); non-negative indices denote
// intermediate values flowing between sub-models. A produced value that is
// both a graph output and consumed by a later sub-model appears twice in
// the output lists, once under each index.
//
// Owned marks sub-models whose Graph was reconstructed from a cache and is
// therefore owned (and finalized) by the compiled program; partition-derived
// sub-models borrow the caller's graph nodes.
type SubModel struct {
	Backend       Backend
	Graph         *model.Model
	Owned         bool
	InputIndices  []int32
	OutputIndices []int32
}

// PartitionModelIntoSubModels classifies every operation of m into a backend
// (compute allow-list first, then host allow-list, else accelerator) and
// groups the operations into a minimal ordered sequence of maximal
// same-backend sub-models whose execution order respects every data
// dependency of the original DAG.
//
// The result is never empty: a model with no operations yields a single
// accelerator sub-model spanning the whole boundary.
func PartitionModelIntoSubModels(m *model.Model, computeOps, hostOps map[model.OpType]bool) []*SubModel {
	if len(m.Operations) == 0 {
		sub := &SubModel{Backend: BackendAccelerator, Graph: m}
		for i := range m.Inputs {
			sub.InputIndices = append(sub.InputIndices, boundaryIndex(i))
		}
		for i := range m.Outputs {
			sub.OutputIndices = append(sub.OutputIndices, boundaryIndex(i))
		}
		return []*SubModel{sub}
	}

	type group struct {
		backend Backend
		ops     []*model.Operation
	}
	ops := model.SortOperationsInTopologicalOrder(m)
	producers := m.Producers()

	// Greedy grouping over the topological order: each operation joins the
	// latest same-backend group not earlier than the groups producing its
	// inputs, or opens a new group. Joining any group at or after every
	// producer group keeps the sequence dependency-ordered.
	var groups []*group
	producerGroup := make(map[*model.Operand]int, len(m.Operands))
	opGroup := make(map[*model.Operation]int, len(ops))
	for _, op := range ops {
		backend := classify(op.Type, computeOps, hostOps)
		earliest := 0
		for _, in := range op.Inputs {
			if g, ok := producerGroup[in]; ok && g > earliest {
				earliest = g
			}
		}
		target := -1
		for gi := len(groups) - 1; gi >= earliest; gi-- {
			if groups[gi].backend == backend {
				target = gi
				break
			}
		}
		if target < 0 {
			groups = append(groups, &group{backend: backend})
			target = len(groups) - 1
		}
		groups[target].ops = append(groups[target].ops, op)
		opGroup[op] = target
		for _, out := range op.Outputs {
			producerGroup[out] = target
		}
	}

	graphInputIdx := make(map[*model.Operand]int32, len(m.Inputs))
	for i, o := range m.Inputs {
		graphInputIdx[o] = boundaryIndex(i)
	}
	graphOutputIdx := make(map[*model.Operand]int32, len(m.Outputs))
	for i, o := range m.Outputs {
		if _, produced := producers[o]; !produced && !o.IsConstant() {
			if _, isInput := graphInputIdx[o]; !isInput {
				exceptions.Panicf("optimizer: graph output %q is neither produced nor a graph input", o.Name)
			}
		}
		graphOutputIdx[o] = boundaryIndex(i)
	}
	// Every non-boundary operand crossing a group edge gets an intermediate
	// index. Operands that are also graph outputs get one too: their
	// producing sub-model lists them twice, once under the boundary index
	// and once under the intermediate one, so that sub-model input indices
	// only ever reference graph inputs or intermediates.
	interIdx := make(map[*model.Operand]int32)
	var nextInter int32
	for _, op := range ops {
		for _, in := range op.Inputs {
			if in.IsConstant() {
				continue
			}
			if _, isGraphInput := graphInputIdx[in]; isGraphInput {
				continue
			}
			pg, produced := producerGroup[in]
			if !produced {
				exceptions.Panicf("optimizer: operand %q is consumed but never produced", in.Name)
			}
			if pg == opGroup[op] {
				continue
			}
			if _, assigned := interIdx[in]; !assigned {
				interIdx[in] = nextInter
				nextInter++
			}
		}
	}
	subModels := make([]*SubModel, 0, len(groups))
	for gi, g := range groups {
		sub := &SubModel{Backend: g.backend, Graph: model.New()}
		seen := make(map[*model.Operand]bool)
		addOperand := func(o *model.Operand) {
			if !seen[o] {
				seen[o] = true
				sub.Graph.Operands = append(sub.Graph.Operands, o)
			}
		}
		for _, op := range g.ops {
			for _, o := range op.Inputs {
				addOperand(o)
			}
			for _, o := range op.Outputs {
				addOperand(o)
			}
			sub.Graph.Operations = append(sub.Graph.Operations, op)
		}
		inputSeen := make(map[*model.Operand]bool)
		for _, op := range g.ops {
			for _, in := range op.Inputs {
				if in.IsConstant() || inputSeen[in] {
					continue
				}
				if pg, ok := producerGroup[in]; ok && pg == gi {
					continue
				}
				inputSeen[in] = true
				sub.Graph.Inputs = append(sub.Graph.Inputs, in)
				sub.InputIndices = append(sub.InputIndices, operandInputIndex(in, gi, graphInputIdx, producerGroup, interIdx))
			}
		}
		for _, op := range g.ops {
			for _, out := range op.Outputs {
				if idx, isBoundary := graphOutputIdx[out]; isBoundary {
					sub.Graph.Outputs = append(sub.Graph.Outputs, out)
					sub.OutputIndices = append(sub.OutputIndices, idx)
				}
				if idx, crosses := interIdx[out]; crosses {
					sub.Graph.Outputs = append(sub.Graph.Outputs, out)
					sub.OutputIndices = append(sub.OutputIndices, idx)
				}
			}
		}
		subModels = append(subModels, sub)
	}

	// Graph outputs no operation produces (a passthrough of a graph input,
	// or a constant) ride on the first sub-model's boundary, which copies
	// them through.
	for _, o := range m.Outputs {
		if _, produced := producers[o]; produced {
			continue
		}
		first := subModels[0]
		if !o.IsConstant() && !slices.Contains(first.Graph.Inputs, o) {
			first.Graph.Inputs = append(first.Graph.Inputs, o)
			first.InputIndices = append(first.InputIndices, graphInputIdx[o])
		}
		if first.Graph.OperandIndex(o) < 0 {
			first.Graph.Operands = append(first.Graph.Operands, o)
		}
		first.Graph.Outputs = append(first.Graph.Outputs, o)
		first.OutputIndices = append(first.OutputIndices, graphOutputIdx[o])
	}
	if klog.V(3).Enabled() {
		for i, sub := range subModels {
			klog.Infof("partition: sub-model %d backend=%s ops=%d inputs=%v outputs=%v",
				i, sub.Backend, len(sub.Graph.Operations), sub.InputIndices, sub.OutputIndices)
		}
	}
	return subModels
}

// classify picks the backend for one operation kind: compute allow-list
// first, then host allow-list, else the accelerator default.
func classify(t model.OpType, computeOps, hostOps map[model.OpType]bool) Backend {
	switch {
	case computeOps[t]:
		return BackendCompute
	case hostOps[t]:
		return BackendHost
	}
	return BackendAccelerator
}

// boundaryIndex maps the i-th graph-level input or output to its negative
// index -(i+1).
func boundaryIndex(i int) int32 { return -int32(i) - 1 }

func operandInputIndex(in *model.Operand, gi int, graphInputIdx map[*model.Operand]int32,
	producerGroup map[*model.Operand]int, interIdx map[*model.Operand]int32) int32 {
	if idx, ok := graphInputIdx[in]; ok {
		return idx
	}
	pg, produced := producerGroup[in]
	if !produced || pg >= gi {
		exceptions.Panicf("optimizer: sub-model %d consumes operand %q not produced by an earlier sub-model", gi, in.Name)
	}
	idx, ok := interIdx[in]
	if !ok {
		exceptions.Panicf("optimizer: operand %q crosses sub-models without an intermediate index", in.Name)
	}
	return idx
}
