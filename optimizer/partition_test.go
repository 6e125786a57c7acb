// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package optimizer

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/types/dtypes"
	"github.com/splice-ml/splice/types/shapes"
)

func addOperand(m *model.Model, name string) *model.Operand {
	return m.AddOperand(name, shapes.Make(dtypes.Float32, 2))
}

func TestPartitionSingleBackend(t *testing.T) {
	m := model.New()
	x := addOperand(m, "x")
	h := addOperand(m, "h")
	y := addOperand(m, "y")
	m.AddOperation(model.OpTypeRelu, []*model.Operand{x}, []*model.Operand{h})
	m.AddOperation(model.OpTypeTanh, []*model.Operand{h}, []*model.Operand{y})
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{y}

	subs := PartitionModelIntoSubModels(m, nil, nil)
	require.Len(t, subs, 1)
	require.Equal(t, BackendAccelerator, subs[0].Backend)
	require.Equal(t, []int32{-1}, subs[0].InputIndices)
	require.Equal(t, []int32{-1}, subs[0].OutputIndices)
	require.Len(t, subs[0].Graph.Operations, 2)
}

func TestPartitionChainAcrossBackends(t *testing.T) {
	m := model.New()
	x := addOperand(m, "x")
	h1 := addOperand(m, "h1")
	h2 := addOperand(m, "h2")
	y := addOperand(m, "y")
	m.AddOperation(model.OpTypeAdd, []*model.Operand{x, x}, []*model.Operand{h1})
	m.AddOperation(model.OpTypeSoftmax, []*model.Operand{h1}, []*model.Operand{h2})
	m.AddOperation(model.OpTypeRelu, []*model.Operand{h2}, []*model.Operand{y})
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{y}

	hostOps := map[model.OpType]bool{model.OpTypeSoftmax: true}
	subs := PartitionModelIntoSubModels(m, nil, hostOps)
	require.Len(t, subs, 3)
	require.Equal(t, BackendAccelerator, subs[0].Backend)
	require.Equal(t, BackendHost, subs[1].Backend)
	require.Equal(t, BackendAccelerator, subs[2].Backend)

	require.Equal(t, []int32{-1}, subs[0].InputIndices)
	require.Equal(t, []int32{0}, subs[0].OutputIndices)
	require.Equal(t, []int32{0}, subs[1].InputIndices)
	require.Equal(t, []int32{1}, subs[1].OutputIndices)
	require.Equal(t, []int32{1}, subs[2].InputIndices)
	require.Equal(t, []int32{-1}, subs[2].OutputIndices)
}

func TestPartitionIndependentOpJoinsEarlierGroup(t *testing.T) {
	m := model.New()
	x := addOperand(m, "x")
	h := addOperand(m, "h")
	y1 := addOperand(m, "y1")
	y2 := addOperand(m, "y2")
	m.AddOperation(model.OpTypeRelu, []*model.Operand{x}, []*model.Operand{h})
	m.AddOperation(model.OpTypeSoftmax, []*model.Operand{h}, []*model.Operand{y1})
	// Independent of the softmax: can ride in the first accelerator group.
	m.AddOperation(model.OpTypeTanh, []*model.Operand{x}, []*model.Operand{y2})
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{y1, y2}

	hostOps := map[model.OpType]bool{model.OpTypeSoftmax: true}
	subs := PartitionModelIntoSubModels(m, nil, hostOps)
	require.Len(t, subs, 2)
	require.Equal(t, BackendAccelerator, subs[0].Backend)
	require.Len(t, subs[0].Graph.Operations, 2)
	require.Equal(t, BackendHost, subs[1].Backend)
}

func TestPartitionEmptyModel(t *testing.T) {
	m := model.New()
	x := addOperand(m, "x")
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{x}

	subs := PartitionModelIntoSubModels(m, nil, nil)
	require.Len(t, subs, 1)
	require.Equal(t, BackendAccelerator, subs[0].Backend)
	require.Equal(t, []int32{-1}, subs[0].InputIndices)
	require.Equal(t, []int32{-1}, subs[0].OutputIndices)
}

func TestPartitionComputeListWinsOverHostList(t *testing.T) {
	compute := map[model.OpType]bool{model.OpTypeRelu: true}
	host := map[model.OpType]bool{model.OpTypeRelu: true, model.OpTypeSoftmax: true}
	require.Equal(t, BackendCompute, classify(model.OpTypeRelu, compute, host))
	require.Equal(t, BackendHost, classify(model.OpTypeSoftmax, compute, host))
	require.Equal(t, BackendAccelerator, classify(model.OpTypeAdd, compute, host))
}

func TestPartitionGraphOutputFeedsLaterSubModel(t *testing.T) {
	m := model.New()
	x := addOperand(m, "x")
	y1 := addOperand(m, "y1")
	y2 := addOperand(m, "y2")
	m.AddOperation(model.OpTypeRelu, []*model.Operand{x}, []*model.Operand{y1})
	m.AddOperation(model.OpTypeSoftmax, []*model.Operand{y1}, []*model.Operand{y2})
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{y1, y2}

	hostOps := map[model.OpType]bool{model.OpTypeSoftmax: true}
	subs := PartitionModelIntoSubModels(m, nil, hostOps)
	require.Len(t, subs, 2)

	// y1 is both graph output 0 and the host sub-model's input: the
	// producer lists it under the boundary index and an intermediate one.
	require.ElementsMatch(t, []int32{-1, 0}, subs[0].OutputIndices)
	require.Equal(t, []int32{0}, subs[1].InputIndices)
	require.Equal(t, []int32{-2}, subs[1].OutputIndices)
}

// TestPartitionKeepsDependencyOrder generates layered random DAGs with a
// random backend assignment and verifies the partition invariants: every
// operation lands in exactly one sub-model, and executing the sub-models in
// order never reads an intermediate before it was produced.
func TestPartitionKeepsDependencyOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	kinds := []model.OpType{model.OpTypeRelu, model.OpTypeSoftmax, model.OpTypeMatMul, model.OpTypeAdd}
	for trial := 0; trial < 20; trial++ {
		m := model.New()
		pool := []*model.Operand{addOperand(m, "x0"), addOperand(m, "x1")}
		m.Inputs = append([]*model.Operand{}, pool...)
		numOps := 3 + rng.Intn(10)
		for i := 0; i < numOps; i++ {
			kind := kinds[rng.Intn(len(kinds))]
			in1 := pool[rng.Intn(len(pool))]
			in2 := pool[rng.Intn(len(pool))]
			out := addOperand(m, fmt.Sprintf("v%d", i))
			if kind == model.OpTypeRelu || kind == model.OpTypeSoftmax {
				m.AddOperation(kind, []*model.Operand{in1}, []*model.Operand{out})
			} else {
				m.AddOperation(kind, []*model.Operand{in1, in2}, []*model.Operand{out})
			}
			pool = append(pool, out)
		}
		m.Outputs = []*model.Operand{pool[len(pool)-1]}

		computeOps := map[model.OpType]bool{kinds[rng.Intn(len(kinds))]: true}
		hostOps := map[model.OpType]bool{kinds[rng.Intn(len(kinds))]: true}
		subs := PartitionModelIntoSubModels(m, computeOps, hostOps)

		total := 0
		produced := map[int32]bool{}
		for _, sub := range subs {
			total += len(sub.Graph.Operations)
			for _, idx := range sub.InputIndices {
				if idx < 0 {
					require.Less(t, int(-idx)-1, len(m.Inputs), "trial %d", trial)
				} else {
					require.True(t, produced[idx], "trial %d: intermediate %d read before being produced", trial, idx)
				}
			}
			for _, idx := range sub.OutputIndices {
				if idx >= 0 {
					produced[idx] = true
				}
			}
		}
		require.Equal(t, numOps, total, "trial %d", trial)
	}
}

func TestPartitionPassthroughOutput(t *testing.T) {
	m := model.New()
	x := addOperand(m, "x")
	y := addOperand(m, "y")
	m.AddOperation(model.OpTypeRelu, []*model.Operand{x}, []*model.Operand{y})
	m.Inputs = []*model.Operand{x}
	// The raw input is also exposed as graph output 1.
	m.Outputs = []*model.Operand{y, x}

	subs := PartitionModelIntoSubModels(m, nil, nil)
	require.Len(t, subs, 1)
	require.ElementsMatch(t, []int32{-1, -2}, subs[0].OutputIndices)
	require.Equal(t, []int32{-1}, subs[0].InputIndices)
}
