// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package ref

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splice-ml/splice/engine"
	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/types/dtypes"
	"github.com/splice-ml/splice/types/shapes"
	"github.com/splice-ml/splice/types/tensors"
)

func reluGraph() *model.Model {
	m := model.New()
	x := m.AddOperand("x", shapes.Make(dtypes.Float32, 4))
	y := m.AddOperand("y", shapes.Make(dtypes.Float32, 4))
	m.AddOperation(model.OpTypeRelu, []*model.Operand{x}, []*model.Operand{y})
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{y}
	return m
}

func TestProviderRegistersItself(t *testing.T) {
	p := engine.New("ref")
	require.Equal(t, "ref", p.Name())
	require.Equal(t, 1, p.NumDevices(engine.DeviceGPU))
	require.Equal(t, 0, p.NumDevices(engine.DeviceDLA))
}

func TestCompileLoadExecute(t *testing.T) {
	p := engine.New("ref")
	blob, err := p.Compiler().Compile(reluGraph(), &engine.Config{Logger: engine.GlobalLogger()})
	require.NoError(t, err)

	eng, err := p.Runtime().Load(blob)
	require.NoError(t, err)
	defer eng.Finalize()

	require.Equal(t, 2, eng.NumBindings())
	require.Equal(t, 0, eng.BindingIndex("input0"))
	require.Equal(t, 1, eng.BindingIndex("output0"))
	require.Equal(t, -1, eng.BindingIndex("input7"))

	exec, err := eng.NewExecutionContext()
	require.NoError(t, err)
	require.False(t, exec.AllInputDimensionsSpecified())

	in := tensors.New()
	in.SetDType(dtypes.Float32)
	in.Resize([]int{4})
	copy(in.Float32s(), []float32{-1, 2, -3, 4})
	out := tensors.New()

	exec.SetBindingDimensions(0, []int{4})
	require.True(t, exec.AllInputDimensionsSpecified())
	require.NoError(t, exec.Execute([]*tensors.Tensor{in, out}))
	require.Equal(t, []float32{0, 2, 0, 4}, out.Float32s())
	require.Equal(t, []int{4}, exec.BindingDimensions(1))
}

func TestLoadRejectsForeignBlob(t *testing.T) {
	_, err := engine.New("ref").Runtime().Load([]byte("not an engine"))
	require.Error(t, err)
}

func TestCompileRejectsUnsupportedOperation(t *testing.T) {
	m := model.New()
	x := m.AddOperand("x", shapes.Make(dtypes.Float32, 1))
	y := m.AddOperand("y", shapes.Make(dtypes.Float32, 1))
	op := &model.Operation{Type: model.OpType(250), Inputs: []*model.Operand{x}, Outputs: []*model.Operand{y}}
	m.Operations = append(m.Operations, op)
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{y}

	_, err := engine.New("ref").Compiler().Compile(m, &engine.Config{})
	require.Error(t, err)
}

func TestCompileInt8NeedsCalibrator(t *testing.T) {
	cfg := &engine.Config{Precision: engine.PrecisionInt8}
	_, err := engine.New("ref").Compiler().Compile(reluGraph(), cfg)
	require.Error(t, err)
}
