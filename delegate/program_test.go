// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splice-ml/splice/engine"
	_ "github.com/splice-ml/splice/engine/ref"
	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/types/dtypes"
	"github.com/splice-ml/splice/types/shapes"
	"github.com/splice-ml/splice/types/tensors"
)

func float32Bytes(values ...float32) []byte {
	var buf []byte
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

func inputArg(index int, t *tensors.Tensor) Argument {
	return Argument{
		Index:  index,
		Memory: t,
		Access: func(memory any, typ *shapes.Shape) []byte {
			x := memory.(*tensors.Tensor)
			typ.Dimensions = x.Dims()
			return x.Bytes()
		},
	}
}

func outputArg(index int, t *tensors.Tensor) Argument {
	return Argument{
		Index:  index,
		Memory: t,
		Access: func(memory any, typ *shapes.Shape) []byte {
			x := memory.(*tensors.Tensor)
			x.SetDType(typ.DType)
			x.Resize(typ.Dimensions)
			return x.Bytes()
		},
	}
}

func float32Input(dims []int, values ...float32) *tensors.Tensor {
	t := tensors.New()
	t.SetDType(dtypes.Float32)
	t.Resize(dims)
	copy(t.Float32s(), values)
	return t
}

// threeBackendModel chains Add (accelerator), Softmax (host-listed) and Mul
// (compute-listed): y = softmax(x + 1) * 2.
func threeBackendModel() *model.Model {
	m := model.New()
	x := m.AddOperand("x", shapes.Make(dtypes.Float32, 1, 2))
	one := m.AddConstant("one", shapes.Make(dtypes.Float32, 1, 2), float32Bytes(1, 1))
	two := m.AddConstant("two", shapes.Make(dtypes.Float32, 1, 2), float32Bytes(2, 2))
	h1 := m.AddOperand("h1", shapes.Make(dtypes.Float32, 1, 2))
	h2 := m.AddOperand("h2", shapes.Make(dtypes.Float32, 1, 2))
	y := m.AddOperand("y", shapes.Make(dtypes.Float32, 1, 2))
	m.AddOperation(model.OpTypeAdd, []*model.Operand{x, one}, []*model.Operand{h1})
	m.AddOperation(model.OpTypeSoftmax, []*model.Operand{h1}, []*model.Operand{h2})
	m.AddOperation(model.OpTypeMul, []*model.Operand{h2, two}, []*model.Operand{y})
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{y}
	return m
}

func threeBackendContext() *Context {
	return NewContext("SPLICE_ENGINE=ref;" +
		"SPLICE_COMPUTE_OPERATIONS_LIST=Mul;" +
		"SPLICE_HOST_OPERATIONS_LIST=Softmax")
}

func executeThreeBackend(t *testing.T, p *Program) []float32 {
	in := float32Input([]int{1, 2}, 0, 1)
	out := tensors.New()
	require.NoError(t, p.Execute(
		[]Argument{inputArg(0, in)},
		[]Argument{outputArg(0, out)}))
	require.Equal(t, []int{1, 2}, out.Dims())
	return out.Float32s()
}

func TestProgramAcrossThreeBackends(t *testing.T) {
	p := NewProgram(threeBackendContext())
	defer p.Finalize()
	require.NoError(t, p.Build(threeBackendModel(), nil))

	got := executeThreeBackend(t, p)
	// softmax([1, 2]) * 2
	require.InDelta(t, 2*0.26894, got[0], 1e-4)
	require.InDelta(t, 2*0.73106, got[1], 1e-4)
}

func TestProgramCacheRoundTrip(t *testing.T) {
	cache := &Cache{}
	p := NewProgram(threeBackendContext())
	require.NoError(t, p.Build(threeBackendModel(), cache))
	want := executeThreeBackend(t, p)
	p.Finalize()
	require.NotEmpty(t, cache.Buffer)
	require.Len(t, cache.InputTypes, 1)
	require.Len(t, cache.OutputTypes, 1)

	// A fresh program reconstructs from the cache buffer alone.
	restored := NewProgram(threeBackendContext())
	defer restored.Finalize()
	require.NoError(t, restored.Build(nil, cache))
	require.Equal(t, want, executeThreeBackend(t, restored))
}

func TestProgramCacheSkipsCompilation(t *testing.T) {
	ref := engine.New("ref")
	counting := &countingProvider{Provider: ref}
	engine.Register(counting)

	ctx := NewContext("SPLICE_ENGINE=counting")
	cache := &Cache{}
	p := NewProgram(ctx)
	require.NoError(t, p.Build(threeBackendModel(), cache))
	p.Finalize()
	require.Equal(t, 1, counting.compilations)

	restored := NewProgram(ctx)
	defer restored.Finalize()
	require.NoError(t, restored.Build(nil, cache))
	require.Equal(t, 1, counting.compilations)
}

type countingProvider struct {
	engine.Provider
	compilations int
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Compiler() engine.Compiler { return &countingCompiler{p: p} }

type countingCompiler struct {
	p *countingProvider
}

func (c *countingCompiler) Compile(m *model.Model, cfg *engine.Config) ([]byte, error) {
	c.p.compilations++
	return c.p.Provider.Compiler().Compile(m, cfg)
}

func TestProgramCorruptCacheIsFatal(t *testing.T) {
	// A non-empty cache buffer is trusted: corruption is never recovered
	// by recompiling from the model.
	p := NewProgram(threeBackendContext())
	defer p.Finalize()
	require.Panics(t, func() {
		_ = p.Build(nil, &Cache{Buffer: []byte("garbage")})
	})
	require.Panics(t, func() {
		_ = p.Build(threeBackendModel(), &Cache{Buffer: []byte("garbage")})
	})
}

func TestProgramExecuteTwiceReusesTensors(t *testing.T) {
	p := NewProgram(threeBackendContext())
	defer p.Finalize()
	require.NoError(t, p.Build(threeBackendModel(), nil))

	first := append([]float32(nil), executeThreeBackend(t, p)...)
	store := p.store
	output := store.outputs[0]

	// The second call reuses the built program's tensors instead of
	// allocating a fresh set, and produces bit-identical outputs.
	require.Equal(t, first, executeThreeBackend(t, p))
	require.Same(t, store, p.store)
	require.Same(t, output, p.store.outputs[0])
	require.NotEmpty(t, store.temporaries)
}

func TestProgramBuildIsIdempotent(t *testing.T) {
	p := NewProgram(threeBackendContext())
	defer p.Finalize()
	require.NoError(t, p.Build(threeBackendModel(), nil))
	require.NoError(t, p.Build(threeBackendModel(), nil))
	executeThreeBackend(t, p)
}

func dynamicModel() *model.Model {
	m := model.New()
	profile := func() shapes.Shape {
		return shapes.MakeDynamic(dtypes.Float32, []int{shapes.DynamicDim, 2},
			[]int{4, 2}, []int{2, 2}, []int{8, 2})
	}
	x := m.AddOperand("x", profile())
	y := m.AddOperand("y", profile())
	m.AddOperation(model.OpTypeRelu, []*model.Operand{x}, []*model.Operand{y})
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{y}
	return m
}

func TestProgramDynamicShapes(t *testing.T) {
	p := NewProgram(NewContext("SPLICE_ENGINE=ref"))
	defer p.Finalize()
	require.NoError(t, p.Build(dynamicModel(), nil))

	run := func(rows int) error {
		values := make([]float32, rows*2)
		for i := range values {
			values[i] = float32(i) - 3
		}
		in := float32Input([]int{rows, 2}, values...)
		out := tensors.New()
		err := p.Execute([]Argument{inputArg(0, in)}, []Argument{outputArg(0, out)})
		if err == nil {
			require.Equal(t, []int{rows, 2}, out.Dims())
			for i, v := range out.Float32s() {
				require.Equal(t, max(values[i], 0), v, "element %d", i)
			}
		}
		return err
	}

	require.NoError(t, run(2)) // declared minimum
	require.NoError(t, run(8)) // declared maximum
	require.NoError(t, run(5))

	// One past either end of the declared range.
	require.ErrorIs(t, run(9), ErrInvalidDimensions)
	require.ErrorIs(t, run(1), ErrInvalidDimensions)

	// Rank mismatches are the same recoverable error.
	in := float32Input([]int{2}, 1, 2)
	out := tensors.New()
	require.ErrorIs(t,
		p.Execute([]Argument{inputArg(0, in)}, []Argument{outputArg(0, out)}),
		ErrInvalidDimensions)
}

func TestProgramInt8RejectsDynamicShapes(t *testing.T) {
	table := t.TempDir() + "/calibration.table"
	ctx := NewContext("SPLICE_ENGINE=ref;SPLICE_PRECISION=int8;" +
		"SPLICE_CALIBRATION_TABLE_PATH=" + table)
	p := NewProgram(ctx)
	defer p.Finalize()
	require.Panics(t, func() { _ = p.Build(dynamicModel(), nil) })
}

func TestProgramDLAFallsBackToGPU(t *testing.T) {
	// The reference provider exposes no DLA core; the build warns and
	// compiles for the GPU instead.
	ctx := NewContext("SPLICE_ENGINE=ref;SPLICE_DEVICE_CLASS=DLA")
	p := NewProgram(ctx)
	defer p.Finalize()
	require.NoError(t, p.Build(dynamicModel(), nil))
}

func TestProgramPassthroughOutput(t *testing.T) {
	m := model.New()
	x := m.AddOperand("x", shapes.Make(dtypes.Float32, 2))
	y := m.AddOperand("y", shapes.Make(dtypes.Float32, 2))
	m.AddOperation(model.OpTypeRelu, []*model.Operand{x}, []*model.Operand{y})
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{y, x}

	p := NewProgram(NewContext("SPLICE_ENGINE=ref"))
	defer p.Finalize()
	require.NoError(t, p.Build(m, nil))

	in := float32Input([]int{2}, -1, 2)
	relued := tensors.New()
	echoed := tensors.New()
	require.NoError(t, p.Execute(
		[]Argument{inputArg(0, in)},
		[]Argument{outputArg(0, relued), outputArg(1, echoed)}))
	require.Equal(t, []float32{0, 2}, relued.Float32s())
	require.Equal(t, []float32{-1, 2}, echoed.Float32s())
}

func TestProgramExecuteUnbuiltIsFatal(t *testing.T) {
	p := NewProgram(NewContext("SPLICE_ENGINE=ref"))
	require.Panics(t, func() {
		_ = p.Execute(nil, nil)
	})
}

func TestProgramArgumentCountMismatchIsFatal(t *testing.T) {
	p := NewProgram(NewContext("SPLICE_ENGINE=ref"))
	defer p.Finalize()
	require.NoError(t, p.Build(dynamicModel(), nil))
	require.Panics(t, func() {
		_ = p.Execute(nil, []Argument{outputArg(0, tensors.New())})
	})
}

func TestFindArgumentByIndex(t *testing.T) {
	args := []Argument{inputArg(2, tensors.New()), inputArg(0, tensors.New())}
	require.Equal(t, 0, FindArgumentByIndex(args, 0).Index)
	require.Nil(t, FindArgumentByIndex(args, 1))
}
