// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

// Package ref implements a portable reference engine provider that
// interprets sub-graphs on the host. It has no native SDK dependency and
// registers itself as "ref" during initialization:
//
//	import _ "github.com/splice-ml/splice/engine/ref"
//
// The engine blob format is a magic prefix followed by the serialized
// sub-graph, so cached engines survive process restarts like native ones.
package ref

import (
	"bytes"
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/splice-ml/splice/engine"
	"github.com/splice-ml/splice/kernels"
	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/types/tensors"
)

var blobMagic = []byte("SPLICEREF1\x00")

func init() {
	engine.Register(&provider{})
}

type provider struct{}

func (p *provider) Name() string              { return "ref" }
func (p *provider) Compiler() engine.Compiler { return &compiler{} }
func (p *provider) Runtime() engine.Runtime   { return &runtime{} }

// NumDevices reports one virtual GPU and no DLA cores.
func (p *provider) NumDevices(class engine.DeviceClass) int {
	if class == engine.DeviceGPU {
		return 1
	}
	return 0
}

type compiler struct{}

// Compile validates the builder options and serializes the sub-graph as the
// engine blob. Interpretation happens at execution time; precision modes
// only affect validation here.
func (c *compiler) Compile(m *model.Model, cfg *engine.Config) ([]byte, error) {
	for _, op := range m.Operations {
		if !kernels.HasHostKernel(op.Type) {
			return nil, errors.Errorf("ref: operation %s is not supported by the reference engine", op.Type)
		}
	}
	if cfg.Precision == engine.PrecisionInt8 {
		if cfg.Calibrator == nil {
			return nil, errors.New("ref: int8 precision requires a calibrator")
		}
		if _, err := cfg.Calibrator.Scales(); err != nil {
			return nil, errors.WithMessage(err, "ref: int8 calibration failed")
		}
	}
	blob := append([]byte{}, blobMagic...)
	return append(blob, m.Serialize()...), nil
}

type runtime struct{}

// Load reconstructs the sub-graph from the blob and exposes it as an engine
// with "input{i}"/"output{i}" bindings, inputs first.
func (r *runtime) Load(blob []byte) (engine.Engine, error) {
	if !bytes.HasPrefix(blob, blobMagic) {
		return nil, errors.New("ref: blob is not a reference engine")
	}
	m, err := model.Deserialize(blob[len(blobMagic):])
	if err != nil {
		return nil, errors.WithMessage(err, "ref: corrupted engine blob")
	}
	e := &refEngine{model: m, bindings: make(map[string]int, len(m.Inputs)+len(m.Outputs))}
	for i := range m.Inputs {
		e.bindings[fmt.Sprintf("input%d", i)] = i
	}
	for i := range m.Outputs {
		e.bindings[fmt.Sprintf("output%d", i)] = len(m.Inputs) + i
	}
	return e, nil
}

type refEngine struct {
	model    *model.Model
	bindings map[string]int
}

func (e *refEngine) NumBindings() int { return len(e.model.Inputs) + len(e.model.Outputs) }

func (e *refEngine) BindingIndex(name string) int {
	if idx, found := e.bindings[name]; found {
		return idx
	}
	return -1
}

func (e *refEngine) NewExecutionContext() (engine.ExecutionContext, error) {
	return &execContext{
		engine:     e,
		inputDims:  make(map[int][]int, len(e.model.Inputs)),
		actualDims: make(map[int][]int, e.NumBindings()),
	}, nil
}

func (e *refEngine) Finalize() {
	e.model.Finalize()
	e.bindings = nil
}

type execContext struct {
	engine     *refEngine
	inputDims  map[int][]int
	actualDims map[int][]int
}

func (c *execContext) SetBindingDimensions(binding int, dims []int) {
	if binding < 0 || binding >= len(c.engine.model.Inputs) {
		exceptions.Panicf("ref: SetBindingDimensions on non-input binding %d", binding)
	}
	c.inputDims[binding] = append([]int{}, dims...)
}

func (c *execContext) AllInputDimensionsSpecified() bool {
	return len(c.inputDims) == len(c.engine.model.Inputs)
}

// Execute interprets the sub-graph with host kernels. Input bindings are
// read at the extents set by SetBindingDimensions; output bindings are
// resized to the computed extents.
func (c *execContext) Execute(bindings []*tensors.Tensor) error {
	m := c.engine.model
	if len(bindings) != c.engine.NumBindings() {
		return errors.Errorf("ref: got %d bindings, engine has %d", len(bindings), c.engine.NumBindings())
	}
	operands := make(map[*model.Operand]*tensors.Tensor, len(m.Operands))
	for i, in := range m.Inputs {
		t := tensors.New()
		t.SetDType(in.Type.DType)
		t.Resize(c.inputDims[i])
		t.CopyFrom(bindings[i].Bytes()[:t.ByteLen()])
		operands[in] = t
		c.actualDims[i] = t.Dims()
	}
	for _, o := range m.Operands {
		if !o.IsConstant() {
			continue
		}
		t := tensors.New()
		t.SetDType(o.Type.DType)
		t.Resize(o.Type.Dimensions)
		t.CopyFrom(o.Buffer)
		operands[o] = t
	}
	for _, op := range model.SortOperationsInTopologicalOrder(m) {
		for _, out := range op.Outputs {
			if _, found := operands[out]; !found {
				operands[out] = tensors.New()
			}
		}
		if err := kernels.NewHostKernel(op.Type).Run(op, operands); err != nil {
			return errors.WithMessagef(err, "ref: running %s", op.Type)
		}
	}
	for i, out := range m.Outputs {
		t, found := operands[out]
		if !found {
			return errors.Errorf("ref: graph output %q was never produced", out.Name)
		}
		binding := bindings[len(m.Inputs)+i]
		binding.SetDType(t.DType())
		binding.Resize(t.Dims())
		binding.CopyFrom(t.Bytes())
		c.actualDims[len(m.Inputs)+i] = t.Dims()
	}
	return nil
}

func (c *execContext) BindingDimensions(binding int) []int {
	return append([]int{}, c.actualDims[binding]...)
}
