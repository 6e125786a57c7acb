// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/splice-ml/splice/engine"
	"github.com/splice-ml/splice/optimizer"
	"github.com/splice-ml/splice/types/tensors"
)

// acceleratorProgram compiles its sub-graph into an engine blob through the
// registered provider and executes it through binding-indexed tensors.
type acceleratorProgram struct {
	ctx *Context
	sub *optimizer.SubModel

	// blob is the serialized engine: produced by Build when compiling from
	// the sub-graph, or injected beforehand when restoring from a cache.
	blob []byte

	eng  engine.Engine
	exec engine.ExecutionContext

	inputBindings  []int
	outputBindings []int
}

func newAcceleratorProgram(ctx *Context, sub *optimizer.SubModel) *acceleratorProgram {
	return &acceleratorProgram{ctx: ctx, sub: sub}
}

// Build compiles the sub-graph (unless a cached blob was injected), loads
// the engine and resolves its bindings.
func (p *acceleratorProgram) Build() error {
	if p.blob == nil {
		if err := p.compile(); err != nil {
			return err
		}
	}
	eng, err := p.ctx.Provider.Runtime().Load(p.blob)
	if err != nil {
		return errors.WithMessage(err, "delegate: loading engine")
	}
	p.eng = eng

	graph := p.sub.Graph
	if got, want := eng.NumBindings(), len(graph.Inputs)+len(graph.Outputs); got != want {
		exceptions.Panicf("delegate: engine has %d bindings, sub-graph boundary has %d", got, want)
	}
	p.inputBindings = make([]int, len(graph.Inputs))
	for i := range graph.Inputs {
		name := fmt.Sprintf("input%d", i)
		if p.inputBindings[i] = eng.BindingIndex(name); p.inputBindings[i] < 0 {
			exceptions.Panicf("delegate: engine is missing binding %q", name)
		}
	}
	p.outputBindings = make([]int, len(graph.Outputs))
	for i := range graph.Outputs {
		name := fmt.Sprintf("output%d", i)
		if p.outputBindings[i] = eng.BindingIndex(name); p.outputBindings[i] < 0 {
			exceptions.Panicf("delegate: engine is missing binding %q", name)
		}
	}

	if p.exec, err = eng.NewExecutionContext(); err != nil {
		return errors.WithMessage(err, "delegate: creating execution context")
	}
	return nil
}

func (p *acceleratorProgram) compile() error {
	graph := p.sub.Graph
	optimizer.RunPasses(graph, optimizer.DefaultPasses)
	cfg, err := p.completeConfig()
	if err != nil {
		return err
	}
	blob, err := p.ctx.Provider.Compiler().Compile(graph, cfg)
	if err != nil {
		return errors.WithMessage(err, "delegate: compiling engine")
	}
	p.blob = blob
	return nil
}

// completeConfig resolves the builder options for this sub-graph: the
// device class after DLA availability checks, the precision after DLA
// constraints, the optimization profiles of the dynamic inputs and the
// int8 calibrator.
func (p *acceleratorProgram) completeConfig() (*engine.Config, error) {
	ctx := p.ctx
	cfg := &engine.Config{
		DeviceClass:   ctx.DeviceClass,
		DeviceOrdinal: ctx.DeviceOrdinal,
		Precision:     ctx.Precision,
		GPUFallback:   ctx.GPUFallback,
		Logger:        ctx.Logger,
	}
	if cfg.DeviceClass == engine.DeviceDLA {
		cores := ctx.Provider.NumDevices(engine.DeviceDLA)
		switch {
		case cores == 0:
			ctx.Logger.Warningf("no DLA core available, falling back to the GPU")
			cfg.DeviceClass = engine.DeviceGPU
			cfg.DeviceOrdinal = 0
		case cfg.DeviceOrdinal >= cores:
			ctx.Logger.Warningf("DLA core %d does not exist (%d cores), using core 0", cfg.DeviceOrdinal, cores)
			cfg.DeviceOrdinal = 0
		}
	}
	if cfg.DeviceClass == engine.DeviceDLA && cfg.Precision == engine.PrecisionFloat32 {
		// The DLA only runs reduced precision.
		ctx.Logger.Warningf("DLA does not support float32, compiling the engine in float16")
		cfg.Precision = engine.PrecisionFloat16
	}

	dynamic := false
	for i, in := range p.sub.Graph.Inputs {
		if !in.Type.IsDynamic() {
			continue
		}
		dynamic = true
		d := in.Type.Dynamic
		cfg.Profiles = append(cfg.Profiles, engine.Profile{
			Name: fmt.Sprintf("input%d", i),
			Opt:  d.Opt,
			Min:  d.Min,
			Max:  d.Max,
		})
	}

	if cfg.Precision == engine.PrecisionInt8 {
		if dynamic {
			exceptions.Panicf("delegate: int8 precision cannot be combined with dynamic input shapes")
		}
		batchSize := 1
		if len(p.sub.Graph.Inputs) > 0 && p.sub.Graph.Inputs[0].Type.Rank() > 0 {
			batchSize = p.sub.Graph.Inputs[0].Type.Dimensions[0]
		}
		cfg.Calibrator = engine.NewInt8EntropyCalibrator(batchSize,
			ctx.CalibrationDatasetPath, ctx.CalibrationTablePath)
	}
	return cfg, nil
}

// Execute binds the boundary tensors, propagates the concrete input extents
// into the execution context, runs the engine and shrinks the outputs to
// the extents the engine reports.
func (p *acceleratorProgram) Execute(inputs, outputs []*tensors.Tensor) error {
	graph := p.sub.Graph
	bindings := make([]*tensors.Tensor, p.eng.NumBindings())
	for i, t := range inputs {
		bindings[p.inputBindings[i]] = t
		p.exec.SetBindingDimensions(p.inputBindings[i], t.Dims())
	}
	for i, t := range outputs {
		t.SetDType(graph.Outputs[i].Type.DType)
		t.Resize(graph.Outputs[i].Type.MaxDimensions())
		bindings[p.outputBindings[i]] = t
	}
	for i, t := range bindings {
		if t == nil {
			exceptions.Panicf("delegate: engine binding %d left unbound", i)
		}
	}
	if !p.exec.AllInputDimensionsSpecified() {
		exceptions.Panicf("delegate: engine input dimensions incompletely specified")
	}
	if err := p.exec.Execute(bindings); err != nil {
		return errors.WithMessage(err, "delegate: engine execution")
	}
	for i, t := range outputs {
		t.Resize(p.exec.BindingDimensions(p.outputBindings[i]))
	}
	return nil
}

func (p *acceleratorProgram) Finalize() {
	if p.eng != nil {
		p.eng.Finalize()
		p.eng = nil
	}
	p.exec = nil
}
