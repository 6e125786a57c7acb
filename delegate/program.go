// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

// Package delegate is the compile-and-execute layer over the operator
// graph: it partitions a model across the accelerator engine, the parallel
// compute kernels and the host fallback, compiles the accelerator parts
// through the registered engine provider, round-trips the whole compiled
// artifact through an opaque cache buffer, and executes it with live
// tensors.
package delegate

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/splice-ml/splice/kernels"
	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/optimizer"
	"github.com/splice-ml/splice/types/shapes"
	"github.com/splice-ml/splice/types/tensors"
)

// Cache carries the compiled artifact across Build calls. A caller passing
// a Cache with a non-empty Buffer asks for reconstruction without
// recompiling; passing one with an empty Buffer asks Build to fill it (and
// the boundary types) after compiling from the model.
type Cache struct {
	Buffer      []byte
	InputTypes  []shapes.Shape
	OutputTypes []shapes.Shape
}

// Argument hands one boundary tensor to Execute without exposing the
// caller's memory layout: Access returns the raw buffer for the memory
// handle, reading the concrete extents from (for inputs) or writing them
// into (for outputs) typ.
type Argument struct {
	Index  int
	Memory any
	Access func(memory any, typ *shapes.Shape) []byte
}

// FindArgumentByIndex returns the argument with the given boundary index,
// or nil.
func FindArgumentByIndex(args []Argument, index int) *Argument {
	for i := range args {
		if args[i].Index == index {
			return &args[i]
		}
	}
	return nil
}

// subProgram is one executable partition of a built program.
type subProgram interface {
	Build() error
	Execute(inputs, outputs []*tensors.Tensor) error
	Finalize()
}

// Program is a compiled model: the ordered per-backend sub-programs plus
// the declared boundary types. Build it once (from a model or a cache
// buffer), execute it any number of times.
//
// A Program is not safe for concurrent Execute calls.
type Program struct {
	ctx  *Context
	pool *kernels.Pool

	subModels   []*optimizer.SubModel
	subPrograms []subProgram

	inputTypes  []shapes.Shape
	outputTypes []shapes.Shape

	// store keeps the boundary and intermediate tensors across Execute
	// calls, so stable shapes never reallocate their backing storage.
	store *tensorStore
}

// NewProgram returns an empty program bound to the context.
func NewProgram(ctx *Context) *Program {
	return &Program{ctx: ctx, pool: kernels.NewPool(0)}
}

// Build compiles m, or reconstructs the program from cache.Buffer when it
// is non-empty. When building from the model and cache is non-nil, the
// compiled artifact and boundary types are written back into it. Building
// an already-built program clears it first.
//
// A non-empty cache buffer is trusted: corruption in it is fatal, never a
// trigger to recompile from the model.
func (p *Program) Build(m *model.Model, cache *Cache) error {
	p.Clear()
	var err error
	if cache != nil && len(cache.Buffer) > 0 {
		err = p.buildFromCache(cache)
	} else {
		if m == nil {
			exceptions.Panicf("delegate: Build needs a model or a cache buffer")
		}
		err = p.buildFromModel(m, cache)
	}
	if err != nil {
		return err
	}
	p.store = newTensorStore(len(p.inputTypes), len(p.outputTypes))
	return nil
}

func (p *Program) buildFromModel(m *model.Model, cache *Cache) error {
	p.subModels = optimizer.PartitionModelIntoSubModels(m, p.ctx.ComputeOps, p.ctx.HostOps)
	p.buildSubPrograms()
	for _, sp := range p.subPrograms {
		if err := sp.Build(); err != nil {
			return err
		}
	}
	p.inputTypes = declaredTypes(m.Inputs)
	p.outputTypes = declaredTypes(m.Outputs)

	if cache != nil {
		blobs := make(map[int][]byte, len(p.subPrograms))
		for i, sp := range p.subPrograms {
			if ap, isAccelerator := sp.(*acceleratorProgram); isAccelerator {
				blobs[i] = ap.blob
			}
		}
		cache.Buffer = EncodeCache(p.subModels, blobs)
		cache.InputTypes = cloneTypes(p.inputTypes)
		cache.OutputTypes = cloneTypes(p.outputTypes)
	}
	return nil
}

func (p *Program) buildFromCache(cache *Cache) error {
	records := DecodeCache(cache.Buffer)
	p.subModels = make([]*optimizer.SubModel, len(records))
	for i, rec := range records {
		p.subModels[i] = &optimizer.SubModel{
			Backend:       rec.Backend,
			Graph:         rec.Graph,
			Owned:         true,
			InputIndices:  rec.InputIndices,
			OutputIndices: rec.OutputIndices,
		}
	}
	p.buildSubPrograms()
	for i, rec := range records {
		if ap, isAccelerator := p.subPrograms[i].(*acceleratorProgram); isAccelerator {
			ap.blob = rec.EngineBlob
		}
	}
	// Blobs are injected after instantiation but before Build.
	for _, sp := range p.subPrograms {
		if err := sp.Build(); err != nil {
			return err
		}
	}
	p.inputTypes = cloneTypes(cache.InputTypes)
	p.outputTypes = cloneTypes(cache.OutputTypes)
	return nil
}

func (p *Program) buildSubPrograms() {
	p.subPrograms = make([]subProgram, len(p.subModels))
	for i, sub := range p.subModels {
		switch sub.Backend {
		case optimizer.BackendAccelerator:
			p.subPrograms[i] = newAcceleratorProgram(p.ctx, sub)
		case optimizer.BackendCompute:
			p.subPrograms[i] = newComputeProgram(sub, p.pool)
		case optimizer.BackendHost:
			p.subPrograms[i] = newHostProgram(sub)
		default:
			exceptions.Panicf("delegate: sub-model %d has unknown backend %d", i, int32(sub.Backend))
		}
	}
}

// CheckInputsAndOutputs validates the Execute arguments against the
// declared boundary: argument counts and indices must match exactly
// (fatal), and every input's concrete extents must satisfy its declared
// shape. Extent violations are recoverable and wrap ErrInvalidDimensions.
func (p *Program) CheckInputsAndOutputs(inputArgs, outputArgs []Argument) error {
	if len(inputArgs) != len(p.inputTypes) {
		exceptions.Panicf("delegate: got %d input arguments, program declares %d", len(inputArgs), len(p.inputTypes))
	}
	if len(outputArgs) != len(p.outputTypes) {
		exceptions.Panicf("delegate: got %d output arguments, program declares %d", len(outputArgs), len(p.outputTypes))
	}
	for i := range p.outputTypes {
		if FindArgumentByIndex(outputArgs, i) == nil {
			exceptions.Panicf("delegate: missing output argument %d", i)
		}
	}
	for i, typ := range p.inputTypes {
		arg := FindArgumentByIndex(inputArgs, i)
		if arg == nil {
			exceptions.Panicf("delegate: missing input argument %d", i)
		}
		runtime := typ.Clone()
		arg.Access(arg.Memory, &runtime)
		if err := typ.CheckRuntimeDims(runtime.Dimensions); err != nil {
			return errors.WithMessagef(ErrInvalidDimensions, "input %d: %v", i, err)
		}
	}
	return nil
}

// Execute runs the built program: it validates and feeds the input
// arguments, runs every sub-program in partition order, and fetches the
// outputs back through the output arguments' accessors at their actual
// extents. Tensors are reused from the previous call, resized to this
// call's extents.
func (p *Program) Execute(inputArgs, outputArgs []Argument) error {
	if p.subPrograms == nil {
		exceptions.Panicf("delegate: Execute on an unbuilt program")
	}
	if err := p.CheckInputsAndOutputs(inputArgs, outputArgs); err != nil {
		return err
	}

	store := p.store
	for i, typ := range p.inputTypes {
		arg := FindArgumentByIndex(inputArgs, i)
		runtime := typ.Clone()
		buffer := arg.Access(arg.Memory, &runtime)
		t := store.inputs[i]
		t.SetDType(typ.DType)
		t.Resize(runtime.Dimensions)
		t.CopyFrom(buffer[:t.ByteLen()])
	}

	for i, sub := range p.subModels {
		inputs := make([]*tensors.Tensor, len(sub.InputIndices))
		for j, idx := range sub.InputIndices {
			inputs[j] = store.resolveInput(idx)
		}
		outputs := make([]*tensors.Tensor, len(sub.OutputIndices))
		for j, idx := range sub.OutputIndices {
			outputs[j] = store.resolveOutput(idx)
		}
		if err := p.subPrograms[i].Execute(inputs, outputs); err != nil {
			return errors.WithMessagef(err, "delegate: sub-program %d (%s)", i, sub.Backend)
		}
	}

	for i, typ := range p.outputTypes {
		arg := FindArgumentByIndex(outputArgs, i)
		t := store.outputs[i]
		if !t.Allocated() {
			exceptions.Panicf("delegate: graph output %d was never produced", i)
		}
		actual := typ.Clone()
		actual.Dimensions = t.Dims()
		actual.Dynamic = nil
		buffer := arg.Access(arg.Memory, &actual)
		copy(buffer, t.Bytes())
	}
	return nil
}

// Clear finalizes the sub-programs and owned sub-graphs, returning the
// program to the unbuilt state. The context stays bound.
func (p *Program) Clear() {
	for _, sp := range p.subPrograms {
		sp.Finalize()
	}
	for _, sub := range p.subModels {
		if sub.Owned {
			sub.Graph.Finalize()
		}
	}
	p.subPrograms = nil
	p.subModels = nil
	p.inputTypes = nil
	p.outputTypes = nil
	p.store = nil
}

// Finalize releases the program. It is invalid afterwards.
func (p *Program) Finalize() {
	p.Clear()
	p.pool = nil
}

func declaredTypes(operands []*model.Operand) []shapes.Shape {
	types := make([]shapes.Shape, len(operands))
	for i, o := range operands {
		types[i] = o.Type.Clone()
		types[i].NormalizeDynamic()
	}
	return types
}

func cloneTypes(types []shapes.Shape) []shapes.Shape {
	clones := make([]shapes.Shape, len(types))
	for i, t := range types {
		clones[i] = t.Clone()
	}
	return clones
}
