// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

// Package engine defines the boundary to the accelerator SDK: the compiler
// that turns a sub-graph into a serialized engine blob, the runtime that
// reloads blobs, and the execution-context protocol used to run them.
//
// Concrete SDK bindings are swappable providers registered by name; import
// the portable reference provider with
//
//	import _ "github.com/splice-ml/splice/engine/ref"
//
// which registers itself during initialization.
package engine

import (
	"sort"

	"github.com/gomlx/exceptions"

	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/types/tensors"
)

// DeviceClass selects between the two accelerator device variants.
type DeviceClass int32

const (
	// DeviceGPU is the general-purpose accelerator device.
	DeviceGPU DeviceClass = iota
	// DeviceDLA is the fixed-function inference core variant.
	DeviceDLA
)

// String implements fmt.Stringer.
func (d DeviceClass) String() string {
	if d == DeviceDLA {
		return "DLA"
	}
	return "GPU"
}

// Precision selects the engine compilation precision mode.
type Precision int32

const (
	PrecisionFloat32 Precision = iota
	PrecisionFloat16
	PrecisionInt8
)

// String implements fmt.Stringer.
func (p Precision) String() string {
	switch p {
	case PrecisionFloat16:
		return "float16"
	case PrecisionInt8:
		return "int8"
	}
	return "float32"
}

// Profile is the {opt, min, max} optimization profile of one dynamic input,
// addressed by its binding name.
type Profile struct {
	Name          string
	Opt, Min, Max []int
}

// Config carries the resolved builder options for one engine compilation.
type Config struct {
	DeviceClass   DeviceClass
	DeviceOrdinal int
	Precision     Precision
	GPUFallback   bool
	Profiles      []Profile
	Calibrator    *Int8EntropyCalibrator
	Logger        *Logger
}

// Compiler builds a sub-graph into the engine's serialized native format.
type Compiler interface {
	// Compile returns the serialized engine blob for the sub-graph under the
	// given builder options. The blob is opaque to callers and only
	// meaningful to the matching Runtime.
	Compile(m *model.Model, cfg *Config) ([]byte, error)
}

// Runtime instantiates engines from serialized blobs.
type Runtime interface {
	Load(blob []byte) (Engine, error)
}

// Engine is a loaded, executable compiled engine with named bindings.
// Input i is bound as "input{i}", output i as "output{i}".
type Engine interface {
	// NumBindings returns the total number of input plus output bindings.
	NumBindings() int

	// BindingIndex resolves a binding name to its index, or -1.
	BindingIndex(name string) int

	// NewExecutionContext creates an execution context over the engine.
	NewExecutionContext() (ExecutionContext, error)

	// Finalize releases the engine's resources immediately.
	Finalize()
}

// ExecutionContext runs one engine with concrete per-call extents.
type ExecutionContext interface {
	// SetBindingDimensions sets the concrete extents of an input binding
	// for the next Execute.
	SetBindingDimensions(binding int, dims []int)

	// AllInputDimensionsSpecified reports whether every input binding has
	// concrete extents set.
	AllInputDimensionsSpecified() bool

	// Execute runs the engine synchronously. The bindings slice is indexed
	// by binding index and every slot must be non-nil.
	Execute(bindings []*tensors.Tensor) error

	// BindingDimensions returns the actual extents of a binding after the
	// last Execute.
	BindingDimensions(binding int) []int
}

// Provider is one registered engine implementation.
type Provider interface {
	// Name of the provider, used in the SPLICE_ENGINE configuration key.
	Name() string
	Compiler() Compiler
	Runtime() Runtime

	// NumDevices returns the number of available devices of the class.
	NumDevices(class DeviceClass) int
}

var (
	registeredProviders = make(map[string]Provider)
	firstRegistered     string
)

// Register a provider under its name. Call during package initialization.
func Register(p Provider) {
	if len(registeredProviders) == 0 {
		firstRegistered = p.Name()
	}
	registeredProviders[p.Name()] = p
}

// New returns the provider registered under name, or the first registered
// provider if name is empty. It panics (fatal) if the name is unknown or no
// provider was registered at all.
func New(name string) Provider {
	if len(registeredProviders) == 0 {
		exceptions.Panicf(`engine: no providers registered -- import the reference one with import _ "github.com/splice-ml/splice/engine/ref"`)
	}
	if name == "" {
		name = firstRegistered
	}
	p, found := registeredProviders[name]
	if !found {
		names := make([]string, 0, len(registeredProviders))
		for n := range registeredProviders {
			names = append(names, n)
		}
		sort.Strings(names)
		exceptions.Panicf("engine: provider %q not registered (available: %v)", name, names)
	}
	return p
}
