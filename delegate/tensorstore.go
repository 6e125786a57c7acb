// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"github.com/gomlx/exceptions"

	"github.com/splice-ml/splice/types/tensors"
)

// tensorStore holds the live tensors of a built program: the graph-level
// input and output tensors plus the intermediates flowing between
// sub-programs. It lives as long as the program is built and is reused by
// every Execute call, so tensors with stable shapes keep their backing
// storage.
//
// Index convention follows the sub-model boundary lists: -(i+1) addresses
// the i-th graph input (when resolving a sub-program input) or the i-th
// graph output (when resolving a sub-program output); non-negative indices
// address intermediates.
type tensorStore struct {
	inputs      []*tensors.Tensor
	outputs     []*tensors.Tensor
	temporaries map[int32]*tensors.Tensor
}

func newTensorStore(numInputs, numOutputs int) *tensorStore {
	s := &tensorStore{
		inputs:      make([]*tensors.Tensor, numInputs),
		outputs:     make([]*tensors.Tensor, numOutputs),
		temporaries: make(map[int32]*tensors.Tensor),
	}
	for i := range s.inputs {
		s.inputs[i] = tensors.New()
	}
	for i := range s.outputs {
		s.outputs[i] = tensors.New()
	}
	return s
}

// resolveInput returns the tensor a sub-program reads under idx. Negative
// indices must name a graph input; non-negative ones must name an
// intermediate already produced by an earlier sub-program.
func (s *tensorStore) resolveInput(idx int32) *tensors.Tensor {
	if idx < 0 {
		i := int(-idx) - 1
		if i >= len(s.inputs) {
			exceptions.Panicf("delegate: sub-program input index %d out of range (%d graph inputs)", idx, len(s.inputs))
		}
		return s.inputs[i]
	}
	t, found := s.temporaries[idx]
	if !found {
		exceptions.Panicf("delegate: sub-program reads intermediate %d before it is produced", idx)
	}
	return t
}

// resolveOutput returns the tensor a sub-program writes under idx, creating
// intermediate tensors lazily.
func (s *tensorStore) resolveOutput(idx int32) *tensors.Tensor {
	if idx < 0 {
		i := int(-idx) - 1
		if i >= len(s.outputs) {
			exceptions.Panicf("delegate: sub-program output index %d out of range (%d graph outputs)", idx, len(s.outputs))
		}
		return s.outputs[i]
	}
	t, found := s.temporaries[idx]
	if !found {
		t = tensors.New()
		s.temporaries[idx] = t
	}
	return t
}
