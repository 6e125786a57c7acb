// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package optimizer

import (
	"k8s.io/klog/v2"

	"github.com/splice-ml/splice/model"
)

// Pass is a graph rewrite applied to an accelerator sub-graph before it is
// compiled. Passes mutate the model in place.
type Pass func(*model.Model)

// DefaultPasses are applied, in order, by the accelerator sub-program build.
var DefaultPasses = []Pass{RemoveIdentityOperations}

// RunPasses applies the passes to m in order.
func RunPasses(m *model.Model, passes []Pass) {
	for _, pass := range passes {
		pass(m)
	}
}

// RemoveIdentityOperations drops Identity operations whose output is not a
// graph-level output, rewiring consumers to read the identity's input
// directly.
func RemoveIdentityOperations(m *model.Model) {
	outputs := make(map[*model.Operand]bool, len(m.Outputs))
	for _, o := range m.Outputs {
		outputs[o] = true
	}
	removed := 0
	kept := m.Operations[:0]
	for _, op := range m.Operations {
		if op.Type != model.OpTypeIdentity || outputs[op.Outputs[0]] {
			kept = append(kept, op)
			continue
		}
		from, to := op.Outputs[0], op.Inputs[0]
		for _, other := range m.Operations {
			for i, in := range other.Inputs {
				if in == from {
					other.Inputs[i] = to
				}
			}
		}
		removed++
	}
	m.Operations = kept
	if removed > 0 {
		klog.V(3).Infof("optimizer: removed %d identity operations", removed)
	}
}
