// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package model

import (
	"github.com/gomlx/exceptions"
)

// SortOperationsInTopologicalOrder returns the model's operations ordered so
// that every operation appears after the producers of all its inputs.
// Ties keep the model's declaration order, so the result is deterministic.
//
// A cyclic graph is a fatal internal error: the graph invariants were already
// violated before compilation started.
func SortOperationsInTopologicalOrder(m *Model) []*Operation {
	producers := m.Producers()
	remaining := make(map[*Operation]int, len(m.Operations))
	consumers := make(map[*Operation][]*Operation, len(m.Operations))
	inModel := make(map[*Operation]bool, len(m.Operations))
	for _, op := range m.Operations {
		inModel[op] = true
	}
	for _, op := range m.Operations {
		deps := 0
		for _, in := range op.Inputs {
			producer := producers[in]
			if producer == nil || !inModel[producer] || producer == op {
				continue
			}
			deps++
			consumers[producer] = append(consumers[producer], op)
		}
		remaining[op] = deps
	}

	sorted := make([]*Operation, 0, len(m.Operations))
	ready := make([]*Operation, 0, len(m.Operations))
	for _, op := range m.Operations {
		if remaining[op] == 0 {
			ready = append(ready, op)
		}
	}
	for len(ready) > 0 {
		op := ready[0]
		ready = ready[1:]
		sorted = append(sorted, op)
		for _, consumer := range consumers[op] {
			remaining[consumer]--
			if remaining[consumer] == 0 {
				ready = append(ready, consumer)
			}
		}
	}
	if len(sorted) != len(m.Operations) {
		exceptions.Panicf("model: operations do not form a DAG (%d of %d sorted)", len(sorted), len(m.Operations))
	}
	return sorted
}
