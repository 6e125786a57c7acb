// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splice-ml/splice/model"
)

func TestRemoveIdentityOperations(t *testing.T) {
	m := model.New()
	x := addOperand(m, "x")
	h := addOperand(m, "h")
	y := addOperand(m, "y")
	m.AddOperation(model.OpTypeIdentity, []*model.Operand{x}, []*model.Operand{h})
	m.AddOperation(model.OpTypeRelu, []*model.Operand{h}, []*model.Operand{y})
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{y}

	RunPasses(m, DefaultPasses)
	require.Len(t, m.Operations, 1)
	require.Equal(t, model.OpTypeRelu, m.Operations[0].Type)
	require.Same(t, x, m.Operations[0].Inputs[0])
}

func TestKeepIdentityFeedingGraphOutput(t *testing.T) {
	m := model.New()
	x := addOperand(m, "x")
	y := addOperand(m, "y")
	m.AddOperation(model.OpTypeIdentity, []*model.Operand{x}, []*model.Operand{y})
	m.Inputs = []*model.Operand{x}
	m.Outputs = []*model.Operand{y}

	RunPasses(m, DefaultPasses)
	require.Len(t, m.Operations, 1)
}
