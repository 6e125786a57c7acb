// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package model

// OpType enumerates the recognized operation kinds. The set is fixed: a graph
// holding any other kind cannot be compiled.
//
// Operation attributes (softmax axis, reshape target, transpose permutation,
// concat axis) travel as trailing constant input operands, so an Operation
// needs no attribute storage of its own.
type OpType int32

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeIdentity
	OpTypeAdd
	OpTypeSub
	OpTypeMul
	OpTypeDiv
	OpTypeMax
	OpTypeMin
	OpTypeRelu
	OpTypeSigmoid
	OpTypeTanh
	OpTypeSoftmax
	OpTypeFullyConnected
	OpTypeMatMul
	OpTypeReshape
	OpTypeTranspose
	OpTypeConcat
	OpTypeQuantize
	OpTypeDequantize
)
