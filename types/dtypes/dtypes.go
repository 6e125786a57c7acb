// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes defines the precision codes an operand can take.
//
// The set is fixed: booleans, signed and unsigned integers of 8 to 64 bits,
// IEEE floats of 16 to 64 bits and the quantized 8-bit variants. Quantized
// dtypes carry their scale information in shapes.QuantParams, not here --
// the code only identifies the storage format.
package dtypes

//go:generate go tool enumer -type=DType -output=gen_dtype_enumer.go dtypes.go

// DType is the precision code of an operand or tensor element.
type DType int32

const (
	InvalidDType DType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float16
	Float32
	Float64

	// QInt8SymmPerLayer is a symmetrically quantized int8 with one scale for
	// the whole tensor.
	QInt8SymmPerLayer

	// QInt8SymmPerChannel is a symmetrically quantized int8 with one scale
	// per channel along a designated axis.
	QInt8SymmPerChannel

	// QUint8AsymmPerLayer is an asymmetrically quantized uint8 with a single
	// scale and zero point.
	QUint8AsymmPerLayer
)

// Size returns the storage size in bytes of one element of the dtype.
func (dt DType) Size() int {
	switch dt {
	case Bool, Int8, Uint8, QInt8SymmPerLayer, QInt8SymmPerChannel, QUint8AsymmPerLayer:
		return 1
	case Int16, Uint16, Float16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

// IsQuantized reports whether the dtype is one of the quantized variants.
func (dt DType) IsQuantized() bool {
	return dt == QInt8SymmPerLayer || dt == QInt8SymmPerChannel || dt == QUint8AsymmPerLayer
}

// IsFloat reports whether the dtype is a float type.
func (dt DType) IsFloat() bool {
	return dt == Float16 || dt == Float32 || dt == Float64
}

// Ok reports whether the dtype is a valid precision code.
func (dt DType) Ok() bool {
	return dt != InvalidDType && dt.IsADType()
}
