// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package model

import (
	"encoding/binary"
	"math"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/splice-ml/splice/types/dtypes"
	"github.com/splice-ml/splice/types/shapes"
)

// Private fixed binary layout of a serialized graph, little-endian throughout:
// operand table first (type descriptor plus optional constant payload), then
// the operation table referencing operands by table index, then the boundary
// index lists. Deserialize must consume the buffer exactly.

// Serialize encodes the model into its private binary format.
func (m *Model) Serialize() []byte {
	w := newByteWriter()
	w.u32(uint32(len(m.Operands)))
	index := make(map[*Operand]int, len(m.Operands))
	for i, o := range m.Operands {
		index[o] = i
		w.str(o.Name)
		w.i32(int32(o.Type.DType))
		w.u32(uint32(o.Type.Rank()))
		for _, dim := range o.Type.Dimensions {
			w.i32(int32(dim))
		}
		if d := o.Type.Dynamic; d != nil {
			w.u8(1)
			for _, vec := range [][]int{d.Opt, d.Min, d.Max} {
				for _, dim := range vec {
					w.i32(int32(dim))
				}
			}
		} else {
			w.u8(0)
		}
		if q := o.Type.Quant; q != nil {
			w.u8(1)
			w.f32(q.Scale)
			w.i32(q.ZeroPoint)
			w.i32(int32(q.ChannelDim))
			w.u32(uint32(len(q.Scales)))
			for _, s := range q.Scales {
				w.f32(s)
			}
		} else {
			w.u8(0)
		}
		if o.IsConstant() {
			w.u8(1)
			w.bytes(o.Buffer)
		} else {
			w.u8(0)
		}
	}
	w.u32(uint32(len(m.Operations)))
	for _, op := range m.Operations {
		w.i32(int32(op.Type))
		w.operandRefs(op.Inputs, index)
		w.operandRefs(op.Outputs, index)
	}
	w.operandRefs(m.Inputs, index)
	w.operandRefs(m.Outputs, index)
	return w.buf
}

// Deserialize reconstructs a model from Serialize's output. The buffer must
// be consumed exactly; trailing bytes mean corruption.
func Deserialize(data []byte) (*Model, error) {
	r := &byteReader{buf: data}
	m := New()
	numOperands, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numOperands; i++ {
		var o Operand
		if o.Name, err = r.str(); err != nil {
			return nil, err
		}
		dtype, err := r.i32()
		if err != nil {
			return nil, err
		}
		o.Type.DType = dtypes.DType(dtype)
		if !o.Type.DType.Ok() {
			return nil, errors.Errorf("model: operand %q carries invalid dtype code %d", o.Name, dtype)
		}
		rank, err := r.u32()
		if err != nil {
			return nil, err
		}
		if o.Type.Dimensions, err = r.dims(int(rank)); err != nil {
			return nil, err
		}
		hasDynamic, err := r.u8()
		if err != nil {
			return nil, err
		}
		if hasDynamic != 0 {
			d := &shapes.DynamicProfile{}
			for _, vec := range []*[]int{&d.Opt, &d.Min, &d.Max} {
				if *vec, err = r.dims(int(rank)); err != nil {
					return nil, err
				}
			}
			o.Type.Dynamic = d
		}
		hasQuant, err := r.u8()
		if err != nil {
			return nil, err
		}
		if hasQuant != 0 {
			q := &shapes.QuantParams{}
			if q.Scale, err = r.f32(); err != nil {
				return nil, err
			}
			if q.ZeroPoint, err = r.i32(); err != nil {
				return nil, err
			}
			channelDim, err := r.i32()
			if err != nil {
				return nil, err
			}
			q.ChannelDim = int(channelDim)
			numScales, err := r.u32()
			if err != nil {
				return nil, err
			}
			q.Scales = make([]float32, numScales)
			for i := range q.Scales {
				if q.Scales[i], err = r.f32(); err != nil {
					return nil, err
				}
			}
			o.Type.Quant = q
		}
		isConst, err := r.u8()
		if err != nil {
			return nil, err
		}
		if isConst != 0 {
			if o.Buffer, err = r.bytes(); err != nil {
				return nil, err
			}
		}
		m.Operands = append(m.Operands, &o)
	}
	numOperations, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numOperations; i++ {
		opType, err := r.i32()
		if err != nil {
			return nil, err
		}
		op := &Operation{Type: OpType(opType)}
		if !op.Type.IsAOpType() || op.Type == OpTypeInvalid {
			return nil, errors.Errorf("model: invalid operation kind code %d", opType)
		}
		if op.Inputs, err = r.operandRefs(m.Operands); err != nil {
			return nil, err
		}
		if op.Outputs, err = r.operandRefs(m.Operands); err != nil {
			return nil, err
		}
		m.Operations = append(m.Operations, op)
	}
	if m.Inputs, err = r.operandRefs(m.Operands); err != nil {
		return nil, err
	}
	if m.Outputs, err = r.operandRefs(m.Operands); err != nil {
		return nil, err
	}
	if len(r.buf) != r.pos {
		return nil, errors.Errorf("model: %d trailing bytes after deserialization", len(r.buf)-r.pos)
	}
	return m, nil
}

type byteWriter struct {
	buf []byte
}

func newByteWriter() *byteWriter { return &byteWriter{} }

func (w *byteWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *byteWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *byteWriter) i32(v int32)  { w.u32(uint32(v)) }
func (w *byteWriter) f32(v float32) {
	w.u32(math.Float32bits(v))
}
func (w *byteWriter) bytes(b []byte) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(len(b)))
	w.buf = append(w.buf, b...)
}
func (w *byteWriter) str(s string) { w.bytes([]byte(s)) }

func (w *byteWriter) operandRefs(operands []*Operand, index map[*Operand]int) {
	w.u32(uint32(len(operands)))
	for _, o := range operands {
		i, ok := index[o]
		if !ok {
			exceptions.Panicf("model: serializing a reference to operand %q, which is not in the operand table", o.Name)
		}
		w.i32(int32(i))
	}
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, errors.Errorf("model: truncated buffer (%d bytes needed at offset %d of %d)", n, r.pos, len(r.buf))
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *byteReader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *byteReader) f32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *byteReader) bytes() ([]byte, error) {
	n, err := r.u64()
	if err != nil {
		return nil, err
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (r *byteReader) str() (string, error) {
	b, err := r.bytes()
	return string(b), err
}

func (r *byteReader) dims(rank int) ([]int, error) {
	dims := make([]int, rank)
	for i := range dims {
		v, err := r.i32()
		if err != nil {
			return nil, err
		}
		dims[i] = int(v)
	}
	return dims, nil
}

func (r *byteReader) operandRefs(operands []*Operand) ([]*Operand, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	refs := make([]*Operand, 0, n)
	for i := uint32(0); i < n; i++ {
		i, err := r.i32()
		if err != nil {
			return nil, err
		}
		if i < 0 || int(i) >= len(operands) {
			return nil, errors.Errorf("model: operand reference %d out of range [0, %d)", i, len(operands))
		}
		refs = append(refs, operands[i])
	}
	return refs, nil
}
