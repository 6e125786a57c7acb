// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"encoding/binary"

	"github.com/gomlx/exceptions"

	"github.com/splice-ml/splice/model"
	"github.com/splice-ml/splice/optimizer"
)

// Cache file layout, little-endian:
//
//	u64 sub-model count
//	per sub-model:
//	  i32 backend
//	  u64 length + serialized sub-graph
//	  u8  owned flag
//	  u64 count + i32 input indices
//	  u64 count + i32 output indices
//	  u64 length + engine blob (empty for non-accelerator backends)
//
// The whole buffer must be consumed exactly.

// CacheRecord is one decoded sub-model entry of a cache buffer.
type CacheRecord struct {
	Backend       optimizer.Backend
	Graph         *model.Model
	InputIndices  []int32
	OutputIndices []int32
	EngineBlob    []byte
}

// EncodeCache serializes the partitioned sub-models plus their compiled
// engine blobs (indexed by sub-model position, absent entries empty) into
// a cache buffer.
func EncodeCache(subModels []*optimizer.SubModel, engineBlobs map[int][]byte) []byte {
	var buf []byte
	u64 := func(v uint64) { buf = binary.LittleEndian.AppendUint64(buf, v) }
	i32 := func(v int32) { buf = binary.LittleEndian.AppendUint32(buf, uint32(v)) }
	blob := func(b []byte) { u64(uint64(len(b))); buf = append(buf, b...) }
	indices := func(idx []int32) {
		u64(uint64(len(idx)))
		for _, v := range idx {
			i32(v)
		}
	}

	u64(uint64(len(subModels)))
	for i, sub := range subModels {
		i32(int32(sub.Backend))
		blob(sub.Graph.Serialize())
		owned := uint8(0)
		if sub.Owned {
			owned = 1
		}
		buf = append(buf, owned)
		indices(sub.InputIndices)
		indices(sub.OutputIndices)
		blob(engineBlobs[i])
	}
	return buf
}

// DecodeCache parses a cache buffer back into its sub-model records. The
// decoded graphs are freshly owned reconstructions. A malformed buffer is
// a corruption of the compiled artifact and fatal: any truncated, invalid
// or trailing byte panics.
func DecodeCache(data []byte) []CacheRecord {
	pos := 0
	u64 := func() uint64 {
		if pos+8 > len(data) {
			exceptions.Panicf("delegate: truncated cache at offset %d", pos)
		}
		v := binary.LittleEndian.Uint64(data[pos:])
		pos += 8
		return v
	}
	i32 := func() int32 {
		if pos+4 > len(data) {
			exceptions.Panicf("delegate: truncated cache at offset %d", pos)
		}
		v := int32(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		return v
	}
	blob := func() []byte {
		n := u64()
		if uint64(pos)+n > uint64(len(data)) {
			exceptions.Panicf("delegate: cache blob of %d bytes overruns buffer at offset %d", n, pos)
		}
		b := data[pos : pos+int(n)]
		pos += int(n)
		return b
	}
	indices := func() []int32 {
		n := u64()
		if n > uint64(len(data)) {
			exceptions.Panicf("delegate: cache index list of %d entries overruns buffer", n)
		}
		idx := make([]int32, n)
		for i := range idx {
			idx[i] = i32()
		}
		return idx
	}

	count := u64()
	if count > uint64(len(data)) {
		exceptions.Panicf("delegate: cache claims %d sub-models in a %d byte buffer", count, len(data))
	}
	records := make([]CacheRecord, count)
	for i := range records {
		backend := i32()
		if backend < int32(optimizer.BackendAccelerator) || backend > int32(optimizer.BackendHost) {
			exceptions.Panicf("delegate: cache sub-model %d has unknown backend %d", i, backend)
		}
		graphBytes := blob()
		graph, err := model.Deserialize(graphBytes)
		if err != nil {
			exceptions.Panicf("delegate: cache sub-model %d graph: %v", i, err)
		}
		if pos >= len(data) {
			exceptions.Panicf("delegate: truncated cache at offset %d", pos)
		}
		pos++ // owned flag; decoded graphs are always owned
		rec := CacheRecord{Backend: optimizer.Backend(backend), Graph: graph}
		rec.InputIndices = indices()
		rec.OutputIndices = indices()
		rec.EngineBlob = blob()
		records[i] = rec
	}
	if pos != len(data) {
		exceptions.Panicf("delegate: %d trailing bytes after cache records", len(data)-pos)
	}
	return records
}
