// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubProvider struct{ name string }

func (p *stubProvider) Name() string               { return p.name }
func (p *stubProvider) Compiler() Compiler         { return nil }
func (p *stubProvider) Runtime() Runtime           { return nil }
func (p *stubProvider) NumDevices(DeviceClass) int { return 1 }

func TestProviderRegistry(t *testing.T) {
	Register(&stubProvider{name: "stub-a"})
	Register(&stubProvider{name: "stub-b"})

	require.Equal(t, "stub-a", New("").Name())
	require.Equal(t, "stub-b", New("stub-b").Name())
	require.Panics(t, func() { New("no-such-provider") })
}

func TestStringers(t *testing.T) {
	require.Equal(t, "GPU", DeviceGPU.String())
	require.Equal(t, "DLA", DeviceDLA.String())
	require.Equal(t, "float32", PrecisionFloat32.String())
	require.Equal(t, "float16", PrecisionFloat16.String())
	require.Equal(t, "int8", PrecisionInt8.String())
}
