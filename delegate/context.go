// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package delegate

import (
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"

	"github.com/splice-ml/splice/engine"
	"github.com/splice-ml/splice/model"
)

// Configuration keys accepted by NewContext, both in the properties string
// ("KEY=value;KEY=value") and as environment variable fallbacks.
const (
	// KeyDeviceClass selects "GPU" (default) or "DLA".
	KeyDeviceClass = "SPLICE_DEVICE_CLASS"
	// KeyDeviceOrdinal selects the device index within the class.
	KeyDeviceOrdinal = "SPLICE_DEVICE_ORDINAL"
	// KeyPrecision selects "float32" (default), "float16" or "int8".
	KeyPrecision = "SPLICE_PRECISION"
	// KeyGPUFallback lets layers that cannot run on the DLA fall back to
	// the GPU. "true" or "false" (default true).
	KeyGPUFallback = "SPLICE_GPU_FALLBACK"
	// KeyCalibrationDatasetPath points at a directory of raw float32
	// sample files used to derive int8 scales.
	KeyCalibrationDatasetPath = "SPLICE_CALIBRATION_DATASET_PATH"
	// KeyCalibrationTablePath points at the calibration table file,
	// read when present and written back after a dataset scan.
	KeyCalibrationTablePath = "SPLICE_CALIBRATION_TABLE_PATH"
	// KeyComputeOperationsList is a comma-separated list of operation
	// kinds forced onto the compute-kernel backend.
	KeyComputeOperationsList = "SPLICE_COMPUTE_OPERATIONS_LIST"
	// KeyHostOperationsList is a comma-separated list of operation kinds
	// forced onto the host backend.
	KeyHostOperationsList = "SPLICE_HOST_OPERATIONS_LIST"
	// KeyEngine names the registered engine provider to use. Empty picks
	// the first registered provider.
	KeyEngine = "SPLICE_ENGINE"
)

// Context holds the device and compilation options shared by every Program
// created for one client, resolved once from the properties string.
type Context struct {
	DeviceClass   engine.DeviceClass
	DeviceOrdinal int
	Precision     engine.Precision
	GPUFallback   bool

	CalibrationDatasetPath string
	CalibrationTablePath   string

	// ComputeOps and HostOps are the operation kinds the partitioner
	// assigns to the compute and host backends. Everything else goes to
	// the accelerator engine.
	ComputeOps map[model.OpType]bool
	HostOps    map[model.OpType]bool

	Provider engine.Provider
	Logger   *engine.Logger
}

// NewContext parses a ";"-separated "KEY=value" properties string. Keys
// absent from the string fall back to the environment variable of the same
// name. Malformed pairs and invalid values are fatal; keys the delegate
// does not read are kept but ignored.
func NewContext(properties string) *Context {
	props := parseProperties(properties)
	lookup := func(key string) string {
		if v, found := props[key]; found {
			return v
		}
		return os.Getenv(key)
	}

	ctx := &Context{
		GPUFallback: true,
		Logger:      engine.GlobalLogger(),
	}

	switch v := lookup(KeyDeviceClass); v {
	case "", "GPU":
		ctx.DeviceClass = engine.DeviceGPU
	case "DLA":
		ctx.DeviceClass = engine.DeviceDLA
	default:
		exceptions.Panicf("delegate: %s=%q is not a device class (GPU or DLA)", KeyDeviceClass, v)
	}

	if v := lookup(KeyDeviceOrdinal); v != "" {
		ordinal, err := strconv.Atoi(v)
		if err != nil {
			exceptions.Panicf("delegate: %s=%q is not an integer", KeyDeviceOrdinal, v)
		}
		if ordinal < 0 {
			ctx.Logger.Warningf("%s=%d is negative, using device 0", KeyDeviceOrdinal, ordinal)
			ordinal = 0
		}
		ctx.DeviceOrdinal = ordinal
	}

	switch v := lookup(KeyPrecision); v {
	case "", "float32":
		ctx.Precision = engine.PrecisionFloat32
	case "float16":
		ctx.Precision = engine.PrecisionFloat16
	case "int8":
		ctx.Precision = engine.PrecisionInt8
	default:
		exceptions.Panicf("delegate: %s=%q is not a precision (float32, float16 or int8)", KeyPrecision, v)
	}

	if v := lookup(KeyGPUFallback); v != "" {
		fallback, err := strconv.ParseBool(v)
		if err != nil {
			exceptions.Panicf("delegate: %s=%q is not a boolean", KeyGPUFallback, v)
		}
		ctx.GPUFallback = fallback
	}

	ctx.CalibrationDatasetPath = lookup(KeyCalibrationDatasetPath)
	ctx.CalibrationTablePath = lookup(KeyCalibrationTablePath)
	if ctx.Precision == engine.PrecisionInt8 &&
		ctx.CalibrationDatasetPath == "" && ctx.CalibrationTablePath == "" {
		exceptions.Panicf("delegate: int8 precision requires %s or %s",
			KeyCalibrationDatasetPath, KeyCalibrationTablePath)
	}

	ctx.ComputeOps = parseOperationsList(KeyComputeOperationsList, lookup(KeyComputeOperationsList))
	ctx.HostOps = parseOperationsList(KeyHostOperationsList, lookup(KeyHostOperationsList))
	ctx.Provider = engine.New(lookup(KeyEngine))
	return ctx
}

func parseProperties(properties string) map[string]string {
	props := make(map[string]string)
	for _, pair := range strings.Split(properties, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			exceptions.Panicf("delegate: malformed property %q, want KEY=value", pair)
		}
		props[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return props
}

func parseOperationsList(key, list string) map[model.OpType]bool {
	ops := make(map[model.OpType]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, err := model.OpTypeString(name)
		if err != nil {
			exceptions.Panicf("delegate: %s names unknown operation %q", key, name)
		}
		ops[t] = true
	}
	return ops
}
