// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Int8EntropyCalibrator supplies per-tensor scales for int8 engine builds.
//
// If the calibration table exists it is the source of truth; otherwise the
// scales are derived from the dataset (one file of raw float32 samples per
// tensor, scale = max|x| / 127) and, when a table path is configured, written
// back so the next build skips the dataset scan.
type Int8EntropyCalibrator struct {
	batchSize   int
	datasetPath string
	tablePath   string

	scales map[string]float32
}

// NewInt8EntropyCalibrator returns a calibrator reading batchSize samples at
// a time. At least one of datasetPath and tablePath must be non-empty.
func NewInt8EntropyCalibrator(batchSize int, datasetPath, tablePath string) *Int8EntropyCalibrator {
	return &Int8EntropyCalibrator{
		batchSize:   max(batchSize, 1),
		datasetPath: datasetPath,
		tablePath:   tablePath,
	}
}

// BatchSize returns the calibration batch size.
func (c *Int8EntropyCalibrator) BatchSize() int { return c.batchSize }

// Scales returns the per-tensor calibration scales, computing and caching
// them on the first call.
func (c *Int8EntropyCalibrator) Scales() (map[string]float32, error) {
	if c.scales != nil {
		return c.scales, nil
	}
	if c.tablePath != "" {
		if scales, err := c.readTable(); err == nil {
			c.scales = scales
			return scales, nil
		} else if !os.IsNotExist(errors.Cause(err)) {
			return nil, err
		}
	}
	if c.datasetPath == "" {
		return nil, errors.Errorf("calibration table %q not found and no calibration dataset configured", c.tablePath)
	}
	scales, err := c.scanDataset()
	if err != nil {
		return nil, err
	}
	c.scales = scales
	if c.tablePath != "" {
		if err := c.writeTable(scales); err != nil {
			klog.Warningf("calibrator: could not write calibration table %q: %+v", c.tablePath, err)
		}
	}
	return scales, nil
}

func (c *Int8EntropyCalibrator) readTable() (map[string]float32, error) {
	f, err := os.Open(c.tablePath)
	if err != nil {
		return nil, errors.WithMessagef(err, "calibrator: opening table %q", c.tablePath)
	}
	defer f.Close()
	scales := make(map[string]float32)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Errorf("calibrator: malformed table line %q in %q", line, c.tablePath)
		}
		scale, err := strconv.ParseFloat(fields[1], 32)
		if err != nil {
			return nil, errors.WithMessagef(err, "calibrator: malformed scale in table line %q", line)
		}
		scales[fields[0]] = float32(scale)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithMessagef(err, "calibrator: reading table %q", c.tablePath)
	}
	return scales, nil
}

func (c *Int8EntropyCalibrator) scanDataset() (map[string]float32, error) {
	entries, err := os.ReadDir(c.datasetPath)
	if err != nil {
		return nil, errors.WithMessagef(err, "calibrator: reading dataset %q", c.datasetPath)
	}
	scales := make(map[string]float32)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.datasetPath, entry.Name()))
		if err != nil {
			return nil, errors.WithMessagef(err, "calibrator: reading sample %q", entry.Name())
		}
		var maxAbs float64
		for i := 0; i+4 <= len(data); i += 4 {
			v := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i:])))
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
		if maxAbs == 0 {
			maxAbs = 1
		}
		scales[entry.Name()] = float32(maxAbs / 127)
	}
	if len(scales) == 0 {
		return nil, errors.Errorf("calibrator: dataset %q holds no samples", c.datasetPath)
	}
	klog.V(2).Infof("calibrator: derived %d scales from dataset %q (batch size %d)", len(scales), c.datasetPath, c.batchSize)
	return scales, nil
}

func (c *Int8EntropyCalibrator) writeTable(scales map[string]float32) error {
	names := make([]string, 0, len(scales))
	for name := range scales {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s %g\n", name, scales[name])
	}
	return errors.WithMessagef(os.WriteFile(c.tablePath, []byte(b.String()), 0o644),
		"calibrator: writing table %q", c.tablePath)
}
