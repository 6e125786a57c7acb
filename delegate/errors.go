// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package delegate

import "github.com/pkg/errors"

// ErrInvalidDimensions reports that concrete input extents passed to
// Program.CheckInputsAndOutputs fall outside the declared shapes (rank
// mismatch, static extent mismatch, or outside a dynamic min/max range).
//
// It is the one recoverable condition of the execution path: callers detect
// it with errors.Is and may retry with a rebuilt program. Everything else
// on the path is an invariant violation and panics.
var ErrInvalidDimensions = errors.New("invalid input dimensions")
