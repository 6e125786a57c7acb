// Copyright 2026 The Splice Authors. SPDX-License-Identifier: Apache-2.0

package engine

import (
	"sync"

	"k8s.io/klog/v2"
)

// Logger is the process-wide engine logger handed to compilers and runtimes.
// Engine SDKs require a single logger instance for the whole process; it is
// initialized once on first use and has no teardown. Pass it explicitly in
// Config rather than reaching for the singleton from inside providers.
type Logger struct {
	prefix string
}

var (
	globalLogger     *Logger
	globalLoggerOnce sync.Once
)

// GlobalLogger returns the process-wide engine logger, creating it on the
// first call.
func GlobalLogger() *Logger {
	globalLoggerOnce.Do(func() {
		globalLogger = &Logger{prefix: "engine: "}
	})
	return globalLogger
}

// Infof logs an informational engine message.
func (l *Logger) Infof(format string, args ...any) {
	klog.V(2).InfofDepth(1, l.prefix+format, args...)
}

// Warningf logs an engine warning.
func (l *Logger) Warningf(format string, args ...any) {
	klog.WarningfDepth(1, l.prefix+format, args...)
}

// Errorf logs an engine error.
func (l *Logger) Errorf(format string, args ...any) {
	klog.ErrorfDepth(1, l.prefix+format, args...)
}
