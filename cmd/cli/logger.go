// Copyright 2025 Stefan Prodan.
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logEncodings lists the supported --log-encoding values.
var logEncodings = []string{"console", "json"}

// logger prints diagnostics when --verbose is set, it discards everything otherwise.
var logger = logr.Discard()

// newLogger returns a zap backed logr.Logger writing debug level entries to w.
func newLogger(verbose bool, encoding string, w io.Writer) (logr.Logger, error) {
	if !slices.Contains(logEncodings, encoding) {
		return logr.Discard(), fmt.Errorf("unsupported log encoding %q, supported encodings: %v",
			encoding, logEncodings)
	}
	if !verbose {
		return logr.Discard(), nil
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch encoding {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel)
	return zapr.NewLogger(zap.New(core)), nil
}
