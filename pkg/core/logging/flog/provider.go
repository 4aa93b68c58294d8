/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package flog provides module loggers backed by Fabric's zap based flogging.
package flog

import (
	"io"

	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"go.uber.org/zap/zapcore"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/core/logging/api"
)

const defaultFormat = "%{color}%{time:2006-01-02 15:04:05.000 MST} [%{module}] %{shortfunc} -> %{level:.4s} %{id:03x}%{color:reset} %{message}"

// Provider hands out flogging loggers.
type Provider struct{}

// Opts configure the global flogging instance.
type Opts struct {
	// Format is a flogging format string, or "json" / "logfmt"
	Format string
	// Spec is the initial level spec
	Spec string
	// Writer defaults to stderr
	Writer io.Writer
}

// New initializes flogging with opts and returns a Provider.
func New(opts Opts) *Provider {
	if opts.Format == "" {
		opts.Format = defaultFormat
	}
	flogging.Init(flogging.Config{
		Format:  opts.Format,
		LogSpec: opts.Spec,
		Writer:  opts.Writer,
	})
	return &Provider{}
}

// GetLogger returns the flogging logger for module.
func (p *Provider) GetLogger(module string) api.Logger {
	return flogging.MustGetLogger(module)
}

// ActivateSpec applies a flogging level spec.
func (p *Provider) ActivateSpec(spec string) error {
	return flogging.Global.ActivateSpec(spec)
}

// IsEnabledFor reports whether level is enabled for module.
func (p *Provider) IsEnabledFor(module string, level api.Level) bool {
	var current zapcore.Level
	if err := current.UnmarshalText([]byte(flogging.LoggerLevel(module))); err != nil {
		return false
	}
	return current.Enabled(toZapLevel(level))
}

func toZapLevel(level api.Level) zapcore.Level {
	switch level {
	case api.CRITICAL:
		return zapcore.PanicLevel
	case api.ERROR:
		return zapcore.ErrorLevel
	case api.WARNING:
		return zapcore.WarnLevel
	case api.DEBUG:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
