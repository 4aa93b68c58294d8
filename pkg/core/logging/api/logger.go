/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

// Level defines all available log levels for log messages.
type Level int

// Log levels.
const (
	CRITICAL Level = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

// Logger is the logging interface used by every package of the gateway.
type Logger interface {
	Fatal(v ...interface{})

	Fatalf(format string, v ...interface{})

	Panic(v ...interface{})

	Panicf(format string, v ...interface{})

	Debug(args ...interface{})

	Debugf(format string, args ...interface{})

	Info(args ...interface{})

	Infof(format string, args ...interface{})

	Warn(args ...interface{})

	Warnf(format string, args ...interface{})

	Error(args ...interface{})

	Errorf(format string, args ...interface{})
}

// LoggerProvider is a factory for module loggers
type LoggerProvider interface {
	GetLogger(module string) Logger
}

// Leveler is implemented by providers that support per-module levels.
type Leveler interface {
	// ActivateSpec applies a level spec such as "info:claimsgw.fab=debug"
	ActivateSpec(spec string) error
	// IsEnabledFor reports whether level is logged for module
	IsEnabledFor(module string, level Level) bool
}
