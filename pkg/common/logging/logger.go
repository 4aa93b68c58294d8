/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logging is the logging facade used across the gateway.
//
//	Basic Flow:
//	1) Initialize a provider (optional, flogging is used otherwise)
//	2) Create a logger per module with NewLogger
//	3) Log
package logging

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/core/logging/api"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/core/logging/flog"
)

// Logger defers to the api.Logger of the active provider.
type Logger struct {
	instance api.Logger // access only via Logger.logger()
	module   string
	once     sync.Once
}

var (
	providerMtx      sync.RWMutex
	providerInstance api.LoggerProvider
)

const loggerModule = "claimsgw.common"

// NewLogger creates a Logger for module. The underlying logger is resolved
// on first use so that package level loggers pick up Initialize.
func NewLogger(module string) *Logger {
	return &Logger{module: module}
}

func loggerProvider() api.LoggerProvider {
	providerMtx.RLock()
	p := providerInstance
	providerMtx.RUnlock()
	if p != nil {
		return p
	}

	providerMtx.Lock()
	defer providerMtx.Unlock()
	if providerInstance == nil {
		providerInstance = flog.New(flog.Opts{})
		providerInstance.GetLogger(loggerModule).Debug("default logger provider initialized")
	}
	return providerInstance
}

// Initialize installs the provider used by loggers that have not logged yet.
func Initialize(l api.LoggerProvider) {
	providerMtx.Lock()
	providerInstance = l
	providerMtx.Unlock()
	l.GetLogger(loggerModule).Debug("logger provider initialized")
}

// ActivateSpec applies a level spec such as "info:claimsgw.fab=debug".
func ActivateSpec(spec string) error {
	leveler, ok := loggerProvider().(api.Leveler)
	if !ok {
		return errors.New("logger provider does not support levels")
	}
	return leveler.ActivateSpec(spec)
}

// IsEnabledFor reports whether level is enabled for module. Providers without
// level support log everything.
func IsEnabledFor(module string, level api.Level) bool {
	leveler, ok := loggerProvider().(api.Leveler)
	if !ok {
		return true
	}
	return leveler.IsEnabledFor(module, level)
}

// Fatal calls Fatal function of underlying logger
func (l *Logger) Fatal(args ...interface{}) {
	l.logger().Fatal(args...)
}

// Fatalf calls Fatalf function of underlying logger
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.logger().Fatalf(format, args...)
}

// Panic calls Panic function of underlying logger
func (l *Logger) Panic(args ...interface{}) {
	l.logger().Panic(args...)
}

// Panicf calls Panicf function of underlying logger
func (l *Logger) Panicf(format string, args ...interface{}) {
	l.logger().Panicf(format, args...)
}

// Debug calls Debug function of underlying logger
func (l *Logger) Debug(args ...interface{}) {
	l.logger().Debug(args...)
}

// Debugf calls Debugf function of underlying logger
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger().Debugf(format, args...)
}

// Info calls Info function of underlying logger
func (l *Logger) Info(args ...interface{}) {
	l.logger().Info(args...)
}

// Infof calls Infof function of underlying logger
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger().Infof(format, args...)
}

// Warn calls Warn function of underlying logger
func (l *Logger) Warn(args ...interface{}) {
	l.logger().Warn(args...)
}

// Warnf calls Warnf function of underlying logger
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger().Warnf(format, args...)
}

// Error calls Error function of underlying logger
func (l *Logger) Error(args ...interface{}) {
	l.logger().Error(args...)
}

// Errorf calls Errorf function of underlying logger
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger().Errorf(format, args...)
}

func (l *Logger) logger() api.Logger {
	l.once.Do(func() {
		l.instance = loggerProvider().GetLogger(l.module)
	})
	return l.instance
}
