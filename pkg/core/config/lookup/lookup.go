/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package lookup provides typed access to configuration backends.
package lookup

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/core"
)

// New returns a ConfigLookup over the given backends. Backends are consulted
// in order and the first one holding a key wins.
func New(coreBackends ...core.ConfigBackend) *ConfigLookup {
	return &ConfigLookup{backends: coreBackends}
}

type unmarshalOpts struct {
	hooks []mapstructure.DecodeHookFunc
}

// UnmarshalOption describes a functional parameter unmarshaling
type UnmarshalOption func(o *unmarshalOpts)

// WithUnmarshalHookFunction adds a decode hook to UnmarshalKey.
func WithUnmarshalHookFunction(hookFunction mapstructure.DecodeHookFunc) UnmarshalOption {
	return func(o *unmarshalOpts) {
		o.hooks = append(o.hooks, hookFunction)
	}
}

// ConfigLookup performs key lookup and unmarshalling.
type ConfigLookup struct {
	backends []core.ConfigBackend
}

// Lookup returns value for given key
func (c *ConfigLookup) Lookup(key string) (interface{}, bool) {
	for _, backend := range c.backends {
		if backend == nil {
			continue
		}
		if val, ok := backend.Lookup(key); ok {
			return val, true
		}
	}
	return nil, false
}

// GetBool returns bool value for given key
func (c *ConfigLookup) GetBool(key string) bool {
	value, ok := c.Lookup(key)
	if !ok {
		return false
	}
	return cast.ToBool(value)
}

// GetString returns string value for given key
func (c *ConfigLookup) GetString(key string) string {
	value, ok := c.Lookup(key)
	if !ok {
		return ""
	}
	return cast.ToString(value)
}

// GetLowerString returns lower case string value for given key
func (c *ConfigLookup) GetLowerString(key string) string {
	return strings.ToLower(c.GetString(key))
}

// GetInt returns int value for given key
func (c *ConfigLookup) GetInt(key string) int {
	value, ok := c.Lookup(key)
	if !ok {
		return 0
	}
	return cast.ToInt(value)
}

// GetFloat64 returns float64 value for given key
func (c *ConfigLookup) GetFloat64(key string) float64 {
	value, ok := c.Lookup(key)
	if !ok {
		return 0
	}
	return cast.ToFloat64(value)
}

// GetDuration returns time.Duration value for given key
func (c *ConfigLookup) GetDuration(key string) time.Duration {
	value, ok := c.Lookup(key)
	if !ok {
		return 0
	}
	return cast.ToDuration(value)
}

// GetDurationOrDefault returns the duration for key, or def when the key is
// missing or not positive.
func (c *ConfigLookup) GetDurationOrDefault(key string, def time.Duration) time.Duration {
	if d := c.GetDuration(key); d > 0 {
		return d
	}
	return def
}

// UnmarshalKey decodes the value for key into rawVal. Duration strings are
// converted with mapstructure.StringToTimeDurationHookFunc.
func (c *ConfigLookup) UnmarshalKey(key string, rawVal interface{}, opts ...UnmarshalOption) error {
	value, ok := c.Lookup(key)
	if !ok {
		return nil
	}

	unmarshalOptions := unmarshalOpts{}
	for _, param := range opts {
		param(&unmarshalOptions)
	}

	hooks := append([]mapstructure.DecodeHookFunc{mapstructure.StringToTimeDurationHookFunc()}, unmarshalOptions.hooks...)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(hooks...),
		WeaklyTypedInput: true,
		Result:           rawVal,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(value)
}
