/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/core"
)

// defConfigBackend is the viper backed core.ConfigBackend
type defConfigBackend struct {
	configViper *viper.Viper
}

// Lookup gets the config item value by Key
func (c *defConfigBackend) Lookup(key string, opts ...core.LookupOption) (interface{}, bool) {
	lookupOpts := &core.LookupOpts{}
	for _, option := range opts {
		option(lookupOpts)
	}

	if lookupOpts.UnmarshalType != nil {
		if err := c.configViper.UnmarshalKey(key, lookupOpts.UnmarshalType); err != nil {
			logger.Debugf("unmarshal of key %s failed: %s", key, err)
			return nil, false
		}
		return lookupOpts.UnmarshalType, true
	}

	value := c.configViper.Get(key)
	if value == nil {
		return nil, false
	}
	if _, ok := value.(map[string]interface{}); ok {
		// viper applies env overrides to leaf keys only
		if section, ok := c.section(key); ok {
			return section, true
		}
	}
	return value, true
}

// section returns the settings under key with env overrides applied.
func (c *defConfigBackend) section(key string) (map[string]interface{}, bool) {
	current := c.configViper.AllSettings()
	for _, part := range strings.Split(strings.ToLower(key), ".") {
		next, ok := current[part].(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}
