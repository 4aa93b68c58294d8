/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config loads the gateway configuration through viper. Values from
// the file can be overridden with environment variables named after the key,
// prefixed with CLAIMSGW_ and with dots replaced by underscores
// (CLAIMSGW_CLIENT_TIMEOUTS_COMMIT for client.timeouts.commit).
package config

import (
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/providers/core"
)

var logger = logging.NewLogger("claimsgw.core.config")

const cmdRoot = "CLAIMSGW"

type options struct {
	envPrefix string
}

// Option configures the package.
type Option func(opts *options) error

// WithEnvPrefix defines the prefix for environment variable overrides.
func WithEnvPrefix(prefix string) Option {
	return func(opts *options) error {
		if prefix == "" {
			return errors.New("env prefix must not be empty")
		}
		opts.envPrefix = prefix
		return nil
	}
}

// FromFile reads from named config file
func FromFile(name string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		if name == "" {
			return nil, errors.New("filename is required")
		}

		backend, err := newBackend(opts...)
		if err != nil {
			return nil, err
		}

		backend.configViper.SetConfigFile(name)
		if err := backend.configViper.MergeInConfig(); err != nil {
			return nil, errors.Wrapf(err, "loading config file failed: %s", name)
		}
		logger.Debugf("loaded configuration from %s", name)

		return []core.ConfigBackend{backend}, nil
	}
}

// FromReader loads configuration from in.
// configType can be "json" or "yaml".
func FromReader(in io.Reader, configType string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		return initFromReader(in, configType, opts...)
	}
}

// FromRaw loads configuration from configBytes.
func FromRaw(configBytes []byte, configType string, opts ...Option) core.ConfigProvider {
	return func() ([]core.ConfigBackend, error) {
		return initFromReader(bytes.NewBuffer(configBytes), configType, opts...)
	}
}

func initFromReader(in io.Reader, configType string, opts ...Option) ([]core.ConfigBackend, error) {
	if configType == "" {
		return nil, errors.New("empty config type")
	}

	backend, err := newBackend(opts...)
	if err != nil {
		return nil, err
	}

	// viper needs the type to decode a reader
	backend.configViper.SetConfigType(configType)
	if err := backend.configViper.MergeConfig(in); err != nil {
		return nil, errors.Wrap(err, "reading config failed")
	}

	return []core.ConfigBackend{backend}, nil
}

func newBackend(opts ...Option) (*defConfigBackend, error) {
	o := options{envPrefix: cmdRoot}
	for _, option := range opts {
		if err := option(&o); err != nil {
			return nil, errors.WithMessage(err, "invalid config option")
		}
	}

	return &defConfigBackend{configViper: newViper(o.envPrefix)}, nil
}

func newViper(cmdRootPrefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(cmdRootPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}
