/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	fabImpl "github.com/espressoclaims/hyperledger-fabric-network/pkg/fab"
)

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestShowConfig(t *testing.T) {
	t.Setenv("CLAIMSGW_SERVER_LISTENADDRESS", ":9999")

	out, err := execute("showconfig", "--config", "claimsgw.yaml")
	require.NoError(t, err)

	cfg := &fabImpl.EndpointConfig{}
	require.NoError(t, yaml.Unmarshal([]byte(out), cfg))
	assert.Equal(t, "mychannel", cfg.Channel.ID)
	assert.Equal(t, "fabcar", cfg.Channel.Chaincode)
	assert.Equal(t, ":9999", cfg.Server.ListenAddress)
	require.Len(t, cfg.Peers, 1)
	assert.Equal(t, "grpc://localhost:7051", cfg.Peers[0].URL)
	assert.Contains(t, out, "commit: 30s")
}

func TestShowConfigMissingFile(t *testing.T) {
	_, err := execute("showconfig", "--config", "nonexistent.yaml")
	assert.Error(t, err)
}

func TestTrailingArgs(t *testing.T) {
	_, err := execute("showconfig", "extra")
	assert.Error(t, err)

	_, err = execute("start", "extra")
	assert.Error(t, err)
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv(configPathEnv, "")
	assert.Equal(t, defaultConfigPath, configPathFromEnv())

	t.Setenv(configPathEnv, "/etc/claimsgw.yaml")
	assert.Equal(t, "/etc/claimsgw.yaml", configPathFromEnv())
}

func TestServeFailsWithoutNetwork(t *testing.T) {
	err := serve(context.Background(), "nonexistent.yaml")
	assert.Error(t, err)
}
