/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"

	"github.com/spf13/cobra"
)

const (
	cmdRoot           = "claimsgw"
	configPathEnv     = "CLAIMSGW_CFG_PATH"
	defaultConfigPath = "./claimsgw.yaml"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   cmdRoot,
		Short: "Claims gateway for a Hyperledger Fabric network.",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPathFromEnv(),
		"path of the configuration file (env "+configPathEnv+")")

	rootCmd.AddCommand(startCmd(&configPath))
	rootCmd.AddCommand(showConfigCmd(&configPath))
	return rootCmd
}

func configPathFromEnv() string {
	if p := os.Getenv(configPathEnv); p != "" {
		return p
	}
	return defaultConfigPath
}

func main() {
	// On failure Cobra prints the usage message and error string, so we only
	// need to exit with a non-0 status
	if newRootCmd().Execute() != nil {
		os.Exit(1)
	}
}
