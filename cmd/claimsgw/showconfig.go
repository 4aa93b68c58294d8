/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/core/config"
	fabImpl "github.com/espressoclaims/hyperledger-fabric-network/pkg/fab"
)

func showConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "showconfig",
		Short: "Prints the resolved configuration.",
		Long:  `Prints the configuration after defaults and environment overrides are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.New("trailing args detected")
			}
			cmd.SilenceUsage = true

			cfg, err := fabImpl.ConfigFromProvider(config.FromFile(*configPath))
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return errors.Wrap(err, "failed to marshal configuration")
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
