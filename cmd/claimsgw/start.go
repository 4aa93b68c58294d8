/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/espressoclaims/hyperledger-fabric-network/pkg/claims"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/common/logging"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/core/config"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/fabsdk"
	sdkMetrics "github.com/espressoclaims/hyperledger-fabric-network/pkg/fabsdk/metrics"
	"github.com/espressoclaims/hyperledger-fabric-network/pkg/server"
)

var logger = logging.NewLogger("claimsgw.cmd")

func startCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Starts the claims gateway.",
		Long:  `Connects to the Fabric network and serves the claims API until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.New("trailing args detected")
			}
			cmd.SilenceUsage = true

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *configPath)
		},
	}
}

// serve runs the gateway until ctx is done. The HTTP server is shut down
// before the SDK so that in-flight submissions can finish.
func serve(ctx context.Context, configPath string) error {
	sdk, err := fabsdk.New(config.FromFile(configPath))
	if err != nil {
		return errors.WithMessage(err, "failed to connect to the network")
	}
	defer sdk.Close()

	cfg := sdk.Config()
	opts := []server.Option{server.WithHealthChecker("events", sdk.EventClient())}
	if cfg.Metrics.Provider == sdkMetrics.ProviderPrometheus {
		opts = append(opts, server.WithPrometheus())
	}

	srv, err := server.New(cfg.Server, claims.New(sdk.ChannelClient(), cfg.Channel.Chaincode), opts...)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	logger.Infof("claims gateway started for chaincode [%s] on channel [%s]", cfg.Channel.Chaincode, cfg.Channel.ID)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warnf("HTTP server shutdown: %s", err)
	}
	return nil
}
