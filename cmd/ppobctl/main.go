package main

import (
	"context"
	"fmt"
	"os"

	"ppob-backend/internal/bootstrap"
	"ppob-backend/internal/config"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "ppobctl",
		Short:         "ppobctl - perintah admin untuk PPOB backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(setAdminCmd())
	rootCmd.AddCommand(grantPointsCmd())
	rootCmd.AddCommand(redriveCmd())
	rootCmd.AddCommand(catalogCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openInfra: config + ledger dari environment yang sama dengan server
func openInfra(ctx context.Context) (*config.Config, *bootstrap.Infra, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	infra, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, infra, nil
}
