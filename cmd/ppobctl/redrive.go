package main

import (
	"context"
	"fmt"
	"io"

	"ppob-backend/internal/worker"

	"github.com/spf13/cobra"
)

func redriveCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "redrive",
		Short: "Jalankan ulang fulfillment order processing yang tertahan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, infra, err := openInfra(ctx)
			if err != nil {
				return err
			}
			defer infra.Close()

			svc, err := infra.NewOrderService(ctx, cfg)
			if err != nil {
				return err
			}
			d := worker.NewDispatcher(svc, infra.Store, worker.Config{})
			return redrive(ctx, d, svc, cmd.OutOrStdout(), dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "hanya tampilkan order yang tertahan")
	return cmd
}

// redrive menjalankan fulfillment langsung (sinkron), satu per satu
func redrive(ctx context.Context, d *worker.Dispatcher, f worker.Fulfiller, out io.Writer, dryRun bool) error {
	ids, err := d.Stuck(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d order tertahan\n", len(ids))

	failed := 0
	for _, id := range ids {
		if dryRun {
			fmt.Fprintln(out, " -", id)
			continue
		}
		if err := f.Fulfill(ctx, id); err != nil {
			failed++
			fmt.Fprintf(out, " - %s: %v\n", id, err)
			continue
		}
		fmt.Fprintf(out, " - %s: ok\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d order gagal di-redrive", failed)
	}
	return nil
}
