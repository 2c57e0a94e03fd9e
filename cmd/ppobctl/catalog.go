package main

import (
	"fmt"
	"io"

	"ppob-backend/internal/catalog"

	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Perintah katalog produk",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Validasi file katalog YAML (tanpa argumen = katalog bawaan)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return validateCatalog(cmd.OutOrStdout(), path)
		},
	})
	return cmd
}

func validateCatalog(out io.Writer, path string) error {
	data, err := catalog.Load(path)
	if err != nil {
		return err
	}
	active := 0
	for _, p := range data.Products {
		if p.IsActive {
			active++
		}
	}
	fmt.Fprintf(out, "OK: %d provider, %d produk (%d aktif), %d voucher\n",
		len(data.Providers), len(data.Products), active, len(data.Vouchers))
	return nil
}
