package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ppob-backend/internal/ledger"
	"ppob-backend/internal/models"

	"github.com/spf13/cobra"
)

func setAdminCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "set-admin [email]",
		Short: "Jadikan user admin (atau kembalikan ke user dengan --role user)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, infra, err := openInfra(ctx)
			if err != nil {
				return err
			}
			defer infra.Close()
			return setRole(ctx, infra.Store, cmd.OutOrStdout(), args[0], role)
		},
	}
	cmd.Flags().StringVar(&role, "role", models.RoleAdmin, "role baru (user, admin)")
	return cmd
}

func grantPointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-points [uid|email] [delta]",
		Short: "Tambah / kurangi poin user",
		Long: `Tambah (delta positif) atau kurangi (delta negatif) poin user.

Contoh:
  ppobctl grant-points budi@mail.com 10000
  ppobctl grant-points local-1234 -- -5000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || delta == 0 {
				return fmt.Errorf("delta tidak valid: %q", args[1])
			}

			ctx := cmd.Context()
			_, infra, err := openInfra(ctx)
			if err != nil {
				return err
			}
			defer infra.Close()
			return grantPoints(ctx, infra.Store, cmd.OutOrStdout(), args[0], delta)
		},
	}
}

func setRole(ctx context.Context, store ledger.Store, out io.Writer, email, role string) error {
	if role != models.RoleAdmin && role != models.RoleUser {
		return fmt.Errorf("role tidak valid: %q", role)
	}
	account, err := store.FindAccountByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("cari %s: %w", email, err)
	}
	if _, err := store.UpdateAccount(ctx, account.ID, models.AccountUpdate{Role: &role}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Success! %s (%s) sekarang %s.\n", email, account.ID, role)
	return nil
}

func grantPoints(ctx context.Context, store ledger.Store, out io.Writer, who string, delta int64) error {
	uid := who
	if strings.Contains(who, "@") {
		account, err := store.FindAccountByEmail(ctx, strings.ToLower(who))
		if err != nil {
			return fmt.Errorf("cari %s: %w", who, err)
		}
		uid = account.ID
	}
	account, err := store.AdjustPoints(ctx, uid, delta)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Poin %s sekarang %d\n", uid, account.Points)
	return nil
}
