package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-budget-must-balance/internal/cli"
	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/config"
	"github.com/Veraticus/the-budget-must-balance/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger to Google Sheets",
		Long: `Write every income and expense, their monthly equivalents and the
monthly totals to a Google Sheets spreadsheet.

Run 'budget auth sheets' first, or configure a service account with
sheets.service_account_path.`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	cmd.Flags().String("spreadsheet-id", "", "spreadsheet to overwrite (default: create a new one)")
	_ = viper.BindPFlag("sheets.spreadsheet_id", cmd.Flags().Lookup("spreadsheet-id"))

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sheetsCfg, err := config.LoadSheetsConfig()
	if err != nil {
		if errors.Is(err, common.ErrMissingConfig) {
			return common.NewUserError("Google Sheets is not configured. Run 'budget auth sheets' first.", err)
		}
		return fmt.Errorf("invalid sheets configuration: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	writer, err := sheets.NewWriter(ctx, *sheetsCfg, a.logger.With("component", "sheets"))
	if err != nil {
		return err
	}

	spinner := cli.NewSpinner(cmd.ErrOrStderr(), "[cyan]Exporting to Google Sheets...[reset]")
	spinner.Start()
	spreadsheetID, err := writer.Export(ctx, sheets.NewReport(a.ledger, time.Now()))
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Ledger exported"))
	fmt.Fprintf(cmd.OutOrStdout(), "   https://docs.google.com/spreadsheets/d/%s\n", spreadsheetID)
	return nil
}

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}
	cmd.AddCommand(authSheetsCmd())
	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

This command will:
1. Print a URL to authenticate with Google
2. Wait for the browser to redirect back to a local callback
3. Save the refresh token next to your config for future exports

You'll need to run this once to set up Google Sheets export.`,
		Args: cobra.NoArgs,
		RunE: runAuthSheets,
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")
	cmd.Flags().String("callback-addr", "localhost:8080", "local address for the OAuth2 redirect")

	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	clientID := firstFlagOrConfig(cmd, "client-id", "sheets.client_id", "GOOGLE_SHEETS_CLIENT_ID")
	clientSecret := firstFlagOrConfig(cmd, "client-secret", "sheets.client_secret", "GOOGLE_SHEETS_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return common.NewUserError("OAuth2 credentials not found. Set sheets.client_id and sheets.client_secret in config or use --client-id and --client-secret", common.ErrMissingConfig)
	}

	tokenFile := config.ExpandPath(viper.GetString("sheets.token_file"))
	if tokenFile == "" {
		tokenFile = filepath.Join(config.Dir(), "sheets-token.json")
	}
	callbackAddr, _ := cmd.Flags().GetString("callback-addr")

	// The consent URL is logged at info, so never go quieter than that here.
	logger, err := common.NewLogger(cmd.ErrOrStderr(), slog.LevelInfo, viper.GetString("logging.format"))
	if err != nil {
		return err
	}

	token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    tokenFile,
		CallbackAddr: callbackAddr,
	}, logger)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if token.RefreshToken == "" {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("Google did not return a refresh token; exports will need a fresh login"))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Google Sheets authentication complete"))
	fmt.Fprintf(cmd.OutOrStdout(), "   Token saved to %s\n", tokenFile)
	return nil
}

func firstFlagOrConfig(cmd *cobra.Command, flag, key, env string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	if v := viper.GetString(key); v != "" {
		return v
	}
	return os.Getenv(env)
}
