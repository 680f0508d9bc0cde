package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/upi-extractor/internal/common"
)

var (
	cfg     *common.Config
	logger  *slog.Logger
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "upi-extract",
	Short: "Extract UPI and passbook transactions from screenshots into a spreadsheet",
	Long: "Runs OCR over payment screenshots and bank passbook scans, pulls out amount, date, " +
		"direction and counterparties, and writes them to an .xlsx workbook.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := common.LoadConfig(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		logger = common.NewLogger(cfg.Log, verbose)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file (default ./upix.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
