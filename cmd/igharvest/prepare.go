package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"igharvest/pkg/storage"
	"igharvest/pkg/ui"
)

// prepareCmd represents the prepare command
var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Create the output directories without downloading",
	Long: `Create the output root and one directory per listed account, each with an
empty dedup cache (.downloaded.json) and manifest (manifest.jsonl).

Existing files are never touched, so prepare is safe to repeat.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(map[string]interface{}{"input": inputFile, "output": outputDir})
		if err != nil {
			return err
		}
		list, err := loadAccounts(cfg.Harvest.InputFile)
		if err != nil {
			return err
		}

		layout := storage.NewLayout(cfg.Harvest.OutputDirectory)
		res, err := layout.Prepare(list.Accounts)
		if err != nil {
			return err
		}

		ui.PrintSuccess(fmt.Sprintf("Prepared %d account directories under %s (%d created)", res.Total, layout.Root(), res.Created))
		if len(list.Ignored) > 0 {
			ui.PrintWarning("Ignored entries", len(list.Ignored))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prepareCmd)

	prepareCmd.Flags().StringVarP(&inputFile, "input", "i", "", "account list file (default: ig.txt)")
	prepareCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: downloads)")
}
