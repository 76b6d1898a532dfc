package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"igharvest/pkg/storage"
	"igharvest/pkg/ui"
)

// accountsCmd represents the accounts command
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Show the accounts the input file resolves to",
	Long: `Parse the account list and print the normalized identifiers in run order,
with the directory each one is harvested into. Entries that do not name an
account are listed separately.`,
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
		rows := make([]ui.Row, 0, len(list.Accounts))
		for i, account := range list.Accounts {
			rows = append(rows, ui.Row{strconv.Itoa(i + 1), account, layout.AccountDir(account)})
		}
		ui.PrintTable(ui.Row{"#", "ACCOUNT", "DIRECTORY"}, rows)

		if len(list.Ignored) > 0 {
			ui.PrintWarning("\nIgnored entries")
			for _, line := range list.Ignored {
				ui.PrintWarning("  " + line)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)

	accountsCmd.Flags().StringVarP(&inputFile, "input", "i", "", "account list file (default: ig.txt)")
	accountsCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: downloads)")
}
