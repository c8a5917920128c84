package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quote/internal/core"
)

var categoriesKind string

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the category catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		cats, err := store.ListCategories(cmd.Context(), core.TransactionKind(categoriesKind))
		if err != nil {
			return err
		}
		if len(cats) == 0 {
			fmt.Println("no categories")
			return nil
		}

		for _, c := range cats {
			state := "active"
			if !c.Active {
				state = "inactive"
			}
			line := fmt.Sprintf("%-4d %-8s %-24s %s", c.ID, c.Kind, c.Name, state)
			if c.Kind == core.Income {
				line += fmt.Sprintf("  scope=%s default=%s", c.Scope, c.DefaultAmount)
			} else if c.BudgetCeiling.Cents > 0 {
				line += fmt.Sprintf("  ceiling=%s", c.BudgetCeiling)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	categoriesCmd.Flags().StringVar(&categoriesKind, "kind", "", "filter by kind (income or expense)")
	rootCmd.AddCommand(categoriesCmd)
}
