package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	auditAfter int64
	auditLimit int
)

var auditCmd = &cobra.Command{
	Use:   "audit <entity> <entity-id>",
	Short: "Print the audit trail for an entity",
	Long: `Prints the append-only audit trail for one entity, oldest first.
Entity is one of: household, member, category, transaction, attachment.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entity := args[0]
		entityID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid entity id %q", args[1])
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.ListAuditTrail(cmd.Context(), entity, entityID, auditAfter, auditLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no audit entries")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("#%d  %s  %-6s  by %s\n", e.ID, e.RecordedAt.Format("2006-01-02 15:04:05"), e.Op, e.Principal)
			if e.Prior != nil {
				fmt.Printf("  prior: %s\n", e.Prior)
			}
			if e.Next != nil {
				fmt.Printf("  next:  %s\n", e.Next)
			}
		}
		fmt.Printf("cursor: %d\n", entries[len(entries)-1].ID)
		return nil
	},
}

func init() {
	auditCmd.Flags().Int64Var(&auditAfter, "after", 0, "resume after this entry id")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum entries to print")
	rootCmd.AddCommand(auditCmd)
}
