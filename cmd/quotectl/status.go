package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <household-id>",
	Short: "Show a household's payment status and its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid household id %q", args[0])
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		h, err := store.GetHousehold(ctx, id)
		if err != nil {
			return err
		}

		fmt.Printf("Household %d  %s\n", h.ID, h.Name)
		fmt.Printf("  paid:    %s\n", paidLabel(h.Paid, h.PaidAt))
		fmt.Printf("  version: %d\n", h.Version)

		members, err := store.ListMembersByHousehold(ctx, id)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			fmt.Println("  no members enrolled")
			return nil
		}
		fmt.Printf("  members (%d):\n", len(members))
		for _, m := range members {
			fmt.Printf("    %-8s %-24s %s\n", m.Code, m.FirstName+" "+m.LastName, paidLabel(m.Paid, nil))
		}
		return nil
	},
}

func paidLabel(paid bool, at *time.Time) string {
	if !paid {
		return "unpaid"
	}
	if at != nil {
		return "paid (" + at.Format("2006-01-02 15:04") + ")"
	}
	return "paid"
}

var memberStatusCmd = &cobra.Command{
	Use:   "member <member-id>",
	Short: "Show an individual member's payment status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid member id %q", args[0])
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		m, err := store.GetMember(ctx, id)
		if err != nil {
			return err
		}
		var paidAt *time.Time
		if m.Paid {
			if h, err := store.GetHousehold(ctx, m.HouseholdID); err == nil {
				paidAt = h.PaidAt
			}
		}

		fmt.Printf("Member %d  %s (%s)\n", m.ID, m.FirstName+" "+m.LastName, m.Code)
		fmt.Printf("  household: %d\n", m.HouseholdID)
		if m.Group != "" {
			fmt.Printf("  group:     %s\n", m.Group)
		}
		fmt.Printf("  paid:      %s\n", paidLabel(m.Paid, paidAt))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(memberStatusCmd)
}
