package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a note",
	Long:    `Delete removes a single note. Its children are kept but no longer appear in the tree.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer closeSession(s)

		if err := s.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Note deleted: %s\n", args[0])
		return nil
	},
}

var (
	moveOrder float64
)

var moveCmd = &cobra.Command{
	Use:   "mv <id> [parent-id]",
	Short: "Move a note under another note, or to the top level",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var parent *string
		if len(args) == 2 {
			parent = &args[1]
		}
		var order *float64
		if cmd.Flags().Changed("order") {
			order = &moveOrder
		}

		ctx, cancel := commandContext()
		defer cancel()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer closeSession(s)

		if err := s.Move(ctx, args[0], parent, order); err != nil {
			return err
		}
		printForest(cmd.OutOrStdout(), s.Forest())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd, moveCmd)
	moveCmd.Flags().Float64Var(&moveOrder, "order", 0, "Sibling sort key")
}
