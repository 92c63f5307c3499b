package main

import (
	"fmt"

	"github.com/dododo1295/notetree/client"

	"github.com/spf13/cobra"
)

var (
	newParent string
	newTags   []string
	newText   string
	newOrder  float64
)

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a note",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := client.CreateRequest{Tags: newTags}
		if len(args) == 1 {
			req.Title = args[0]
		}
		if newParent != "" {
			req.ParentID = &newParent
		}
		if newText != "" {
			req.Content = textDocument(newText)
		}
		if cmd.Flags().Changed("order") {
			req.Order = &newOrder
		}

		ctx, cancel := commandContext()
		defer cancel()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer closeSession(s)

		note, err := s.Create(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatNote(note))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVarP(&newParent, "parent", "p", "", "Parent note ID")
	newCmd.Flags().StringSliceVarP(&newTags, "tag", "t", nil, "Tag (repeatable)")
	newCmd.Flags().StringVar(&newText, "text", "", "Plain text body")
	newCmd.Flags().Float64Var(&newOrder, "order", 0, "Sibling sort key")
}
