package main

import (
	"github.com/dododo1295/notetree/model"

	"github.com/spf13/cobra"
)

var (
	listJSON  bool
	filterTag string
	treeJSON  bool
)

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List notes, most recently updated first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		notes, err := c.List(ctx)
		if err != nil {
			return err
		}
		if filterTag != "" {
			filtered := make([]*model.Note, 0, len(notes))
			for _, n := range notes {
				for _, tag := range n.Tags {
					if tag == filterTag {
						filtered = append(filtered, n)
						break
					}
				}
			}
			notes = filtered
		}

		if listJSON {
			return printJSON(cmd.OutOrStdout(), notes)
		}
		printNotes(cmd.OutOrStdout(), notes)
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show notes as a hierarchy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer closeSession(s)

		if treeJSON {
			return printJSON(cmd.OutOrStdout(), s.Forest())
		}
		printForest(cmd.OutOrStdout(), s.Forest())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, treeCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&filterTag, "tag", "", "Only show notes with this tag")
	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "Output in JSON format")
}
