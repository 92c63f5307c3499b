package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dododo1295/notetree/model"

	"github.com/spf13/cobra"
)

var (
	editTitle       string
	editTags        []string
	editText        string
	editContentFile string
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a note's title, tags or body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		patch, err := editPatch(cmd)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return fmt.Errorf("nothing to change: pass --title, --tag, --text or --content-file")
		}

		ctx, cancel := commandContext()
		defer cancel()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		if _, ok := s.Note(id); !ok {
			closeSession(s)
			return model.ErrNoteNotFound
		}
		if err := s.Edit(id, patch); err != nil {
			closeSession(s)
			return err
		}
		if err := closeSession(s); err != nil {
			return err
		}

		note, _ := s.Note(id)
		fmt.Fprintln(cmd.OutOrStdout(), formatNote(note))
		return nil
	},
}

func editPatch(cmd *cobra.Command) (model.NoteUpdate, error) {
	var patch model.NoteUpdate
	flags := cmd.Flags()
	if flags.Changed("title") {
		patch.Title = &editTitle
	}
	if flags.Changed("tag") {
		tags := append([]string{}, editTags...)
		patch.Tags = &tags
	}
	if flags.Changed("text") {
		patch.Content = textDocument(editText)
	}
	if editContentFile != "" {
		data, err := os.ReadFile(editContentFile)
		if err != nil {
			return patch, err
		}
		var doc model.Document
		if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
			return patch, fmt.Errorf("%s: content must be a JSON object", editContentFile)
		}
		patch.Content = doc
	}
	return patch, nil
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	editCmd.Flags().StringSliceVarP(&editTags, "tag", "t", nil, "Replace tags (repeatable; pass --tag= to clear)")
	editCmd.Flags().StringVar(&editText, "text", "", "Replace the body with plain text")
	editCmd.Flags().StringVar(&editContentFile, "content-file", "", "Replace the body with a JSON document file")
}
