package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Load a project file and report its note count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModuleFile(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d notes (including base)\n", args[0], len(m.NoteIDs()))
			return nil
		},
	}
}
