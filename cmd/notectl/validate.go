package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a project file for cycles and dangling references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModuleFile(args[0])
			if err != nil {
				return err
			}

			problems := 0
			for _, cycle := range m.DetectCycles() {
				problems++
				fmt.Printf("cycle: %v\n", cycle.Nodes)
			}
			for _, dangling := range m.ReferenceClosureViolations() {
				problems++
				fmt.Printf("dangling reference: note %d's %s references missing note %d\n",
					dangling.NoteID, dangling.Prop, dangling.Target)
			}

			if problems == 0 {
				fmt.Println("ok: no cycles or dangling references")
				return nil
			}
			return fmt.Errorf("notectl: %d problem(s) found", problems)
		},
	}
}
