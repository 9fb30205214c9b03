package main

import (
	"fmt"
	"strconv"

	"noteforge/bytecode"
	"noteforge/compile"
	"noteforge/module"

	"github.com/spf13/cobra"
)

var propByFlag = map[string]bytecode.Var{
	"startTime":       bytecode.VarStartTime,
	"duration":        bytecode.VarDuration,
	"frequency":       bytecode.VarFrequency,
	"tempo":           bytecode.VarTempo,
	"beatsPerMeasure": bytecode.VarBeatsPerMeasure,
	"measureLength":   bytecode.VarMeasureLength,
}

func newDecompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decompile <file> <note-id> <property>",
		Short: "Print the stored and canonical decompiled source for one note property",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModuleFile(args[0])
			if err != nil {
				return err
			}
			id, err := strconv.ParseUint(args[1], 10, 16)
			if err != nil {
				return fmt.Errorf("notectl: invalid note id %q: %w", args[1], err)
			}
			v, ok := propByFlag[args[2]]
			if !ok {
				return fmt.Errorf("notectl: unknown property %q", args[2])
			}

			expr := m.Expression(module.NoteID(id), v)
			if expr == nil {
				fmt.Printf("note %d has no %s expression\n", id, args[2])
				return nil
			}
			fmt.Printf("stored source:    %s\n", expr.Source)
			decompiled, err := compile.Decompile(expr)
			if err != nil {
				return fmt.Errorf("notectl: decompile: %w", err)
			}
			fmt.Printf("canonical form:   %s\n", decompiled)
			return nil
		},
	}
}
