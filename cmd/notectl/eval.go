package main

import (
	"fmt"
	"path/filepath"

	"noteforge/bytecode"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var propOrder = []bytecode.Var{
	bytecode.VarStartTime,
	bytecode.VarDuration,
	bytecode.VarFrequency,
	bytecode.VarTempo,
	bytecode.VarBeatsPerMeasure,
	bytecode.VarMeasureLength,
}

func newEvalCmd() *cobra.Command {
	var session string
	var autosave bool
	var strict bool

	cmd := &cobra.Command{
		Use:   "eval <file>",
		Short: "Evaluate a project file and print the resulting cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadModuleFile(args[0])
			if err != nil {
				return err
			}
			m.Strict = strict
			cache := m.Evaluate()

			for _, id := range m.NoteIDs() {
				note, ok := cache.Get(id)
				if !ok {
					continue
				}
				fmt.Printf("note %d:", id)
				for _, v := range propOrder {
					val, has := note.Get(v)
					if !has {
						continue
					}
					fmt.Printf(" %s=%s", v, val.String())
				}
				if note.Corruption != 0 {
					fmt.Printf(" corruption=0b%06b", note.Corruption)
				}
				fmt.Println()
			}

			if autosave {
				if session == "" {
					session = uuid.NewString()
				}
				path := filepath.Join(filepath.Dir(args[0]), fmt.Sprintf(".notectl-autosave-%s.json", session))
				if err := saveModuleFile(path, m); err != nil {
					return err
				}
				glog.Infof("notectl: autosaved evaluated state to %s", path)
				fmt.Printf("autosaved: %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "session id namespacing the autosave file (defaults to a generated uuid)")
	cmd.Flags().BoolVar(&autosave, "autosave", false, "write the evaluated project back out under a session-scoped autosave path")
	cmd.Flags().BoolVar(&strict, "strict", false, "surface division-by-zero as an evaluation fault instead of silently substituting 1")
	return cmd
}
