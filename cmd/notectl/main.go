// Command notectl is a command-line front end over the module façade:
// load/save a project file, run an incremental evaluation pass, print
// the decompiled source of a property, or validate a project for
// cycles and dangling references.
package main

import (
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

func main() {
	defer glog.Flush()

	root := &cobra.Command{
		Use:   "notectl",
		Short: "Inspect and evaluate noteforge project files",
	}
	root.AddCommand(newLoadCmd())
	root.AddCommand(newEvalCmd())
	root.AddCommand(newDecompileCmd())
	root.AddCommand(newValidateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
