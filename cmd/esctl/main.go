package main

import (
	"os"

	esctlcmd "github.com/openhrm/escalation-engine/pkg/esctl/cmd"
)

func main() {
	root := esctlcmd.NewRootCommand(esctlcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
