package main

import (
	"github.com/hpcforge/hpcforge/commands"
	"github.com/hpcforge/hpcforge/log"
)

func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
	log.Debug("Exiting main...")
}
