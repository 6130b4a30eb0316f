package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootCmd is the root of the hpcforge commands tree
var RootCmd = &cobra.Command{
	Use:   "hpcforge",
	Short: "Batch script and container tooling for HPC clusters",
	Long: `hpcforge generates SLURM batch scripts and container build artifacts for
machine learning workloads, and drives job submission and monitoring on a
SLURM cluster over SSH.
`,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			fmt.Print(err)
		}
	},
}
