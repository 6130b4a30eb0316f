package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hpcforge/hpcforge/commands/httputil"
	"github.com/hpcforge/hpcforge/helper/tabutil"
	"github.com/hpcforge/hpcforge/prov/slurm"
)

func init() {
	RootCmd.AddCommand(clusterCmd)
	ConfigureClientCommand(clusterCmd, clusterViper, &clusterCfgFile, &noColor)
	clusterCmd.AddCommand(clusterUsageCmd)
}

var (
	clusterViper   = viper.New()
	clusterCfgFile string
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Perform operations on the cluster",
	Long:  `Query the cluster through a running hpcforge server`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var clusterUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show the cluster usage",
	Long:  `Show the current cluster load, partitions and queue as seen from the login node`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := httputil.GetClient(GetClientConfig(clusterViper, clusterCfgFile))
		if err != nil {
			httputil.ErrExit(err)
		}
		var usage slurm.ClusterUsage
		if err := httputil.GetJSONEntity(client, "/cluster/usage", &usage); err != nil {
			httputil.ErrExit(err)
		}

		fmt.Printf("CPUs: %d allocated, %d idle, %d other, %d total\n",
			usage.CPUsAllocated, usage.CPUsIdle, usage.CPUsOther, usage.CPUsTotal)

		partitionsTable := tabutil.NewTable()
		partitionsTable.AddHeaders("Partition", "Avail", "TimeLimit", "Nodes", "State")
		for _, partition := range usage.Partitions {
			partitionsTable.AddRow(partition.Name, partition.Availability, partition.TimeLimit, strconv.Itoa(partition.NodeCount), partition.State)
		}
		fmt.Println("Partitions:")
		fmt.Println(partitionsTable.Render())

		states := make([]string, 0, len(usage.JobStates))
		for state := range usage.JobStates {
			states = append(states, state)
		}
		sort.Strings(states)
		statesTable := tabutil.NewTable()
		statesTable.AddHeaders("State", "Jobs")
		for _, state := range states {
			statesTable.AddRow(state, strconv.Itoa(usage.JobStates[state]))
		}
		fmt.Println("Queue:")
		fmt.Println(statesTable.Render())
		return nil
	},
}
