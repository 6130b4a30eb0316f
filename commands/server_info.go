package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hpcforge/hpcforge/commands/httputil"
	"github.com/hpcforge/hpcforge/rest"
)

func init() {
	serverCmd.AddCommand(serverInfoCmd)
	ConfigureClientCommand(serverInfoCmd, serverInfoViper, &serverInfoCfgFile, &noColor)
}

var (
	serverInfoViper   = viper.New()
	serverInfoCfgFile string
)

var serverInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about a running server",
	Long:  `Show the version of a running hpcforge server and whether it can reach the cluster`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := httputil.GetClient(GetClientConfig(serverInfoViper, serverInfoCfgFile))
		if err != nil {
			httputil.ErrExit(err)
		}
		var info rest.ServerInfo
		if err := httputil.GetJSONEntity(client, "/server/info", &info); err != nil {
			httputil.ErrExit(err)
		}
		fmt.Println("Server version:", info.Version)
		if info.ClusterReachable {
			fmt.Println("Cluster: reachable, SLURM version", info.SlurmVersion)
		} else {
			fmt.Println("Cluster: not reachable")
		}
		return nil
	},
}
