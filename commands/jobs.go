package commands

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hpcforge/hpcforge/commands/httputil"
	"github.com/hpcforge/hpcforge/config"
	"github.com/hpcforge/hpcforge/helper/sshutil"
	"github.com/hpcforge/hpcforge/helper/tabutil"
	"github.com/hpcforge/hpcforge/prov/slurm"
)

func init() {
	RootCmd.AddCommand(jobsCmd)
	configureClusterCommand(jobsCmd, jobsViper, &jobsCfgFile, &noColor)

	jobsCmd.AddCommand(jobsSubmitCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsInfoCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
	jobsCmd.AddCommand(jobsWatchCmd)
	jobsCmd.AddCommand(jobsAllocCmd)

	jobsSubmitCmd.Flags().StringVar(&submitName, "name", "", "Job name, used to build the remote working directory name (default is the script file name)")
	jobsSubmitCmd.Flags().StringToStringVar(&submitEnv, "env", nil, "Environment variable exported before running sbatch, as name=value")
	jobsSubmitCmd.Flags().BoolVar(&submitWatch, "watch", false, "Watch the job until it reaches a terminal state, printing its output")

	jobsListCmd.Flags().StringVar(&listUser, "user", "", "Only list jobs of this user")

	jobsWatchCmd.Flags().StringSliceVar(&watchOutputs, "output", nil, "Job output file to tail, may be specified several times (default is slurm-<jobID>.out)")
	jobsWatchCmd.Flags().StringVar(&watchRemoteDir, "remote-dir", "", "Remote working directory removed once the job completes")
	jobsWatchCmd.Flags().BoolVar(&watchKeep, "keep", false, "Keep the remote working directory once the job reaches a terminal state")

	jobsAllocCmd.Flags().StringVar(&allocReq.JobName, "name", "", "Name of the allocation")
	jobsAllocCmd.Flags().IntVar(&allocReq.NodeCount, "nodes", 0, "Number of nodes to allocate")
	jobsAllocCmd.Flags().IntVar(&allocReq.CPUs, "cpus", 0, "Number of CPUs to allocate")
	jobsAllocCmd.Flags().StringVar(&allocReq.Memory, "memory", "", "Memory to allocate, as a human readable size")
	jobsAllocCmd.Flags().StringVar(&allocReq.Partition, "partition", "", "Partition to allocate resources from")
	jobsAllocCmd.Flags().StringVar(&allocReq.Gres, "gres", "", "Generic resources to allocate, as \"gpu:2\"")
}

var (
	jobsViper   = viper.New()
	jobsCfgFile string
	noColor     bool

	submitName     string
	submitEnv      map[string]string
	submitWatch    bool
	listUser       string
	watchOutputs   []string
	watchRemoteDir string
	watchKeep      bool
	allocReq       slurm.AllocationRequest
)

// configureClusterCommand setups a command sub-tree working on the cluster
// over SSH
func configureClusterCommand(c *cobra.Command, v *viper.Viper, cfgFile *string, noColor *bool) {
	c.PersistentFlags().StringVarP(cfgFile, "config", "c", "", "Config file (default is /etc/hpcforge/config.hpcforge.[json|yaml])")
	c.PersistentFlags().String("cluster_user_name", "", "SSH user used to connect to the cluster login node")
	c.PersistentFlags().String("cluster_url", "", "Address of the cluster login node")
	c.PersistentFlags().Int("cluster_port", config.DefaultSSHPort, "SSH port of the cluster login node")
	c.PersistentFlags().String("cluster_private_key", "", "Path to, or content of, the SSH private key used to connect to the cluster login node")
	c.PersistentFlags().String("cluster_password", "", "Password used to connect to the cluster login node when no private key is provided")
	c.PersistentFlags().Duration("cluster_job_monitoring_time_interval", config.DefaultJobMonitoringTimeInterval, "Time interval between two job state checks")
	c.PersistentFlags().Bool("cluster_keep_job_remote_artifacts", false, "Keep remote job working directories once jobs reach a terminal state")
	c.PersistentFlags().String("cluster_min_slurm_version", "", "Minimum SLURM release the cluster must run")
	c.PersistentFlags().BoolVar(noColor, "no_color", false, "Disable coloring output")

	v.BindPFlag("cluster.user_name", c.PersistentFlags().Lookup("cluster_user_name"))
	v.BindPFlag("cluster.url", c.PersistentFlags().Lookup("cluster_url"))
	v.BindPFlag("cluster.port", c.PersistentFlags().Lookup("cluster_port"))
	v.BindPFlag("cluster.private_key", c.PersistentFlags().Lookup("cluster_private_key"))
	v.BindPFlag("cluster.password", c.PersistentFlags().Lookup("cluster_password"))
	v.BindPFlag("cluster.job_monitoring_time_interval", c.PersistentFlags().Lookup("cluster_job_monitoring_time_interval"))
	v.BindPFlag("cluster.keep_job_remote_artifacts", c.PersistentFlags().Lookup("cluster_keep_job_remote_artifacts"))
	v.BindPFlag("cluster.min_slurm_version", c.PersistentFlags().Lookup("cluster_min_slurm_version"))

	v.SetEnvPrefix("hpcforge")
	v.AutomaticEnv()
	v.BindEnv("cluster.user_name", "HPCFORGE_CLUSTER_USER_NAME")
	v.BindEnv("cluster.url", "HPCFORGE_CLUSTER_URL")
	v.BindEnv("cluster.port", "HPCFORGE_CLUSTER_PORT")
	v.BindEnv("cluster.private_key", "HPCFORGE_CLUSTER_PRIVATE_KEY")
	v.BindEnv("cluster.password", "HPCFORGE_CLUSTER_PASSWORD")
	v.SetDefault("cluster.port", config.DefaultSSHPort)
	v.SetDefault("cluster.job_monitoring_time_interval", config.DefaultJobMonitoringTimeInterval)

	v.SetConfigName("config.hpcforge")
	v.AddConfigPath("/etc/hpcforge/")
	v.AddConfigPath(".")
}

// getClusterConfig retrieves the cluster connection configuration of a
// command configured with configureClusterCommand
func getClusterConfig(v *viper.Viper, cfgFile string) config.Configuration {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	if err := v.ReadInConfig(); err != nil {
		_, ok := err.(viper.ConfigFileNotFoundError)
		if cfgFile != "" || !ok {
			fmt.Println("Can't use config file:", err)
		}
	}
	configuration := config.Configuration{Cluster: config.DynamicMap{}}
	for _, key := range []string{"user_name", "url", "port", "private_key", "password", "job_monitoring_time_interval", "keep_job_remote_artifacts", "min_slurm_version"} {
		if value := v.Get("cluster." + key); value != nil {
			configuration.Cluster.Set(key, value)
		}
	}
	return configuration
}

func getClusterSSHClient() (sshutil.Client, config.Configuration) {
	configuration := getClusterConfig(jobsViper, jobsCfgFile)
	if err := slurm.CheckClusterConfig(configuration); err != nil {
		httputil.ErrExit(err)
	}
	client, err := slurm.GetSSHClient(configuration)
	if err != nil {
		httputil.ErrExit(err)
	}
	if err := slurm.CheckVersion(client, configuration); err != nil {
		httputil.ErrExit(err)
	}
	return client, configuration
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Perform operations on cluster jobs",
	Long:  `Submit, list, watch and cancel jobs on the SLURM cluster over SSH`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var jobsSubmitCmd = &cobra.Command{
	Use:   "submit <script file>",
	Short: "Submit a batch script",
	Long:  `Upload a batch script to the cluster and submit it with sbatch`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := ioutil.ReadFile(args[0])
		if err != nil {
			httputil.ErrExit(err)
		}
		name := submitName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		client, configuration := getClusterSSHClient()
		result, err := slurm.SubmitJob(cmd.Context(), client, &slurm.SubmissionRequest{
			Script: string(script),
			Name:   name,
			Env:    submitEnv,
		})
		if err != nil {
			httputil.ErrExit(err)
		}
		fmt.Println("Submitted batch job", result.JobID)
		fmt.Println("Remote working directory:", result.RemoteDir)
		for _, out := range result.Outputs {
			fmt.Println("Output:", out)
		}
		if !submitWatch {
			return nil
		}
		return watchJob(cmd.Context(), client, configuration, &slurm.MonitoringRequest{
			JobID:     result.JobID,
			Outputs:   result.Outputs,
			RemoteDir: result.RemoteDir,
		})
	},
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs in the cluster queue",
	Long:  `List jobs currently held in the cluster queue. Giving their ids and states.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClusterSSHClient()
		colorize := !noColor
		jobs, err := slurm.ListJobs(client, listUser)
		if err != nil {
			httputil.ErrExit(err)
		}
		jobsTable := tabutil.NewTable()
		jobsTable.AddHeaders("Id", "Name", "User", "State", "Partition", "Time", "Reason")
		for _, job := range jobs {
			jobsTable.AddRow(job.ID, job.Name, job.User, getColoredJobState(colorize, job.State), job.Partition, job.RunTime, job.Reason)
		}
		if colorize {
			defer color.Unset()
		}
		fmt.Println("Jobs:")
		fmt.Println(jobsTable.Render())
		return nil
	},
}

var jobsInfoCmd = &cobra.Command{
	Use:   "info <jobID>",
	Short: "Get job information",
	Long:  `Get the detailed scontrol view of a given job`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClusterSSHClient()
		details, err := slurm.GetJobDetails(client, args[0])
		if err != nil {
			if slurm.IsNoJobFoundError(err) {
				fmt.Printf("The job with the following id %q doesn't exist\n", args[0])
				return nil
			}
			httputil.ErrExit(err)
		}
		keys := make([]string, 0, len(details))
		for key := range details {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		detailsTable := tabutil.NewTable()
		detailsTable.AddHeaders("Attribute", "Value")
		for _, key := range keys {
			detailsTable.AddRow(key, details[key])
		}
		fmt.Println(detailsTable.Render())
		return nil
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <jobID>",
	Short: "Cancel a job",
	Long:  `Cancel a given job with scancel`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClusterSSHClient()
		if err := slurm.CancelJob(client, args[0]); err != nil {
			httputil.ErrExit(err)
		}
		fmt.Println("Cancellation requested for job", args[0])
		return nil
	},
}

var jobsWatchCmd = &cobra.Command{
	Use:   "watch <jobID>",
	Short: "Watch a job until it terminates",
	Long:  `Poll a given job until it reaches a terminal state, printing new output lines as they appear`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, configuration := getClusterSSHClient()
		outputs := watchOutputs
		if len(outputs) == 0 {
			outputs = []string{fmt.Sprintf("slurm-%s.out", args[0])}
		}
		return watchJob(cmd.Context(), client, configuration, &slurm.MonitoringRequest{
			JobID:         args[0],
			Outputs:       outputs,
			RemoteDir:     watchRemoteDir,
			KeepArtifacts: watchKeep,
		})
	},
}

var jobsAllocCmd = &cobra.Command{
	Use:   "alloc",
	Short: "Allocate resources",
	Long:  `Request a node allocation with salloc in no-shell mode`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _ := getClusterSSHClient()
		jobID, granted, err := slurm.AllocateResources(cmd.Context(), client, &allocReq)
		if err != nil {
			httputil.ErrExit(err)
		}
		if granted {
			fmt.Println("Granted job allocation", jobID)
		} else {
			fmt.Println("Pending job allocation", jobID)
		}
		return nil
	},
}

func watchJob(ctx context.Context, client sshutil.Client, configuration config.Configuration, req *slurm.MonitoringRequest) error {
	req.Interval = configuration.Cluster.GetDuration("job_monitoring_time_interval")
	req.KeepArtifacts = req.KeepArtifacts || configuration.Cluster.GetBool("keep_job_remote_artifacts")
	state, err := slurm.MonitorJob(ctx, client, req, os.Stdout)
	if err != nil {
		httputil.ErrExit(err)
	}
	fmt.Println("Job", req.JobID, "finished with state", state)
	return nil
}

func getColoredJobState(colorize bool, state string) string {
	if !colorize {
		return state
	}
	switch strings.ToUpper(state) {
	case "FAILED", "CANCELLED", "TIMEOUT", "NODE_FAIL", "OUT_OF_MEMORY":
		return color.New(color.FgHiRed, color.Bold).SprintFunc()(state)
	case "COMPLETED":
		return color.New(color.FgHiGreen, color.Bold).SprintFunc()(state)
	case "RUNNING", "COMPLETING", "CONFIGURING":
		return color.New(color.FgHiYellow, color.Bold).SprintFunc()(state)
	default:
		return color.New(color.Bold).SprintFunc()(state)
	}
}
