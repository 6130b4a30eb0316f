package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hpcforge/hpcforge/config"
	"github.com/hpcforge/hpcforge/log"
	"github.com/hpcforge/hpcforge/server"
)

func init() {
	RootCmd.AddCommand(serverCmd)
	setConfig()
	cobra.OnInitialize(initConfig)
}

var cfgFile string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the hpcforge server",
	Long:  `Run the hpcforge server exposing the REST API`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configuration := getConfig()
		shutdownCh := make(chan struct{})
		return server.RunServer(configuration, version, shutdownCh)
	},
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if err := viper.ReadInConfig(); err == nil {
		log.Debugln("Using config file:", viper.ConfigFileUsed())
	} else {
		log.Debugln("Config not found...")
	}
}

func setConfig() {
	// Server flags
	serverCmd.PersistentFlags().Int("http_port", config.DefaultHTTPPort, "Port number for the server REST API. If omitted or set to '0' then the default port number is used, any negative value let the system select a free port")
	serverCmd.PersistentFlags().String("http_address", config.DefaultHTTPAddress, "Listening address for the server REST API")
	serverCmd.PersistentFlags().String("key_file", "", "File path to a PEM-encoded private key. The key is used to enable SSL for the server REST API. This must be provided along with cert_file")
	serverCmd.PersistentFlags().String("cert_file", "", "File path to a PEM-encoded certificate. The certificate is used to enable SSL for the server REST API. This must be provided along with key_file")
	serverCmd.PersistentFlags().String("ca_file", "", "File path to a PEM-encoded certificate authority used to verify client certificates")
	serverCmd.PersistentFlags().String("ca_path", "", "Path to a directory of PEM-encoded certificates authorities used to verify client certificates")
	serverCmd.PersistentFlags().Bool("ssl_verify", false, "Whether client certificates are required and verified by the server")
	serverCmd.PersistentFlags().Duration("graceful_shutdown_timeout", config.DefaultServerGracefulShutdownTimeout, "Timeout to wait for a graceful shutdown of the server. After this delay the server immediately exits")

	// Cluster flags
	serverCmd.PersistentFlags().String("cluster_user_name", "", "SSH user used to connect to the cluster login node")
	serverCmd.PersistentFlags().String("cluster_url", "", "Address of the cluster login node")
	serverCmd.PersistentFlags().Int("cluster_port", config.DefaultSSHPort, "SSH port of the cluster login node")
	serverCmd.PersistentFlags().String("cluster_private_key", "", "Path to, or content of, the SSH private key used to connect to the cluster login node")
	serverCmd.PersistentFlags().String("cluster_password", "", "Password used to connect to the cluster login node when no private key is provided")
	serverCmd.PersistentFlags().Duration("cluster_job_monitoring_time_interval", config.DefaultJobMonitoringTimeInterval, "Time interval between two job state checks")
	serverCmd.PersistentFlags().Bool("cluster_keep_job_remote_artifacts", false, "Whether the remote working directory of a job is kept once the job reaches a terminal state")
	serverCmd.PersistentFlags().String("cluster_min_slurm_version", "", "Minimum SLURM release the cluster must run")

	// Generation flags
	serverCmd.PersistentFlags().String("generation_sif_directory", config.DefaultSIFDirectory, "Directory on the cluster where built SIF images are stored")

	// Telemetry flags
	serverCmd.PersistentFlags().String("telemetry_statsd_address", "", "Address of a statsd server to send telemetry to (format: <host>:<port>)")
	serverCmd.PersistentFlags().String("telemetry_service_name", "hpcforge", "Service name used as metrics prefix")
	serverCmd.PersistentFlags().Bool("telemetry_disable_hostname", false, "Whether the hostname prefix is dropped from gauge metric names")
	serverCmd.PersistentFlags().Bool("telemetry_disable_go_runtime_metrics", false, "Whether Go runtime metrics collection is disabled")

	viper.BindPFlag("http_port", serverCmd.PersistentFlags().Lookup("http_port"))
	viper.BindPFlag("http_address", serverCmd.PersistentFlags().Lookup("http_address"))
	viper.BindPFlag("key_file", serverCmd.PersistentFlags().Lookup("key_file"))
	viper.BindPFlag("cert_file", serverCmd.PersistentFlags().Lookup("cert_file"))
	viper.BindPFlag("ca_file", serverCmd.PersistentFlags().Lookup("ca_file"))
	viper.BindPFlag("ca_path", serverCmd.PersistentFlags().Lookup("ca_path"))
	viper.BindPFlag("ssl_verify", serverCmd.PersistentFlags().Lookup("ssl_verify"))
	viper.BindPFlag("server_graceful_shutdown_timeout", serverCmd.PersistentFlags().Lookup("graceful_shutdown_timeout"))

	viper.BindPFlag("cluster.user_name", serverCmd.PersistentFlags().Lookup("cluster_user_name"))
	viper.BindPFlag("cluster.url", serverCmd.PersistentFlags().Lookup("cluster_url"))
	viper.BindPFlag("cluster.port", serverCmd.PersistentFlags().Lookup("cluster_port"))
	viper.BindPFlag("cluster.private_key", serverCmd.PersistentFlags().Lookup("cluster_private_key"))
	viper.BindPFlag("cluster.password", serverCmd.PersistentFlags().Lookup("cluster_password"))
	viper.BindPFlag("cluster.job_monitoring_time_interval", serverCmd.PersistentFlags().Lookup("cluster_job_monitoring_time_interval"))
	viper.BindPFlag("cluster.keep_job_remote_artifacts", serverCmd.PersistentFlags().Lookup("cluster_keep_job_remote_artifacts"))
	viper.BindPFlag("cluster.min_slurm_version", serverCmd.PersistentFlags().Lookup("cluster_min_slurm_version"))

	viper.BindPFlag("generation.sif_directory", serverCmd.PersistentFlags().Lookup("generation_sif_directory"))

	viper.BindPFlag("telemetry.statsd_address", serverCmd.PersistentFlags().Lookup("telemetry_statsd_address"))
	viper.BindPFlag("telemetry.service_name", serverCmd.PersistentFlags().Lookup("telemetry_service_name"))
	viper.BindPFlag("telemetry.disable_hostname", serverCmd.PersistentFlags().Lookup("telemetry_disable_hostname"))
	viper.BindPFlag("telemetry.disable_go_runtime_metrics", serverCmd.PersistentFlags().Lookup("telemetry_disable_go_runtime_metrics"))

	serverCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is /etc/hpcforge/config.hpcforge.[json|yaml])")

	// Environment variables
	viper.SetEnvPrefix("hpcforge") // will be uppercased automatically, becomes "HPCFORGE_"
	viper.AutomaticEnv()           // read in environment variables that match
	viper.BindEnv("http_port")
	viper.BindEnv("http_address")
	viper.BindEnv("key_file")
	viper.BindEnv("cert_file")
	viper.BindEnv("ca_file")
	viper.BindEnv("ca_path")
	viper.BindEnv("ssl_verify")
	viper.BindEnv("server_graceful_shutdown_timeout")
	viper.BindEnv("cluster.user_name", "HPCFORGE_CLUSTER_USER_NAME")
	viper.BindEnv("cluster.url", "HPCFORGE_CLUSTER_URL")
	viper.BindEnv("cluster.port", "HPCFORGE_CLUSTER_PORT")
	viper.BindEnv("cluster.private_key", "HPCFORGE_CLUSTER_PRIVATE_KEY")
	viper.BindEnv("cluster.password", "HPCFORGE_CLUSTER_PASSWORD")
	viper.BindEnv("generation.sif_directory", "HPCFORGE_GENERATION_SIF_DIRECTORY")
	viper.BindEnv("telemetry.statsd_address", "HPCFORGE_TELEMETRY_STATSD_ADDRESS")

	// Defaults
	viper.SetDefault("http_port", config.DefaultHTTPPort)
	viper.SetDefault("http_address", config.DefaultHTTPAddress)
	viper.SetDefault("server_graceful_shutdown_timeout", config.DefaultServerGracefulShutdownTimeout)
	viper.SetDefault("cluster.port", config.DefaultSSHPort)
	viper.SetDefault("cluster.job_monitoring_time_interval", config.DefaultJobMonitoringTimeInterval)
	viper.SetDefault("generation.sif_directory", config.DefaultSIFDirectory)
	viper.SetDefault("telemetry.service_name", "hpcforge")

	// Configuration file directories
	viper.SetConfigName("config.hpcforge") // name of config file (without extension)
	viper.AddConfigPath("/etc/hpcforge/")
	viper.AddConfigPath(".")
}

func getConfig() config.Configuration {
	configuration := config.Configuration{}
	configuration.HTTPPort = viper.GetInt("http_port")
	configuration.HTTPAddress = viper.GetString("http_address")
	configuration.KeyFile = viper.GetString("key_file")
	configuration.CertFile = viper.GetString("cert_file")
	configuration.CAFile = viper.GetString("ca_file")
	configuration.CAPath = viper.GetString("ca_path")
	configuration.SSLEnabled = configuration.KeyFile != "" && configuration.CertFile != ""
	configuration.SSLVerify = viper.GetBool("ssl_verify")
	configuration.ServerGracefulShutdownTimeout = viper.GetDuration("server_graceful_shutdown_timeout")

	configuration.Cluster = config.DynamicMap{}
	for _, key := range []string{"user_name", "url", "port", "private_key", "password", "job_monitoring_time_interval", "keep_job_remote_artifacts", "min_slurm_version"} {
		if value := viper.Get("cluster." + key); value != nil {
			configuration.Cluster.Set(key, value)
		}
	}
	configuration.Generation = config.DynamicMap{}
	if value := viper.Get("generation.sif_directory"); value != nil {
		configuration.Generation.Set("sif_directory", value)
	}

	configuration.Telemetry.StatsdAddress = viper.GetString("telemetry.statsd_address")
	configuration.Telemetry.ServiceName = viper.GetString("telemetry.service_name")
	configuration.Telemetry.DisableHostName = viper.GetBool("telemetry.disable_hostname")
	configuration.Telemetry.DisableGoRuntimeMetrics = viper.GetBool("telemetry.disable_go_runtime_metrics")
	return configuration
}
