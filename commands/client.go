package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hpcforge/hpcforge/config"
	"github.com/hpcforge/hpcforge/log"
)

// ConfigureClientCommand setups a client command of the CLI talking to a
// running hpcforge server
func ConfigureClientCommand(c *cobra.Command, v *viper.Viper, cfgFile *string, noColor *bool) {
	c.PersistentFlags().StringVarP(cfgFile, "config", "c", "", "Config file (default is /etc/hpcforge/hpcforge-client.[json|yaml])")
	c.PersistentFlags().StringP("server_api", "", "localhost:8480", "Specify the host and port used to join the hpcforge REST API")
	c.PersistentFlags().StringP("ca_file", "", "", "This provides a file path to a PEM-encoded certificate authority. This implies the use of HTTPS to connect to the hpcforge REST API.")
	c.PersistentFlags().StringP("ca_path", "", "", "Path to a directory of PEM-encoded certificates authorities. This implies the use of HTTPS to connect to the hpcforge REST API.")
	c.PersistentFlags().BoolVar(noColor, "no_color", false, "Disable coloring output")
	c.PersistentFlags().BoolP("ssl_enabled", "s", false, "Use HTTPS to connect to the hpcforge REST API")
	c.PersistentFlags().BoolP("skip_tls_verify", "", false, "Controls whether a client verifies the server's certificate chain and host name. If set to true, TLS accepts any certificate presented by the server and any host name in that certificate. In this mode, TLS is susceptible to man-in-the-middle attacks. This should be used only for testing. This implies the use of HTTPS to connect to the hpcforge REST API.")
	c.PersistentFlags().StringP("cert_file", "", "", "File path to a PEM-encoded client certificate used to authenticate to the hpcforge API. This must be provided along with key_file. If one of key_file or cert_file is not provided then SSL authentication is disabled. If both cert_file and key_file are provided this implies the use of HTTPS to connect to the hpcforge REST API.")
	c.PersistentFlags().StringP("key_file", "", "", "File path to a PEM-encoded client private key used to authenticate to the hpcforge API. This must be provided along with cert_file. If one of key_file or cert_file is not provided then SSL authentication is disabled. If both cert_file and key_file are provided this implies the use of HTTPS to connect to the hpcforge REST API.")

	v.BindPFlag("server_api", c.PersistentFlags().Lookup("server_api"))
	v.BindPFlag("ssl_enabled", c.PersistentFlags().Lookup("ssl_enabled"))
	v.BindPFlag("ca_file", c.PersistentFlags().Lookup("ca_file"))
	v.BindPFlag("ca_path", c.PersistentFlags().Lookup("ca_path"))
	v.BindPFlag("key_file", c.PersistentFlags().Lookup("key_file"))
	v.BindPFlag("cert_file", c.PersistentFlags().Lookup("cert_file"))
	v.BindPFlag("skip_tls_verify", c.PersistentFlags().Lookup("skip_tls_verify"))

	v.SetEnvPrefix("hpcforge")
	v.AutomaticEnv()
	v.BindEnv("server_api", "HPCFORGE_API")
	v.BindEnv("ssl_enabled")
	v.BindEnv("ca_file")
	v.BindEnv("ca_path")
	v.BindEnv("key_file")
	v.BindEnv("cert_file")
	v.BindEnv("skip_tls_verify")
	v.SetDefault("server_api", "localhost:8480")
	v.SetDefault("ssl_enabled", false)
	v.SetDefault("skip_tls_verify", false)

	// Configuration file directories
	v.SetConfigName("hpcforge-client") // name of config file (without extension)
	v.AddConfigPath("/etc/hpcforge/")
	v.AddConfigPath(".")
}

// GetClientConfig retrieves the hpcforge client configuration
func GetClientConfig(v *viper.Viper, cfgFile string) config.Client {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	if err := v.ReadInConfig(); err != nil {
		_, ok := err.(viper.ConfigFileNotFoundError)
		if cfgFile != "" || !ok {
			fmt.Println("Can't use config file:", err)
		}
	}
	clientCfg := config.Client{}
	err := v.Unmarshal(&clientCfg)
	if err != nil {
		log.Fatalf("Misconfiguration error: %v", err)
	}
	return clientCfg
}
