// Package slurm runs job operations on a SLURM cluster login node over SSH:
// batch submission, interactive runs, allocations, queue inspection,
// monitoring with incremental output tailing and usage collection.
package slurm

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"

	"github.com/hpcforge/hpcforge/config"
	"github.com/hpcforge/hpcforge/helper/sshutil"
)

// CheckClusterConfig verifies that the cluster access configuration is
// complete enough to open an SSH connection to the login node
func CheckClusterConfig(cfg config.Configuration) error {
	if cfg.Cluster.GetString("user_name") == "" {
		return errors.New("cluster configuration misses mandatory parameter user_name")
	}
	if cfg.Cluster.GetString("url") == "" {
		return errors.New("cluster configuration misses mandatory parameter url")
	}
	if cfg.Cluster.GetString("private_key") == "" && cfg.Cluster.GetString("password") == "" {
		return errors.New("cluster configuration must provide at least one authentication method, private_key or password")
	}
	return nil
}

// GetSSHClient returns an SSH client to the cluster login node described by
// the configuration
func GetSSHClient(cfg config.Configuration) (*sshutil.SSHClient, error) {
	return getSSHClient("", "", "", cfg)
}

// getSSHClient builds an SSH client from the given credentials, any empty
// credential falling back to its configuration counterpart
func getSSHClient(userName, privateKey, password string, cfg config.Configuration) (*sshutil.SSHClient, error) {
	if userName == "" {
		userName = cfg.Cluster.GetString("user_name")
	}
	if privateKey == "" {
		privateKey = cfg.Cluster.GetString("private_key")
	}
	if password == "" {
		password = cfg.Cluster.GetString("password")
	}
	if userName == "" {
		return nil, errors.New("no user name provided for the cluster SSH connection")
	}

	authMethods := make([]ssh.AuthMethod, 0, 2)
	if privateKey != "" {
		keyAuth, err := sshutil.ReadPrivateKey(privateKey)
		if err != nil && password == "" {
			return nil, errors.Wrap(err, "failed to use the provided private key and no password is defined")
		}
		if err == nil {
			authMethods = append(authMethods, keyAuth)
		}
	}
	if password != "" {
		authMethods = append(authMethods, ssh.Password(password))
	}
	if len(authMethods) == 0 {
		return nil, errors.New("no valid authentication method, provide a private_key or a password")
	}

	return &sshutil.SSHClient{
		Config: &ssh.ClientConfig{
			User:            userName,
			Auth:            authMethods,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		},
		Host: cfg.Cluster.GetString("url"),
		Port: cfg.Cluster.GetIntOrDefault("port", config.DefaultSSHPort),
	}, nil
}
