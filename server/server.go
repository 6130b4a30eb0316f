// Package server ties the REST API to the process lifecycle: telemetry
// setup, signal handling and graceful shutdown.
package server

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/hpcforge/hpcforge/config"
	"github.com/hpcforge/hpcforge/log"
	"github.com/hpcforge/hpcforge/prov/slurm"
	"github.com/hpcforge/hpcforge/rest"
)

// RunServer starts the hpcforge server and blocks until a shutdown is
// requested by a signal or by closing shutdownCh
func RunServer(configuration config.Configuration, version string, shutdownCh chan struct{}) error {
	err := setupTelemetry(configuration)
	if err != nil {
		return err
	}

	if err = slurm.CheckClusterConfig(configuration); err != nil {
		// The generation endpoints work without a cluster, job operations
		// will fail until the cluster access is configured
		log.Printf("No usable cluster configuration: %v. Job operations are disabled.", err)
	} else if client, cerr := slurm.GetSSHClient(configuration); cerr != nil {
		log.Printf("Cannot reach the cluster: %v. Job operations may fail.", cerr)
	} else if cerr = slurm.CheckVersion(client, configuration); cerr != nil {
		log.Printf("Cluster version preflight failed: %v. Job operations may fail.", cerr)
	}

	httpServer, err := rest.NewServer(configuration, version)
	if err != nil {
		return err
	}
	defer httpServer.Shutdown()

	signalCh := make(chan os.Signal, 4)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	for {
		var sig os.Signal
		shutdownChClosed := false
		select {
		case s := <-signalCh:
			sig = s
		case <-shutdownCh:
			sig = os.Interrupt
			shutdownChClosed = true
		}

		// Check if this is a SIGHUP
		if sig == syscall.SIGHUP {
			// TODO reload configuration
		} else {
			if !shutdownChClosed {
				close(shutdownCh)
			}
			log.Printf("Caught signal: %v, shutting down", sig)
			return nil
		}
	}
}
