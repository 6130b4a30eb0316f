package server

import (
	"time"

	metrics "github.com/armon/go-metrics"
	"github.com/pkg/errors"

	"github.com/hpcforge/hpcforge/config"
	"github.com/hpcforge/hpcforge/log"
)

func setupTelemetry(cfg config.Configuration) error {
	memSink := metrics.NewInmemSink(10*time.Second, time.Minute)
	metrics.DefaultInmemSignal(memSink)
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = "hpcforge"
	}
	metricsConf := metrics.DefaultConfig(serviceName)
	metricsConf.EnableHostname = !cfg.Telemetry.DisableHostName
	metricsConf.EnableRuntimeMetrics = !cfg.Telemetry.DisableGoRuntimeMetrics
	var sinks metrics.FanoutSink

	if cfg.Telemetry.StatsdAddress != "" {
		log.Debugf("Setting up a statsd telemetry service on %q", cfg.Telemetry.StatsdAddress)
		statsdSink, err := metrics.NewStatsdSink(cfg.Telemetry.StatsdAddress)
		if err != nil {
			return errors.Wrap(err, "Failed to create Statsd telemetry service")
		}
		sinks = append(sinks, statsdSink)
	}

	if len(sinks) > 0 {
		sinks = append(sinks, memSink)
		metrics.NewGlobal(metricsConf, sinks)
	} else {
		log.Debugln("Using InMemory only telemetry")
		metrics.NewGlobal(metricsConf, memSink)
	}

	return nil
}
