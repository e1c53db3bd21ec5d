// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn6-go/pkg/agent"
	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/cla"
	"github.com/dtn7/dtn6-go/pkg/cla/mtcp"
	"github.com/dtn7/dtn6-go/pkg/cla/quicl"
	"github.com/dtn7/dtn6-go/pkg/cla/stcp"
	"github.com/dtn7/dtn6-go/pkg/cla/ws"
	"github.com/dtn7/dtn6-go/pkg/core"
	"github.com/dtn7/dtn6-go/pkg/routing"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Core    coreConf
	Logging logConf
	Cla     claConf `toml:"cla"`
	Agent   agentConf
	Route   []routing.RouteConf
}

// coreConf describes the Core-configuration block.
type coreConf struct {
	Store      string
	NodeId     string `toml:"node-id"`
	BundleSize int    `toml:"bundle-size"`
	Lifetime   uint64
	Passive    bool
	Start      string
	Stop       string
	Retry      string
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// claConf selects the convergence layer.
type claConf struct {
	Type cla.CLAType
}

// agentConf describes the RESTful Application Agent.
type agentConf struct {
	Listen string
}

// daemon bundles everything started from a configuration.
type daemon struct {
	core *core.Core
	cron *core.Cron
	srv  *http.Server
}

// loadConfig decodes a TOML configuration file.
func loadConfig(filename string) (conf tomlConfig, err error) {
	_, err = toml.DecodeFile(filename, &conf)
	return
}

// parseDuration accepts an empty string as zero.
func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("core.%s: %w", name, err)
	} else if d < 0 {
		return 0, fmt.Errorf("core.%s: negative duration %v", name, d)
	}
	return d, nil
}

// coreConfig converts the Core-configuration block into a core.Config and
// the optional flush interval.
func (conf coreConf) coreConfig() (c core.Config, retry time.Duration, err error) {
	nodeId, ok := bpv6.ParseEndpointIDStrict(conf.NodeId)
	if !ok {
		err = fmt.Errorf("core.node-id %q is not a valid endpoint", conf.NodeId)
		return
	}

	c = core.DefaultConfig(nodeId)
	if conf.BundleSize > 0 {
		c.BundleSize = conf.BundleSize
	}
	c.RegisterInfo = core.RegisterInfo{
		Lifetime: conf.Lifetime,
		Active:   !conf.Passive,
	}
	c.StorePath = conf.Store

	if c.StartTime, err = parseDuration("start", conf.Start); err != nil {
		return
	}
	if c.StopTime, err = parseDuration("stop", conf.Stop); err != nil {
		return
	}
	if c.StopTime > 0 && c.StopTime <= c.StartTime {
		err = fmt.Errorf("core.stop %v is not after core.start %v", c.StopTime, c.StartTime)
		return
	}

	retry, err = parseDuration("retry", conf.Retry)
	return
}

// setupLogging configures logrus' global logger.
func setupLogging(conf logConf) {
	if conf.Level != "" {
		if lvl, err := log.ParseLevel(conf.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    conf.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.WithField("format", conf.Format).Warn("Unknown logging format")
	}
}

// newConvergenceLayer creates a fresh convergence layer of the given type.
func newConvergenceLayer(claType cla.CLAType) (cla.ConvergenceLayer, error) {
	switch claType {
	case cla.STCP:
		return stcp.NewSTCP(), nil
	case cla.MTCP:
		return mtcp.NewMTCP(), nil
	case cla.QUICL:
		return quicl.NewQUICL(), nil
	case cla.WS:
		return ws.NewWS(), nil
	default:
		return nil, fmt.Errorf("unsupported convergence layer %v", claType)
	}
}

// newDaemon creates and schedules a Core based on the configuration. The
// RESTful Application Agent is started if an agent address is configured.
func newDaemon(conf tomlConfig) (d *daemon, err error) {
	cc, retry, err := conf.Core.coreConfig()
	if err != nil {
		return
	}

	router, err := routing.NewStaticRoutingFromConfig(conf.Route)
	if err != nil {
		return
	}

	conv, err := newConvergenceLayer(conf.Cla.Type)
	if err != nil {
		return
	}

	log.WithFields(log.Fields{
		"node":   cc.NodeID,
		"cla":    conf.Cla.Type,
		"routes": len(conf.Route),
	}).Info("Creating Core")

	c, err := core.NewCore(cc, conv, router)
	if err != nil {
		return
	}

	d = &daemon{
		core: c,
		cron: core.NewCron(),
	}

	if retry > 0 {
		if err = d.cron.Register("flush", c.FlushAll, retry); err != nil {
			_ = d.close()
			return nil, err
		}
	}

	if conf.Agent.Listen != "" {
		r := mux.NewRouter()
		agent.NewRestAgent(r.PathPrefix("/rest").Subrouter(), c)

		d.srv = &http.Server{
			Addr:    conf.Agent.Listen,
			Handler: r,
		}

		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).WithField("listen", srv.Addr).Error("RESTful Application Agent errored")
			}
		}(d.srv)
	}

	c.Schedule(d.cron)
	return
}

// close stops the Cron and the agent before shutting down the Core.
func (d *daemon) close() (err error) {
	d.cron.Stop()

	if d.srv != nil {
		if srvErr := d.srv.Close(); srvErr != nil {
			err = multierror.Append(err, srvErr)
		}
	}

	if coreErr := d.core.Shutdown(); coreErr != nil {
		err = multierror.Append(err, coreErr)
	}
	return
}
