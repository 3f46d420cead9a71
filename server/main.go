package main

import (
	"flag"
	"log"

	"github.com/runocan/basic-server/config"
	"github.com/runocan/basic-server/httpd"
	"github.com/runocan/basic-server/internal"
	"github.com/runocan/basic-server/tcp"
)

type Options struct {
	Config  string
	Listen  string
	Root    string
	NoColor bool
}

var options Options
var tslog = &internal.TSLog{}

func parseOptions() {
	flag.StringVar(&options.Config, "config", "", "YAML config file (optional)")
	flag.StringVar(&options.Listen, "listen", "", "listen address(host:port), overrides the config")
	flag.StringVar(&options.Root, "root", "", "document root, overrides the config")
	flag.BoolVar(&options.NoColor, "no-color", false, "plain log output")
	flag.Parse()
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if options.Config != "" {
		var err error
		if cfg, err = config.Load(options.Config); err != nil {
			return nil, err
		}
	}
	return cfg.With(options.Listen, options.Root)
}

func main() {
	parseOptions()

	tslog.NoColor = options.NoColor

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	s := &tcp.Server{
		Handler:    httpd.NewDispatcher(cfg, tslog),
		ReadBuffer: cfg.ReadBuffer(),
		Log:        tslog,
	}

	tslog.Log("serving %s from %s", cfg.Addr(), cfg.Root())

	if err := s.ListenAndServe(cfg.Addr()); err != nil {
		log.Fatalf("%v", err)
	}
}
