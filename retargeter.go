package main

import (
	"flag"

	log "github.com/sirupsen/logrus"

	"github.com/mogaika/retargeter/bonemap"
	"github.com/mogaika/retargeter/config"
	"github.com/mogaika/retargeter/host"
	"github.com/mogaika/retargeter/status"
	"github.com/mogaika/retargeter/studio"
	"github.com/mogaika/retargeter/web"
)

func main() {
	var addr, dir, configPath, webPath, mappingDir, logLevel string
	var watch bool
	flag.StringVar(&addr, "i", ":8000", "Address of server")
	flag.StringVar(&dir, "dir", ".", "Directory with models, animations and projects")
	flag.StringVar(&configPath, "config", "", "Path to yaml config")
	flag.StringVar(&webPath, "web", "web", "Path to web ui, empty to serve api only")
	flag.StringVar(&mappingDir, "mappings", "", "Mapping presets directory override")
	flag.StringVar(&logLevel, "log", "", "Log level override (debug, info, warn, error)")
	flag.BoolVar(&watch, "watch", true, "Watch mapping presets directory for changes")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			log.Fatal(err)
		}
	}
	if mappingDir != "" {
		cfg.MappingDir = mappingDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err != nil {
		log.Warnf("Unknown log level %q: %v", cfg.LogLevel, err)
	} else {
		log.SetLevel(level)
	}
	config.Set(cfg)

	library, err := bonemap.OpenLibrary(cfg.MappingDir)
	if err != nil {
		log.Fatal(err)
	}
	defer library.Close()
	if watch {
		if err := library.Watch(); err != nil {
			log.Warnf("Mapping presets are not watched: %v", err)
		}
	}

	hub := status.NewHub()
	h := host.NewLocal(dir, hub)
	s := &web.Server{
		Studio: studio.New(cfg, h, library),
		Hub:    hub,
		Host:   h,
	}

	if err := web.StartServer(addr, s, webPath); err != nil {
		log.Fatal(err)
	}
}
