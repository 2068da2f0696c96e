// texinfo inspects and converts texture images stored on disk or in GRF
// archives.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/texcore/internal/assets"
	"github.com/Faultbox/texcore/internal/config"
	"github.com/Faultbox/texcore/internal/logger"
	"github.com/Faultbox/texcore/pkg/texture"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// env is the state shared by all commands, built once flags are parsed.
type env struct {
	cfg     *config.Config
	cache   *assets.Cache
	manager *assets.Manager
}

func newApp() *cli.App {
	e := &env{}

	app := cli.NewApp()
	app.Name = "texinfo"
	app.Usage = "Texture image inspection utility"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			EnvVars: []string{"TEXINFO_CONFIG"},
			Usage:   "path to config file",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "also write logs to this file",
		},
		&cli.StringSliceFlag{
			Name:  "grf",
			Usage: "GRF archive to search for paths not found on disk (repeatable, last wins)",
		},
	}

	app.Before = func(c *cli.Context) error {
		return e.setup(c)
	}
	app.After = func(c *cli.Context) error {
		return e.close()
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Show format, size and mip levels of images",
			ArgsUsage: "PATH...",
			Action:    e.info,
		},
		{
			Name:      "detect",
			Usage:     "Show the detected container format of files",
			ArgsUsage: "PATH...",
			Action:    e.detect,
		},
		{
			Name:      "convert",
			Usage:     "Decode images and convert RGB5A1 data to RGBA8",
			ArgsUsage: "PATH...",
			Action:    e.convert,
		},
		{
			Name:      "palette",
			Usage:     "Show the dominant colours of images",
			ArgsUsage: "PATH...",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "level",
					Usage: "mip level to analyse",
				},
				&cli.IntFlag{
					Name:  "colours",
					Value: 16,
					Usage: "palette size (1-256)",
				},
			},
			Action: e.palette,
		},
		{
			Name:      "ls",
			Usage:     "List images inside a GRF archive",
			ArgsUsage: "ARCHIVE [PATTERN]",
			Action:    e.ls,
		},
		{
			Name:  "config",
			Usage: "Show or save the effective configuration",
			Subcommands: []*cli.Command{
				{
					Name:   "show",
					Usage:  "Print the effective configuration as YAML",
					Action: e.configShow,
				},
				{
					Name:      "save",
					Usage:     "Write the effective configuration to PATH or the user config directory",
					ArgsUsage: "[PATH]",
					Action:    e.configSave,
				},
			},
		},
		{
			Name:      "pack",
			Usage:     "Create a GRF archive from image files",
			ArgsUsage: "ARCHIVE FILE...",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "prefix",
					Value: "data/texture",
					Usage: "archive directory the files are stored under",
				},
				&cli.BoolFlag{
					Name:  "verify",
					Value: true,
					Usage: "decode every file before adding it",
				},
			},
			Action: e.pack,
		},
	}

	return app
}

func (e *env) setup(c *cli.Context) error {
	cfg, err := config.Load(config.Overrides{
		ConfigPath: c.String("config"),
		Debug:      c.Bool("debug"),
		LogFile:    c.String("log-file"),
		GRFPaths:   c.StringSlice("grf"),
	})
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return cli.Exit(err, 1)
	}

	var cache *assets.Cache
	if cfg.Cache.Enabled {
		cache = assets.NewCache(cfg.Cache.MaxEntries)
	}
	loader := texture.NewLoader(cfg.Options(), logger.Log)
	manager := assets.NewManager(loader, cache, logger.Log)
	for _, path := range cfg.Data.GRFPaths {
		if err := manager.AddArchive(path); err != nil {
			manager.Close()
			return cli.Exit(err, 1)
		}
	}

	e.cfg = cfg
	e.cache = cache
	e.manager = manager
	logger.Log.Debug("texinfo started",
		zap.Strings("archives", cfg.Data.GRFPaths),
		zap.Bool("cache", cfg.Cache.Enabled))
	return nil
}

func (e *env) close() error {
	defer logger.Sync()
	if e.manager == nil {
		return nil
	}
	if e.cache != nil {
		hits, misses := e.cache.Stats()
		logger.Log.Debug("cache stats",
			zap.Int("hits", hits),
			zap.Int("misses", misses),
			zap.Int("entries", e.cache.Len()))
	}
	return e.manager.Close()
}
