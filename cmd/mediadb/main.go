package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"

	"github.com/openmdb/mediadb"
	"github.com/openmdb/mediadb/backend"
	"github.com/openmdb/mediadb/probe"
	"github.com/openmdb/mediadb/server"
	"github.com/openmdb/mediadb/watch"
)

type config struct {
	// General configuration
	Port        int      `yaml:"port"`
	Directories []string `yaml:"directories"`

	// Cron spec for periodic rescans, empty disables them.
	Rescan string `yaml:"rescan"`

	Auth server.Config `yaml:"authentication"`

	Watch struct {
		Enabled     bool          `yaml:"enabled"`
		Settle      time.Duration `yaml:"settle"`
		MinInterval time.Duration `yaml:"min-interval"`
	} `yaml:"watch"`
}

var (
	// Release variables
	Version   string
	Timestamp string
	GitCommit string

	// CLI
	cli struct {
		globals

		// flags
		Config    string `type:"path" default:"${config_file}" env:"MEDIADB_CONFIG" help:"Config file path"`
		Database  string `type:"path" default:"${database_dir}" env:"MEDIADB_DATABASE" help:"Database directory path"`
		Log       string `type:"path" default:"${log_file}" env:"MEDIADB_LOG" help:"Log file path"`
		Verbosity int    `type:"counter" default:"0" short:"v" env:"MEDIADB_VERBOSITY" help:"Log level verbosity"`
	}
)

type globals struct {
	Version versionFlag `name:"version" help:"Print version information and quit"`
}

type versionFlag string

func (v versionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v versionFlag) IsBool() bool                         { return true }
func (v versionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	// parse cli
	ctx := kong.Parse(&cli,
		kong.Name("mediadb"),
		kong.Description("Scan media files into a browsable database"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Summary: true,
			Compact: true,
		}),
		kong.Vars{
			"version":      fmt.Sprintf("%s (%s@%s)", Version, GitCommit, Timestamp),
			"config_file":  filepath.Join(mediadb.GetDefaultConfigPath(), "config.yml"),
			"log_file":     filepath.Join(mediadb.GetDefaultConfigPath(), "activity.log"),
			"database_dir": mediadb.GetDefaultConfigPath(),
		},
	)

	if err := ctx.Validate(); err != nil {
		fmt.Println("Failed parsing cli:", err)
		os.Exit(1)
	}

	logger := log.Output(io.MultiWriter(zerolog.ConsoleWriter{
		Out: os.Stderr,
	}, zerolog.ConsoleWriter{
		Out: &lumberjack.Logger{
			Filename:   cli.Log,
			MaxSize:    5,
			MaxAge:     14,
			MaxBackups: 5,
		},
		NoColor: true,
	}))

	switch {
	case cli.Verbosity == 1:
		log.Logger = logger.Level(zerolog.DebugLevel)
	case cli.Verbosity > 1:
		log.Logger = logger.Level(zerolog.TraceLevel)
	default:
		log.Logger = logger.Level(zerolog.InfoLevel)
	}

	// config
	file, err := os.Open(cli.Config)
	if err != nil {
		log.Fatal().
			Err(err).
			Msg("Failed opening config")
	}
	defer file.Close()

	// set default values
	c := config{
		Port: 3030,
	}

	decoder := yaml.NewDecoder(file)
	decoder.SetStrict(true)
	if err := decoder.Decode(&c); err != nil {
		log.Fatal().
			Err(err).
			Msg("Failed decoding config")
	}

	// backend
	sink := func(ev mediadb.Event) {
		log.Debug().
			Str("verb", ev.Verb).
			Str("path", ev.Path).
			Msg("Backend event")
	}

	b, err := backend.New(cli.Database, probe.New(log.Logger), sink, log.Logger)
	if err != nil {
		log.Fatal().
			Err(err).
			Msg("Failed initialising backend")
	}
	defer b.Close()

	srv := server.New(b, c.Auth)

	// reconcile the configured scan directories
	if len(c.Directories) > 0 {
		b.Handle(mediadb.Command{
			Verb:        mediadb.CmdSetDirectories,
			Directories: c.Directories,
		}, nil)
	}

	dirs, err := b.Directories()
	if err != nil {
		log.Fatal().
			Err(err).
			Msg("Failed listing directories")
	}

	log.Info().
		Strs("directories", dirs).
		Msg("Initialised backend")

	// periodic rescan
	if c.Rescan != "" {
		cr := cron.New()
		if _, err := cr.AddFunc(c.Rescan, func() {
			if err := srv.Rescan(); err != nil {
				log.Error().
					Err(err).
					Msg("Failed rescanning")
			}
		}); err != nil {
			log.Fatal().
				Err(err).
				Str("spec", c.Rescan).
				Msg("Failed scheduling rescan")
		}
		cr.Start()
		defer cr.Stop()
	}

	// filesystem watcher
	if c.Watch.Enabled && len(dirs) > 0 {
		w, err := watch.New(watch.Config{
			Settle:      c.Watch.Settle,
			MinInterval: c.Watch.MinInterval,
		}, dirs, srv.Sync)
		if err != nil {
			log.Fatal().
				Err(err).
				Msg("Failed initialising watcher")
		}
		defer w.Close()
	}

	go libraryStats(srv, time.Hour)

	var g errgroup.Group

	g.Go(func() error {
		log.Info().Msgf("Starting server on port %d", c.Port)
		return http.ListenAndServe(fmt.Sprintf(":%d", c.Port), srv.Router(c.Auth))
	})

	if err := g.Wait(); err != nil {
		log.Fatal().
			Err(err).
			Msg("Failed starting web server")
	}
}
