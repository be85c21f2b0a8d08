package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	"github.com/crazy-max/xlfs/internal/app"
	"github.com/crazy-max/xlfs/internal/logging"
	"github.com/crazy-max/xlfs/pkg/config"
	"github.com/rs/zerolog/log"
)

var (
	xlfs    *app.Xlfs
	cli     config.Cli
	version = "dev"
	meta    = config.Meta{
		ID:     "xlfs",
		Name:   "xlfs",
		Desc:   "Load selected entries of a spreadsheet package or zip archive in memory and query them",
		URL:    "https://github.com/crazy-max/xlfs",
		Author: "CrazyMax",
	}
)

func main() {
	var err error
	runtime.GOMAXPROCS(runtime.NumCPU())

	meta.Version = version

	_ = kong.Parse(&cli,
		kong.Name(meta.ID),
		kong.Description(fmt.Sprintf("%s. More info: %s", meta.Desc, meta.URL)),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	// Logging
	if err = logging.Configure(cli); err != nil {
		log.Fatal().Err(err).Msg("cannot configure logging")
	}

	// Handle os signals
	ctx, cancel := context.WithCancel(context.Background())
	channel := make(chan os.Signal, 1)
	signal.Notify(channel, os.Interrupt, SIGTERM)
	go func() {
		sig := <-channel
		log.Warn().Msgf("caught signal %v", sig)
		cancel()
	}()

	// Init
	if xlfs, err = app.New(ctx, meta, cli, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("cannot initialize xlfs")
	}
	defer xlfs.Close()

	// Start
	if err = xlfs.Start(); err != nil {
		log.Fatal().Stack().Err(err).Send()
	}
}
