package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logger "github.com/ElrondNetwork/elrond-go-logger"
	"github.com/ironfinance/lottery-adapter/adapter"
	"github.com/ironfinance/lottery-adapter/config"
	"github.com/ironfinance/lottery-adapter/interaction"
	"github.com/urfave/cli"
)

var log = logger.GetOrCreate("main")

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the toml configuration file",
		Value: config.DefaultConfigPath,
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "logger level pattern, e.g. *:INFO or *:DEBUG,synchronizer:TRACE",
		Value: "*:INFO",
	}
	roundFlag = cli.Uint64Flag{
		Name:  "round",
		Usage: "round to watch; the current round is watched when omitted",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "lottery-adapter"
	app.Usage = "serves lottery round snapshots and ticket settlements read from chain"
	app.Flags = []cli.Flag{configFlag, logLevelFlag, roundFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Error("adapter stopped", "err", err.Error())
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if err := logger.SetLogLevel(c.String(logLevelFlag.Name)); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(c.String(configFlag.Name))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := interaction.Dial(ctx, cfg.Blockchain)
	if err != nil {
		return err
	}
	defer client.Close()

	adapterFacade, err := adapter.NewAdapter(cfg, client)
	if err != nil {
		return err
	}
	defer adapterFacade.StopAll()

	if c.IsSet(roundFlag.Name) {
		_, err = adapterFacade.WatchRound(ctx, c.Uint64(roundFlag.Name))
	} else {
		_, err = adapterFacade.WatchCurrentRound(ctx)
	}
	if err != nil {
		return err
	}

	webServer, err := adapter.NewWebServer(adapterFacade)
	if err != nil {
		return err
	}

	errServer := make(chan error, 1)
	go func() {
		errServer <- webServer.Run(cfg.Server.Port)
	}()

	select {
	case err = <-errServer:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	}
}
