package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/scanpool/scanpool/cmd/flags"
	"github.com/scanpool/scanpool/devstack"
)

var flagDomains = &cli.StringSliceFlag{
	Name:  "domain",
	Usage: "inbox domain to advertise; repeat for more (defaults to the built-in pool)",
}
var flagSender = &cli.StringFlag{
	Name:  "sender",
	Usage: "From address on emulated activation emails",
}
var flagLinkBase = &cli.StringFlag{
	Name:  "link-base",
	Usage: "activation link prefix the token is appended to",
}
var flagSessionCookie = &cli.StringFlag{
	Name:  "session-cookie",
	Usage: "when set, sign-up requires a matching _hcp cookie",
}
var flagDeliveryDelay = &cli.DurationFlag{
	Name:  "delivery-delay",
	Value: 2 * time.Second,
	Usage: "delay before activation emails land in the inbox",
}
var flagPollInterval = &cli.DurationFlag{
	Name:  "poll-interval",
	Value: time.Second,
	Usage: "minimum interval between message listings per address (0 disables throttling)",
}

func main() {
	app := &cli.App{
		Name:  "devstack",
		Usage: "Serve local emulations of the inbox provider and account service",
		Flags: append(append([]cli.Flag{
			flagDomains,
			flagSender,
			flagLinkBase,
			flagSessionCookie,
			flagDeliveryDelay,
			flagPollInterval,
		}, flags.ServerFlags...), flags.LoggingFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg := flags.ConfigureServer(cCtx, logger)
			cfg.Domains = cCtx.StringSlice(flagDomains.Name)
			cfg.Sender = cCtx.String(flagSender.Name)
			cfg.LinkBase = cCtx.String(flagLinkBase.Name)
			cfg.SessionCookie = cCtx.String(flagSessionCookie.Name)
			cfg.DeliveryDelay = cCtx.Duration(flagDeliveryDelay.Name)
			cfg.PollInterval = cCtx.Duration(flagPollInterval.Name)

			server, err := devstack.New(cfg)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
