package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/scanpool/scanpool/account"
	"github.com/scanpool/scanpool/batch"
	"github.com/scanpool/scanpool/cmd/flags"
	"github.com/scanpool/scanpool/common"
	"github.com/scanpool/scanpool/config"
	"github.com/scanpool/scanpool/domaincheck"
	"github.com/scanpool/scanpool/inbox"
	"github.com/scanpool/scanpool/interfaces"
	"github.com/scanpool/scanpool/metrics"
	"github.com/scanpool/scanpool/rotation"
	"github.com/scanpool/scanpool/store"
	"github.com/scanpool/scanpool/workflow"
)

var flagCount = &cli.IntFlag{
	Name:  "count",
	Value: 1,
	Usage: "number of accounts to provision",
}
var flagUsernameMin = &cli.IntFlag{
	Name:  "username-min-length",
	Value: 12,
	Usage: "minimum generated username length",
}
var flagUsernameMax = &cli.IntFlag{
	Name:  "username-max-length",
	Value: 16,
	Usage: "maximum generated username length",
}
var flagPasswordMin = &cli.IntFlag{
	Name:  "password-min-length",
	Value: 15,
	Usage: "minimum generated password length",
}
var flagPasswordMax = &cli.IntFlag{
	Name:  "password-max-length",
	Value: 30,
	Usage: "maximum generated password length",
}
var flagOutput = &cli.StringFlag{
	Name:  "output",
	Value: "accounts.txt",
	Usage: "rotation store location: plain path, file://path or s3://bucket/key?region=...",
}
var flagSessionCookie = &cli.StringFlag{
	Name:  "session-cookie",
	Usage: "account service _hcp cookie; overrides the config file and SCANPOOL_SESSION_COOKIE",
}
var flagInboxToken = &cli.StringFlag{
	Name:  "inbox-token",
	Usage: "inbox provider bearer token; overrides the config file and SCANPOOL_INBOX_TOKEN",
}
var flagVerifyDomains = &cli.BoolFlag{
	Name:  "verify-domains",
	Value: false,
	Usage: "drop advertised inbox domains without MX records before pairing",
}
var flagResolver = &cli.StringFlag{
	Name:  "resolver",
	Value: domaincheck.DefaultResolver,
	Usage: "DNS resolver used by --verify-domains",
}
var flagMetricsAddr = &cli.StringFlag{
	Name:  "metrics-addr",
	Usage: "serve Prometheus provisioning metrics on this address for the duration of the run (empty disables)",
}
var flagAccounts = &cli.StringFlag{
	Name:     "accounts",
	Required: true,
	Usage:    "rotation store location to read accounts from",
}

func main() {
	app := &cli.App{
		Name:  "scanpool",
		Usage: "provision disposable scanning-service accounts and rotate through them",
		Commands: []*cli.Command{
			&cli.Command{
				Name:  "provision",
				Usage: "create accounts and persist them to the rotation store",
				Flags: append([]cli.Flag{
					flagCount,
					flagUsernameMin,
					flagUsernameMax,
					flagPasswordMin,
					flagPasswordMax,
					flagOutput,
					flagSessionCookie,
					flagInboxToken,
					flagVerifyDomains,
					flagResolver,
					flagMetricsAddr,
					flags.ConfigFlag,
				}, flags.LoggingFlags...),
				Action: runProvision,
			},
			&cli.Command{
				Name:      "scan",
				Usage:     "run the scanner with the next account in rotation",
				ArgsUsage: "[-- scanner arguments]",
				Flags: append([]cli.Flag{
					flagAccounts,
					flags.ConfigFlag,
				}, flags.LoggingFlags...),
				Action: runScan,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runProvision(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := config.Load(cCtx.String(flags.ConfigFlag.Name))
	if err != nil {
		return err
	}
	applyFlagOverrides(&cfg, cCtx)

	if cfg.AccountService.SessionCookie == "" {
		return errors.New("session cookie is required: pass --session-cookie, set SCANPOOL_SESSION_COOKIE, or configure account_service.session_cookie")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var provisioningMetrics *metrics.ProvisioningMetrics
	if metricsAddr := cCtx.String(flagMetricsAddr.Name); metricsAddr != "" {
		metricsSrv, err := metrics.New(common.PackageName, metricsAddr)
		if err != nil {
			return err
		}
		provisioningMetrics = metrics.NewProvisioningMetrics(common.PackageName, metricsSrv.Registry())

		go func() {
			logger.With("metricsAddress", metricsAddr).Info("Starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful metrics server shutdown failed", "err", err)
			}
		}()
	}

	inboxClient := &inbox.Client{
		BaseURL: cfg.Inbox.BaseURL,
		Token:   cfg.Inbox.Token,
		Log:     logger,
	}

	orchestratorCfg := batch.Config{
		Workflow: workflow.Config{
			Sender:      cfg.AccountService.ActivationSender,
			LinkPattern: cfg.AccountService.ActivationLinkPattern,
			Attempts:    cfg.Polling.Attempts,
			Delay:       cfg.Polling.Delay.Std(),
			Log:         logger,
			Metrics:     provisioningMetrics,
		},
		NewAccountClient: func() (interfaces.AccountServiceClient, error) {
			return account.NewClient(cfg.AccountService.BaseURL, cfg.AccountService.SessionCookie, logger)
		},
		Log: logger,
	}
	if cCtx.Bool(flagVerifyDomains.Name) {
		orchestratorCfg.DomainFilter = &domaincheck.Verifier{
			Resolver: cCtx.String(flagResolver.Name),
			Log:      logger,
		}
	}

	orchestrator, err := batch.New(orchestratorCfg, inboxClient)
	if err != nil {
		return err
	}

	count := cCtx.Int(flagCount.Name)
	accounts, err := orchestrator.Run(ctx, batch.Params{
		Count:          count,
		UsernameMinLen: cCtx.Int(flagUsernameMin.Name),
		UsernameMaxLen: cCtx.Int(flagUsernameMax.Name),
		PasswordMinLen: cCtx.Int(flagPasswordMin.Name),
		PasswordMaxLen: cCtx.Int(flagPasswordMax.Name),
	})
	if err != nil {
		return err
	}

	output := cCtx.String(flagOutput.Name)
	if len(accounts) > 0 {
		// An empty batch never overwrites an existing pool.
		rotStore, err := newRotationStore(output, logger)
		if err != nil {
			return err
		}
		if err := rotStore.SaveAll(ctx, accounts); err != nil {
			return err
		}
	} else {
		logger.Warn("No accounts were provisioned")
	}

	emails := make([]string, 0, len(accounts))
	for _, acct := range accounts {
		emails = append(emails, acct.Email)
	}
	summary, _ := json.Marshal(map[string]any{
		"requested":   count,
		"provisioned": len(accounts),
		"failed":      count - len(accounts),
		"output":      output,
		"accounts":    emails,
	})
	fmt.Println(string(summary))

	return nil
}

func runScan(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := config.Load(cCtx.String(flags.ConfigFlag.Name))
	if err != nil {
		return err
	}

	rotStore, err := newRotationStore(cCtx.String(flagAccounts.Name), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &rotation.ScanRunner{
		Binary:  cfg.Scanner.Binary,
		Rotator: rotation.NewRotator(rotStore, logger),
		Log:     logger,
	}
	return runner.Run(ctx, cCtx.Args().Slice())
}

// applyFlagOverrides layers CLI flags over the loaded config: flags win over
// both the file and the environment.
func applyFlagOverrides(cfg *config.Config, cCtx *cli.Context) {
	if token := cCtx.String(flagInboxToken.Name); token != "" {
		cfg.Inbox.Token = token
	}
	if cookie := cCtx.String(flagSessionCookie.Name); cookie != "" {
		cfg.AccountService.SessionCookie = cookie
	}
}

func newRotationStore(location string, logger *slog.Logger) (*store.RotationStore, error) {
	backend, err := store.BackendFor(location, logger)
	if err != nil {
		return nil, err
	}
	return store.NewRotationStore(backend, logger), nil
}
