package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"resolversampler/internal/browser"
	"resolversampler/internal/config"
	"resolversampler/internal/fetch"
	"resolversampler/internal/logging"
	"resolversampler/internal/sampler"
	_ "resolversampler/internal/services/ariadne"
	_ "resolversampler/internal/services/getit"
	_ "resolversampler/internal/services/sfx"
	"resolversampler/internal/store"
	"resolversampler/internal/testcase"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "resolversampler [test-case-group]",
		Short:   "Fetch link resolver response samples for a test case group",
		Version: version,
		Long: `resolversampler loads every test case URL of a group in a headless browser
against each link resolver service (GetIt, SFX, Ariadne), waits until each
response is fully rendered, and stores the HTML under response-samples/
together with an index.json describing what was fetched.`,
		Example: `  # Fetch samples for URLs of the primo group that are not indexed yet
  resolversampler primo

  # Re-fetch the first 10 URLs against local GetIt and SFX, skipping Ariadne
  resolversampler -r -n 10 -g http://localhost:3001/resolve -s http://localhost:3002/sfxlcl41 -x ariadne primo

  # Watch the browser while sampling
  resolversampler --showui --timeout 1m primo`,
		Args:         cobra.ArbitraryArgs,
		RunE:         run,
		SilenceUsage: true,
	}
	config.RegisterFlags(rootCmd, sampler.Definitions())

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show how many test cases of each group have samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), sampler.Definitions())
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), cfg)
		},
	}
	config.RegisterFlags(statusCmd, sampler.Definitions())
	rootCmd.AddCommand(statusCmd)

	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	services := sampler.Definitions()
	cfg, err := config.Load(cmd.Flags(), services)
	if err != nil {
		return err
	}

	group, err := resolveGroup(cfg, args)
	if err != nil {
		return err
	}

	logger, closeLogs, err := logging.New(logging.Options{Dir: cfg.LogsDir(), Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer closeLogs()
	logger = logger.With(zap.String("run", ulid.Make().String()))
	defer zap.ReplaceGlobals(logger)()

	urls, err := testcase.URLs(cfg.TestCaseDir(), group)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.SamplesDir(), group)
	if err != nil {
		return err
	}
	defer st.Close()

	var samplers []sampler.Sampler
	for _, d := range cfg.Selected(services) {
		endpoint := cfg.Endpoints[d.Key]
		if endpoint == "" {
			endpoint = d.DefaultEndpoint
		}
		samplers = append(samplers, d.Build(endpoint))
		logger.Info("sampling service", zap.String("service", d.Name), zap.String("endpoint", endpoint))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := browser.Open(browser.Config{
		Headless:  !cfg.ShowUI,
		BypassCSP: true,
		Bin:       cfg.BrowserBin,
	})
	if err != nil {
		logger.Error("failed to start browser", zap.Error(err))
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("failed to close browser", zap.Error(err))
		}
	}()

	f := fetch.New(session.Page(), samplers, st, logger, fetch.Options{
		Replace: cfg.Replace,
		Limit:   cfg.Limit,
		Timeout: cfg.Timeout,
		Pause:   cfg.Pause,
	})
	if _, err := f.Run(ctx, urls); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted")
			return nil
		}
		logger.Error("run aborted", zap.Error(err))
		return err
	}
	return nil
}

// resolveGroup checks that exactly one known test case group was given.
func resolveGroup(cfg *config.Config, args []string) (string, error) {
	groups, err := testcase.Groups(cfg.TestCaseDir())
	if err != nil {
		return "", err
	}
	if len(args) != 1 {
		return "", fmt.Errorf("you must specify exactly one test case group. Please select from one of the following: %s",
			strings.Join(groups, ", "))
	}
	if err := testcase.ValidateGroup(args[0], groups); err != nil {
		return "", err
	}
	return args[0], nil
}

func printStatus(w io.Writer, cfg *config.Config) error {
	groups, err := testcase.Groups(cfg.TestCaseDir())
	if err != nil {
		return err
	}

	for _, group := range groups {
		urls, err := testcase.URLs(cfg.TestCaseDir(), group)
		if err != nil {
			return err
		}
		idx, err := store.LoadIndex(store.IndexPath(cfg.SamplesDir(), group))
		if err != nil {
			return err
		}
		pending := fetch.Pending(urls, idx, false, 0)
		fmt.Fprintf(w, "%s\t%d test cases\t%d sampled\t%d pending\n",
			group, len(urls), len(urls)-len(pending), len(pending))
	}
	return nil
}
