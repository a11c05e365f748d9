package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/pitchfeed/internal/client"
	"github.com/anonto42/pitchfeed/internal/replay"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type globalFlags struct {
	apiURL  string
	token   string
	timeout time.Duration
	verbose bool
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "feedctl",
		Short:         "Inspect the pitch feed and replay feed sessions against it",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if flags.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.apiURL, "api", envOr("FEED_API_URL", "http://localhost:8080"), "Feed API base URL")
	rootCmd.PersistentFlags().StringVar(&flags.token, "token", os.Getenv("FEED_TOKEN"), "Bearer token for authenticated calls")
	rootCmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", client.DefaultTimeout, "HTTP timeout per API call")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(newFeedCmd(flags), newReplayCmd(flags))
	return rootCmd
}

func newFeedCmd(flags *globalFlags) *cobra.Command {
	var cursor int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print one feed page",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(flags)
			if err != nil {
				return err
			}
			page, err := c.ListFeed(cmd.Context(), cursor)
			if err != nil {
				return err
			}
			return printYAML(cmd, page)
		},
	}
	cmd.Flags().IntVar(&cursor, "cursor", 0, "Feed cursor (offset)")
	return cmd
}

func newReplayCmd(flags *globalFlags) *cobra.Command {
	var (
		scriptPath string
		duration   int
		realtime   bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Drive a feed session from a YAML script and print the resulting state",
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := replay.ParseFile(scriptPath)
			if err != nil {
				return err
			}
			c, err := newClient(flags)
			if err != nil {
				return err
			}
			if _, ok, err := c.FetchIdentity(cmd.Context()); err != nil {
				return fmt.Errorf("resolve identity: %w", err)
			} else if !ok {
				log.Warn().Msg("Running signed out, invest and boost gestures will be refused")
			}

			opts := replay.Options{
				Backend:       c,
				Identity:      c,
				Logger:        log.Logger,
				TimerDuration: duration,
			}
			if realtime {
				opts.ClockInterval = time.Second
			}
			runner := replay.NewRunner(opts)
			rep, runErr := runner.Run(cmd.Context(), script)
			if rep != nil {
				if err := printYAML(cmd, rep); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "Path to the replay script")
	cmd.Flags().IntVar(&duration, "timer", 0, "Playback countdown in ticks (default 120)")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "Tick the countdown once per second while the script runs")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

func newClient(flags *globalFlags) (*client.Client, error) {
	return client.New(client.Options{
		BaseURL:    flags.apiURL,
		Token:      flags.token,
		HTTPClient: &http.Client{Timeout: flags.timeout},
		Logger:     log.Logger,
	})
}

func printYAML(cmd *cobra.Command, v interface{}) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
