// Package cli implements the gophish-backup and gophish-restore commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/gophish-backup/internal/backup"
	"github.com/randalmurphal/gophish-backup/internal/config"
	backuperrors "github.com/randalmurphal/gophish-backup/internal/errors"
	"github.com/randalmurphal/gophish-backup/internal/gophish"
)

// Version is reported by --version and in the User-Agent header.
var Version = "0.1.0-dev"

// options holds the flags shared by both commands.
type options struct {
	cfgFile   string
	verbose   bool
	instance  string
	apiKey    string
	filename  string
	insecure  bool
	timeout   time.Duration
	rateLimit float64
}

func (o *options) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.cfgFile, "config", "", "config file (default is .gophish-backup.yaml)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&o.instance, "instance", "", "full URI of the Gophish admin server, e.g. https://my.phishingserver.tld/")
	flags.StringVar(&o.apiKey, "api-key", "", "Gophish API key (prefer "+config.EnvPrefix+"_API_KEY)")
	flags.StringVar(&o.filename, "filename", config.DefaultFilename, "archive file name; .zip is appended if missing")
	flags.BoolVar(&o.insecure, "insecure", false, "skip TLS certificate verification")
	flags.DurationVar(&o.timeout, "timeout", config.DefaultTimeout, "per-request timeout")
	flags.Float64Var(&o.rateLimit, "rate-limit", 0, "maximum requests per second (0 = unlimited)")
}

// resolve merges config files, GOPHISH_* environment variables and flags,
// in increasing priority, and validates the result.
func (o *options) resolve(cmd *cobra.Command, logger *slog.Logger) (*config.Config, error) {
	tc, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, backuperrors.ErrConfigInvalid("config file", err.Error()).WithCause(err)
	}
	for _, f := range tc.Files {
		logger.Info("using config file", "path", f)
	}

	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	file := tc.Config
	v.SetDefault("instance", file.Instance)
	v.SetDefault("api-key", file.APIKey)
	v.SetDefault("filename", file.Filename)
	v.SetDefault("insecure", file.Insecure)
	v.SetDefault("timeout", file.Timeout.String())
	v.SetDefault("rate-limit", file.RateLimit)

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	timeout, err := time.ParseDuration(v.GetString("timeout"))
	if err != nil {
		return nil, backuperrors.ErrConfigInvalid("timeout", err.Error()).WithCause(err)
	}

	cfg := &config.Config{
		Instance:  v.GetString("instance"),
		APIKey:    v.GetString("api-key"),
		Filename:  v.GetString("filename"),
		Insecure:  v.GetBool("insecure"),
		Timeout:   timeout,
		RateLimit: v.GetFloat64("rate-limit"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns the diagnostic logger: warnings only, or info and up
// with --verbose. Notices meant for the operator go to stdout instead.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRemote(cfg *config.Config, logger *slog.Logger) (backup.Remote, error) {
	client, err := gophish.New(gophish.ClientConfig{
		BaseURL:   cfg.Instance,
		APIKey:    cfg.APIKey,
		Insecure:  cfg.Insecure,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		UserAgent: "gophish-backup/" + Version,
		Logger:    logger,
	})
	if err != nil {
		return backup.Remote{}, backuperrors.ErrConfigInvalid("instance", err.Error()).WithCause(err)
	}
	return backup.NewRemote(client), nil
}

// execute runs cmd and prints any error in the user-facing format.
func execute(ctx context.Context, cmd *cobra.Command, verbose *bool) error {
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		PrintError(cmd.ErrOrStderr(), err, *verbose)
	}
	return err
}
