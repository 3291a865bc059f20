// Package cli implements the rehabdir command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jonwraymond/rehabdir/config"
	"github.com/jonwraymond/rehabdir/directory"
	"github.com/jonwraymond/rehabdir/kv"
	"github.com/jonwraymond/rehabdir/observe"
)

// Version is set at build time.
var Version = "dev"

const shutdownTimeout = 5 * time.Second

type app struct {
	configPath string
	baseURL    string
	noCache    bool
	driver     string

	stdout io.Writer
	stderr io.Writer

	cfg      *config.Config
	port     kv.Store
	observer observe.Observer
	logFile  io.Closer
	client   *directory.Client
}

// NewRootCommand returns the rehabdir command writing to the process's
// standard streams.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithIO(os.Stdout, os.Stderr)
}

// NewRootCommandWithIO returns the rehabdir command writing to out and errOut.
func NewRootCommandWithIO(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "rehabdir",
		Short:         "Browse the rehabilitation center directory",
		Long:          "rehabdir queries the rehabilitation center directory API through a persistent response cache.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the configuration file")
	cmd.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "override api.base_url")
	cmd.PersistentFlags().BoolVar(&a.noCache, "no-cache", false, "bypass the response cache")
	cmd.PersistentFlags().StringVar(&a.driver, "store", "", "override store.driver (memory|bolt|sqlite)")

	cmd.AddCommand(
		newResourceCmd(a, "centers", "Rehabilitation centers", func(c *directory.Client) *directory.Resource[directory.Center] { return c.Centers }),
		newResourceCmd(a, "articles", "Editorial articles", func(c *directory.Client) *directory.Resource[directory.Article] { return c.Articles }),
		newResourceCmd(a, "comments", "Article comments", func(c *directory.Client) *directory.Resource[directory.Comment] { return c.Comments }),
		newResourceCmd(a, "bookings", "Your bookings (requires signin)", func(c *directory.Client) *directory.Resource[directory.Booking] { return c.Bookings }),
		newResourceCmd(a, "favorites", "Your favorite centers (requires signin)", func(c *directory.Client) *directory.Resource[directory.Favorite] { return c.Favorites }),
		newSignInCmd(a),
		newSignOutCmd(a),
		newMeCmd(a),
		newHealthCmd(a),
		newCacheCmd(a),
	)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "rehabdir:", err)
		return 1
	}
	return 0
}

// run opens the client, calls fn and releases everything fn used, whatever
// its outcome.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, c *directory.Client) error) (err error) {
	ctx := cmd.Context()
	defer func() {
		err = errors.Join(err, a.close(ctx))
	}()
	if err := a.open(ctx); err != nil {
		return err
	}
	return fn(ctx, a.client)
}

func (a *app) open(ctx context.Context) error {
	var overrides []config.LoadOption
	if a.baseURL != "" {
		overrides = append(overrides, config.WithOverride("api.base_url", a.baseURL))
	}
	if a.noCache {
		overrides = append(overrides, config.WithOverride("api.cache_enabled", false))
	}
	if a.driver != "" {
		overrides = append(overrides, config.WithOverride("store.driver", a.driver))
	}

	cfg, err := config.Load(ctx, a.configPath, overrides...)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logWriter := a.stderr
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o700); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		}
		a.logFile = rotating
		logWriter = rotating
	}

	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig("rehabdir", Version, logWriter))
	if err != nil {
		return err
	}
	a.observer = obs
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return err
	}

	port, err := openPort(cfg.Store)
	if err != nil {
		return err
	}
	a.port = port

	client, err := directory.New(directory.Options{
		Request:      cfg.RequestConfig(),
		Cache:        cfg.CacheConfig(),
		Staleness:    cfg.StalenessPolicy(),
		DisableCache: !cfg.API.CacheEnabled,
		Port:         port,
		TokenKey:     cfg.TokenKey(),
		Headers:      cfg.API.Headers,
		Logger:       obs.Logger(),
		Middleware:   mw,
	})
	if err != nil {
		return err
	}
	a.client = client

	if cfg.Auth.Token != "" && !client.Session().Authenticated(ctx) {
		if err := client.SignIn(ctx, cfg.Auth.Token); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) close(ctx context.Context) error {
	if a.client != nil {
		a.client.Wait()
		a.client = nil
	}

	var errs []error
	if a.port != nil {
		errs = append(errs, a.port.Close())
	}
	if a.observer != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		errs = append(errs, a.observer.Shutdown(sctx))
		cancel()
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	a.port, a.observer, a.logFile = nil, nil, nil
	return errors.Join(errs...)
}

func openPort(cfg config.StoreConfig) (kv.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return kv.NewMemory(), nil
	case config.DriverBolt, config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		if cfg.Driver == config.DriverBolt {
			return kv.OpenBolt(cfg.Path)
		}
		return kv.OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidDriver, cfg.Driver)
	}
}
