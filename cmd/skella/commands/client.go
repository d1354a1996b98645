package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/skella/internal/constants"
	"github.com/fivetwenty-io/skella/pkg/skella"
	"github.com/fivetwenty-io/skella/pkg/skellaclient"
)

// Cache selections accepted by the "cache" setting on top of the library types.
const (
	cacheChain = "chain"
)

// connection is a client plus the resources the CLI opened for it.
type connection struct {
	skella.Client

	cache       skella.Cache
	registry    *prometheus.Registry
	metricsFile string
}

// Close writes collected metrics and releases the cache backend.
func (c *connection) Close() error {
	if c.registry != nil && c.metricsFile != "" {
		err := prometheus.WriteToTextfile(c.metricsFile, c.registry)
		if err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if closer, ok := c.cache.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// newLogger returns a console zerolog logger. Verbose lowers the level to debug.
func newLogger(w io.Writer, verbose, noColor bool) skella.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: noColor}).
		Level(level).
		With().
		Timestamp().
		Logger()

	return skella.NewZerologLogger(logger)
}

// buildCache opens the backend named by config.Cache. The default keeps the
// user record in files under the config directory.
func buildCache(config *Config) (skella.Cache, error) {
	dir := config.CacheDir
	if dir == "" && (config.Cache == "" || config.Cache == string(skella.CacheTypeFile) || config.Cache == cacheChain) {
		base, err := configDir()
		if err != nil {
			return nil, err
		}

		dir = filepath.Join(base, "cache")
	}

	switch config.Cache {
	case "":
		return skella.NewCacheBuilder().WithType(skella.CacheTypeFile).WithFileConfig(dir).Build()
	case cacheChain:
		file, err := skella.NewFileCache(dir)
		if err != nil {
			return nil, err
		}

		return skella.NewCacheChain(skella.NewMemoryCache(0), file), nil
	default:
		return skella.NewCacheBuilder().
			WithType(skella.CacheType(config.Cache)).
			WithMemoryConfig(0).
			WithFileConfig(dir).
			WithNATSConfig(&skella.NATSKVConfig{URL: config.NATSURL, Bucket: config.NATSBucket}).
			Build()
	}
}

// createClient builds a client from the effective configuration.
func createClient(cmd *cobra.Command) (*connection, error) {
	config := loadConfig()
	if config.API == "" && config.SchemaURL == "" {
		return nil, constants.ErrNoAPIConfigured
	}

	cache, err := buildCache(config)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	verbose := viper.GetBool("verbose")
	logger := newLogger(cmd.ErrOrStderr(), verbose, viper.GetBool("no_color"))

	interceptors := skella.NewInterceptorChain().AddRequestInterceptor(skella.RequestIDInterceptor())
	if verbose {
		interceptors.AddResponseInterceptor(skella.LoggingResponseInterceptor(logger))
	}

	conn := &connection{cache: cache, metricsFile: viper.GetString("metrics_file")}

	if conn.metricsFile != "" {
		conn.registry = prometheus.NewRegistry()

		collector, err := skella.NewMetricsCollector(conn.registry)
		if err != nil {
			return nil, err
		}

		interceptors.Instrument(collector)
	}

	client, err := skellaclient.New(&skella.Config{
		APIRoot:       config.API,
		SchemaURL:     config.SchemaURL,
		APIVersion:    config.APIVersion,
		SessionToken:  config.Token,
		Cache:         cache,
		RetryMax:      config.RetryMax,
		Debug:         verbose,
		Logger:        logger,
		UserAgent:     "skella-cli/" + viper.GetString("cli_version"),
		SkipTLSVerify: config.SkipSSLValidation,
		Interceptors:  interceptors,
	})
	if err != nil {
		_ = conn.Close()

		return nil, err
	}

	conn.Client = client

	return conn, nil
}

// connect creates a client and populates its schema.
func connect(cmd *cobra.Command) (*connection, error) {
	conn, err := createClient(cmd)
	if err != nil {
		return nil, err
	}

	err = conn.Schema().Fetch(commandContext(cmd))
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("failed to fetch schema: %w", err)
	}

	return conn, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
