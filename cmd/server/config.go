package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type config struct {
	bind        string
	port        int
	storageType string
	redisURL    string
	jwtSecret   string
	moveTimeout time.Duration
	verbose     bool
}

func (c *config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.jwtSecret == "" {
		return errors.New("--jwt-secret is required")
	}
	if c.storageType == "redis" && c.redisURL == "" {
		return errors.New("--redis-url is required when --storage is redis")
	}
	if c.moveTimeout <= 0 {
		return errors.New("--move-timeout must be positive")
	}
	return nil
}

func newCmd(cfg *config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("RATEDRPS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "ratedrps-server",
		Short:         "Rated rock-paper-scissors matchmaking server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: RATEDRPS_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: RATEDRPS_PORT)")
	fs.StringVar(&cfg.storageType, "storage", "memory", "storage backend, memory or redis (env: RATEDRPS_STORAGE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis connection URL (env: RATEDRPS_REDIS_URL)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", "", "shared secret for verifying connection tokens (env: RATEDRPS_JWT_SECRET)")
	fs.DurationVar(&cfg.moveTimeout, "move-timeout", 60*time.Second, "time before an unresolved match is abandoned (env: RATEDRPS_MOVE_TIMEOUT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "enable debug logging (env: RATEDRPS_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
