package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultAPIPort = 8000

type Config struct {
	apiBase  string
	apiPort  int
	dataDir  string
	host     string
	timeout  time.Duration
	verbose  bool
	version  bool
	offline  bool
	password string
	players  int
	maxGames int

	bind    string
	port    int
	prefix  string
	profile bool
	tlsCert string
	tlsKey  string
	webBase string

	baseURL *url.URL
}

func (c *Config) validate() error {
	if c.apiPort < 1 || c.apiPort > 65535 {
		return fmt.Errorf("invalid api port (must be between 1-65535 inclusive): %d", c.apiPort)
	}
	if c.timeout <= 0 {
		return fmt.Errorf("invalid timeout (must be positive): %s", c.timeout)
	}
	base, err := resolveAPIBase(c.apiBase, c.host, c.apiPort)
	if err != nil {
		return err
	}
	c.baseURL = base

	return nil
}

func (c *Config) validateRoom() error {
	if c.maxGames < 1 {
		return fmt.Errorf("invalid max games (must be positive): %d", c.maxGames)
	}
	return nil
}

func (c *Config) validateServe() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if _, err := url.Parse(c.webBase); err != nil {
		return fmt.Errorf("invalid web base: %w", err)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// resolveAPIBase is done once at startup. An explicit base wins; otherwise
// the API is assumed to live on host at the fixed service port.
func resolveAPIBase(explicit, host string, port int) (*url.URL, error) {
	raw := explicit
	if raw == "" {
		if host == "" {
			host = "localhost"
		}
		raw = "http://" + net.JoinHostPort(host, strconv.Itoa(port))
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid api base %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid api base %q: missing host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	return u, nil
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".cardroom"
	}
	return filepath.Join(dir, "cardroom")
}

// bindEnv lets every flag in fs be set from CARDROOM_<FLAG>.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CARDROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cardroom",
		Short:         "Play Tien Len rooms from the terminal.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	fs := cmd.PersistentFlags()

	fs.StringVar(&cfg.apiBase, "api-base", "", "base URL of the room service, overrides --host and --api-port (env: CARDROOM_API_BASE)")
	fs.IntVar(&cfg.apiPort, "api-port", defaultAPIPort, "port of the room service (env: CARDROOM_API_PORT)")
	fs.StringVar(&cfg.dataDir, "data-dir", defaultDataDir(), "directory for the saved user (env: CARDROOM_DATA_DIR)")
	fs.StringVar(&cfg.host, "host", "localhost", "host of the room service (env: CARDROOM_HOST)")
	fs.DurationVar(&cfg.timeout, "timeout", timeout, "timeout for API requests (env: CARDROOM_TIMEOUT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CARDROOM_VERBOSE)")

	cmd.Flags().BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: CARDROOM_VERSION)")

	bindEnv(v, fs)
	bindEnv(v, cmd.Flags())

	cmd.AddCommand(
		newUserCmd(cfg, v),
		newRoomCmd(cfg, v),
		newServeCmd(cfg, v),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("cardroom v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
