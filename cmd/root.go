package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luca-patrignani/mental-poker-holdem/domain/poker"
	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

const envPrefix = "HOLDEM"

// config is the merged view of flags, HOLDEM_* variables and the optional
// config file, in that order of precedence.
type config struct {
	Listen        string
	Hub           relay.PeerID
	HubAddr       string
	Name          string
	InitialFunds  int
	KeyBits       int
	API           string
	TLS           bool
	CertFile      string
	DiscoveryPort uint16
	Interactive   bool
	Verbose       bool
}

func (c config) settings() poker.Settings {
	return poker.Settings{InitialFundAmount: c.InitialFunds, KeyBits: c.KeyBits}
}

func loadConfig(v *viper.Viper) (config, error) {
	c := config{
		Listen:        v.GetString("listen"),
		Hub:           relay.PeerID(v.GetString("hub")),
		HubAddr:       v.GetString("hub-addr"),
		Name:          v.GetString("name"),
		InitialFunds:  v.GetInt("initial-funds"),
		KeyBits:       v.GetInt("key-bits"),
		API:           v.GetString("api"),
		TLS:           v.GetBool("tls"),
		CertFile:      v.GetString("cert-file"),
		DiscoveryPort: v.GetUint16("discovery-port"),
		Interactive:   v.GetBool("interactive"),
		Verbose:       v.GetBool("verbose"),
	}
	if err := c.settings().Validate(); err != nil {
		return config{}, err
	}
	if c.TLS && c.CertFile == "" {
		return config{}, fmt.Errorf("--tls needs --cert-file")
	}
	return c, nil
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "holdem",
		Short:         "Texas Hold'em between peers, with no trusted dealer",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v.SetEnvPrefix(envPrefix)
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading %s: %w", cfgFile, err)
				}
			}
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return v.BindPFlags(cmd.InheritedFlags())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.String("name", "", "name shown to the other tables on the LAN")
	flags.Int("initial-funds", 100, "chips lent to a player who cannot pay the big blind")
	flags.Int("key-bits", 0, "requested key size of the card protocol, 0 for the default")
	flags.String("api", "", "address of the local control API, disabled if empty")
	flags.Bool("tls", false, "use wss with the certificate in --cert-file")
	flags.String("cert-file", "holdem-hub.pem", "PEM certificate written by the hub and trusted by guests")
	flags.Uint16("discovery-port", 53550, "UDP port of LAN discovery")
	flags.Bool("interactive", true, "prompt for actions on the terminal")
	flags.BoolP("verbose", "v", false, "log debug messages")

	hub := &cobra.Command{
		Use:   "hub",
		Short: "Host a new table and relay the traffic of its guests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runHub(cmd.Context(), cfg, newLogger(cfg.Verbose))
		},
	}
	hub.Flags().String("listen", "0.0.0.0:7400", "address the hub serves guests on")

	join := &cobra.Command{
		Use:   "join",
		Short: "Join a table hosted by a hub",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return runGuest(cmd.Context(), cfg, newLogger(cfg.Verbose))
		},
	}
	join.Flags().String("hub", "", "identity of the hub, discovered on the LAN if empty")
	join.Flags().String("hub-addr", "", "address of the hub; a partial address such as 42:7400 is completed with the local network prefix")

	root.AddCommand(hub, join)
	return root
}

func newLogger(verbose bool) *slog.Logger {
	logger := pterm.DefaultLogger
	if verbose {
		logger = *logger.WithLevel(pterm.LogLevelDebug)
	}
	return slog.New(pterm.NewSlogHandler(&logger))
}
