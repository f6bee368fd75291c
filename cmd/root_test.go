package main

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig(t *testing.T) {
	v := viper.New()
	v.Set("initial-funds", 40)
	v.Set("hub", "table-1")
	v.Set("discovery-port", 6000)
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InitialFunds != 40 || cfg.Hub != "table-1" || cfg.DiscoveryPort != 6000 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if s := cfg.settings(); s.InitialFundAmount != 40 {
		t.Fatalf("unexpected settings %+v", s)
	}
}

func TestLoadConfigRejectsSmallFunds(t *testing.T) {
	v := viper.New()
	v.Set("initial-funds", 1)
	if _, err := loadConfig(v); err == nil {
		t.Fatal("funds below the big blind must be rejected")
	}
	v.Set("initial-funds", 10)
	v.Set("tls", true)
	if _, err := loadConfig(v); err == nil {
		t.Fatal("tls without a certificate file must be rejected")
	}
}

func TestCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"hub", "join"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("missing command %s", name)
		}
	}
	join, _, _ := root.Find([]string{"join"})
	if join.Flags().Lookup("hub-addr") == nil {
		t.Fatal("join needs --hub-addr")
	}
	if root.PersistentFlags().Lookup("initial-funds") == nil {
		t.Fatal("missing --initial-funds")
	}
}
