package main

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/sync/errgroup"

	"github.com/luca-patrignani/mental-poker-holdem/application"
	"github.com/luca-patrignani/mental-poker-holdem/discovery"
	"github.com/luca-patrignani/mental-poker-holdem/network"
	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

const defaultHubPort = 7400

func runHub(ctx context.Context, cfg config, log *slog.Logger) error {
	l, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Listen, err)
	}
	advertised, err := advertisedAddress(l)
	if err != nil {
		l.Close()
		return err
	}
	opts := []network.Option{network.WithListener(l), network.WithLogger(log)}
	if cfg.TLS {
		cert, pem, err := network.GenerateSelfSignedCert(advertised, "localhost")
		if err != nil {
			l.Close()
			return err
		}
		if err := os.WriteFile(cfg.CertFile, pem, 0o644); err != nil {
			l.Close()
			return fmt.Errorf("writing certificate: %w", err)
		}
		opts = append(opts, network.WithCertificate(cert))
	}

	app := application.New(network.New(opts...), application.WithLogger(log))
	if err := app.Connect(ctx, ""); err != nil {
		app.Close()
		return err
	}
	printBanner()
	pterm.Success.Printfln("Hosting table %s on %s", app.Self(), advertised)

	d := discovery.New(discovery.WithPort(cfg.DiscoveryPort), discovery.WithLogger(log))
	if err := d.Announce(discovery.Announcement{ID: app.Self(), Address: advertised, Name: cfg.Name}); err != nil {
		app.Close()
		return err
	}
	if err := d.Start(); err != nil {
		log.Warn("LAN discovery disabled", "err", err)
	} else {
		defer d.Close()
	}
	return play(ctx, app, cfg, log)
}

func runGuest(ctx context.Context, cfg config, log *slog.Logger) error {
	hub, addr, err := findHub(ctx, cfg, log)
	if err != nil {
		return err
	}
	dir := network.NewStaticDirectory()
	dir.Add(hub, addr)
	opts := []network.Option{network.WithDirectory(dir), network.WithLogger(log)}
	if cfg.TLS {
		pem, err := os.ReadFile(cfg.CertFile)
		if err != nil {
			return fmt.Errorf("reading hub certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return fmt.Errorf("no certificate in %s", cfg.CertFile)
		}
		opts = append(opts, network.WithLimitedCAs(pool))
	}

	app := application.New(network.New(opts...), application.WithLogger(log))
	spinner, _ := pterm.DefaultSpinner.Start("Joining table " + string(hub) + " at " + addr)
	if err := app.Connect(ctx, hub); err != nil {
		spinner.Fail()
		app.Close()
		return err
	}
	spinner.Success()
	printBanner()
	return play(ctx, app, cfg, log)
}

// findHub returns the hub to join: the one named by the flags, or one
// chosen among the tables announced on the LAN.
func findHub(ctx context.Context, cfg config, log *slog.Logger) (relay.PeerID, string, error) {
	if cfg.HubAddr != "" {
		if cfg.Hub == "" {
			return "", "", errors.New("--hub-addr needs --hub")
		}
		base, err := localIP()
		if err != nil {
			base = net.IPv4(127, 0, 0, 1)
		}
		addr, err := resolveHubAddress(base, cfg.HubAddr, defaultHubPort)
		return cfg.Hub, addr, err
	}

	d := discovery.New(discovery.WithPort(cfg.DiscoveryPort), discovery.WithLogger(log))
	if err := d.Start(); err != nil {
		return "", "", fmt.Errorf("LAN discovery: %w", err)
	}
	defer d.Close()
	dir := discovery.NewDirectory()
	listening, stop := context.WithTimeout(ctx, 3*time.Second)
	defer stop()
	spinner, _ := pterm.DefaultSpinner.Start("Looking for tables on the LAN...")
	dir.Follow(listening, d.Entries)
	spinner.Stop()

	if cfg.Hub != "" {
		addr, ok := dir.Lookup(cfg.Hub)
		if !ok {
			return "", "", fmt.Errorf("table %s not found on the LAN", cfg.Hub)
		}
		return cfg.Hub, addr, nil
	}
	tables := dir.Tables()
	switch len(tables) {
	case 0:
		return "", "", errors.New("no table found on the LAN")
	case 1:
		return tables[0].ID, tables[0].Address, nil
	}
	options := make([]string, len(tables))
	for i, t := range tables {
		options[i] = fmt.Sprintf("%d) %s %s (%s)", i+1, t.Name, t.Address, t.ID)
	}
	choice, err := pterm.DefaultInteractiveSelect.WithDefaultText("Select a table").WithOptions(options).Show()
	if err != nil {
		return "", "", err
	}
	i, err := strconv.Atoi(strings.SplitN(choice, ")", 2)[0])
	if err != nil {
		return "", "", err
	}
	return tables[i-1].ID, tables[i-1].Address, nil
}

// play runs the table until ctx is done or the user quits.
func play(ctx context.Context, app *application.App, cfg config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	r := newRenderer(app.Self())

	g.Go(func() error {
		err := app.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		for n := range app.Notices() {
			r.show(n)
		}
		return nil
	})
	if cfg.API != "" {
		g.Go(func() error { return serveAPI(gctx, cfg.API, app, cfg.settings(), log) })
	}
	if cfg.Interactive {
		// the prompt blocks on the terminal, so it is not waited for
		go func() {
			prompt(gctx, app, r, cfg)
			cancel()
		}()
	}
	return g.Wait()
}

func prompt(ctx context.Context, app *application.App, r *renderer, cfg config) {
	input := pterm.DefaultInteractiveTextInput.WithDefaultText("start | check | call | bet N | fold | state | quit")
	for ctx.Err() == nil {
		line, err := input.Show()
		if err != nil {
			return
		}
		cmd, err := parseCommand(line)
		if err != nil {
			pterm.Error.Println(err)
			continue
		}
		if cmd.kind == commandQuit {
			return
		}
		if err := execute(ctx, app, r, cfg, cmd); err != nil {
			pterm.Error.Println(err)
		}
	}
}

func execute(ctx context.Context, app *application.App, r *renderer, cfg config, cmd command) error {
	switch cmd.kind {
	case commandStart:
		return app.StartNewRound(ctx, cfg.settings())
	case commandCheck:
		return app.Bet(ctx, 0)
	case commandCall:
		turn, ok := r.myTurn()
		if !ok {
			return application.ErrNotYourTurn
		}
		return app.Bet(ctx, turn.CallAmount)
	case commandBet:
		return app.Bet(ctx, cmd.amount)
	case commandFold:
		return app.Fold(ctx)
	case commandState:
		s, err := app.Snapshot(ctx)
		if err != nil {
			return err
		}
		printSnapshot(r, s)
	}
	return nil
}

func printSnapshot(r *renderer, s application.Snapshot) {
	pterm.DefaultSection.Printfln("Round %d, %s, pot %d", s.Round, s.Stage, s.Pot)
	data := pterm.TableData{{"Player", "Funds", "Committed", "Status"}}
	for _, seat := range s.Seats {
		status := pterm.LightGreen("Active")
		switch {
		case seat.Folded:
			status = pterm.LightRed("Folded")
		case seat.AllIn:
			status = pterm.LightYellow("All-in")
		}
		if seat.Player == s.Acting {
			status += " (to act)"
		}
		data = append(data, []string{r.name(seat.Player), strconv.Itoa(seat.Funds), strconv.Itoa(seat.Committed), status})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
	}
	pterm.Println(cardsString(s.Board))
}
