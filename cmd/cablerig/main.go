// cmd/cablerig/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/tamzrod/cablerig/internal/config"
	"github.com/tamzrod/cablerig/internal/geo"
	"github.com/tamzrod/cablerig/internal/link"
	"github.com/tamzrod/cablerig/internal/link/ble"
	"github.com/tamzrod/cablerig/internal/link/sim"
	"github.com/tamzrod/cablerig/internal/rig"
	"github.com/tamzrod/cablerig/internal/statusexport"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		log.Fatal("usage: cablerig <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --------------------
	// Workspace (safety envelope)
	// --------------------

	g := cfg.Rig.Geometry
	ws, err := geo.NewWorkspace(geo.Geometry{
		Width:         g.Width,
		Length:        g.Length,
		Height:        g.Height,
		FloorMargin:   g.FloorMargin,
		CeilingMargin: g.CeilingMargin,
		MaxAngleDeg:   g.MaxAngleDeg,
	})
	if err != nil {
		log.Fatalf("workspace: %v", err)
	}

	// --------------------
	// Links, one per winch
	// --------------------

	var adapter *bluetooth.Adapter
	if cfg.Rig.Transport == "ble" {
		adapter = bluetooth.DefaultAdapter
		if err := adapter.Enable(); err != nil {
			log.Fatalf("bluetooth adapter: %v", err)
		}
	}

	links := make(map[geo.WinchID]*link.Link, len(cfg.Rig.Winches))
	for _, wc := range cfg.Rig.Winches {
		var tr link.Transport
		if adapter != nil {
			tr = ble.New(adapter, wc.Address)
		} else {
			tr = sim.New(sim.Config{Passkey: wc.PasskeyBytes()})
		}

		links[geo.WinchID(wc.ID)] = link.New(link.Config{
			ID:      wc.ID,
			Address: wc.Address,
			Passkey: wc.PasskeyBytes(),
			Cal: link.Calibration{
				Slope:     wc.Calibration.Slope,
				Intercept: wc.Calibration.Intercept,
			},
		}, tr, log)
	}

	// Sequential connect: the adapter handles one pairing exchange at a time.
	for _, wc := range cfg.Rig.Winches {
		l := links[geo.WinchID(wc.ID)]
		log.Infof("connecting winch %d (%s)", wc.ID, wc.Address)
		if err := l.Connect(ctx); err != nil {
			log.Fatalf("winch %d connect failed: %v", wc.ID, err)
		}
	}
	defer func() {
		for _, l := range links {
			l.Disconnect()
		}
	}()

	// --------------------
	// Coordinator
	// --------------------

	winches := make(map[geo.WinchID]rig.Winch, len(links))
	for id, l := range links {
		winches[id] = l
	}

	coord, err := rig.New(ws, winches, rig.Config{
		SoftLimitAborts: cfg.Rig.Policy.SoftLimitAbortsMove,
		PollInterval:    time.Duration(cfg.Rig.Policy.PollIntervalMs) * time.Millisecond,
		Deadband:        int32(cfg.Rig.Policy.DeadbandTicks),
	}, log)
	if err != nil {
		log.Fatalf("coordinator: %v", err)
	}

	// --------------------
	// Status export (optional)
	// --------------------

	if ec := cfg.Rig.Export; ec != nil {
		cli, err := statusexport.NewEndpointClient(statusexport.ClientConfig{
			Endpoint: ec.Endpoint,
			UnitID:   ec.UnitID,
			Timeout:  5 * time.Second,
		})
		if err != nil {
			log.Fatalf("status export connect failed: %v", err)
		}
		defer cli.Close()

		exporter := statusexport.New(coord, cli, ec.BaseAddress, log)
		go exporter.Run(ctx, time.Duration(ec.IntervalMs)*time.Millisecond)
		log.Infof("status export to %s every %dms", ec.Endpoint, ec.IntervalMs)
	}

	log.Infof("rig up: %d winches, workspace %.0fx%.0fx%.0f",
		len(links), g.Width, g.Length, g.Height)

	// --------------------
	// Run until signal
	// --------------------

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("shutting down")
	cancel()
}
