package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"alpacapi/pkg/alpaca"
	"alpacapi/pkg/config"
	"alpacapi/pkg/telemetry"
	"alpacapi/templates"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
	bolt "go.etcd.io/bbolt"
)

func run(c *cli.Context) error {
	if c.Bool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	log.Infof("%s Alpaca Server", cfg.Server.Name)

	tmpl, err := templates.LoadTemplates()
	if err != nil {
		return fmt.Errorf("failed to load templates: %v", err)
	}

	db, err := bolt.Open(c.String("db"), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	store, err := alpaca.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create store: %v", err)
	}

	var drivers []driver
	var devices []alpaca.Device
	for _, dc := range cfg.Devices {
		d, err := newDriver(dc, store)
		if err != nil {
			return fmt.Errorf("failed to create %s %d: %v", dc.Type, dc.Number, err)
		}
		drivers = append(drivers, d)
		devices = append(devices, d)
	}
	alpaca.RestoreSetup(store, devices, log.WithField("component", "setup"))

	dispatcher, err := alpaca.NewDispatcher(alpaca.NewTransactionCounter(), log.WithField("component", "dispatcher"), devices...)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %v", err)
	}

	var pub telemetry.Publisher
	if cfg.Telemetry.Enabled {
		mqttCfg, err := store.GetMQTTConfig()
		if err != nil {
			return fmt.Errorf("failed to get MQTT config: %v", err)
		}
		pub, err = telemetry.NewMQTTPublisher(mqttCfg, cfg.Telemetry.ClientID, log.WithField("component", "telemetry"))
		if err != nil {
			log.Warnf("Telemetry disabled: %v", err)
			pub = nil
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, d := range drivers {
		rt := d.Runtime()
		if pub != nil {
			rt.AddTask("telemetry", cfg.Telemetry.Interval, telemetry.StateTask(pub, d))
		}
		if err := rt.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s: %v", d.DeviceInfo().Name, err)
		}
	}
	defer func() {
		for _, d := range drivers {
			d.Runtime().Close()
		}
		if pub != nil {
			pub.Close()
		}
	}()

	serverDesc := alpaca.ServerDescription{
		Name:                cfg.Server.Name,
		Manufacturer:        cfg.Server.Manufacturer,
		ManufacturerVersion: cfg.Server.ManufacturerVersion,
		Location:            cfg.Server.Location,
	}
	server := alpaca.NewServer(serverDesc, dispatcher, store, tmpl, log.WithField("component", "server"))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", c.Int("port")),
		Handler: server.AddRoutes(),
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Debugf("Server started on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Could not listen on %s: %v", srv.Addr, err)
			stop()
		}
	}()

	if c.Bool("discovery") {
		dr, err := alpaca.NewDiscoveryResponder("0.0.0.0", c.Int("port"), log.WithField("component", "discovery"))
		if err != nil {
			return fmt.Errorf("failed to start discovery responder: %v", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dr.Run(ctx); err != nil {
				log.Errorf("Discovery responder failed: %v", err)
			}
			log.Debug("Discovery responder stopped")
		}()
	}

	<-ctx.Done()

	log.Info("Shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx2); err != nil {
		return fmt.Errorf("server forced to shutdown: %v", err)
	}

	wg.Wait()
	log.Info("Server stopped")
	return nil
}

func main() {
	app := cli.App{
		Name:  "alpacapi",
		Usage: "Alpaca device server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
				Value:   false,
				EnvVars: []string{"DEBUG"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Value:   8090,
				EnvVars: []string{"ALPACA_PORT"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Settings database file",
				Value:   "alpaca.db",
				EnvVars: []string{"ALPACA_DB"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Device fleet config file (YAML, JSON or TOML)",
				EnvVars: []string{"ALPACA_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "discovery",
				Usage: "Answer Alpaca discovery requests",
				Value: true,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
