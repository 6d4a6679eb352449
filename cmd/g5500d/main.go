package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wa1hco/g5500d/internal/calibration"
	"github.com/wa1hco/g5500d/internal/config"
	"github.com/wa1hco/g5500d/internal/control"
	"github.com/wa1hco/g5500d/internal/debug"
	"github.com/wa1hco/g5500d/internal/hal"
	"github.com/wa1hco/g5500d/internal/motion"
	"github.com/wa1hco/g5500d/internal/netrotor"
	"github.com/wa1hco/g5500d/internal/web"
)

func main() {
	cfgPath := flag.String("config", "configs/default.yaml", "path to config file")
	simOverride := flag.Int("simulator", -1, "override config simulator mode (0-3)")
	rotctldPort := flag.Int("rotport", 0, "override rotctld dialect TCP port")
	webPort := flag.Int("webport", 0, "override status page TCP port (0 = keep config value)")
	debugLevel := flag.Int("debug", -1, "override config debug level (0-4)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if *simOverride >= 0 {
		cfg.Defaults.Simulator = *simOverride
	}
	if *rotctldPort > 0 {
		cfg.Net.RotctldPort = *rotctldPort
	}
	if *webPort > 0 {
		cfg.Net.WebPort = *webPort
	}
	if *debugLevel >= 0 {
		cfg.Defaults.DebugLevel = *debugLevel
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("startup")
	debug.Value("config", *cfgPath)
	debug.Value("mock_hal", cfg.Defaults.MockHAL)
	debug.Value("simulator", cfg.Defaults.Simulator)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handleVerbosityCycling()

	driver, err := hal.NewDriver(cfg.Defaults.MockHAL, cfg)
	if err != nil {
		log.Fatalf("init HAL failed: %v", err)
	}
	debug.Step(1, "initializing HAL")
	if err := driver.Init(); err != nil {
		log.Fatalf("init HAL failed: %v", err)
	}
	defer func() {
		if err := driver.Shutdown(); err != nil {
			log.Printf("HAL shutdown: %v", err)
		}
	}()

	calStore, err := calibration.NewStore()
	if err != nil {
		log.Fatalf("resolve calibration store: %v", err)
	}

	debug.Step(2, "starting motion controller")
	ctrl := motion.NewController(driver, cfg, calStore)
	surface := control.NewSurface(ctrl, calStore, driver, cfg)

	if cfg.Defaults.Simulator != control.SimOff {
		surface.SetSimMode(cfg.Defaults.Simulator)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ctrl.Run(gctx)
		return nil
	})

	debug.Step(3, "starting network surfaces")
	rotctld := netrotor.NewRotctldServer(surface)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Net.RotctldPort)
		debug.Info("rotctld dialect listening on %s", addr)
		return rotctld.ListenAndServe(gctx, addr)
	})

	direct := netrotor.NewDirectServer(surface, fmt.Sprintf(":%d", cfg.Net.DirectPort))
	g.Go(func() error {
		debug.Info("direct dialect listening on :%d", cfg.Net.DirectPort)
		return direct.Run(gctx)
	})

	if cfg.Net.WebPort > 0 {
		statusFn := func() web.StatusSnapshot {
			info := surface.Info()
			return web.StatusSnapshot{
				State:      info.State,
				Status:     info.Status,
				Simulator:  info.Simulator,
				Calibrated: info.Calibrated,
				AzDeg:      info.AzDeg,
				ElDeg:      info.ElDeg,
			}
		}
		webSrv := web.NewServer(fmt.Sprintf(":%d", cfg.Net.WebPort), statusFn, cfg.Tick())
		g.Go(func() error {
			return webSrv.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("exiting on error: %v", err)
	}

	surface.Stop()
	time.Sleep(100 * time.Millisecond)
}

// handleVerbosityCycling wires SIGUSR1 to cycle the debug verbosity
// level, matching the original daemon's runtime knob for turning up
// logging without a restart.
func handleVerbosityCycling() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGUSR1)
	go func() {
		for range sigCh {
			lvl := debug.CycleVerbosity()
			debug.Info("verbosity now %d", lvl)
		}
	}()
}
