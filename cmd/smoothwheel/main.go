//go:build linux

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("smoothwheel v%s\n", version)
	fmt.Println("Velocity-adaptive scroll relay for Linux input devices")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  smoothwheel [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Grabs a physical mouse exclusively, reshapes its scroll-wheel events")
	fmt.Println("  along a velocity-sensitive logistic curve, and re-emits the full event")
	fmt.Println("  stream through a virtual uinput device. Slow scrolling stays at base")
	fmt.Println("  sensitivity; fast flicks ramp towards the configured maximum.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -device string")
	fmt.Println("        Input device node (e.g. /dev/input/event4); empty = auto-discover")
	fmt.Println()
	fmt.Println("  -base-sens float")
	fmt.Printf("        Sensitivity multiplier for slow scrolling (default %.1f)\n", defaultBaseSensitivity)
	fmt.Println()
	fmt.Println("  -max-sens float")
	fmt.Printf("        Sensitivity ceiling for fast scrolling (default %.1f)\n", defaultMaxSensitivity)
	fmt.Println()
	fmt.Println("  -ramp-rate float")
	fmt.Printf("        Steepness of the velocity ramp (default %.1f)\n", defaultRampRate)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket for status queries (default %q)\n", defaultIPCSocketPath)
	fmt.Println()
	fmt.Println("  -monitor-listen string")
	fmt.Printf("        Enable the monitor WebSocket on this address (e.g. %s)\n", defaultMonitorListenAddr)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -debug")
	fmt.Println("        Shorthand for -log-level debug (logs every transform decision)")
	fmt.Println()
	fmt.Println("  -list-devices")
	fmt.Println("        List /dev/input/event* nodes with names and exit")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Needs read access to the input device and write access to /dev/uinput")
	fmt.Println("    (run as root, or add udev rules for the 'input' group)")
	fmt.Println("  - The physical device is grabbed exclusively for the whole session")
	fmt.Println("  - On disconnect the daemon exits; restarting is the supervisor's job")
	fmt.Println()
}

func main() {
	var (
		configPath    = flag.String("config", "", "YAML config file")
		devicePath    = flag.String("device", "", "Input device node; empty = auto-discover")
		baseSens      = flag.Float64("base-sens", defaultBaseSensitivity, "Sensitivity multiplier for slow scrolling")
		maxSens       = flag.Float64("max-sens", defaultMaxSensitivity, "Sensitivity ceiling for fast scrolling")
		rampRate      = flag.Float64("ramp-rate", defaultRampRate, "Steepness of the velocity ramp")
		ipcSocket     = flag.String("ipc-socket", defaultIPCSocketPath, "Unix domain socket for status queries")
		monitorListen = flag.String("monitor-listen", "", "Enable the monitor WebSocket on this address")
		logLevelStr   = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		debug         = flag.Bool("debug", false, "Shorthand for -log-level debug")
		doListDevices = flag.Bool("list-devices", false, "List input devices and exit")
		showVersion   = flag.Bool("version", false, "Print version and exit")
	)
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}
	if *doListDevices {
		if err := listDevices(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// Flags override file values, but only when set on the command line.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device.Path = *devicePath
		case "base-sens":
			cfg.Curve.BaseSensitivity = *baseSens
		case "max-sens":
			cfg.Curve.MaxSensitivity = *maxSens
		case "ramp-rate":
			cfg.Curve.RampRate = *rampRate
		case "ipc-socket":
			cfg.IPC.SocketPath = *ipcSocket
		case "monitor-listen":
			cfg.Monitor.Enabled = *monitorListen != ""
			cfg.Monitor.ListenAddr = *monitorListen
		case "log-level":
			cfg.Logging.Level = *logLevelStr
		}
	})
	if *debug {
		cfg.Logging.Level = "debug"
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	// Config errors are fatal before any device is touched.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	sess, err := openSession(cfg, logger)
	if err != nil {
		logger.Error("session open failed", "error", err)
		os.Exit(1)
	}
	defer sess.Close()

	var hub *monitorHub
	if cfg.Monitor.Enabled {
		hub = newMonitorHub(logger)
		hub.BroadcastSession(map[string]any{"state": "open", "device": sess.path})
	}

	curve := newSensitivityCurve(cfg.Curve.BaseSensitivity, cfg.Curve.MaxSensitivity, cfg.Curve.RampRate)
	tr := newTransformer(curve)
	stats := newRelayStats()

	events := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	go readInputEvents(sess.phys.eventSource(), events, readErr)

	rl := newRelay(events, readErr, sess.virt, tr, sess.hiResWheel(), stats, hub, logger)

	statusFn := func() ipcStatus {
		return ipcStatus{
			Device:      sess.path,
			DeviceName:  sess.name,
			VirtualName: virtualDeviceName,
			Curve:       cfg.Curve,
			Stats:       stats.snapshot(),
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rl.run(gctx) })
	g.Go(func() error { return runIPCServer(gctx, cfg.IPC.SocketPath, statusFn, logger) })
	if cfg.Monitor.Enabled {
		g.Go(func() error { return runMonitorServer(gctx, cfg.Monitor.ListenAddr, hub, logger) })
	}

	// Closing the session on cancellation unblocks the reader goroutine so
	// shutdown completes in bounded time.
	go func() {
		<-gctx.Done()
		if hub != nil {
			hub.BroadcastSession(map[string]any{"state": "closing"})
		}
		sess.Close()
	}()

	logger.Info("relaying",
		"device", sess.path,
		"base_sens", cfg.Curve.BaseSensitivity,
		"max_sens", cfg.Curve.MaxSensitivity,
		"ramp_rate", cfg.Curve.RampRate,
		"ipc_socket", cfg.IPC.SocketPath,
		"monitor_enabled", cfg.Monitor.Enabled)

	if err := g.Wait(); err != nil {
		logger.Error("relay stopped", "error", err)
		sess.Close()
		os.Exit(1)
	}
	logger.Info("shutting down")
}
