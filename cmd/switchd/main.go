// switchd - USB-presence-driven monitor input switching daemon
//
//	switchd run             Run the daemon
//	switchd status          Show daemon status
//	switchd switch <m>      Manually switch to home or work
//	switchd import-legacy   Import a v0 config.json
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"switchd/internal/config"
	"switchd/internal/detect"
	"switchd/internal/engine"
	"switchd/internal/health"
	"switchd/internal/ipc"
	"switchd/internal/logging"
	"switchd/internal/machine"
	"switchd/internal/monitor"
	"switchd/internal/notify"
	"switchd/internal/sampler"
	"switchd/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		cmdRun()
	case "status":
		cmdStatus()
	case "switch":
		cmdSwitch()
	case "import-legacy":
		cmdImportLegacy()
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`switchd - automatic monitor input switching for KM switches

USAGE:
    switchd <command> [options]

COMMANDS:
    run                     Run the daemon in the foreground
    status                  Show the running daemon's status
    switch <home|work>      Manually switch the monitor input
    import-legacy <file>    Import a v0 config.json into config.toml
    help                    Show this help message

HOW IT WORKS:
    A KM switch routes your keyboard and mouse between a home machine and
    a work laptop, but does not touch the monitor. switchd watches USB
    input devices on the home machine: when they appear the switch came
    back home, when they disappear it went to work. Either way switchd
    selects the matching monitor input over DDC/CI.

CONFIGURATION:
    ` + config.ConfigPath() + `

    Defaults are written on first save; SWITCHD_* environment variables
    override individual values. See config.toml comments for details.`)
}

func cmdRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file path")
	fs.Parse(os.Args[2:])

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(log)
	defer log.Close()

	log.Info("switchd starting",
		"config", loader.Path(),
		"monitor_index", cfg.Monitor.Index,
		"home_input", cfg.Monitor.HomeInput,
		"work_input", cfg.Monitor.WorkInput)

	inputs, err := cfg.Inputs()
	if err != nil {
		log.Error("invalid input mapping", "error", err)
		os.Exit(1)
	}

	// Persistence failures degrade durability but never stop the daemon.
	var st *store.Store
	if st, err = store.Open(cfg.Storage.Path); err != nil {
		log.Error("open state store, running without persistence",
			"path", cfg.Storage.Path, "error", err)
		st = nil
	} else {
		defer st.Close()
	}

	var notifier engine.Notifier
	if cfg.Notify.Enabled {
		if n, err := notify.New("switchd"); err != nil {
			log.Warn("desktop notifications unavailable", "error", err)
		} else {
			notifier = n
			defer n.Close()
		}
	}

	adapter := monitor.NewDDC(monitor.OpenI2C(cfg.Monitor.I2CDevice))

	eng := engine.New(engine.Config{
		MonitorIndex:   cfg.Monitor.Index,
		Inputs:         inputs,
		MaxAttempts:    cfg.Switch.MaxAttempts,
		RetryBackoff:   cfg.RetryBackoff(),
		AttemptTimeout: cfg.AttemptTimeout(),
	}, adapter, engineStore(st, cfg.Monitor.Index), notifier, log)
	eng.Start()

	smp := sampler.NewSysfs()
	det := detect.New(smp, detect.Config{
		Interval:       cfg.CheckInterval(),
		ConfirmSamples: cfg.Detect.ConfirmSamples,
	})
	det.Start()

	go func() {
		for tr := range det.Events() {
			log.Debug("transition confirmed",
				"machine", tr.Machine, "devices", len(tr.Devices))
			eng.OnTransition(tr.Machine)
		}
	}()
	go func() {
		for err := range det.Errors() {
			log.Warn("device sample failed", "error", err)
		}
	}()

	checker := registerHealthChecks(st, smp, adapter, cfg.Monitor.Index)

	var srv *ipc.Server
	if cfg.IPC.Enabled {
		srv = ipc.NewServer(cfg.IPC.SocketPath, &controlHandler{
			cfg:     cfg,
			engine:  eng,
			det:     det,
			st:      st,
			adapter: adapter,
			checker: checker,
		}, log)
		if err := srv.Start(); err != nil {
			log.Error("start control socket", "error", err)
			os.Exit(1)
		}
	}

	loader.OnChange(func(newCfg *config.Config) {
		log.Info("configuration file changed; restart to apply",
			"config", loader.Path())
	})
	if err := loader.Watch(); err != nil {
		log.Warn("configuration watch unavailable", "error", err)
	}
	defer loader.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("shutting down", "signal", s.String())

	det.Stop()
	if srv != nil {
		srv.Stop()
	}
	eng.Stop()
	log.Info("switchd stopped")
}

func cmdStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file path")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	st, err := ipc.NewClient(cfg.IPC.SocketPath).Status(5)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	printStatus(st)
}

func cmdSwitch() {
	fs := flag.NewFlagSet("switch", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file path")
	fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: switchd switch <home|work>")
		os.Exit(1)
	}
	target, err := machine.ParseIdentity(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := ipc.NewClient(cfg.IPC.SocketPath).Switch(string(target)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Switched to %s\n", target)
}

func cmdImportLegacy() {
	fs := flag.NewFlagSet("import-legacy", flag.ExitOnError)
	output := fs.String("o", "", "Output path (default: "+config.ConfigPath()+")")
	fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: switchd import-legacy <config.json> [-o config.toml]")
		os.Exit(1)
	}

	cfg, lastActive, err := config.ImportLegacy(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing legacy config: %v\n", err)
		os.Exit(1)
	}

	outPath := *output
	if outPath == "" {
		outPath = config.ConfigPath()
	}
	if err := cfg.Save(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Printf("Imported configuration written to %s\n", outPath)

	// Carry the recorded ownership over so the first run seeds correctly.
	if lastActive.Valid() {
		st, err := store.Open(cfg.Storage.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not seed state store: %v\n", err)
			return
		}
		defer st.Close()
		if err := st.SaveLastActive(lastActive, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not seed state store: %v\n", err)
			return
		}
		fmt.Printf("Seeded last active machine: %s\n", lastActive)
	}
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	lc := &logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "switchd",
	}
	if lc.FilePath == "" {
		lc.FilePath = logging.DefaultConfig().FilePath
	}
	return logging.New(lc)
}

func registerHealthChecks(st *store.Store, smp sampler.Sampler, adapter monitor.Adapter, index int) *health.Checker {
	checker := health.NewChecker()

	checker.Register("store", func(ctx context.Context) health.CheckResult {
		if st == nil {
			return health.Degraded("running without persistence")
		}
		if _, _, err := st.LoadLastActive(); err != nil {
			return health.Degraded(fmt.Sprintf("state read failed: %v", err))
		}
		return health.Healthy("")
	})

	checker.Register("sampler", func(ctx context.Context) health.CheckResult {
		snap, err := smp.Sample(ctx)
		if err != nil {
			return health.Unhealthy(fmt.Sprintf("device query failed: %v", err))
		}
		return health.Healthy(fmt.Sprintf("%d input devices present", len(snap)))
	})

	checker.Register("monitor", func(ctx context.Context) health.CheckResult {
		src, err := adapter.CurrentInput(ctx, index)
		switch {
		case err == nil:
			return health.Healthy(fmt.Sprintf("input %s", src))
		case monitor.IsUnsupported(err):
			return health.Unhealthy(fmt.Sprintf("DDC/CI unavailable: %v", err))
		default:
			return health.Degraded(fmt.Sprintf("DDC/CI read failed: %v", err))
		}
	})

	return checker
}

// storeAdapter narrows *store.Store to what the engine needs and stamps
// history rows with the monitor index.
type storeAdapter struct {
	st    *store.Store
	index int
}

func engineStore(st *store.Store, index int) engine.Store {
	if st == nil {
		return nil
	}
	return &storeAdapter{st: st, index: index}
}

func (a *storeAdapter) LoadLastActive() (machine.Identity, bool, error) {
	return a.st.LoadLastActive()
}

func (a *storeAdapter) SaveLastActive(m machine.Identity, at time.Time) error {
	return a.st.SaveLastActive(m, at)
}

func (a *storeAdapter) RecordSwitch(target machine.Identity, input machine.InputSource, origin engine.Origin, attempts int, at time.Time) error {
	_, err := a.st.RecordSwitch(&store.SwitchEntry{
		TimestampNs:  at.UnixNano(),
		Machine:      target,
		Input:        input,
		Origin:       string(origin),
		Attempts:     attempts,
		MonitorIndex: a.index,
	})
	return err
}

// controlHandler answers IPC requests from the running daemon.
type controlHandler struct {
	cfg     *config.Config
	engine  *engine.Engine
	det     *detect.Detector
	st      *store.Store
	adapter monitor.Adapter
	checker *health.Checker
}

func (h *controlHandler) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Op {
	case ipc.OpPing:
		return ipc.Response{OK: true}
	case ipc.OpStatus:
		return ipc.Response{OK: true, Status: h.status(ctx, req.HistoryLimit)}
	case ipc.OpSwitch:
		target, err := machine.ParseIdentity(req.Machine)
		if err != nil {
			return ipc.Response{Error: err.Error()}
		}
		if err := h.engine.ManualSwitch(ctx, target); err != nil {
			return ipc.Response{Error: err.Error()}
		}
		return ipc.Response{OK: true}
	default:
		return ipc.Response{Error: fmt.Sprintf("unknown operation %q", req.Op)}
	}
}

func (h *controlHandler) status(ctx context.Context, historyLimit int) *ipc.Status {
	state := h.engine.State()
	results := h.checker.Run(ctx)

	st := &ipc.Status{
		Current:         string(state.Current),
		LastConfirmedAt: state.LastConfirmedAt,
		UptimeSec:       h.checker.Uptime().Seconds(),
		TrackedDevices:  h.det.TrackedDevices(),
		MonitorIndex:    h.cfg.Monitor.Index,
		HomeInput:       h.cfg.Monitor.HomeInput,
		WorkInput:       h.cfg.Monitor.WorkInput,
		Overall:         string(health.Overall(results)),
		Components:      make(map[string]ipc.ComponentHealth, len(results)),
	}
	for name, r := range results {
		st.Components[name] = ipc.ComponentHealth{
			Status:  string(r.Status),
			Message: r.Message,
		}
	}

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if src, err := h.adapter.CurrentInput(readCtx, h.cfg.Monitor.Index); err == nil {
		st.CurrentInput = string(src)
	}
	cancel()

	if h.st != nil {
		if historyLimit <= 0 {
			historyLimit = 10
		}
		if entries, err := h.st.History(historyLimit); err == nil {
			for _, e := range entries {
				st.History = append(st.History, ipc.HistoryEntry{
					At:       time.Unix(0, e.TimestampNs),
					Machine:  string(e.Machine),
					Input:    string(e.Input),
					Origin:   e.Origin,
					Attempts: e.Attempts,
				})
			}
		}
	}
	return st
}

func printStatus(st *ipc.Status) {
	fmt.Println("=== switchd Status ===")
	fmt.Println()
	current := st.Current
	if current == "" {
		current = "unknown"
	}
	fmt.Printf("Active machine: %s\n", current)
	if !st.LastConfirmedAt.IsZero() {
		fmt.Printf("Last confirmed: %s\n", st.LastConfirmedAt.Format(time.RFC3339))
	}
	fmt.Printf("Uptime: %s\n", (time.Duration(st.UptimeSec) * time.Second).String())
	fmt.Printf("Tracked devices: %d\n", st.TrackedDevices)
	fmt.Println()
	fmt.Printf("Monitor %d: home=%s work=%s\n", st.MonitorIndex, st.HomeInput, st.WorkInput)
	if st.CurrentInput != "" {
		fmt.Printf("Current input: %s\n", st.CurrentInput)
	}
	fmt.Println()
	fmt.Printf("Health: %s\n", st.Overall)
	for name, c := range st.Components {
		if c.Message != "" {
			fmt.Printf("  %s: %s (%s)\n", name, c.Status, c.Message)
		} else {
			fmt.Printf("  %s: %s\n", name, c.Status)
		}
	}
	if len(st.History) > 0 {
		fmt.Println()
		fmt.Println("Recent switches:")
		for _, e := range st.History {
			fmt.Printf("  %s  %-4s -> %-14s %s (%d attempts)\n",
				e.At.Format("2006-01-02 15:04:05"), e.Machine, e.Input, e.Origin, e.Attempts)
		}
	}
}
