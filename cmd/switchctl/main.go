// switchctl - control client for the switchd daemon
//
//	switchctl ping              Check the daemon is running
//	switchctl status            Show daemon status
//	switchctl switch <m>        Switch the monitor to home or work
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"switchd/internal/config"
	"switchd/internal/ipc"
	"switchd/internal/machine"
)

func main() {
	fs := flag.NewFlagSet("switchctl", flag.ExitOnError)
	socket := fs.String("socket", "", "Daemon control socket (default: from config)")
	format := fs.String("format", "text", "Output format: text, json, or yaml")
	limit := fs.Int("n", 10, "History entries to show in status")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `switchctl - control the switchd daemon

USAGE:
    switchctl [options] <command>

COMMANDS:
    ping                Check the daemon is running
    status              Show ownership state, health, and recent switches
    switch <home|work>  Switch the monitor input manually

OPTIONS:`)
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	client := ipc.NewClient(socketPath(*socket))

	switch fs.Arg(0) {
	case "ping":
		if err := client.Ping(); err != nil {
			fail(err)
		}
		fmt.Println("switchd is running")

	case "status":
		st, err := client.Status(*limit)
		if err != nil {
			fail(err)
		}
		printStatus(st, *format)

	case "switch":
		if fs.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: switchctl switch <home|work>")
			os.Exit(1)
		}
		target, err := machine.ParseIdentity(fs.Arg(1))
		if err != nil {
			fail(err)
		}
		if err := client.Switch(string(target)); err != nil {
			fail(err)
		}
		fmt.Printf("Switched to %s\n", target)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// socketPath resolves the control socket: an explicit flag wins, then
// the configured value, then the built-in default.
func socketPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg, err := config.Load(""); err == nil {
		return cfg.IPC.SocketPath
	}
	return config.DefaultConfig().IPC.SocketPath
}

func printStatus(st *ipc.Status, format string) {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(st); err != nil {
			fail(err)
		}
	case "yaml":
		data, err := yaml.Marshal(st)
		if err != nil {
			fail(err)
		}
		os.Stdout.Write(data)
	default:
		printStatusText(st)
	}
}

func printStatusText(st *ipc.Status) {
	current := st.Current
	if current == "" {
		current = "unknown"
	}
	fmt.Printf("machine:  %s\n", current)
	if !st.LastConfirmedAt.IsZero() {
		fmt.Printf("since:    %s\n", st.LastConfirmedAt.Format(time.RFC3339))
	}
	fmt.Printf("uptime:   %s\n", (time.Duration(st.UptimeSec) * time.Second).String())
	fmt.Printf("devices:  %d tracked\n", st.TrackedDevices)
	fmt.Printf("monitor:  #%d home=%s work=%s\n", st.MonitorIndex, st.HomeInput, st.WorkInput)
	if st.CurrentInput != "" {
		fmt.Printf("input:    %s\n", st.CurrentInput)
	}
	fmt.Printf("health:   %s\n", st.Overall)
	for name, c := range st.Components {
		if c.Message != "" {
			fmt.Printf("  %-8s %s (%s)\n", name+":", c.Status, c.Message)
		} else {
			fmt.Printf("  %-8s %s\n", name+":", c.Status)
		}
	}
	if len(st.History) > 0 {
		fmt.Println("recent switches:")
		for _, e := range st.History {
			fmt.Printf("  %s  %-4s -> %-14s %s (%d attempts)\n",
				e.At.Format("2006-01-02 15:04:05"), e.Machine, e.Input, e.Origin, e.Attempts)
		}
	}
}
