package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"usbfw/config"
	"usbfw/core"
)

var errUsage = errors.New("usage")

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	args := flag.Args()[1:]
	var err error
	switch flag.Arg(0) {
	case "info":
		err = runInfo(args)
	case "monitor":
		err = runMonitor(args)
	case "config":
		err = runConfig(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usbfw-host - adapter firmware host tool")
	fmt.Fprintln(os.Stderr, "\nUsage:")
	fmt.Fprintln(os.Stderr, "  usbfw-host info [-json] [-color auto|always|never] FIRMWARE")
	fmt.Fprintln(os.Stderr, "  usbfw-host monitor [-config FILE] [-serial DEV | -usb | -sim] [-db FILE]")
	fmt.Fprintln(os.Stderr, "  usbfw-host config [-config FILE]")
}

// loadConfig reads path, or returns the defaults when path is empty
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

// newLogger creates the host logger and sets the firmware core level to
// match, so a simulated adapter logs alongside the host.
func newLogger(level string, verbose bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	core.SetLogLevel(lvl)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file to normalize")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
