package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyprconnect/hyprconnect/internal/app"
	"github.com/hyprconnect/hyprconnect/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override config path (optional)")
	pollSeconds := flag.Int("poll", 0, "poll interval in seconds (optional, defaults to the config value)")
	logLevel := flag.String("log-level", "", "trace, debug, info, warn or error (optional)")
	socketPath := flag.String("socket", "", "IPC socket path (optional)")
	logFile := flag.String("log-file", "", "also append JSON logs to this file (optional)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return 0
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		LogLevel:   *logLevel,
		SocketPath: *socketPath,
		LogFile:    *logFile,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "hyprconnectd: %v\n", err)
		return 1
	}
	return 0
}
