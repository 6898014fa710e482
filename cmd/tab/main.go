package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/handnav/internal/tabclient"
)

func main() {
	var (
		baseURL  = flag.String("url", tabclient.DefaultBaseURL, "Base URL of the service")
		send     = flag.String("send", "", "Gesture to send (default: listen only)")
		count    = flag.Int("count", 1, "Number of times to send the gesture")
		interval = flag.Duration("interval", tabclient.DefaultInterval, "Pause between sends")
		listen   = flag.Duration("listen", tabclient.DefaultListen, "How long to keep receiving after sending")
		timeout  = flag.Duration("timeout", tabclient.DefaultTimeout, "HTTP and dial timeout")
		logFile  = flag.String("log", "", "Also write logs to this file")
		verbose  = flag.Bool("verbose", false, "Log every received message")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		tabclient.ShowHelp()
		return
	}

	if err := tabclient.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &tabclient.Config{
		BaseURL:  *baseURL,
		Send:     *send,
		Count:    *count,
		Interval: *interval,
		Listen:   *listen,
		Timeout:  *timeout,
		Verbose:  *verbose,
	}

	if _, err := tabclient.Run(ctx, config, os.Stdout); err != nil {
		_, _ = os.Stderr.WriteString("Tab client failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
