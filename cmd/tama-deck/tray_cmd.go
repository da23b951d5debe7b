package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/asheshgoplani/tama-deck/internal/logging"
	"github.com/asheshgoplani/tama-deck/internal/relay"
)

func handleTray(args []string) int {
	fs := flag.NewFlagSet("tray", flag.ContinueOnError)
	statusFile := fs.String("status-file", "", "Status file to follow (overrides config)")
	fs.Usage = func() {
		fmt.Println("Usage: tama-deck tray [options]")
		fmt.Println()
		fmt.Println("Follow the relayed status and print one indicator line per change,")
		fmt.Println("for status bars such as waybar, polybar or tmux.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg := loadConfig()
	initLogging(cfg, false)
	defer logging.Shutdown()

	path := *statusFile
	if path == "" {
		path = cfg.GetRelaySettings().StatusFile
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := followStatus(ctx, path, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// followStatus prints the current indicator, then one line per change
// until ctx ends.
func followStatus(ctx context.Context, path string, out io.Writer) error {
	w, err := relay.NewStatusWatcher(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer func() { _ = w.Stop() }()

	last := relay.Status{}.Indicator()
	if st, err := relay.ReadStatus(path); err == nil {
		last = st.Indicator()
	}
	if _, err := fmt.Fprintln(out, last); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-w.Updates():
			line := st.Indicator()
			if line == last {
				continue
			}
			last = line
			if _, err := fmt.Fprintln(out, line); err != nil {
				return err
			}
		}
	}
}
