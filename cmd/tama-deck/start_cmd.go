package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/asheshgoplani/tama-deck/internal/snapshot"
	"github.com/asheshgoplani/tama-deck/internal/transport"
)

func handleStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	endpoint := fs.String("endpoint", "", "Analyzer URL (overrides config)")
	timeout := fs.Duration("timeout", 5*time.Second, "Give up after this long")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Println("Usage: tama-deck start [options]")
		fmt.Println()
		fmt.Println("Send START_SESSION to the analyzer once and exit. Nothing is retried.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	analyzer := loadConfig().GetAnalyzerSettings()
	if *endpoint != "" {
		analyzer.Endpoint = *endpoint
	}

	out := NewCLIOutput(*jsonOutput)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	dial := transport.WebsocketDialer(analyzer.HandshakeTimeout())
	if err := transport.SendOnce(ctx, dial, analyzer.Endpoint, snapshot.StartSession()); err != nil {
		out.Error(fmt.Sprintf("analyzer unreachable at %s: %v", analyzer.Endpoint, err), ErrCodeUnreachable)
		return 1
	}
	out.Success("focus session started", map[string]any{
		"success":  true,
		"command":  snapshot.CommandStartSession,
		"endpoint": analyzer.Endpoint,
	})
	return 0
}
