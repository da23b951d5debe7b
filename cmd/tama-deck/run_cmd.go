package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/asheshgoplani/tama-deck/internal/companion"
	"github.com/asheshgoplani/tama-deck/internal/config"
	"github.com/asheshgoplani/tama-deck/internal/logging"
	"github.com/asheshgoplani/tama-deck/internal/presentation"
	"github.com/asheshgoplani/tama-deck/internal/relay"
	"github.com/asheshgoplani/tama-deck/internal/transport"
	"github.com/asheshgoplani/tama-deck/internal/ui"
)

func handleRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	endpoint := fs.String("endpoint", "", "Analyzer URL (overrides config)")
	headless := fs.Bool("headless", false, "Print state changes instead of drawing the companion")
	debug := fs.Bool("debug", false, "Write debug.log")
	start := fs.Bool("start", false, "Start a focus session right away")
	fs.Usage = func() {
		fmt.Println("Usage: tama-deck run [options]")
		fmt.Println()
		fmt.Println("Connect to the analyzer and show the companion. Without a terminal the")
		fmt.Println("companion runs headless and prints one line per state change.")
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
	dir := initLogging(cfg, *debug)
	defer logging.Shutdown()
	defer dumpOnPanic(dir)

	analyzer := cfg.GetAnalyzerSettings()
	if *endpoint != "" {
		analyzer.Endpoint = *endpoint
	}

	fanout, closeRelays := buildRelays(cfg, dir)
	defer closeRelays()

	ctrl := companion.New(companion.Options{Relay: fanout})
	ctrl.Debug().SetVisible(cfg.GetUISettings().ShowDebug)
	client := transport.NewClient(transport.Options{
		Endpoint:       analyzer.Endpoint,
		ReconnectDelay: analyzer.ReconnectDelay(),
		Dial:           transport.WebsocketDialer(analyzer.HandshakeTimeout()),
		Handlers:       ctrl.Handlers(),
	})
	ctrl.Bind(client)
	if *start {
		ctrl.StartSession()
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	watchDumpSignal(sigCtx, dir)

	if err := client.Connect(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer client.Close()

	interactive := !*headless && term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
	if err := runCompanion(sigCtx, ctrl, cfg, analyzer.Endpoint, interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// buildRelays assembles the enabled relays. The returned func stops them.
func buildRelays(cfg *config.Config, dir string) (relay.Relay, func()) {
	log := logging.ForComponent(logging.CompRelay)
	var (
		fanout  relay.Multi
		closers []func()
	)

	if rs := cfg.GetRelaySettings(); rs.IsEnabled() && rs.StatusFile != "" {
		fr := relay.NewFileRelay(rs.StatusFile)
		fanout = append(fanout, fr)
		closers = append(closers, fr.Close)
	}

	if ps := cfg.GetPushSettings(); ps.Enabled && dir != "" {
		keys, _, err := relay.EnsureVAPIDKeys(dir, ps.Subject)
		if err != nil {
			log.Warn("push_disabled", slog.String("error", err.Error()))
		} else {
			pr := relay.NewPushRelay(relay.PushOptions{
				Store:    relay.NewSubscriptionStore(dir),
				Sender:   relay.NewVAPIDSender(keys),
				MinTier:  presentation.ParseTier(ps.MinTier),
				Interval: time.Duration(ps.IntervalSecs) * time.Second,
			})
			fanout = append(fanout, pr)
			closers = append(closers, pr.Wait)
		}
	}

	if len(fanout) == 0 {
		return relay.Nop{}, func() {}
	}
	return fanout, func() {
		for _, c := range closers {
			c()
		}
	}
}

// runCompanion runs the renderer (or the headless printer) until it exits,
// the analyzer sends QUIT, or ctx is cancelled.
func runCompanion(parent context.Context, ctrl *companion.Controller, cfg *config.Config, endpoint string, interactive bool) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-ctrl.Quit():
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		if !interactive {
			return runHeadless(gctx, ctrl, os.Stdout)
		}
		return runTUI(gctx, ctrl, cfg, endpoint)
	})

	return g.Wait()
}

func runTUI(ctx context.Context, ctrl *companion.Controller, cfg *config.Config, endpoint string) error {
	uiCfg := cfg.GetUISettings()
	var watcher *ui.ThemeWatcher
	if uiCfg.Theme == "system" {
		watcher = ui.NewThemeWatcher(ctx)
		defer watcher.Close()
	}

	model := ui.New(ctrl, ui.Options{
		Endpoint: endpoint,
		FPS:      uiCfg.FPS,
		Theme:    cfg.ResolveTheme(),
		Watcher:  watcher,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

// runHeadless prints one line whenever the visible state changes.
func runHeadless(ctx context.Context, ctrl *companion.Controller, out io.Writer) error {
	last := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ctrl.Quit():
			return nil
		case <-ctrl.Changes():
			line := describeView(ctrl.View())
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

func describeView(v *companion.View) string {
	line := fmt.Sprintf("%s %s", v.Phase, v.Connection)
	if !v.HasSnapshot {
		return line + " waiting"
	}
	return fmt.Sprintf("%s %s %d/10 %s %q", line, v.Params.Tier, v.Snapshot.SuspicionIndex, v.Params.Pose, v.Snapshot.ActiveWindow)
}

// watchDumpSignal writes the log ring buffer to a file on SIGUSR1.
func watchDumpSignal(ctx context.Context, dir string) {
	if dir == "" {
		return
	}
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	go func() {
		defer signal.Stop(usr1)
		for {
			select {
			case <-ctx.Done():
				return
			case <-usr1:
				path := filepath.Join(dir, fmt.Sprintf("crash-dump-%d.jsonl", time.Now().Unix()))
				log := logging.ForComponent(logging.CompUI)
				if err := logging.DumpRingBuffer(path); err != nil {
					log.Error("crash_dump_failed", slog.String("error", err.Error()))
				} else {
					log.Info("crash_dump_written", slog.String("path", path))
				}
			}
		}
	}()
}
