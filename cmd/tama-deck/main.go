package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/asheshgoplani/tama-deck/internal/config"
	"github.com/asheshgoplani/tama-deck/internal/logging"
)

const Version = "0.3.0"

// EnvColor overrides terminal color detection: truecolor, 256, 16, none.
const EnvColor = "TAMA_DECK_COLOR"

func init() {
	initColorProfile()
}

// initColorProfile configures lipgloss for the terminal, preferring TrueColor.
func initColorProfile() {
	lipgloss.SetColorProfile(detectColorProfile(os.Getenv))
}

func detectColorProfile(getenv func(string) string) termenv.Profile {
	switch strings.ToLower(getenv(EnvColor)) {
	case "truecolor", "true", "24bit":
		return termenv.TrueColor
	case "256", "ansi256":
		return termenv.ANSI256
	case "16", "ansi", "basic":
		return termenv.ANSI
	case "none", "off", "ascii":
		return termenv.Ascii
	}

	if ct := getenv("COLORTERM"); ct == "truecolor" || ct == "24bit" {
		return termenv.TrueColor
	}
	term := getenv("TERM")
	for _, t := range []string{"xterm-256color", "screen-256color", "tmux-256color", "xterm-direct", "alacritty", "kitty", "wezterm"} {
		if strings.Contains(term, t) {
			return termenv.TrueColor
		}
	}
	if getenv("WT_SESSION") != "" || getenv("ITERM_SESSION_ID") != "" || getenv("KONSOLE_VERSION") != "" {
		return termenv.TrueColor
	}
	return termenv.ANSI256
}

func main() {
	os.Exit(run(os.Args[1:]))
}

var topLevelFlags = map[string]bool{"--version": true, "-v": true, "--help": true, "-h": true}

// run dispatches a subcommand and returns the process exit code.
func run(args []string) int {
	cmd := "run"
	if len(args) > 0 && (!strings.HasPrefix(args[0], "-") || topLevelFlags[args[0]]) {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "version", "--version", "-v":
		fmt.Printf("tama-deck v%s\n", Version)
		return 0
	case "help", "--help", "-h":
		printHelp()
		return 0
	case "run":
		return handleRun(args)
	case "tray":
		return handleTray(args)
	case "start":
		return handleStart(args)
	case "status":
		return handleStatus(args)
	case "config":
		return handleConfig(args)
	case "push":
		return handlePush(args)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", cmd)
		printHelp()
		return 2
	}
}

func printHelp() {
	fmt.Println("tama-deck - a focus companion for the distraction analyzer")
	fmt.Println()
	fmt.Println("Usage: tama-deck [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run              Show the companion (default)")
	fmt.Println("  tray             Follow the relayed status as a one-line indicator")
	fmt.Println("  start            Ask the analyzer to start a focus session and exit")
	fmt.Println("  status           Print the last relayed snapshot")
	fmt.Println("  config init      Write an example config.toml")
	fmt.Println("  config path      Print the config file path")
	fmt.Println("  push keys        Print the web push public key")
	fmt.Println("  push subscribe   Register a browser push subscription")
	fmt.Println("  push list        List push subscriptions")
	fmt.Println("  version          Print the version")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Printf("  %-22s analyzer URL (default %s)\n", config.EnvEndpoint, config.DefaultEndpoint)
	fmt.Printf("  %-22s dark, light or system\n", config.EnvTheme)
	fmt.Printf("  %-22s write debug.log\n", config.EnvDebug)
	fmt.Printf("  %-22s config directory (default ~/%s)\n", config.EnvHome, config.DirName)
	fmt.Printf("  %-22s truecolor, 256, 16, none\n", EnvColor)
}

// loadConfig returns the config. A broken file is reported and the defaults
// are used.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return cfg
}

// initLogging mirrors [logs] into the logging package. Without debug the
// logs are discarded so nothing interferes with the TUI.
func initLogging(cfg *config.Config, forceDebug bool) (dir string) {
	ls := cfg.Logs
	debug := ls.Debug || forceDebug
	dir, err := config.Dir()
	if err != nil {
		dir = ""
	}
	logCfg := logging.Config{
		Debug:      debug,
		Level:      ls.Level,
		Format:     ls.Format,
		MaxSizeMB:  ls.MaxSizeMB,
		MaxBackups: ls.MaxBackups,
		MaxAgeDays: ls.MaxAgeDays,
		Compress:   ls.Compress,
	}
	if debug {
		logCfg.LogDir = dir
		if logCfg.Level == "" {
			logCfg.Level = "debug"
		}
	}
	logging.Init(logCfg)
	logging.ForComponent(logging.CompConfig).Info("companion_started",
		slog.String("version", Version),
		slog.Int("pid", os.Getpid()),
		slog.Bool("debug", debug))
	return dir
}

// dumpOnPanic writes the recent log lines next to the config before the
// panic continues.
func dumpOnPanic(dir string) {
	r := recover()
	if r == nil {
		return
	}
	if dir != "" {
		path := filepath.Join(dir, fmt.Sprintf("crash-dump-%d.jsonl", time.Now().Unix()))
		if err := logging.DumpRingBuffer(path); err == nil {
			fmt.Fprintf(os.Stderr, "crash dump written to %s\n", path)
		}
	}
	logging.Shutdown()
	panic(r)
}
