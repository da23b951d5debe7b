package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/asheshgoplani/tama-deck/internal/relay"
)

func handleStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Println("Usage: tama-deck status [--json]")
		fmt.Println()
		fmt.Println("Print the last snapshot relayed by a running companion.")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	out := NewCLIOutput(*jsonOutput)
	path := loadConfig().GetRelaySettings().StatusFile
	st, err := relay.ReadStatus(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			out.Error("no status yet (is the companion running with the relay enabled?)", ErrCodeNotFound)
			return 1
		}
		out.Error(err.Error(), ErrCodeIO)
		return 1
	}
	out.Print(formatStatus(st), st)
	return 0
}

func formatStatus(st relay.Status) string {
	s := st.Snapshot
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", st.Indicator())
	fmt.Fprintf(&b, "  %s tier        %s (%d/10, %s)\n", bulletSymbol, st.Tier, s.SuspicionIndex, s.State)
	fmt.Fprintf(&b, "  %s window      %s (%ds)\n", bulletSymbol, s.ActiveWindow, s.ActiveDuration)
	fmt.Fprintf(&b, "  %s task        %s\n", bulletSymbol, s.CurrentTask)
	fmt.Fprintf(&b, "  %s alignment   %d\n", bulletSymbol, s.Alignment)
	if s.SessionActive {
		fmt.Fprintf(&b, "  %s session     %d min\n", bulletSymbol, s.SessionMinutes)
	}
	fmt.Fprintf(&b, "  %s updated     %s\n", bulletSymbol, st.UpdatedAt.Local().Format("15:04:05"))
	return b.String()
}
