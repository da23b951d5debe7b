package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/asheshgoplani/tama-deck/internal/config"
	"github.com/asheshgoplani/tama-deck/internal/relay"
)

func handlePush(args []string) int {
	if len(args) == 0 {
		fmt.Println("Usage: tama-deck push <keys|subscribe|list>")
		return 2
	}
	dir, err := config.Dir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	switch args[0] {
	case "keys":
		return handlePushKeys(dir, args[1:])
	case "subscribe":
		return handlePushSubscribe(dir, args[1:])
	case "list":
		return handlePushList(dir, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown push command %q\n", args[0])
		return 2
	}
}

func handlePushKeys(dir string, args []string) int {
	fs := flag.NewFlagSet("push keys", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	out := NewCLIOutput(*jsonOutput)

	subject := loadConfig().GetPushSettings().Subject
	keys, generated, err := relay.EnsureVAPIDKeys(dir, subject)
	if err != nil {
		out.Error(err.Error(), ErrCodeIO)
		return 1
	}
	human := keys.PublicKey + "\n"
	if generated {
		human = "generated a new keypair\n" + human
	}
	out.Print(human, map[string]any{
		"publicKey": keys.PublicKey,
		"subject":   keys.Subject,
		"generated": generated,
	})
	return 0
}

func handlePushSubscribe(dir string, args []string) int {
	fs := flag.NewFlagSet("push subscribe", flag.ContinueOnError)
	endpoint := fs.String("endpoint", "", "Push service endpoint URL")
	p256dh := fs.String("p256dh", "", "Client public key")
	auth := fs.String("auth", "", "Client auth secret")
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Println("Usage: tama-deck push subscribe [subscription.json | --endpoint URL --p256dh KEY --auth SECRET]")
		fmt.Println()
		fmt.Println("Register a browser PushSubscription (the JSON from subscription.toJSON()).")
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	out := NewCLIOutput(*jsonOutput)

	sub := relay.Subscription{
		Endpoint: *endpoint,
		Keys:     relay.SubscriptionKeys{P256DH: *p256dh, Auth: *auth},
	}
	if fs.NArg() > 0 {
		raw, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			out.Error(err.Error(), ErrCodeIO)
			return 1
		}
		if err := json.Unmarshal(raw, &sub); err != nil {
			out.Error(fmt.Sprintf("parse %s: %v", fs.Arg(0), err), ErrCodeInvalidInput)
			return 1
		}
	}
	if err := sub.Validate(); err != nil {
		out.Error(err.Error(), ErrCodeInvalidInput)
		return 1
	}
	if err := relay.NewSubscriptionStore(dir).Upsert(sub); err != nil {
		out.Error(err.Error(), ErrCodeIO)
		return 1
	}
	out.Success("subscription saved", map[string]any{"success": true, "endpoint": strings.TrimSpace(sub.Endpoint)})
	return 0
}

func handlePushList(dir string, args []string) int {
	fs := flag.NewFlagSet("push list", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	out := NewCLIOutput(*jsonOutput)

	subs, err := relay.NewSubscriptionStore(dir).List()
	if err != nil {
		out.Error(err.Error(), ErrCodeIO)
		return 1
	}
	var b strings.Builder
	if len(subs) == 0 {
		b.WriteString("no subscriptions\n")
	}
	for _, s := range subs {
		fmt.Fprintf(&b, "%s %s\n", bulletSymbol, s.Endpoint)
	}
	out.Print(b.String(), subs)
	return 0
}
