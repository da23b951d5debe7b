package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed matches every interpretation failure.
var ErrMalformed = errors.New("malformed snapshot")

// MalformedError describes why a payload was rejected.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed snapshot: %s: %v", e.Reason, e.Err)
	}
	return "malformed snapshot: " + e.Reason
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformed) true for every MalformedError.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

func malformed(reason string, err error) error {
	return &MalformedError{Reason: reason, Err: err}
}

// Kind classifies an inbound message.
type Kind int

const (
	KindSnapshot Kind = iota
	KindCommand
)

// Message is a decoded inbound message: either a snapshot or a command.
type Message struct {
	Kind     Kind
	Snapshot Snapshot
	Command  Command
}

// Required snapshot fields. The analyzer's idle broadcast carries only these
// two, so the remaining fields default to their zero values.
var requiredFields = []string{"suspicion_index", "state"}

// Decode classifies a raw payload. Objects carrying a "command" key are
// commands; everything else must interpret as a snapshot.
func Decode(raw []byte, now time.Time) (Message, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return Message{}, err
	}
	if rawCmd, ok := fields["command"]; ok && !isNull(rawCmd) {
		cmd, err := commandFrom(fields)
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindCommand, Command: cmd}, nil
	}
	snap, err := snapshotFrom(fields, now)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: KindSnapshot, Snapshot: snap}, nil
}

// Interpret validates a raw payload and builds a Snapshot from it.
// Any failure wraps ErrMalformed; it has no other effect.
func Interpret(raw []byte, now time.Time) (Snapshot, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotFrom(fields, now)
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, malformed("empty payload", nil)
	}
	if trimmed[0] != '{' {
		return nil, malformed("payload is not a JSON object", nil)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, malformed("invalid json", err)
	}
	return fields, nil
}

func commandFrom(fields map[string]json.RawMessage) (Command, error) {
	name, err := textField(fields["command"])
	if err != nil {
		return Command{}, malformed("command", err)
	}
	cmd := Command{Name: strings.ToUpper(strings.TrimSpace(name))}
	if cmd.Name == "" {
		return Command{}, malformed("command is empty", nil)
	}
	if raw, ok := fields["anim"]; ok && !isNull(raw) {
		if cmd.Anim, err = textField(raw); err != nil {
			return Command{}, malformed("anim", err)
		}
	}
	if raw, ok := fields["loop"]; ok && !isNull(raw) {
		if cmd.Loop, err = boolField(raw); err != nil {
			return Command{}, malformed("loop", err)
		}
	}
	return cmd, nil
}

func snapshotFrom(fields map[string]json.RawMessage, now time.Time) (Snapshot, error) {
	for _, name := range requiredFields {
		raw, ok := fields[name]
		if !ok || isNull(raw) {
			return Snapshot{}, malformed("missing "+name, nil)
		}
	}

	s := Snapshot{ReceivedAt: now}
	var err error
	if s.SuspicionIndex, err = intField(fields["suspicion_index"]); err != nil {
		return Snapshot{}, malformed("suspicion_index", err)
	}
	state, err := textField(fields["state"])
	if err != nil {
		return Snapshot{}, malformed("state", err)
	}
	s.State = State(strings.ToUpper(strings.TrimSpace(state)))

	ints := []struct {
		name string
		dst  *int
	}{
		{"active_duration", &s.ActiveDuration},
		{"alignment", &s.Alignment},
		{"session_minutes", &s.SessionMinutes},
		{"next_break_at", &s.NextBreakAt},
	}
	for _, f := range ints {
		if raw, ok := fields[f.name]; ok && !isNull(raw) {
			if *f.dst, err = intField(raw); err != nil {
				return Snapshot{}, malformed(f.name, err)
			}
		}
	}

	texts := []struct {
		name string
		dst  *string
	}{
		{"active_window", &s.ActiveWindow},
		{"current_task", &s.CurrentTask},
		{"category", &s.Category},
	}
	for _, f := range texts {
		if raw, ok := fields[f.name]; ok && !isNull(raw) {
			if *f.dst, err = textField(raw); err != nil {
				return Snapshot{}, malformed(f.name, err)
			}
		}
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"session_active", &s.SessionActive},
		{"can_be_closed", &s.CanBeClosed},
		{"break_reminder", &s.BreakReminder},
		{"is_on_break", &s.OnBreak},
		{"window_ready", &s.WindowReady},
	}
	for _, f := range flags {
		if raw, ok := fields[f.name]; ok && !isNull(raw) {
			if *f.dst, err = boolField(raw); err != nil {
				return Snapshot{}, malformed(f.name, err)
			}
		}
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// intField accepts JSON numbers and numeric strings. Fractions are floored,
// which keeps "x >= n" comparisons against integer thresholds unchanged.
func intField(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return numberToInt(string(n))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return numberToInt(strings.TrimSpace(s))
	}
	return 0, fmt.Errorf("expected number, got %s", string(raw))
}

func numberToInt(s string) (int, error) {
	if i, err := strconv.Atoi(s); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected number, got %q", s)
	}
	// Same range as the integer path: [MinInt, -MinInt).
	f = math.Floor(f)
	if f < float64(math.MinInt) || f >= -float64(math.MinInt) {
		return 0, fmt.Errorf("number out of range: %q", s)
	}
	return int(f), nil
}

// textField accepts strings and renders scalar numbers or booleans as text.
func textField(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), nil
	}
	return "", fmt.Errorf("expected text, got %s", string(raw))
}

func boolField(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, perr := strconv.ParseBool(strings.TrimSpace(s)); perr == nil {
			return v, nil
		}
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String() != "0", nil
	}
	return false, fmt.Errorf("expected boolean, got %s", string(raw))
}
