package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// CLIOutput prints either human text or JSON, consistently across commands.
type CLIOutput struct {
	jsonMode bool
	out      io.Writer
	errOut   io.Writer
}

// NewCLIOutput writes to stdout and stderr.
func NewCLIOutput(jsonMode bool) *CLIOutput {
	return &CLIOutput{jsonMode: jsonMode, out: os.Stdout, errOut: os.Stderr}
}

// Success prints a confirmation or the JSON payload.
func (c *CLIOutput) Success(message string, data any) {
	if c.jsonMode {
		c.printJSON(data)
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", successSymbol, message)
}

// Error prints an error message or a JSON error object.
func (c *CLIOutput) Error(message, code string) {
	if c.jsonMode {
		c.printJSON(map[string]any{
			"success": false,
			"error":   message,
			"code":    code,
		})
		return
	}
	fmt.Fprintf(c.errOut, "Error: %s\n", message)
}

// Print prints human text or the JSON payload.
func (c *CLIOutput) Print(human string, data any) {
	if c.jsonMode {
		c.printJSON(data)
		return
	}
	fmt.Fprint(c.out, human)
}

func (c *CLIOutput) printJSON(data any) {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(c.errOut, "Error: failed to format JSON: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, string(output))
}

const (
	successSymbol = "✓"
	bulletSymbol  = "•"
)

// Error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnreachable  = "UNREACHABLE"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeIO           = "IO_ERROR"
)
