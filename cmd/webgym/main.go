// File: cmd/webgym/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/xkilldash9x/webgym/cmd"
	"github.com/xkilldash9x/webgym/internal/observability"
)

const panicLogFile = "panic.log"

// Function variables replaced in tests.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
)

func main() {
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		osExit(exitCode(cmd.Execute(ctx)))
		return
	}

	runInteractive(ctx, os.Stdin, os.Stdout)
}

// exitCode maps a command error to the process exit status. A run interrupted
// by a signal exits cleanly.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	default:
		return 1
	}
}

// runInteractive reads commands line by line until EOF or "exit".
func runInteractive(ctx context.Context, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "webgym > ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		executeInteractiveCommand(ctx, line, out)
		if ctx.Err() != nil {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading from stdin:", err)
		osExit(1)
	}
	fmt.Fprintln(out, "Exiting webgym.")
}

// executeInteractiveCommand runs one line on a fresh command tree.
func executeInteractiveCommand(ctx context.Context, line string, out io.Writer) {
	rootCmd := cmd.NewRootCommand()
	rootCmd.SetArgs(strings.Fields(line))
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(os.Stderr, "Error: Command panicked: %v\n", r)
			}
		}()
		// Cobra prints the error itself; the shell keeps running.
		_ = rootCmd.ExecuteContext(ctx)
	}()
}

// handlePanic flushes the logs and writes the panic with its stack trace to
// panic.log before exiting.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(1)
		return
	}
	fmt.Fprintf(os.Stderr, "webgym crashed. Details logged to %s\n", panicLogFile)
	osExit(1)
}
