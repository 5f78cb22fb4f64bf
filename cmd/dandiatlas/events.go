package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/npratt/dandiatlas/internal/events"
)

func newEventsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "View recent session events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			count, _ := cmd.Flags().GetInt(FlagCount)
			follow, _ := cmd.Flags().GetBool(FlagFollow)
			raw, _ := cmd.Flags().GetBool(FlagRaw)

			out := cmd.OutOrStdout()
			if follow {
				return tailFollow(cmd.Context(), out, cfg.Paths.EventLog, raw)
			}
			return tailLast(out, cfg.Paths.EventLog, count, raw)
		},
	}

	cmd.Flags().Bool(FlagFollow, false, "Follow event stream (like tail -f)")
	cmd.Flags().Int(FlagCount, 20, "Number of recent events to show")
	cmd.Flags().Bool(FlagRaw, false, "Print the JSON lines unformatted")
	return cmd
}

// tailLast prints the last n lines from the log file.
func tailLast(out io.Writer, path string, n int, raw bool) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(out, "No events yet (log file does not exist)")
			return nil
		}
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Keep a ring of the last n lines
	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log file: %w", err)
	}

	if len(lines) == 0 {
		fmt.Fprintln(out, "No events yet")
		return nil
	}
	for _, line := range lines {
		printEventLine(out, line, raw)
	}
	return nil
}

// waitForFile waits for a file to be created and returns the opened file.
func waitForFile(ctx context.Context, path string) (*os.File, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
			file, err := os.Open(path)
			if err == nil {
				return file, nil
			}
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("open file: %w", err)
			}
		}
	}
}

// tailFollow follows the log file and prints new lines as they appear.
func tailFollow(ctx context.Context, out io.Writer, path string, raw bool) error {
	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("open log file: %w", err)
		}
		fmt.Fprintln(out, "Waiting for log file to be created...")
		file, err = waitForFile(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	fmt.Fprintln(out, "Following events (Ctrl+C to stop)...")
	reader := bufio.NewReader(file)
	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Hold a partially written line until its newline arrives
				partial += line
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return fmt.Errorf("read log: %w", err)
		}
		printEventLine(out, strings.TrimSuffix(partial+line, "\n"), raw)
		partial = ""
	}
}

// printEventLine prints a single event line in a human-readable format.
// Lines that do not parse are printed as-is.
func printEventLine(out io.Writer, line string, raw bool) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if raw {
		fmt.Fprintln(out, line)
		return
	}
	ev, err := events.ParseEvent([]byte(line))
	if err != nil || ev == nil {
		fmt.Fprintln(out, line)
		return
	}
	fmt.Fprintln(out, events.FormatWithTimestamp(ev))
}
