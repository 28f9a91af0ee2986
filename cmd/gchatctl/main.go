package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/gchat/internal/api"
	"github.com/matheus3301/gchat/internal/lock"
	"github.com/matheus3301/gchat/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = printUsage
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c, err := api.Dial(profile.SocketPath(profileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for profile %q: %v\n", profileName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	cli := &ctl{c: c, profile: profileName, jsonOut: *jsonFlag}

	// watch runs until interrupted; everything else gets a deadline.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if args[0] != "watch" && args[0] != "upload" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	if err := cli.run(ctx, args[0], args[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(os.Stderr, "usage: gchatctl %s\n", string(ue))
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: gchatctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                    Show daemon and room status")
	fmt.Fprintln(os.Stderr, "  join <group id>           Join a group room")
	fmt.Fprintln(os.Stderr, "  leave                     Leave the current room")
	fmt.Fprintln(os.Stderr, "  room                      Show the live room")
	fmt.Fprintln(os.Stderr, "  more                      Load older messages")
	fmt.Fprintln(os.Stderr, "  send [-reply ID] [-attach FILE]... <text>")
	fmt.Fprintln(os.Stderr, "                            Send a message")
	fmt.Fprintln(os.Stderr, "  typing <on|off>           Set typing status")
	fmt.Fprintln(os.Stderr, "  seen <message id>         Mark a message as seen")
	fmt.Fprintln(os.Stderr, "  history [N]               Show cached messages")
	fmt.Fprintln(os.Stderr, "  upload <file>...          Upload media files")
	fmt.Fprintln(os.Stderr, "  uploads [clear]           List recent uploads, or drop finished ones")
	fmt.Fprintln(os.Stderr, "  watch [prefix]            Stream daemon events")
}

// outputJSON writes v as indented JSON to stdout.
func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

// statusOffline reports a daemon that did not answer, using the profile lock
// to tell a stopped daemon from a hung one.
func statusOffline(profileName string, cause error, jsonOut bool) error {
	h, err := lock.Inspect(profile.Dir(profileName))
	if err != nil {
		return fmt.Errorf("daemon unreachable (%v); inspect lock: %w", cause, err)
	}
	if jsonOut {
		out := map[string]any{"profile": profileName, "running": h != nil}
		if h != nil {
			out["pid"] = h.PID
			out["since"] = h.Since
		}
		outputJSON(out)
		return nil
	}
	if h == nil {
		fmt.Printf("Profile: %s\n", profileName)
		fmt.Println("Daemon:  not running")
		return nil
	}
	return fmt.Errorf("daemon PID %d holds profile %q since %s but is not answering: %v",
		h.PID, profileName, h.Since.Format(time.RFC3339), cause)
}

type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, usageError("typing <on|off>")
}
