// Command wtmux is the terminal multiplexer front end: with no arguments
// it starts the server (if needed), creates a new session and attaches to
// it; subcommands manage sessions and the server.
package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/blackwitch/wtmux/internal/client"
	"github.com/blackwitch/wtmux/internal/config"
	"github.com/blackwitch/wtmux/internal/ipc"
	"github.com/blackwitch/wtmux/internal/pty"
	"github.com/blackwitch/wtmux/internal/server"
)

// Exit codes.
const (
	exitOK          = 0
	exitUsage       = 1
	exitUnreachable = 2
	exitCommand     = 3
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func main() {
	logger := pslog.LoggerFromEnv(pslog.WithEnvWriter(os.Stderr))
	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		code := exitUsage
		if ee, ok := err.(exitError); ok {
			code = ee.code
		}
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "wtmux:", msg)
		}
		os.Exit(code)
	}
	os.Exit(exitOK)
}

func newRootCmd(logger pslog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "wtmux",
		Short:         "A terminal multiplexer for Windows",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNewSession(logger, "", "")
		},
	}
	root.AddCommand(newSessionCmd(logger))
	root.AddCommand(attachCmd(logger))
	root.AddCommand(listSessionsCmd())
	root.AddCommand(killSessionCmd())
	root.AddCommand(startServerCmd(logger))
	root.AddCommand(killServerCmd())
	return root
}

func newSessionCmd(logger pslog.Logger) *cobra.Command {
	var name, command string
	cmd := &cobra.Command{
		Use:   "new-session",
		Short: "Create a session and attach to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNewSession(logger, name, command)
		},
	}
	cmd.Flags().StringVarP(&name, "session", "s", "", "session name")
	cmd.Flags().StringVarP(&command, "command", "c", "", "shell command for the first pane")
	return cmd
}

func attachCmd(logger pslog.Logger) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:     "attach",
		Aliases: []string{"a", "attach-session"},
		Short:   "Attach to an existing session",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dialServer(false)
			if err != nil {
				return exitError{code: exitUnreachable, err: err}
			}
			defer conn.Close()
			err = client.Attach(conn, client.AttachOptions{
				SessionName: target,
				EscapeTime:  escapeTime(),
			}, logger)
			if err != nil {
				return exitError{code: exitCommand, err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "session name")
	return cmd
}

func listSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list-sessions",
		Aliases: []string{"ls"},
		Short:   "List sessions on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dialServer(false)
			if err != nil {
				return exitError{code: exitUnreachable, err: err}
			}
			defer conn.Close()
			items, err := client.ListSessions(conn)
			if err != nil {
				return exitError{code: exitCommand, err: err}
			}
			for _, it := range items {
				created := time.Unix(it.CreatedAt, 0).Format("Mon Jan 2 15:04:05 2006")
				attached := ""
				if it.Attached > 0 {
					attached = " (attached)"
				}
				fmt.Printf("%s: %d windows (created %s)%s\n", it.Name, it.Windows, created, attached)
			}
			return nil
		},
	}
}

func killSessionCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "kill-session",
		Short: "Destroy a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				return exitError{code: exitUsage, err: fmt.Errorf("kill-session requires -t")}
			}
			conn, err := dialServer(false)
			if err != nil {
				return exitError{code: exitUnreachable, err: err}
			}
			defer conn.Close()
			if err := client.KillSession(conn, target); err != nil {
				return exitError{code: exitCommand, err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "session name")
	return cmd
}

func startServerCmd(logger pslog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "start-server",
		Short: "Run the wtmux server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(logger)
		},
	}
}

func killServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill-server",
		Short: "Shut down the wtmux server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dialServer(false)
			if err != nil {
				return exitError{code: exitUnreachable, err: err}
			}
			defer conn.Close()
			if err := client.KillServer(conn); err != nil {
				return exitError{code: exitCommand, err: err}
			}
			return nil
		},
	}
}

// runServer hosts the engine on the calling goroutine until kill-server.
func runServer(logger pslog.Logger) error {
	ln, err := ipc.Listen()
	if err != nil {
		return exitError{code: exitCommand, err: err}
	}
	srv := server.New(pty.NewSpawner(), logger)
	path := config.Path()
	srv.SourceConfig(path)
	srv.WatchConfig(path)
	logger.Info("server listening", "endpoint", ipc.PipeName())
	return srv.Serve(ln)
}

// runNewSession attaches to the server (starting one when absent) and
// creates a session.
func runNewSession(logger pslog.Logger, name, command string) error {
	conn, err := dialServer(true)
	if err != nil {
		return exitError{code: exitUnreachable, err: err}
	}
	defer conn.Close()
	err = client.Attach(conn, client.AttachOptions{
		SessionName: name,
		Create:      true,
		Command:     command,
		EscapeTime:  escapeTime(),
	}, logger)
	if err != nil {
		return exitError{code: exitCommand, err: err}
	}
	return nil
}

// dialServer connects to the server, optionally spawning one in the
// background first.
func dialServer(startIfNeeded bool) (net.Conn, error) {
	c, err := ipc.Dial(500 * time.Millisecond)
	if err == nil {
		return c, nil
	}
	if !startIfNeeded {
		return nil, fmt.Errorf("server unreachable: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	spawn := exec.Command(exe, "start-server")
	spawn.Stdout = nil
	spawn.Stderr = nil
	if err := spawn.Start(); err != nil {
		return nil, fmt.Errorf("starting server: %w", err)
	}
	go spawn.Wait()

	c, err = ipc.Dial(5 * time.Second)
	if err != nil {
		return nil, fmt.Errorf("server unreachable after start: %w", err)
	}
	return c, nil
}

// escapeTime reads escape-time from the user config so the client-side
// Escape disambiguation matches the server's option map.
func escapeTime() time.Duration {
	opts := config.Default()
	if path := config.Path(); path != "" {
		if lines, err := config.LoadFile(path); err == nil {
			for _, line := range lines {
				words, err := config.Tokenize(line)
				if err != nil || len(words) < 4 {
					continue
				}
				if (words[0] == "set-option" || words[0] == "set") && words[1] == "-g" && words[2] == "escape-time" {
					opts.Set("escape-time", words[3])
				}
			}
		}
	}
	return time.Duration(opts.EscapeTime) * time.Millisecond
}
