// Package cli implements roomctl, the operator tool for live rooms.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	addr    string
	token   string
	userID  string
	timeout time.Duration
}

// NewRootCommand собирает roomctl; out — куда печатать ответы.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}
	var client *Client

	root := &cobra.Command{
		Use:           "roomctl",
		Short:         "Control live streaming rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client = NewClient(opts.addr, opts.token, opts.userID, opts.timeout)
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.addr, "addr", envOr("ROOMCTL_ADDR", "http://localhost:8080"), "live-room-service HTTP address")
	pf.StringVar(&opts.token, "token", os.Getenv("ROOMCTL_TOKEN"), "bearer access token")
	pf.StringVar(&opts.userID, "user", envOr("ROOMCTL_USER", "operator"), "user id sent as X-User-ID")
	pf.DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout")

	get := func() *Client { return client }
	root.AddCommand(
		startCmd(get),
		stopCmd(get),
		nextCmd(get),
		statusCmd(get),
		chatCmd(get, opts),
		listCmd(get),
		seedCmd(),
	)
	return root
}

func startCmd(c func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "start ROOM_ID",
		Short: "Put a room on air",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c().Start(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func stopCmd(c func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "stop ROOM_ID",
		Short: "Take a room off air (idempotent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c().Stop(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func nextCmd(c func() *Client) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "next ROOM_ID",
		Short: "Advance to the next product",
		Long: `Advance to the next product. By default the current generation is read
first and sent along, so a concurrent timer advance is not applied twice.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var gen *uint64
			if !force {
				data, err := c().Status(cmd.Context(), args[0], 0)
				if err != nil {
					return err
				}
				var snap struct {
					Generation uint64 `json:"generation"`
				}
				if err := json.Unmarshal(data, &snap); err != nil {
					return fmt.Errorf("decode status: %w", err)
				}
				gen = &snap.Generation
			}
			data, err := c().Next(cmd.Context(), args[0], gen)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "advance unconditionally")
	return cmd
}

func statusCmd(c func() *Client) *cobra.Command {
	var since int64
	cmd := &cobra.Command{
		Use:   "status ROOM_ID",
		Short: "Show the live snapshot of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c().Status(cmd.Context(), args[0], since)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().Int64Var(&since, "since", 0, "only messages with seq greater than this")
	return cmd
}

func chatCmd(c func() *Client, opts *options) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "chat ROOM_ID TEXT...",
		Short: "Post a chat message and print the assistant reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c().Chat(cmd.Context(), args[0], opts.userID, name, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name of the sender")
	return cmd
}

func listCmd(c func() *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rooms that are on air",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c().List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func printJSON(w io.Writer, data json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
