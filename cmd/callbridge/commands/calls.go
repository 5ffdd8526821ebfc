package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/callbridge/cmd/callbridge/internal/config"
	"github.com/haivivi/callbridge/pkg/cli"
	"github.com/haivivi/callbridge/pkg/jsontime"
	"github.com/haivivi/callbridge/pkg/tracker"
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect recorded calls",
	Long: `Inspect the call records written by 'callbridge serve'.

Records are kept in the tracker store. The badger store is locked while a
server is running; use 'callbridge sessions' to see live calls instead.`,
}

var callsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded calls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd, func(t *tracker.KV) error {
			var views callList
			for r, err := range t.List(cmd.Context()) {
				if err != nil {
					return err
				}
				views = append(views, newCallView(r))
			}
			return printResult(cmd, views, cli.FormatTable)
		})
	},
}

var callsGetCmd = &cobra.Command{
	Use:   "get <call-id>",
	Short: "Show one call record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd, func(t *tracker.KV) error {
			r, err := t.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printResult(cmd, newCallView(r), cli.FormatYAML)
		})
	},
}

func init() {
	callsCmd.AddCommand(callsListCmd, callsGetCmd)
	rootCmd.AddCommand(callsCmd)
}

func withTracker(cmd *cobra.Command, fn func(*tracker.KV) error) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if cfg.Tracker.Backend == config.BackendMemory {
		return errors.New("the memory tracker does not outlive the server")
	}
	store, err := cfg.OpenStore(cliLogger(cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("open tracker: %w", err)
	}
	defer store.Close()
	return fn(tracker.NewKV(store))
}

// callView is a Record as printed.
type callView struct {
	CallID         string            `json:"call_id" yaml:"call_id"`
	StreamID       string            `json:"stream_id,omitempty" yaml:"stream_id,omitempty"`
	Status         tracker.Status    `json:"status" yaml:"status"`
	ConnectedAt    jsontime.Milli    `json:"connected_at,omitzero" yaml:"connected_at,omitempty"`
	DisconnectedAt jsontime.Milli    `json:"disconnected_at,omitzero" yaml:"disconnected_at,omitempty"`
	Duration       jsontime.Duration `json:"duration,omitzero" yaml:"duration,omitempty"`
}

func newCallView(r *tracker.Record) callView {
	return callView{
		CallID:         r.CallID,
		StreamID:       r.StreamID,
		Status:         r.Status,
		ConnectedAt:    jsontime.Milli(r.ConnectedAt),
		DisconnectedAt: jsontime.Milli(r.DisconnectedAt),
		Duration:       jsontime.Duration(r.Duration()),
	}
}

type callList []callView

func (l callList) Header() []string {
	return []string{"CALL", "STREAM", "STATUS", "CONNECTED", "DISCONNECTED", "DURATION"}
}

func (l callList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, c := range l {
		dur := "-"
		if c.Duration != 0 {
			dur = cli.FormatDuration(c.Duration.Duration())
		}
		rows = append(rows, []string{
			c.CallID,
			c.StreamID,
			string(c.Status),
			cli.FormatTime(c.ConnectedAt.Time()),
			cli.FormatTime(c.DisconnectedAt.Time()),
			dur,
		})
	}
	return rows
}
