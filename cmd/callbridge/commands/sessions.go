package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/callbridge/pkg/acceptor"
	"github.com/haivivi/callbridge/pkg/cli"
)

var sessionsServer string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List live calls on a running server",
	Long: `List the calls a running 'callbridge serve' is bridging.

Example:
  callbridge sessions --server http://localhost:8080 -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		views, err := fetchSessions(cmd, sessionsServer)
		if err != nil {
			return err
		}
		return printResult(cmd, sessionList(views), cli.FormatTable)
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsServer, "server", "http://localhost:8080", "server base URL")
	rootCmd.AddCommand(sessionsCmd)
}

func fetchSessions(cmd *cobra.Command, server string) ([]acceptor.SessionView, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimSuffix(server, "/")+"/sessions", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list sessions: %s", resp.Status)
	}
	var views []acceptor.SessionView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		return nil, fmt.Errorf("list sessions: decode: %w", err)
	}
	return views, nil
}

type sessionList []acceptor.SessionView

func (l sessionList) Header() []string {
	return []string{"SESSION", "CALL", "AGENT", "STATE", "AGE", "IN", "OUT", "DROPPED"}
}

func (l sessionList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{
			s.ID,
			s.CallID,
			s.AgentID,
			s.State,
			cli.FormatDuration(s.Age.Duration()),
			cli.FormatBytes(s.Stats.InboundBytes),
			cli.FormatBytes(s.Stats.OutboundBytes),
			fmt.Sprint(s.Stats.Dropped),
		})
	}
	return rows
}
