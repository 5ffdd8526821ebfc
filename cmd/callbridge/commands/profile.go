package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haivivi/callbridge/pkg/cli"
	"github.com/haivivi/callbridge/pkg/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage agent profiles",
	Long: `Manage the agent profiles calls are bridged with.

Profiles live in the storage configured under 'profiles' (local directory
or S3 bucket), one YAML document per agent:

  id: support
  name: Support line
  provider: openai
  instructions: You are a friendly support agent. Keep answers short.
  voice: verse
  temperature: 0.8`,
}

var flagProfileFile string

var profilePutCmd = &cobra.Command{
	Use:   "put",
	Short: "Create or replace a profile from a YAML/JSON file (- for stdin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagProfileFile == "" {
			return fmt.Errorf("--file is required")
		}
		var p profile.Profile
		if err := cli.LoadRequest(flagProfileFile, &p); err != nil {
			return err
		}
		store, err := openProfiles()
		if err != nil {
			return err
		}
		if err := store.Put(cmd.Context(), &p); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "profile %s saved", p.ID)
		return nil
	},
}

var profileGetCmd = &cobra.Command{
	Use:   "get <agent-id>",
	Short: "Show a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openProfiles()
		if err != nil {
			return err
		}
		p, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(cmd, p, cli.FormatYAML)
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openProfiles()
		if err != nil {
			return err
		}
		ps, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd, profileList(ps), cli.FormatTable)
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <agent-id>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openProfiles()
		if err != nil {
			return err
		}
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "profile %s deleted", args[0])
		return nil
	},
}

func init() {
	profilePutCmd.Flags().StringVarP(&flagProfileFile, "file", "f", "", "profile file (YAML or JSON, - for stdin)")

	profileCmd.AddCommand(profilePutCmd, profileGetCmd, profileListCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}

func openProfiles() (profile.Manager, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	store, err := cfg.OpenProfiles()
	if err != nil {
		return nil, err
	}
	return store, nil
}

type profileList []*profile.Profile

func (l profileList) Header() []string {
	return []string{"ID", "NAME", "PROVIDER", "VOICE", "TEMPERATURE"}
}

func (l profileList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, p := range l {
		temp := "-"
		if p.Temperature != nil {
			temp = strconv.FormatFloat(*p.Temperature, 'g', -1, 64)
		}
		voice := p.Voice
		if voice == "" {
			voice = "(default)"
		}
		rows = append(rows, []string{p.ID, p.Name, p.Provider, voice, temp})
	}
	return rows
}
