package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var askSessionID string

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Send one question to the master agent",
	Long: `Sends a question through the gateway and prints the reply. Without --session a
fresh session is created and its id printed so follow-ups can reuse it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := log.Logger.WithContext(cmd.Context())
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		sessionID := strings.TrimSpace(askSessionID)
		if sessionID == "" {
			st, err := a.gw.CreateSession(ctx)
			if err != nil {
				return err
			}
			sessionID = st.SessionID
		}

		resp, err := a.gw.SubmitQuery(ctx, strings.Join(args, " "), sessionID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "session: %s\n", sessionID)
		if resp.Category != "" {
			fmt.Fprintf(out, "category: %s\n", resp.Category)
		}
		fmt.Fprintln(out, resp.Text)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askSessionID, "session", "s", "", "existing session id")
}
