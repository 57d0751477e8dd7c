package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/sparkpath-gateway/agent/contract"
)

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				MarginBottom(1)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	bodyStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			MarginBottom(1)
)

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print the recorded exchanges of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := log.Logger.WithContext(cmd.Context())
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		st, err := a.gw.LoadSession(ctx, args[0])
		if err != nil {
			return err
		}
		renderHistory(cmd.OutOrStdout(), st)
		return nil
	},
}

func renderHistory(w io.Writer, st contractx.SessionState) {
	fmt.Fprintln(w, sessionHeaderStyle.Render("Session "+st.SessionID))
	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("created %s, %d exchanges", st.CreatedAt.Format("2006-01-02 15:04:05"), len(st.Exchanges))))

	for _, ex := range st.Exchanges {
		fmt.Fprintln(w, userStyle.Render(fmt.Sprintf("#%d you", ex.Seq))+" "+metaStyle.Render(ex.Query.SubmittedAt.Format("15:04:05")))
		fmt.Fprintln(w, bodyStyle.Render(ex.Query.Text))

		who := "agent"
		if ex.Response.Category != "" {
			who = "agent (" + string(ex.Response.Category) + ")"
		}
		fmt.Fprintln(w, agentStyle.Render(who))
		fmt.Fprintln(w, bodyStyle.Render(ex.Response.Text))
	}
}
