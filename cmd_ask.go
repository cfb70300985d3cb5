package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"chatwidget/chat"
	"chatwidget/models"
)

var askCredential string

var askCmd = &cobra.Command{
	Use:   "ask [text...]",
	Short: "Send one message and print the exchange",
	Long: `Sends the arguments as a single user message through the same pipeline
the widget uses and prints the turns it produced. The key comes from
--credential or the OPENAI_API_KEY environment variable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askCredential, "credential", "", "API key (default: $OPENAI_API_KEY)")
}

var (
	userLabel      = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	assistantLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
)

func runAsk(cmd *cobra.Command, args []string) error {
	cred := askCredential
	if cred == "" {
		cred = os.Getenv("OPENAI_API_KEY")
	}

	p, err := newPipelines(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	sessionID := uuid.NewString()
	ex, ok := p.dispatcher.Send(context.Background(), sessionID, chat.NewTranscript(), strings.Join(args, " "), cred)
	if !ok {
		return errors.New("nothing to send")
	}
	printTurns(cmd.OutOrStdout(), ex.Turns)
	return nil
}

// printTurns writes one labelled block per turn
func printTurns(w io.Writer, turns []models.Turn) {
	for _, turn := range turns {
		label := assistantLabel.Render("assistant")
		if turn.Sender == models.SenderUser {
			label = userLabel.Render("you")
		}
		fmt.Fprintf(w, "%s: %s\n", label, turn.Text)
	}
}
