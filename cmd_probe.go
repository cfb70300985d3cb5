package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"chatwidget/credential"
	"chatwidget/models"
	"chatwidget/providers"
)

var probeCredential string

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Validate an API key against the models endpoint",
	Long: `Runs the same validation the settings panel runs on every change of the
key field and prints the resulting status dot. The key is read from --credential
or, when that is empty, from the first line of standard input.`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeCredential, "credential", "", "API key to validate")
}

var (
	dotValid   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	dotInvalid = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dotUnknown = lipgloss.NewStyle().Faint(true)
)

// renderIndicator draws the status dot for a terminal
func renderIndicator(ind credential.Indicator) string {
	var dot string
	switch ind.Status {
	case models.StatusValid:
		dot = dotValid.Render("●")
	case models.StatusInvalid:
		dot = dotInvalid.Render("●")
	default:
		dot = dotUnknown.Render("○")
	}
	apply := "apply disabled"
	if ind.ApplyEnabled {
		apply = "apply enabled"
	}
	return fmt.Sprintf("%s %s (%s)", dot, ind.Status, apply)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cred := probeCredential
	if cred == "" {
		line, err := readLine(cmd.InOrStdin())
		if err != nil {
			return err
		}
		cred = line
	}

	provider, err := providers.New(cfg.Endpoint(), nil)
	if err != nil {
		return err
	}
	watcher := credential.NewWatcher(credential.NewValidator(provider, logger), nil)

	res := watcher.OnChange(context.Background(), credential.NewTracker(), cred)
	fmt.Fprintln(cmd.OutOrStdout(), renderIndicator(res.Indicator))

	if res.Indicator.Status == models.StatusInvalid {
		return errors.New("credential rejected")
	}
	return nil
}

// readLine reads one line, without its terminator
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
