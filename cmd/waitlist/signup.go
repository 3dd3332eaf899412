package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"waitlist-gateway/waitlist/analytics"
	"waitlist-gateway/waitlist/form"
	"waitlist-gateway/waitlist/toast"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	keyAPIURL        = "api_url"
	keyAnalytics     = "analytics_consent"
	pageNameTerminal = "waitlist_terminal"
)

var signupCmd = &cobra.Command{
	Use:   "signup [email]",
	Short: "Inscreve um e-mail pela API, como o formulário do site",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agree, _ := cmd.Flags().GetBool("agree")
		email := ""
		if len(args) == 1 {
			email = args[0]
		} else {
			var err error
			email, err = promptEmail(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
		}
		out := runSignup(cmd.Context(), signupParams{
			apiURL:  viper.GetString(keyAPIURL),
			consent: analytics.ParseConsent(viper.GetString(keyAnalytics)),
			email:   email,
			agree:   agree,
			out:     cmd.OutOrStdout(),
			log:     consoleLogger(viper.GetString(keyLogLevel), cmd.ErrOrStderr()),
		})
		if out != form.OutcomeSuccess {
			return fmt.Errorf("signup %s", out)
		}
		return nil
	},
}

func init() {
	f := signupCmd.Flags()
	f.String("url", "http://localhost:8080", "waitlist API base URL")
	f.Bool("agree", true, "agree to receive emails")
	f.String("analytics", "", "analytics consent: accepted or rejected")
	_ = viper.BindPFlag(keyAPIURL, f.Lookup("url"))
	_ = viper.BindPFlag(keyAnalytics, f.Lookup("analytics"))
	rootCmd.AddCommand(signupCmd)
}

type signupParams struct {
	apiURL  string
	consent analytics.Consent
	email   string
	agree   bool
	out     io.Writer
	log     zerolog.Logger
}

// runSignup roda o Controller uma vez e imprime os toasts conforme aparecem.
func runSignup(ctx context.Context, p signupParams) form.Outcome {
	toasts := toast.NewList()
	toasts.OnChange(toast.Printer(p.out))

	events := analytics.Events{T: analytics.Gated{
		Consent: analytics.NewMemoryConsent(p.consent),
		Next:    analytics.LogTracker{Log: p.log},
	}}
	events.PageView(pageNameTerminal)

	c := form.NewController(form.NewAPIClient(p.apiURL, nil),
		form.WithToasts(toasts),
		form.WithEvents(events),
		form.WithLogger(p.log),
	)
	out := c.Submit(ctx, p.email, p.agree)
	toasts.Clear()
	return out
}

func promptEmail(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Email: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read email: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func consoleLogger(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(parseLevel(level)).With().Timestamp().Logger()
}
