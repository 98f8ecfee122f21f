// Package cli implements the gemget command.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	gemini "github.com/makeworld-the-better-one/go-gemini"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Execute runs gemget with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the gemget command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gemget [flags] URL",
		Short: "Fetch a page over the Gemini protocol",
		Long: `gemget fetches a single Gemini URL and writes the body to stdout.

The URL may omit the gemini:// scheme. With --base it is resolved relative
to that page, the way a link would be. Failures are reported as a plain text
description on stdout and a non-zero exit status.

Set SSLKEYLOGFILE to log TLS secrets for inspection with Wireshark.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGet,
	}

	rootCmd.Flags().String("base", "", "Page the URL is relative to")
	rootCmd.Flags().Duration("timeout", 15*time.Second, "Connection timeout")
	rootCmd.Flags().String("cert-policy", gemini.AcceptAny.String(), "Server certificate checks (any, hostname, chain)")
	rootCmd.Flags().Int("max-redirects", 0, "Number of redirects to follow (0-5)")
	rootCmd.Flags().Float64("rps", 0, "Maximum requests per second (0 = unlimited)")
	rootCmd.Flags().Int("burst", 1, "Rate limiter burst size")
	rootCmd.Flags().BoolP("verbose", "v", false, "Log each step to stderr")
	rootCmd.Flags().BoolP("show-header", "i", false, "Print the status and content type to stderr")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gemget %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	return rootCmd
}

func runGet(cmd *cobra.Command, args []string) error {
	client, closeFn, err := clientFromFlags(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	base, _ := cmd.Flags().GetString("base")
	showHeader, _ := cmd.Flags().GetBool("show-header")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	out := client.Request(ctx, base, args[0])

	if showHeader {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n%d %s\n", out.URL, out.Header.Status, out.ContentType)
	}
	if _, err := io.WriteString(cmd.OutOrStdout(), out.Body); err != nil {
		return fmt.Errorf("writing body: %w", err)
	}
	if out.Err != nil {
		return fmt.Errorf("%s: %w", out.URL, out.Err)
	}
	return nil
}

// clientFromFlags builds the client; the returned func releases the key log
// file, if any.
func clientFromFlags(cmd *cobra.Command) (*gemini.Client, func(), error) {
	flags := cmd.Flags()
	timeout, _ := flags.GetDuration("timeout")
	policyName, _ := flags.GetString("cert-policy")
	maxRedirects, _ := flags.GetInt("max-redirects")
	rps, _ := flags.GetFloat64("rps")
	burst, _ := flags.GetInt("burst")
	verbose, _ := flags.GetBool("verbose")

	policy, err := gemini.ParseCertPolicy(policyName)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	client := &gemini.Client{
		Timeout:           timeout,
		CertPolicy:        policy,
		MaxRedirects:      maxRedirects,
		RequestsPerSecond: rps,
		Burst:             burst,
		Logger:            slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})),
	}
	if err := client.Validate(); err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	if keylogfile := os.Getenv("SSLKEYLOGFILE"); keylogfile != "" {
		w, err := os.OpenFile(keylogfile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("opening SSLKEYLOGFILE: %w", err)
		}
		client.KeyLogWriter = w
		closeFn = func() { w.Close() }
	}

	return client, closeFn, nil
}
