package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatgate/obo-identity/expiry"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect delegated access tokens",
	}
	tokenCmd.AddCommand(newTokenInspectCmd(opts, time.Now))
	return tokenCmd
}

type inspectOutput struct {
	Status    string `json:"status"`
	Expiry    string `json:"expiry,omitempty"`
	Remaining string `json:"remaining,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newTokenInspectCmd(opts *rootOptions, now func() time.Time) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <jwt>",
		Short: "Show a token's expiry without verifying its signature",
		Long: `Decode a JWT's exp claim and report whether it is still valid.

The signature is not verified. Exit status is non-zero for undecodable tokens.

Examples:
  obo-gateway token inspect eyJhbGciOi...
  obo-gateway token inspect eyJhbGciOi... -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := expiry.New(expiry.WithClock(now)).Check(args[0])

			out := inspectOutput{Status: result.Status.String()}
			if result.Err != nil {
				out.Error = result.Err.Error()
			} else {
				out.Expiry = result.Expiry.Format(time.RFC3339)
				out.Remaining = result.Remaining.Round(time.Second).String()
			}

			w := cmd.OutOrStdout()
			switch opts.outputFormat {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return err
				}
			default:
				fmt.Fprintf(w, "status:    %s\n", out.Status)
				if out.Error != "" {
					fmt.Fprintf(w, "error:     %s\n", out.Error)
				} else {
					fmt.Fprintf(w, "expiry:    %s\n", out.Expiry)
					fmt.Fprintf(w, "remaining: %s\n", out.Remaining)
				}
			}

			if result.Err != nil {
				return fmt.Errorf("token is undecodable: %w", result.Err)
			}
			return nil
		},
	}
}
