package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"nfxcode/internal/finder"
	"nfxcode/internal/segments"
)

func newFindCmd(verbose *bool) *cobra.Command {
	var (
		lang   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "find <email-address>",
		Short: "Find the latest Netflix verification email for an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := newLogger(*verbose)
			f, err := buildFinder(cfg, logger)
			if err != nil {
				return err
			}

			result, err := f.Find(cmd.Context(), address, lang)
			if err != nil {
				if errors.Is(err, finder.ErrNotFound) {
					return errors.New(finder.FriendlyMessage(err))
				}
				return fmt.Errorf("%s (%w)", finder.FriendlyMessage(err), err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Translate display text to this language code")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")

	return cmd
}

func printResult(w io.Writer, r *finder.Result) {
	fmt.Fprintf(w, "Subject:  %s\n", r.Subject)
	fmt.Fprintf(w, "From:     %s\n", r.From)
	fmt.Fprintf(w, "Received: %s\n", r.ReceivedAt.Format(time.RFC3339))
	if r.AccessCode != "" {
		fmt.Fprintf(w, "Code:     %s\n", r.AccessCode)
	}
	fmt.Fprintln(w)

	for _, seg := range r.ContentSegments {
		switch seg.Type {
		case segments.TypeLink:
			fmt.Fprintf(w, "[%s] %s\n", seg.Label, seg.URL)
		case segments.TypeText:
			fmt.Fprintf(w, "%s\n", seg.Value)
		}
	}
}
