package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"overlaybox/src/config"
	"overlaybox/src/singleinstance"
)

const delegateTimeout = 3 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		showWidget bool
		screenshot bool
		extract    bool
	)

	cmd := &cobra.Command{
		Use:           "overlaybox",
		Short:         "Floating capture widget with clipboard history and region OCR",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			command, ok := commandFromFlags(showWidget, screenshot, extract)
			if ok {
				// Load .env first so the port range overrides apply to
				// the delegation scan.
				_, _ = config.Load()

				ctx, cancel := context.WithTimeout(cmd.Context(), delegateTimeout)
				defer cancel()

				delegated, err := singleinstance.NewClient().TryDelegate(ctx, command)
				if err != nil {
					return fmt.Errorf("failed to delegate to running instance: %w", err)
				}
				if delegated {
					return nil
				}
				if command != singleinstance.CmdShowWidget {
					return fmt.Errorf("no running instance found to handle the request")
				}
				// --show with no resident starts one.
			}
			return runResident()
		},
	}

	cmd.Flags().BoolVar(&showWidget, "show", false, "Show the floating widget, starting the app if needed")
	cmd.Flags().BoolVar(&screenshot, "screenshot", false, "Ask the running instance to capture a region screenshot")
	cmd.Flags().BoolVar(&extract, "ocr", false, "Ask the running instance to extract text from a region")

	return cmd
}

// commandFromFlags maps the delegation flags to a single-instance command.
// Capture flags win over --show so a combined invocation does something
// useful instead of erroring.
func commandFromFlags(show, screenshot, extract bool) (singleinstance.Command, bool) {
	switch {
	case extract:
		return singleinstance.CmdOCR, true
	case screenshot:
		return singleinstance.CmdScreenshot, true
	case show:
		return singleinstance.CmdShowWidget, true
	}
	return "", false
}
