package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"overlaybox/src/singleinstance"
)

type stressOptions struct {
	n        int
	command  string
	deadline time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-delegate",
		Short:         "Stress test command delegation against a running instance",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts)
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.command, "command", "show", "show|screenshot|ocr: command each client sends")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func commandForName(name string) (singleinstance.Command, error) {
	switch name {
	case "show":
		return singleinstance.CmdShowWidget, nil
	case "screenshot":
		return singleinstance.CmdScreenshot, nil
	case "ocr":
		return singleinstance.CmdOCR, nil
	}
	return "", fmt.Errorf("unknown command %q", name)
}

func runWithOptions(opts stressOptions) error {
	command, err := commandForName(opts.command)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var okCount int32
	var missCount int32
	var errCount int32

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, err := singleinstance.NewClient().TryDelegate(ctx, command)
			switch {
			case err != nil:
				atomic.AddInt32(&errCount, 1)
			case delegated:
				atomic.AddInt32(&okCount, 1)
			default:
				atomic.AddInt32(&missCount, 1)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	fmt.Fprintf(os.Stdout, "launched=%d ok=%d no_resident=%d err=%d elapsed=%s\n", opts.n, okCount, missCount, errCount, elapsed)
	return nil
}
