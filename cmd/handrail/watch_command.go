package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/handrail/handrail/service/dispatch"
	"github.com/handrail/handrail/service/envelope"
	"github.com/handrail/handrail/service/event"
	"github.com/handrail/handrail/service/pending"
)

// watch runs the engine interactively: raw event bodies arrive on stdin (one
// JSON document per line) and every pending-set change and decision outcome is
// echoed as it happens. Useful for piping an SSE or websocket client into the
// engine without writing a transport adapter.
func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the engine, feeding frames from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.ensureEngine(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			event.SetListenerOf[pending.Change](engine.Events(), func(e *event.Event[pending.Change]) {
				change := e.Data
				switch change.Kind {
				case pending.ChangeUpserted:
					fmt.Fprintf(out, "+ %s pending (%s)\n", change.Key, change.Item.Risk)
				case pending.ChangeRemoved:
					fmt.Fprintf(out, "- %s resolved\n", change.Key)
				case pending.ChangeHydrated:
					fmt.Fprintln(out, "set hydrated")
				}
			})
			event.SetListenerOf[dispatch.Outcome](engine.Events(), func(e *event.Event[dispatch.Outcome]) {
				outcome := e.Data
				status := "ok"
				if !outcome.Succeeded {
					status = "failed: " + outcome.Error
				}
				fmt.Fprintf(out, "* %s %s %s\n", outcome.Verb, outcome.Key, status)
			})

			engine.Start(cmd.Context())
			defer engine.Shutdown()

			go func() {
				scanner := bufio.NewScanner(os.Stdin)
				scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					if line == "" {
						continue
					}
					frame := envelope.NewFrame("", line)
					if err := engine.FrameQueue().Publish(cmd.Context(), &frame); err != nil {
						return
					}
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(stop)
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-stop:
				return nil
			}
		},
	}
}
