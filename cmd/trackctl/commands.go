package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	appclient "github.com/xiebiao/shiptrack/internal/application/client"
	"github.com/xiebiao/shiptrack/internal/domain/client"
	"github.com/xiebiao/shiptrack/pkg/mq"
)

// =========================================
// derive
// =========================================

func newDeriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive <company name>",
		Short: "Print the base prefix derived from a company name",
		Long:  `Derives the base prefix offline. Availability is not checked; use "check" for that.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			fmt.Fprintln(cmd.OutOrStdout(), client.DeriveBasePrefix(name))
			return nil
		},
	}
}

// =========================================
// check
// =========================================

func newCheckCmd(c *cli) *cobra.Command {
	var excludeID uint

	cmd := &cobra.Command{
		Use:   "check <prefix>",
		Short: "Validate a prefix and check it is not in use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			// 格式不合法时不需要连库
			v := client.ValidatePrefixFormat(args[0])
			if !v.Valid {
				fmt.Fprintf(out, "%s\tinvalid\t%s\n", v.Prefix, v.Error)
				return fmt.Errorf("invalid prefix %q", args[0])
			}

			return c.withRepo(cmd.Context(), func(e *env, repo client.Repository) error {
				result, err := appclient.NewPrefixQueryUseCase(allocatorFor(e, repo)).Check(cmd.Context(), v.Prefix, excludeID)
				if err != nil {
					return err
				}
				if !result.Available {
					fmt.Fprintf(out, "%s\ttaken\t%s\n", result.Prefix, result.Error)
					return fmt.Errorf("prefix %s is not available", result.Prefix)
				}
				fmt.Fprintf(out, "%s\tavailable\n", result.Prefix)
				return nil
			})
		},
	}
	cmd.Flags().UintVar(&excludeID, "exclude-id", 0, "ignore this client id (editing an existing client)")
	return cmd
}

// =========================================
// next-code
// =========================================

func newNextCodeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "next-code <client-id>",
		Short: "Issue the next tracking code for a client",
		Long:  `Consumes the next sequence number of the client. Issued codes are never reused.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid client id %q", args[0])
			}

			return c.withRepo(cmd.Context(), func(e *env, repo client.Repository) error {
				uc := appclient.NewIssueTrackingCodeUseCase(allocatorFor(e, repo), e.log)
				resp, err := uc.Execute(cmd.Context(), uint(id))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.TrackingCode)
				return nil
			})
		},
	}
}

// =========================================
// backfill-prefixes
// =========================================

func newBackfillCmd(c *cli) *cobra.Command {
	var (
		limit  int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "backfill-prefixes",
		Short: "Assign prefixes to clients that have none",
		Long: `Allocates a unique prefix for every client without one, in id order.
With --dry-run nothing is written and clients with similar names may preview the same prefix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRepo(cmd.Context(), func(e *env, repo client.Repository) error {
				uc := appclient.NewBackfillPrefixesUseCase(repo, allocatorFor(e, repo),
					appclient.Settings{PrefixRetryAttempts: e.cfg.Tracking.PrefixRetryAttempts}, e.log)

				result, err := uc.Execute(cmd.Context(), appclient.BackfillRequest{Limit: limit, DryRun: dryRun})
				if result != nil {
					printBackfill(cmd.OutOrStdout(), result)
				}
				if err != nil {
					return err
				}
				if len(result.Failed) > 0 {
					return fmt.Errorf("%d client(s) could not be assigned a prefix", len(result.Failed))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of clients to process (0 = all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview allocations without writing")
	return cmd
}

func printBackfill(w io.Writer, r *appclient.BackfillResult) {
	for _, item := range r.Assigned {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", item.ClientID, item.Prefix, item.Phase, item.Name)
	}
	for _, item := range r.Failed {
		fmt.Fprintf(w, "%d\tERROR\t%s\t%s\n", item.ClientID, item.Error, item.Name)
	}

	mode := "assigned"
	if r.DryRun {
		mode = "would assign"
	}
	fmt.Fprintf(w, "%s %d, failed %d\n", mode, len(r.Assigned), len(r.Failed))
}

// =========================================
// tail-events
// =========================================

func newTailEventsCmd(c *cli) *cobra.Command {
	var (
		queue       string
		routingKeys []string
	)

	cmd := &cobra.Command{
		Use:   "tail-events",
		Short: "Print shipment events from the message broker until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.env()
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()

			consumer, err := mq.NewConsumer(e.cfg.MQ.URL, e.cfg.MQ.Exchange, queue, routingKeys, e.log)
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return consumer.Consume(ctx, printEvent(cmd.OutOrStdout()))
		},
	}
	cmd.Flags().StringVar(&queue, "queue", "", "durable queue name (default: temporary exclusive queue)")
	cmd.Flags().StringSliceVar(&routingKeys, "routing-key", []string{"shipment.#"}, "binding keys")
	return cmd
}

// printEvent 每个事件输出一行JSON
func printEvent(w io.Writer) func(mq.Event) error {
	enc := json.NewEncoder(w)
	return func(evt mq.Event) error {
		return enc.Encode(evt)
	}
}
