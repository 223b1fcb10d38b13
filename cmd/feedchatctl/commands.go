package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/feedchat/feedchat/internal/chat"
	"github.com/feedchat/feedchat/internal/config"
	"github.com/feedchat/feedchat/internal/outbox"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		feedURL  string
		username string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(cmd)
			if _, err := config.Load(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg := config.Default()
			cfg.FeedURL = feedURL
			cfg.Username = username
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&feedURL, "feed-url", "", "feed server base URL (required)")
	cmd.Flags().StringVar(&username, "username", "", "name to send as (required)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	_ = cmd.MarkFlagRequired("feed-url")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Poll the feed once and backfill missing images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				before := e.engine.Len()
				if err := e.engine.Poll(ctx); err != nil {
					return err
				}
				if err := e.engine.RefillImages(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d new messages (%d total)\n", e.engine.Len()-before, e.engine.Len())
				return nil
			})
		},
	}
}

func newMessagesCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "List stored messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				msgs := e.engine.Messages()
				if limit > 0 && len(msgs) > limit {
					msgs = msgs[len(msgs)-limit:]
				}
				printMessages(cmd, msgs)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show only the last n messages (0 for all)")
	return cmd
}

func printMessages(cmd *cobra.Command, msgs []chat.Message) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFROM\tTO\tMESSAGE")
	for i := range msgs {
		m := &msgs[i]
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.ID, m.Sender, m.Recipient, m.Preview())
	}
	_ = w.Flush()
}

func newSendCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Send a text message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				err := e.dispatcher.SendText(ctx, strings.Join(args, " "), e.cfg.Username, recipient(e, to))
				return report(cmd, err)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient (default from config)")
	return cmd
}

func newSendImageCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "send-image <path>",
		Short: "Send a picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				err := e.dispatcher.SendImage(ctx, args[0], e.cfg.Username, recipient(e, to))
				return report(cmd, err)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient (default from config)")
	return cmd
}

func recipient(e *env, flag string) string {
	if flag != "" {
		return flag
	}
	return e.cfg.Recipient
}

// report turns a dispatcher outcome into command output. A queued send is
// not a failure of the command.
func report(cmd *cobra.Command, err error) error {
	switch {
	case err == nil:
		fmt.Fprintln(cmd.OutOrStdout(), "Sent")
		return nil
	case errors.Is(err, outbox.ErrQueued):
		fmt.Fprintln(cmd.OutOrStdout(), "Feed unreachable; queued for retry")
		return nil
	default:
		return err
	}
}

func newFailedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failed",
		Short: "Failed-send queue commands",
	}
	cmd.AddCommand(newFailedListCmd())
	cmd.AddCommand(newFailedFlushCmd())
	return cmd
}

func newFailedListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sends waiting for retry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				records, err := e.db.ListFailed()
				if err != nil {
					return err
				}
				printFailed(cmd, records)
				return nil
			})
		},
	}
}

func printFailed(cmd *cobra.Command, records []chat.FailedSend) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFROM\tTO\tKIND\tCONTENT")
	for _, r := range records {
		kind, content := "text", r.Text
		if r.IsImage() {
			kind, content = "image", r.ImagePath
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Sender, r.Recipient, kind, content)
	}
	_ = w.Flush()
}

func newFailedFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Replay every queued send once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, func(ctx context.Context, e *env) error {
				n, err := e.dispatcher.FlushFailed(ctx)
				if err != nil {
					return err
				}
				left, err := e.db.ListFailed()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d, %d queued again\n", n, len(left))
				return nil
			})
		},
	}
}
