// Command notifyctl is the Kindred Notify operational CLI.
//
// Usage:
//
//	notifyctl devotional sync --user u_123
//	notifyctl devotional cancel --user u_123
//	notifyctl event schedule --user u_123 --id ev_42
//	notifyctl event cancel --user u_123 --id ev_42
//	notifyctl send --user u_123 --kind prayer_update --title "Someone prayed for you"
//	notifyctl dispatch once
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kindredapp/kindred-notify/internal/config"
	"github.com/kindredapp/kindred-notify/internal/db"
	"github.com/kindredapp/kindred-notify/internal/notify"
	"github.com/kindredapp/kindred-notify/internal/prefs"
	"github.com/kindredapp/kindred-notify/internal/push"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "notifyctl",
		Short: "Kindred Notify operational CLI",
	}

	root.AddCommand(devotionalCmd())
	root.AddCommand(eventCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(dispatchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// run connects a pool and hands it to fn with a background context.
func run(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

// --------------------------------------------------------------------------
// devotional command
// --------------------------------------------------------------------------

func devotionalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devotional",
		Short: "Manage devotional reminders",
	}
	cmd.AddCommand(devotionalSyncCmd())
	cmd.AddCommand(devotionalCancelCmd())
	return cmd
}

func devotionalSyncCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Re-apply a user's preferences to their pending reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				sched := notify.NewScheduler(notify.NewPgService(pool.Pool), logger)
				store := prefs.NewStore(pool.Pool)
				reactor := prefs.NewReactor(pool.Pool, store, sched, logger)
				reactor.Apply(ctx, userID)
				logger.Info("Preferences applied", "user_id", userID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.MarkFlagRequired("user")
	return cmd
}

func devotionalCancelCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a user's devotional reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				sched := notify.NewScheduler(notify.NewPgService(pool.Pool), logger)
				sched.CancelDevotionalReminders(ctx, userID)
				logger.Info("Devotional reminders cancelled", "user_id", userID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.MarkFlagRequired("user")
	return cmd
}

// --------------------------------------------------------------------------
// event command
// --------------------------------------------------------------------------

func eventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage event reminders",
	}
	cmd.AddCommand(eventScheduleCmd())
	cmd.AddCommand(eventCancelCmd())
	return cmd
}

func eventScheduleCmd() *cobra.Command {
	var userID, eventID string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Replace the reminder set for an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				var id, title string
				var startsAt time.Time
				err := pool.QueryRow(ctx, "event_by_id", eventID).Scan(&id, &title, &startsAt)
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("event %s not found", eventID)
				}
				if err != nil {
					return fmt.Errorf("look up event: %w", err)
				}

				sched := notify.NewScheduler(notify.NewPgService(pool.Pool), logger)
				sched.ScheduleEventReminders(ctx, userID, eventID, title, startsAt)
				logger.Info("Event reminders scheduled",
					"user_id", userID, "event_id", eventID, "starts_at", startsAt)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&eventID, "id", "", "Event id")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("id")
	return cmd
}

func eventCancelCmd() *cobra.Command {
	var userID, eventID string
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel every reminder for an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				sched := notify.NewScheduler(notify.NewPgService(pool.Pool), logger)
				sched.CancelEventReminders(ctx, userID, eventID)
				logger.Info("Event reminders cancelled", "user_id", userID, "event_id", eventID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&eventID, "id", "", "Event id")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("id")
	return cmd
}

// --------------------------------------------------------------------------
// send command
// --------------------------------------------------------------------------

func sendCmd() *cobra.Command {
	var userID, kind, title, body, relatedID string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Fire an immediate notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				sched := notify.NewScheduler(notify.NewPgService(pool.Pool), logger)
				sched.SendImmediate(ctx, userID, notify.Kind(kind), title, body, relatedID)
				logger.Info("Immediate notification queued", "user_id", userID, "kind", kind)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&kind, "kind", string(notify.KindPrayerUpdate), "Notification kind")
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&body, "body", "", "Body")
	cmd.Flags().StringVar(&relatedID, "related", "", "Related entity id")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("title")
	return cmd
}

// --------------------------------------------------------------------------
// dispatch command
// --------------------------------------------------------------------------

func dispatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Run delivery manually",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "once",
		Short: "Claim and deliver one batch of due notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				sender := push.NewSender(cfg.FCMCredentialsFile, logger)
				tokens := push.NewTokenStore(pool.Pool)
				sent, failed, err := notify.DispatchBatch(ctx, pool.Pool, sender, tokens, logger)
				if err != nil {
					return err
				}
				logger.Info("Dispatch batch complete", "sent", sent, "failed", failed)
				return nil
			})
		},
	})
	return cmd
}
