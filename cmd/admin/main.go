// Command main is a small CLI for inspecting and administering a Confide
// deployment: list users and rooms, grant credits, and verify that the
// projection tables agree with the journal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"

	"confide/internal/bootstrap"
	"confide/internal/config"
	"confide/internal/observability"
	"confide/internal/repository"
	"confide/internal/store"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// Logs go to stderr so stdout stays valid JSON.
	observability.Configure(cfg.Env, cfg.LogLevel, os.Stderr)

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	err = newRootCommand(ctx, rt).Execute()
	if cerr := rt.Close(); cerr != nil {
		log.Printf("error closing runtime: %v", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand(ctx context.Context, rt *bootstrap.Runtime) *cobra.Command {
	root := &cobra.Command{
		Use:          "confide-admin",
		Short:        "Administer a Confide store",
		SilenceUsage: true,
	}

	var cmdUsers = &cobra.Command{
		Use:   "users",
		Short: "Show users",
		Long:  `users prints every account, including credits and presence.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, rt.Store.ListUsers())
		},
	}
	var cmdRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show rooms",
		Long:  `rooms prints every chat room, super secret rooms included.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, rt.Store.Snapshot().Rooms)
		},
	}
	var cmdGrant = &cobra.Command{
		Use:   "grant [user id] [amount]",
		Short: "Grant credits",
		Long:  `grant adds credits to a user's balance without charging anything.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			balance, err := rt.Store.GrantCredits(ctx, args[0], amount)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"user_id": args[0], "credits": balance})
		},
	}
	var cmdVerify = &cobra.Command{
		Use:   "verify",
		Short: "Verify the projection",
		Long:  `verify replays the journal into a fresh store and compares it with the projection tables.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := verify(ctx, rt.Journal, rt.Projection)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, rep); err != nil {
				return err
			}
			if !rep.OK {
				return fmt.Errorf("projection does not match the journal")
			}
			return nil
		},
	}

	root.AddCommand(cmdUsers, cmdRooms, cmdGrant, cmdVerify)
	return root
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

type verifyReport struct {
	JournalVersion    uint64           `json:"journal_version"`
	ProjectionVersion uint64           `json:"projection_version"`
	Stale             bool             `json:"stale"`
	Expected          map[string]int64 `json:"expected"`
	Projected         map[string]int64 `json:"projected"`
	Mismatched        []string         `json:"mismatched,omitempty"`
	OK                bool             `json:"ok"`
}

// verify rebuilds the store from the journal and compares its entity counts
// with the projected tables. A projection behind the journal is reported as
// stale, not as a mismatch.
func verify(ctx context.Context, journal repository.JournalRepository, projection repository.ProjectionRepository) (*verifyReport, error) {
	cmds, err := journal.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	replica := store.New(store.Options{})
	if err := replica.Replay(ctx, cmds); err != nil {
		return nil, fmt.Errorf("replay journal: %w", err)
	}
	snap := replica.Snapshot()

	comments := 0
	for _, c := range snap.Confessions {
		comments += len(c.Comments)
	}
	rep := &verifyReport{
		JournalVersion: snap.Version,
		Expected: map[string]int64{
			"users":               int64(len(snap.Users)),
			"messages":            int64(len(snap.Messages)),
			"chat_rooms":          int64(len(snap.Rooms)),
			"confessions":         int64(len(snap.Confessions)),
			"confession_comments": int64(comments),
			"friend_requests":     int64(len(snap.FriendRequests)),
			"notifications":       int64(len(snap.Notifications)),
			"referral_links":      int64(len(snap.ReferralLinks)),
		},
	}

	cp, err := projection.Checkpoint(ctx)
	if err != nil {
		return nil, err
	}
	if cp != nil {
		rep.ProjectionVersion = cp.Version
	}
	rep.Stale = rep.ProjectionVersion != rep.JournalVersion

	if rep.Projected, err = projection.Counts(ctx); err != nil {
		return nil, err
	}
	if !rep.Stale {
		for table, want := range rep.Expected {
			if rep.Projected[table] != want {
				rep.Mismatched = append(rep.Mismatched, table)
			}
		}
		sort.Strings(rep.Mismatched)
	}
	rep.OK = !rep.Stale && len(rep.Mismatched) == 0
	return rep, nil
}
