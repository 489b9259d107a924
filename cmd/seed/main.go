// Command main runs the demo data seeder for Confide.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"confide/internal/bootstrap"
	"confide/internal/config"
	"confide/internal/observability"
	"confide/internal/seed"
	"confide/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numRooms := flag.Int("rooms", defaults.NumRooms, "Number of chat rooms to create")
	numConfessions := flag.Int("confessions", defaults.NumConfessions, "Number of confessions to create")
	numMessages := flag.Int("messages", defaults.NumMessages, "Number of room messages to send")
	seedValue := flag.Int64("seed", 0, "Random seed; 0 picks one")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.Configure(cfg.Env, cfg.LogLevel, os.Stdout)

	ctx := context.Background()
	// Seeding talks to the store directly, so no bus subscribers need Redis.
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	if rt.Replayed > 0 {
		log.Printf("Journal already holds %d commands; seeding on top of existing data", rt.Replayed)
	}
	log.Printf("Target: %d users, %d rooms, %d confessions, %d messages",
		*numUsers, *numRooms, *numConfessions, *numMessages)

	sum, err := seed.NewSeeder(rt.Store, seed.Options{
		NumUsers:       *numUsers,
		NumRooms:       *numRooms,
		NumConfessions: *numConfessions,
		NumMessages:    *numMessages,
		Seed:           *seedValue,
	}).Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	if _, err := service.NewProjector(rt.Store, rt.Projection, cfg.ProjectionSchedule).Flush(ctx); err != nil {
		log.Fatalf("Projection flush failed: %v", err)
	}

	log.Printf("Seeded %d users, %d rooms, %d confessions", sum.Users, sum.Rooms, sum.Confessions)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
