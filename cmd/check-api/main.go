package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/clienthunter/leadwatch/internal/api"
	"github.com/clienthunter/leadwatch/internal/config"
	"github.com/clienthunter/leadwatch/internal/groups"
	"github.com/clienthunter/leadwatch/internal/leads"
	"github.com/clienthunter/leadwatch/internal/settings"
	"github.com/clienthunter/leadwatch/internal/templates"
	"github.com/joho/godotenv"
)

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func main() {
	fmt.Println("🔍 Leadwatch - API Connectivity Check")
	fmt.Println("=====================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	templateRepo := templates.NewRepository(client, nil, cfg.RequireAIInstruction)
	leadRepo := leads.NewRepository(client, nil)
	settingsRepo := settings.NewRepository(client, nil)
	directory := groups.NewDirectory(client)

	checks := []check{
		{"Product templates", func(ctx context.Context) (string, error) {
			list, err := templateRepo.List(ctx)
			return fmt.Sprintf("%d templates", len(list)), err
		}},
		{"Potential clients", func(ctx context.Context) (string, error) {
			list, err := leadRepo.List(ctx, leads.Filter{Limit: 10})
			return fmt.Sprintf("%d leads in first page", len(list)), err
		}},
		{"Monitoring settings", func(ctx context.Context) (string, error) {
			s, err := settingsRepo.Get(ctx)
			return fmt.Sprintf("active=%t, %d recipients", s.IsActive, len(s.NotificationAccount)), err
		}},
		{"Monitoring stats", func(ctx context.Context) (string, error) {
			s, err := settingsRepo.Stats(ctx)
			return fmt.Sprintf("%d clients total", s.TotalClients), err
		}},
		{"Telegram groups", func(ctx context.Context) (string, error) {
			list, err := directory.ListGroups(ctx)
			return fmt.Sprintf("%d groups", len(list)), err
		}},
	}

	fmt.Printf("\n📡 Checking %s...\n", cfg.APIBaseURL)
	fmt.Println(strings.Repeat("-", 40))

	failed := 0
	for _, c := range checks {
		if !runCheck(c) {
			failed++
		}
	}

	if failed > 0 {
		fmt.Printf("\n❌ %d of %d checks failed\n", failed, len(checks))
		os.Exit(1)
	}
	fmt.Println("\n✅ API connectivity check completed!")
}

func runCheck(c check) bool {
	fmt.Printf("🔸 %s... ", c.name)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	detail, err := c.run(ctx)
	if err != nil {
		fmt.Printf("❌ ERROR: %s\n", api.UserMessage(err))
		return false
	}
	fmt.Printf("✅ OK (%s, %v)\n", detail, time.Since(start).Round(time.Millisecond))
	return true
}
