package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/clienthunter/leadwatch/internal/api"
	"github.com/clienthunter/leadwatch/internal/config"
	"github.com/clienthunter/leadwatch/internal/digest"
	"github.com/clienthunter/leadwatch/internal/leads"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/clienthunter/leadwatch/internal/notifications"
	"github.com/clienthunter/leadwatch/internal/settings"
	"github.com/clienthunter/leadwatch/internal/storage"
	"github.com/clienthunter/leadwatch/internal/templates"
	"github.com/joho/godotenv"
)

func main() {
	sample := flag.Bool("sample", false, "render built-in sample leads instead of calling the API")
	outDir := flag.String("out", "preview_output", "directory for the JSON snapshot")
	flag.Parse()

	fmt.Println("🤖 Leadwatch - Digest Preview")
	fmt.Println("=============================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := storage.NewLocalStorage(*outDir)
	if err != nil {
		log.Fatalf("Failed to prepare %s: %v", *outDir, err)
	}
	archive := storage.NewArchive(store, 0)
	terminal := &notifications.Terminal{Out: os.Stdout}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *sample {
		service := digest.NewService(cfg, digest.Sources{}, archive, terminal)
		now := time.Now().In(cfg.Location())
		clients, tpls := sampleData(now)

		fmt.Printf("\n📊 Generating digest with %d sample leads...\n", len(clients))
		report := service.GenerateReport(clients, tpls, now.Add(-24*time.Hour), now)

		name, err := archive.Save(ctx, report)
		if err != nil {
			log.Fatalf("Failed to save snapshot: %v", err)
		}
		if err := terminal.SendReport(ctx, report); err != nil {
			log.Fatalf("Failed to render digest: %v", err)
		}
		fmt.Printf("\n💾 Snapshot saved to %s/%s\n", *outDir, name)
		return
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	service := digest.NewService(cfg, digest.Sources{
		Leads:     leads.NewRepository(client, nil),
		Templates: templates.NewRepository(client, nil, cfg.RequireAIInstruction),
		Settings:  settings.NewRepository(client, nil),
	}, archive, terminal)

	fmt.Printf("\n📡 Building digest from %s...\n", cfg.APIBaseURL)
	report, err := service.RunDigest(ctx)
	if err != nil {
		fmt.Printf("❌ Error building digest: %s\n", api.UserMessage(err))
		os.Exit(1)
	}

	fmt.Printf("\n✅ Digest preview completed with %d new leads (snapshot in %s)\n", report.TotalNewLeads(), *outDir)
}

func sampleData(now time.Time) ([]models.PotentialClient, []models.ProductTemplate) {
	tpls := []models.ProductTemplate{
		{ID: 1, Name: "CRM for small teams", Keywords: []string{"crm", "sales pipeline"}, MonitoredChats: []string{"@startup_chat", "@saas_founders"}, IsActive: true},
		{ID: 2, Name: "Website development", Keywords: []string{"landing page", "website"}, MonitoredChats: []string{"@freelance_ru"}, IsActive: true},
		{ID: 3, Name: "Accounting outsourcing", Keywords: []string{"accountant"}, MonitoredChats: []string{"@smb_owners"}, IsActive: false},
	}

	lead := func(id, tpl int, user, text string, keywords []string, conf int, chat string, age time.Duration, status models.ClientStatus) models.PotentialClient {
		return models.PotentialClient{
			ID:                id,
			TelegramUserID:    fmt.Sprintf("10%04d", id),
			Username:          models.String(user),
			MessageText:       text,
			MatchedTemplateID: tpl,
			MatchedKeywords:   keywords,
			AIConfidence:      &conf,
			ChatID:            chat,
			MessageID:         int64(4000 + id),
			Status:            status,
			CreatedAt:         now.Add(-age),
		}
	}

	clients := []models.PotentialClient{
		lead(1, 1, "olga_sales", "We are five people and drowning in spreadsheets. Which CRM should we try?", []string{"crm"}, 9, "@startup_chat", 2*time.Hour, models.StatusNew),
		lead(2, 1, "dmitry_k", "Looking for a simple sales pipeline tool, budget is tight", []string{"sales pipeline"}, 7, "@saas_founders", 5*time.Hour, models.StatusNew),
		lead(3, 2, "anna_shop", "Need a landing page for a bakery by next week", []string{"landing page"}, 8, "@freelance_ru", 9*time.Hour, models.StatusNew),
		lead(4, 2, "ivan_dev", "Who can build a website for a dental clinic?", []string{"website"}, 6, "@freelance_ru", 30*time.Hour, models.StatusContacted),
		lead(5, 1, "maria_b", "Switched to a new CRM last month, happy to share notes", []string{"crm"}, 3, "@startup_chat", 3*24*time.Hour, models.StatusIgnored),
		lead(6, 3, "pavel_smb", "Any recommendations for an accountant for an LLC?", []string{"accountant"}, 8, "@smb_owners", 12*time.Hour, models.StatusNew),
		lead(7, 1, "sergey_co", "Ready to buy a CRM licence this week, send offers", []string{"crm"}, 10, "@saas_founders", 5*24*time.Hour, models.StatusConverted),
	}
	return clients, tpls
}
