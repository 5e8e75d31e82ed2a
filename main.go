package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	config "atomagent/app/configs"
	"atomagent/app/core/collaborators/calendar"
	"atomagent/app/core/collaborators/email"
	"atomagent/app/core/collaborators/llm"
	"atomagent/app/core/collaborators/notion"
	"atomagent/app/core/collaborators/pocket"
	httpchannel "atomagent/app/core/interaction/http"
	"atomagent/app/core/orchestrator/skills"
	"atomagent/app/core/orchestrator/skills/builtins"
	"atomagent/app/core/scheduler"
	"atomagent/app/core/skills/learning"
	"atomagent/app/core/skills/productivity"
	"atomagent/app/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	if err := logger.Init("output/logs"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Atom Agent Starting...")

	cfgManager, err := config.NewManager(config.DefaultPath())
	if err != nil {
		logger.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()
	secrets := config.LoadSecrets()

	collaboratorTimeout := time.Duration(cfg.Skills.CollaboratorTimeoutSec) * time.Second

	calendarClient := calendar.NewClient(calendar.Options{
		BaseURL: cfg.Collaborators.CalendarBaseURL,
		Timeout: collaboratorTimeout,
	})
	notionClient := notion.NewClient(notion.Options{
		BaseURL: cfg.Collaborators.NotionBaseURL,
		Timeout: collaboratorTimeout,
	})
	emailClient := email.NewClient(email.Options{
		BaseURL: cfg.Collaborators.EmailBaseURL,
		Timeout: collaboratorTimeout,
	})
	pocketClient := pocket.NewClient(pocket.Options{
		BaseURL:     cfg.Collaborators.PocketBaseURL,
		ConsumerKey: secrets.PocketConsumerKey,
		AccessToken: secrets.PocketAccessToken,
		Timeout:     collaboratorTimeout,
	})
	analyzer := llm.NewAnalyzer(secrets.OpenAIAPIKey, cfg.Collaborators.OpenAIModel)
	if secrets.OpenAIAPIKey == "" {
		logger.Info("OPENAI_API_KEY not set, LLM-backed skills will be degraded")
	}

	assistant := productivity.NewAssistant(calendarClient, notionClient, emailClient, analyzer, cfg.Skills)
	planner := learning.NewPlanner(pocketClient, analyzer, notionClient, cfg.Collaborators)

	skillMgr := skills.NewManager()
	skillMgr.Register(builtins.NewWeeklyDigestSkill(assistant))
	skillMgr.Register(builtins.NewMeetingPrepSkill(assistant))
	skillMgr.Register(builtins.NewFollowUpSkill(assistant))
	skillMgr.Register(builtins.NewLearningPlanSkill(planner))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobScheduler := scheduler.New()
	if cfg.Schedule.DigestEnabled {
		if cfg.Schedule.DigestUserID == "" {
			logger.Error("Digest schedule enabled but digest_user_id is empty, skipping job registration")
		} else {
			err := jobScheduler.Register(scheduler.JobSpec{
				Name:    "weekly-digest",
				Cron:    cfg.Schedule.DigestCron,
				Timeout: 2 * time.Minute,
				Run: func(jobCtx context.Context) error {
					result := assistant.HandleGenerateWeeklyDigest(jobCtx, cfg.Schedule.DigestUserID, cfg.Schedule.DigestTimePeriod)
					if result.Data != nil && result.Data.Digest.ErrorMessage != "" {
						logger.Info("[Scheduler] Digest completed with degraded sections: %s", result.Data.Digest.ErrorMessage)
					}
					return nil
				},
			})
			if err != nil {
				logger.Error("Failed to register digest job: %v", err)
				os.Exit(1)
			}
		}
	}
	if err := jobScheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := jobScheduler.Stop(3 * time.Second); err != nil {
			logger.Error("Scheduler shutdown timeout: %v", err)
		}
	}()

	httpChannel := httpchannel.NewHTTPChannel(cfg.HTTP.Port, skillMgr)
	httpChannel.SetStatusProvider(func(context.Context) map[string]interface{} {
		jobs := jobScheduler.Snapshot()
		return map[string]interface{}{
			"scheduled_jobs": jobs,
			"llm_configured": secrets.OpenAIAPIKey != "",
		}
	})

	go func() {
		if err := httpChannel.Start(ctx); err != nil {
			logger.Error("HTTP channel crashed: %v", err)
			os.Exit(1)
		}
	}()

	logger.Info("Atom Agent is ready to serve.")
	fmt.Printf("- Skill API:  http://localhost:%d/api/skills (GET)\n", cfg.HTTP.Port)
	fmt.Printf("- Digest:     http://localhost:%d/api/digest (POST)\n", cfg.HTTP.Port)
	fmt.Printf("- Health:     http://localhost:%d/health\n", cfg.HTTP.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received signal: %v. Atom Agent Shutting Down...", sig)
	cancel()
}
