package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"multi-timer/internal/bot"
	"multi-timer/internal/config"
	"multi-timer/internal/repository"
	"multi-timer/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	blobRepo := repository.NewBlobRepository(db)
	subscriberRepo := repository.NewSubscriberRepository(db)

	persister := service.NewPersister(blobRepo)
	persister.Start()
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := persister.Close(flushCtx); err != nil {
			log.Printf("flush: %v", err)
		}
	}()

	registry := service.NewRegistry(persister)
	timerSvc := service.NewTimerService(registry, persister)
	reportSvc := service.NewReportService(registry, cfg.Location)

	scheduler := service.NewSchedulerService(cfg.Location)
	clock := service.NewClock(registry, scheduler, service.ClockConfig{
		TickInterval: time.Second,
		Stamp:        service.StampFormatter(cfg.TimestampLayout, cfg.Location),
	})
	registry.Subscribe(clock.Observe)

	telegramBot, err := bot.New(cfg.TelegramToken, subscriberRepo, timerSvc, reportSvc)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}
	registry.Subscribe(telegramBot.HandleEvent)

	timerSvc.Reload(ctx)

	if cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ReportInterval, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := telegramBot.SendDigests(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("digest: %v", err)
			}
		}); err != nil {
			log.Fatalf("schedule digests: %v", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()
	defer clock.Stop()

	log.Println("Multi-timer bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
