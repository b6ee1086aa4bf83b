package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"hunnydu/internal/api"
	"hunnydu/internal/auth"
	"hunnydu/internal/bot"
	"hunnydu/internal/config"
	"hunnydu/internal/logging"
	"hunnydu/internal/notify"
	"hunnydu/internal/repository"
	"hunnydu/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogDir, !cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatalw("db", "error", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	dispatcher := notify.NewDispatcher(logger, 256, notify.LogSink(logger))

	familySvc := service.NewFamilyService(familyRepo, userRepo)
	taskSvc := service.NewTaskService(taskRepo, userRepo, dispatcher, logger)
	reminderSvc := service.NewReminderService(taskRepo)

	scheduler := service.NewSchedulerService(time.Local, logger)
	if cfg.TelegramToken != "" {
		telegramBot, err := bot.New(cfg.TelegramToken, familySvc, taskSvc, reminderSvc, logger)
		if err != nil {
			logger.Fatalw("bot", "error", err)
		}
		dispatcher.AddSink(telegramBot)

		plan := service.DigestPlan{At: cfg.DigestAt, Interval: cfg.DigestInterval()}
		if plan.Enabled() {
			if _, err := scheduler.ScheduleDigest(ctx, plan, telegramBot.SendDigests); err != nil {
				logger.Fatalw("schedule digest", "error", err)
			}
		}

		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorw("bot stopped with error", "error", err)
			}
		}()
	} else {
		logger.Info("TELEGRAM_TOKEN not set, completion notices are only logged")
	}

	// Not tied to ctx: Close drains the queue after shutdown.
	dispatcher.Start(context.Background())
	defer dispatcher.Close()

	if scheduler.Entries() > 0 {
		scheduler.Start()
		defer scheduler.Stop()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Tasks:         taskSvc,
		Families:      familySvc,
		Issuer:        auth.NewIssuer(cfg.JWTSecret, 24*time.Hour),
		InternalToken: cfg.InternalAuthToken,
		Log:           logger,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}
	go func() {
		logger.Infow("server started", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("listen", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server shutdown", "error", err)
	}
	logger.Info("shutdown complete")
}
