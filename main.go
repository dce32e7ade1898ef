package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"attblink/internal/config"
	"attblink/internal/database"
	"attblink/internal/handlers"
	logger "attblink/internal/logging"
	"attblink/internal/models"
	"attblink/internal/repository"
	"attblink/internal/router"
	"attblink/internal/services"
	"attblink/internal/timeutil"
	"attblink/internal/trial"
	"attblink/internal/views"

	"github.com/gdamore/tcell/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	root := flag.String("root", ".", "project root holding config/ and logs/")
	serve := flag.Bool("serve", false, "serve the results viewer while the session runs")
	flag.Parse()

	conf, err := config.Load(*root)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.Init(*root, conf.Logging)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	conf.Watch(log)

	err = run(*root, conf, *serve, log)
	_ = log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(root string, conf *config.Config, serve bool, log *zap.Logger) error {
	participant, err := models.LoadParticipant(inRoot(root, conf.Participant.File))
	if err != nil {
		log.Error("Failed to load participant", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var db *gorm.DB
	if conf.Database.Enabled {
		db, err = database.Init(conf.Database, log)
		if err != nil {
			log.Error("Failed to open database", zap.Error(err))
			return err
		}
		defer database.Close(db)
	}
	var csvPath string
	if conf.Output.CSVPath != "" {
		csvPath = inRoot(root, conf.Output.CSVPath)
	}
	stores := repository.NewStores(csvPath, db)

	if serve || conf.Server.Enabled {
		gin.SetMode(gin.ReleaseMode)
		viewer := router.Setup(log, handlers.NewResultsHandler(log, stores.Reader(), stores.SessionLister()))
		go func() {
			if err := router.Serve(ctx, ":"+conf.Server.Port, viewer, log); err != nil {
				log.Error("Results viewer stopped", zap.Error(err))
			}
		}()
	}

	seed := conf.Experiment.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	log.Info("Experiment configured",
		zap.String("config", conf.File()),
		zap.Uint64("seed", seed),
		zap.Int("streams", conf.Experiment.Streams),
		zap.Int("trials", conf.TotalTrials()),
	)
	engine, err := trial.NewEngine(conf.TrialConfig(), rand.New(rand.NewPCG(seed, seed>>1|1)))
	if err != nil {
		log.Error("Invalid experiment settings", zap.Error(err))
		return err
	}

	var sound *views.Sound
	if conf.Display.Sound {
		if sound, err = views.NewSound(); err != nil {
			log.Warn("Audio unavailable, continuing without feedback tones", zap.Error(err))
		} else {
			defer sound.Close()
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	term, err := views.NewTerminal(screen, conf.Experiment.Radius, sound, log)
	if err != nil {
		return err
	}
	defer term.Close()
	term.Listen(cancel)

	runner := services.NewRunner(log, engine, term, term.Keys(), timeutil.RealClock{},
		stores.Trials, stores.Sessions(), *participant,
		services.Options{
			Trials:         conf.Experiment.TrialMax,
			PracticeTrials: conf.PracticeTrials(),
			Interval:       conf.Interval(),
			Fixation:       conf.Timing.Fixation(),
			ResponseDelay:  conf.Timing.ResponseDelay(),
			FeedbackDelay:  conf.Timing.FeedbackDelay(),
			InterTrial:     conf.Timing.InterTrial(),
		})

	session, err := runner.Run(ctx)
	if errors.Is(err, services.ErrCancelled) {
		log.Info("Session interrupted", zap.String("session", session.ID), zap.Int("stored", session.CompletedTrials))
		return nil
	}
	if err != nil {
		log.Error("Session failed", zap.String("session", session.ID), zap.Error(err))
		return err
	}

	select {
	case <-term.Keys():
	case <-ctx.Done():
	}
	return nil
}

func inRoot(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
