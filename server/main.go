package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"attblink/internal/config"
	"attblink/internal/database"
	"attblink/internal/handlers"
	logger "attblink/internal/logging"
	"attblink/internal/repository"
	"attblink/internal/router"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// The results viewer on its own, for looking at stored sessions without running one.
func main() {
	root := flag.String("root", "..", "project root holding config/ and logs/")
	flag.Parse()

	conf, err := config.Load(*root)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	conf.Logging.Console = true

	log, err := logger.Init(*root, conf.Logging)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	var db *gorm.DB
	if conf.Database.Enabled {
		if db, err = database.Init(conf.Database, log); err != nil {
			log.Fatal("Failed to open database", zap.Error(err))
		}
		defer database.Close(db)
	}
	csvPath := conf.Output.CSVPath
	if csvPath != "" && !filepath.IsAbs(csvPath) {
		csvPath = filepath.Join(*root, csvPath)
	}
	stores := repository.NewStores(csvPath, db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)
	r := router.Setup(log, handlers.NewResultsHandler(log, stores.Reader(), stores.SessionLister()))
	if err := router.Serve(ctx, ":"+conf.Server.Port, r, log); err != nil {
		log.Fatal("Failed to run results viewer", zap.Error(err))
	}
}
