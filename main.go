package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/ajaxtable/go_ajaxtable/activity"
	"github.com/ajaxtable/go_ajaxtable/ajaxtable"
	"github.com/ajaxtable/go_ajaxtable/api"
	"github.com/ajaxtable/go_ajaxtable/config"
	"github.com/ajaxtable/go_ajaxtable/database"
	"github.com/ajaxtable/go_ajaxtable/logger"
	"github.com/ajaxtable/go_ajaxtable/scheduler"
	"github.com/recoilme/pudge"

	"github.com/DeanThompson/ginpprof"
	"github.com/gin-gonic/gin"
	ginlog "github.com/toorop/gin-logrus"
)

// @title go_ajaxtable API

func main() {
	debug.SetGCPercent(20)

	pudb, _ := config.OpenConfig("config.db")
	config.ConfigDB = pudb
	pudge.BackupAll("")
	os.Mkdir("./backup", 0777)

	cfg, f, errcfg := config.LoadCfg(config.Configfile)
	config.CacheConfig(cfg)
	cfgGeneral := config.ConfigGetGeneral()

	if cfgGeneral.WebPort == "" {
		fmt.Println("Checked for general - config is missing", cfgGeneral)
		os.Exit(0)
	}
	if errcfg == nil && cfgGeneral.EnableFileWatcher {
		config.Watch(f, config.Configfile)
	}

	logger.InitLogger(logger.LoggerConfig{
		LogLevel:     cfgGeneral.LogLevel,
		LogFileSize:  cfgGeneral.LogFileSize,
		LogFileCount: cfgGeneral.LogFileCount,
		LogCompress:  cfgGeneral.LogCompress,
	})
	logger.Log.Infoln("Starting go_ajaxtable")
	logger.Log.Infoln("------------------------------")

	logger.Log.Infoln("Initialize Database")
	database.InitDb(cfgGeneral.DBLogLevel)

	logger.Log.Infoln("Check Database for Upgrades")
	database.UpgradeDB()

	logger.Log.Infoln("Remove Old DB Backups")
	database.RemoveOldDbBackups(cfgGeneral.MaxDatabaseBackups)

	if cfgGeneral.AjaxTableCache {
		store, errstore := ajaxtable.NewPudgeStore("./databases/resultcache.db")
		if errstore != nil {
			logger.Log.Error("Result cache open failed, using memory store: ", errstore)
			api.ResultStore = ajaxtable.NewMemoryStore()
		} else {
			api.ResultStore = store
		}
	} else {
		api.ResultStore = ajaxtable.NewMemoryStore()
	}

	logger.Log.Infoln("Starting Scheduler")
	scheduler.InitScheduler()

	logger.Log.Infoln("Starting API")
	router := gin.New()
	if !strings.EqualFold(cfgGeneral.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Log.Infoln("Starting API Logger")
	router.Use(ginlog.Logger(logger.Log), gin.Recovery(), activity.Middleware())

	logger.Log.Infoln("Starting API Endpoints")
	routerapi := router.Group("/api")
	api.AddGeneralRoutes(routerapi)

	routertable := routerapi.Group("/table")
	api.AddTableRoutes(routertable)

	if strings.EqualFold(cfgGeneral.LogLevel, "Debug") {
		ginpprof.Wrap(router)
	}

	logger.Log.Infoln("Starting API Webserver on port", cfgGeneral.WebPort)
	server := &http.Server{
		Addr:    ":" + cfgGeneral.WebPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			config.ConfigDB.Close()
			database.DB.Close()
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("receive interrupt signal")

	scheduler.StopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	database.DB.Close()
	config.ConfigDB.Close()

	if err := pudge.CloseAll(); err != nil {
		log.Fatal("Database Shutdown:", err)
	}

	log.Println("Server exiting")
}
