package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go-gin-timeclock/internal/app"
	"go-gin-timeclock/internal/core/config"
	"go-gin-timeclock/internal/core/server"
	"go-gin-timeclock/internal/transport/http/handler"
	"go-gin-timeclock/internal/transport/http/router"
)

func main() {
	promote := flag.String("promote", "", "grant the admin role to the user with this email and exit")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup:", err)
		os.Exit(1)
	}
	defer a.Close()
	log := a.Log

	if *promote != "" {
		u, err := a.Users.Promote(context.Background(), *promote)
		if err != nil {
			log.Error("promote failed", zap.String("email", *promote), zap.Error(err))
			return
		}
		log.Info("user promoted", zap.Uint("user_id", u.ID), zap.String("email", u.Email))
		return
	}

	reg := router.NewRegistry(handler.NewAdminHandler(a.Users, a.Ledger))
	r := router.NewAdminEngine(router.Options{
		Log:    log,
		JWT:    a.JWT,
		Limits: cfg.Limits,
		Server: server.Options{Name: cfg.App.Name + "-admin", Mode: cfg.GinMode()},
	}, reg)

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second)

	host4human := cfg.App.Admin.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	go func() {
		if err := server.StartHTTP(srv, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("admin api stopped gracefully")
}
