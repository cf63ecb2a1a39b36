// Package app wires config, logging, storage and services for the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"go-gin-timeclock/internal/core/auth"
	"go-gin-timeclock/internal/core/cache"
	"go-gin-timeclock/internal/core/config"
	"go-gin-timeclock/internal/core/database"
	"go-gin-timeclock/internal/core/logger"
	"go-gin-timeclock/internal/feature/timeclock"
	"go-gin-timeclock/internal/feature/user"
	"go-gin-timeclock/internal/repo"
	"go-gin-timeclock/pkg/utils"
)

// App holds everything both binaries share. Close releases it in reverse order.
type App struct {
	Cfg    *config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Cache  *cache.Cache
	JWT    *auth.JWTer
	Users  *user.Service
	Ledger *timeclock.Ledger

	syncLog    func()
	restoreStd func()
}

func NewLogger(cfg *config.Config) (*zap.Logger, func()) {
	if cfg.Log.File.Enable {
		return logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate{
			Filename:   cfg.Log.File.Filename,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		})
	}
	return logger.New(cfg.Log.Level, cfg.Log.JSON)
}

func OpenDB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	gl, err := logger.ToStdLogger(l.Named("gorm"), zapcore.WarnLevel)
	if err != nil {
		return nil, err
	}
	return database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Writer:             gl,
	})
}

// New follows the startup order: logger, store, migrations, cache, services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	l, syncLog := NewLogger(cfg)
	a := &App{Cfg: cfg, Log: l, syncLog: syncLog}
	a.restoreStd = logger.RedirectStdLog(l.Named("stdlog"), zapcore.InfoLevel)

	db, err := OpenDB(cfg, l)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.DB = db
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := repo.AutoMigrate(db); err != nil {
			a.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	if cfg.Redis.Enabled() {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := c.Ping(pctx); err != nil {
			// the cache is optional; run without it
			l.Warn("redis unavailable, profile cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = c.Close()
		} else {
			a.Cache = c
			l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	a.JWT = &auth.JWTer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, TTL: cfg.JWT.TTL()}

	users := repo.NewUserRepo(db)
	a.Users = user.NewService(user.Deps{
		Users:      users,
		Hasher:     utils.BcryptHasher{},
		Tokens:     a.JWT,
		Cache:      a.Cache,
		ProfileTTL: time.Duration(cfg.Redis.ProfileTTLSec) * time.Second,
		Log:        l.Named("user"),
	})
	a.Ledger = timeclock.NewLedger(repo.NewTimeEntryRepo(db), users, l.Named("timeclock"),
		timeclock.WithMaxPageSize(cfg.Limits.MaxPageSize))
	return a, nil
}

func (a *App) Close() {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.DB != nil {
		errs = append(errs, database.Close(a.DB))
	}
	if err := errors.Join(errs...); err != nil {
		a.Log.Warn("shutdown", zap.Error(err))
	}
	if a.restoreStd != nil {
		a.restoreStd()
	}
	if a.syncLog != nil {
		a.syncLog()
	}
}
