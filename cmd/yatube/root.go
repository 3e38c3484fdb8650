package main

import (
	"context"
	"fmt"

	"github.com/UkralStul/yatube-api/internal/admin"
	"github.com/UkralStul/yatube-api/internal/config"
	"github.com/UkralStul/yatube-api/internal/logging"
	"github.com/UkralStul/yatube-api/internal/storage"
	"github.com/UkralStul/yatube-api/internal/storage/gormdb"
	"github.com/UkralStul/yatube-api/internal/storage/inmemory"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app - общее состояние команд: настройки, логгер и открытое хранилище.
type app struct {
	configPath string

	cfg   *config.Config
	log   *logrus.Logger
	store storage.Storage
	close func() error
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "yatube",
		Short:        "Управление данными yatube: схема, пользователи, админка",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./config.yaml)")

	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newUserCmd(a),
		newAdminCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log

	log.WithField("driver", cfg.Storage.Driver).Debug("opening storage")
	opts := gormdb.Options{
		MaxConns: cfg.Storage.MaxConns,
		Logger:   logging.Gorm(log, cfg.Log.SQL),
	}

	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		store, err := gormdb.OpenPostgres(ctx, cfg.Storage.DSN, opts)
		if err != nil {
			return err
		}
		a.store, a.close = store, store.Close
	case config.DriverSQLite:
		store, err := gormdb.OpenSQLite(cfg.Storage.DSN, opts)
		if err != nil {
			return err
		}
		a.store, a.close = store, store.Close
	default:
		// Данные в памяти живут один запуск, поэтому сразу заполняем их демо-данными
		a.store = inmemory.New()
		if err := seed(ctx, a.store, log); err != nil {
			return fmt.Errorf("seed in-memory storage: %w", err)
		}
	}
	return nil
}

func (a *app) shutdown() error {
	if a.close == nil {
		return nil
	}
	err := a.close()
	a.close = nil
	return err
}

func (a *app) site() (*admin.Site, error) {
	return admin.Default(a.store,
		admin.WithLogger(a.log),
		admin.WithEmptyValueDisplay(a.cfg.Admin.EmptyValueDisplay),
	)
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Создать или обновить схему базы данных",
		Args:  cobra.NoArgs,
		// Схема мигрирует при открытии хранилища
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.log.WithField("driver", a.cfg.Storage.Driver).Info("schema is up to date")
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Заполнить хранилище демо-данными",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return seed(cmd.Context(), a.store, a.log)
		},
	}
}
