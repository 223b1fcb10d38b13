package main

import (
	"context"
	"fmt"
	"time"

	"github.com/feedchat/feedchat/internal/app"
	"github.com/feedchat/feedchat/internal/config"
	"github.com/feedchat/feedchat/internal/outbox"
	"github.com/feedchat/feedchat/internal/profile"
	"github.com/feedchat/feedchat/internal/store"
	intsync "github.com/feedchat/feedchat/internal/sync"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// env is what a one-shot command works with.
type env struct {
	cfg        *config.Config
	profile    string
	db         *store.DB
	engine     *intsync.Engine
	dispatcher *outbox.Dispatcher
}

func configPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p
	}
	return profile.ConfigPath()
}

func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, err := config.LoadOrDefault(configPath(cmd))
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("config %s: %w", configPath(cmd), err)
	}
	flagProfile, _ := cmd.Flags().GetString("profile")
	name := profile.Resolve(flagProfile, cfg)
	if err := profile.ValidateName(name); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

// withEnv starts the engine for the resolved profile without background
// loops, runs fn, and shuts everything down again.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	cfg, name, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	e := &env{cfg: cfg, profile: name}
	fxApp := fx.New(
		app.Module(app.Params{Profile: name, Program: "feedchatctl", Config: cfg, Quiet: true}),
		fx.Populate(&e.db, &e.engine, &e.dispatcher),
		fx.NopLogger,
	)
	if err := fxApp.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	if err := fxApp.Start(ctx); err != nil {
		return err
	}
	runErr := fn(ctx, e)
	if err := fxApp.Stop(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
