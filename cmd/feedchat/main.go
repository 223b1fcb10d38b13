package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/feedchat/feedchat/internal/app"
	"github.com/feedchat/feedchat/internal/bus"
	"github.com/feedchat/feedchat/internal/config"
	"github.com/feedchat/feedchat/internal/outbox"
	"github.com/feedchat/feedchat/internal/profile"
	intsync "github.com/feedchat/feedchat/internal/sync"
	"github.com/feedchat/feedchat/internal/tui"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	configFlag := flag.String("config", "", "path to config file (default ~/.feedchat/config.toml)")
	flag.Parse()

	if err := run(*profileFlag, *configFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(profileFlag, configFlag string) error {
	path := configFlag
	if path == "" {
		path = profile.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w (run feedchatctl config init)", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	name := profile.Resolve(profileFlag, cfg)
	if err := profile.ValidateName(name); err != nil {
		return err
	}

	var (
		engine     *intsync.Engine
		dispatcher *outbox.Dispatcher
		b          *bus.Bus
	)
	fxApp := fx.New(
		app.Module(app.Params{Profile: name, Program: "feedchat", Config: cfg, Background: true, Quiet: true}),
		fx.Populate(&engine, &dispatcher, &b),
		fx.NopLogger,
	)
	if err := fxApp.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return err
	}

	ui := tui.NewApp(engine, dispatcher, b, tui.Identity{Profile: name, Username: cfg.Username, Recipient: cfg.Recipient})
	runErr := ui.Run()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStop()
	if err := fxApp.Stop(stopCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
