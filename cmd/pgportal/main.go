package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/nhle/pgportal/internal/app"
	"github.com/nhle/pgportal/internal/channel"
	"github.com/nhle/pgportal/internal/credential"
	"github.com/nhle/pgportal/internal/logging"
	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/internal/notify"
	"github.com/nhle/pgportal/internal/portal"
	"github.com/nhle/pgportal/internal/session"
	"github.com/nhle/pgportal/internal/store"
	appsync "github.com/nhle/pgportal/internal/sync"
	"github.com/nhle/pgportal/internal/validate"
)

func main() {
	var cfgPath string
	var initConfig bool
	flag.StringVar(&cfgPath, "config", model.DefaultConfigPath(), "path to config yaml")
	flag.BoolVar(&initConfig, "init-config", false, "write the default config to -config and exit")
	flag.Parse()

	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}

	if initConfig {
		if err := model.SaveConfig(cfgPath, model.DefaultAppConfig()); err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		fmt.Println("wrote", cfgPath)
		return
	}

	if err := run(cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	log, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if err := os.MkdirAll(model.ConfigDir(), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var vault credential.Vault
	vault, err = credential.OpenKeyring(model.ConfigDir())
	if err != nil {
		log.Warn().Err(err).Msg("keyring unavailable, session will not survive restarts")
		vault = credential.NewMemoryVault()
	}

	cache, err := store.NewSQLiteStore(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer cache.Close()

	client := portal.NewClient(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSec)*time.Second, log)

	sess := session.NewStore(vault, session.Options{
		Expiry:        cfg.Session.Expiry(),
		RestorePolicy: cfg.Session.RestorePolicy,
		TrustWindow:   cfg.Session.TrustWindow(),
		PersistEvery:  time.Duration(cfg.Session.ActivityPersistSec) * time.Second,
		Validator:     client,
		Cache:         cache,
	}, log)

	scheduler, err := session.NewScheduler(sess, cfg.Session.CheckInterval(), log)
	if err != nil {
		return err
	}

	transport := channel.NewPusherTransport(cfg.Realtime.URL, cfg.Realtime.AuthPath, client, log)
	adapter := channel.NewAdapter(transport, channel.Config{
		Prefix:      cfg.Realtime.ChannelPrefix,
		SharedTopic: cfg.Realtime.SharedTopic,
		Event:       cfg.Realtime.Event,
	}, log)

	refresher := appsync.New(client, cache, sess, appsync.Options{
		Interval: time.Duration(cfg.Display.PollIntervalSec) * time.Second,
		Live:     adapter.Connected,
	}, log)

	root := app.New(app.Deps{
		Config:    cfg,
		Session:   sess,
		Portal:    client,
		Refresher: refresher,
		Channel:   adapter,
		Registry:  notify.NewRegistry(cfg.Alerts.MaxVisible, time.Duration(cfg.Alerts.TTLSec)*time.Second),
		Displayed: notify.NewDisplayed(vault),
		Feed:      notify.NewFeed(client),
		Validator: validate.New(),
		Log:       log,
	})

	restore(sess)
	scheduler.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		scheduler.Stop(ctx)
	}()

	p := tea.NewProgram(root, tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}

	refresher.Stop()
	adapter.Disconnect()
	log.Info().Msg("exiting")
	return nil
}

// restore resumes a persisted session. The root model is already
// subscribed, so a resumed session opens straight on its dashboard.
func restore(sess *session.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sess.Restore(ctx, time.Now())
}
