package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/asandoval/breeze/internal/config"
	"github.com/asandoval/breeze/internal/db"
	"github.com/asandoval/breeze/internal/feed"
	"github.com/asandoval/breeze/internal/gmail"
	"github.com/asandoval/breeze/internal/overlay"
	"github.com/asandoval/breeze/internal/pending"
	"github.com/asandoval/breeze/internal/services"
	"github.com/asandoval/breeze/internal/tui"
	"github.com/asandoval/breeze/internal/version"
	"github.com/asandoval/breeze/pkg/auth"
)

func main() {
	configPathFlag := flag.String("config", "", "Path to JSON configuration file (default: ~/.config/breeze/config.json)")
	credPathFlag := flag.String("credentials", "", "Path to OAuth client credentials JSON (default: ~/.config/breeze/credentials.json)")
	versionFlag := flag.Bool("version", false, "Show version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", version.GetVersionString())
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  BREEZE_CONFIG       Override default config file path\n")
		fmt.Fprintf(os.Stderr, "  BREEZE_CREDENTIALS  Override default credentials file path\n")
		fmt.Fprintf(os.Stderr, "  BREEZE_TOKEN        Override default token file path\n")
	}

	flag.Parse()

	if *versionFlag {
		fmt.Println(version.GetDetailedVersionString())
		return
	}

	configPath := *configPathFlag
	if configPath == "" {
		configPath = os.Getenv("BREEZE_CONFIG")
	}
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, closeLogger, err := setupLogger(cfg)
	if err != nil {
		log.Fatalf("setup logger: %v", err)
	}
	defer closeLogger()

	credPath, tokenPath := config.DefaultCredentialPaths()
	if *credPathFlag != "" {
		credPath = *credPathFlag
	} else if env := os.Getenv("BREEZE_CREDENTIALS"); env != "" {
		credPath = env
	}
	if cfg.Credentials != "" {
		credPath = cfg.Credentials
	}
	if env := os.Getenv("BREEZE_TOKEN"); env != "" {
		tokenPath = env
	}
	if cfg.Token != "" {
		tokenPath = cfg.Token
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oauthCfg := auth.NewOAuth2Config(credPath, tokenPath, gmailapi.GmailModifyScope, gmailapi.GmailComposeScope)
	service, err := oauthCfg.NewGmailService(ctx)
	if err != nil {
		log.Fatalf("gmail auth: %v", err)
	}

	client := gmail.NewClient(service, cfg.CategoryLabels())

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}
	store, err := db.Open(ctx, dbPath)
	if err != nil {
		logger.Printf("local store unavailable, continuing without it: %v", err)
		store = nil
	}
	defer store.Close()

	overlayStore := overlay.NewStore()
	overlayStore.SetLogger(logger)
	projector := overlay.NewProjector(overlayStore)

	queue := pending.NewQueue(pending.RealClock{})
	queue.SetLogger(logger)

	repo := services.NewGmailRepository(client)
	email := services.NewEmailService(repo, projector)
	email.SetLogger(logger)

	undo := services.NewUndoService(repo, projector, queue, nil, nil)
	undo.SetLogger(logger)
	undo.SetGraceWindows(cfg.UndoGrace(), cfg.SendGrace())

	batch := services.NewBatchService(repo, projector, undo)
	batch.SetLogger(logger)

	coordinator := services.NewCoordinator(email, batch, undo, projector)
	coordinator.SetLogger(logger)

	searchSvc := services.NewSearchService(store, cfg.AccountEmail)

	app := tui.NewApp(cfg, coordinator, searchSvc)
	app.SetLogger(logger)

	// The app is the compose surface, the detail view and the toast
	// sink; wire it back into the services it feeds.
	undo.SetComposeSurface(app)
	undo.SetNotifier(app)
	batch.SetDetailView(app)

	// Paint from the cache first, then let live snapshots replace it.
	if store != nil {
		for _, category := range cfg.CategoryNames() {
			if snap, err := store.LoadSnapshot(ctx, cfg.AccountEmail, category); err == nil && len(snap.Entities) > 0 {
				coordinator.SeedSnapshot(snap)
			}
		}
		coordinator.SetSnapshotSink(func(snap feed.Snapshot) {
			if err := store.SaveSnapshot(ctx, cfg.AccountEmail, snap); err != nil {
				logger.Printf("cache snapshot %s: %v", snap.Category, err)
			}
		})
	}

	poller := feed.NewPoller(client, cfg.PollInterval())
	poller.SetLogger(logger)
	go func() {
		if err := coordinator.Run(ctx, poller, cfg.CategoryNames()); err != nil {
			logger.Printf("feed: %v", err)
		}
	}()

	if err := app.Run(); err != nil {
		log.Fatalf("run: %v", err)
	}
}

// setupLogger writes debug logs to the configured file, or discards
// them when none is set.
func setupLogger(cfg *config.Config) (*log.Logger, func(), error) {
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(config.DefaultLogDir(), "breeze.log")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	logger := log.New(f, "", log.LstdFlags|log.Lshortfile)
	return logger, func() { _ = f.Close() }, nil
}
