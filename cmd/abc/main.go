package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/aguacasa/abc-learning/internal/config"
	"github.com/aguacasa/abc-learning/internal/database"
	"github.com/aguacasa/abc-learning/internal/domain/achievement"
	"github.com/aguacasa/abc-learning/internal/domain/card"
	"github.com/aguacasa/abc-learning/internal/domain/progress"
	"github.com/aguacasa/abc-learning/internal/domain/session"
	"github.com/aguacasa/abc-learning/internal/localstore"
	"github.com/aguacasa/abc-learning/internal/migrate"
	"github.com/aguacasa/abc-learning/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout stays clean for the card display.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	deckID := card.DeckID(cfg.Deck)
	if _, ok := card.DeckByID(deckID); !ok {
		logger.Error("unknown deck", "deck", cfg.Deck)
		os.Exit(1)
	}

	if err := ensureLocalDir(cfg.Local.Path); err != nil {
		logger.Error("failed to prepare local store path", "error", err)
		os.Exit(1)
	}
	kv, err := localstore.Open(cfg.Local.Path)
	if err != nil {
		logger.Error("failed to open local store", "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	identity := progress.Guest()
	var store repository.ProgressStore
	var migrator session.Migrator

	if cfg.User.ID != "" {
		if cfg.Durable.DSN == "" {
			logger.Error("durable DSN required for authenticated user")
			os.Exit(1)
		}
		identity = progress.Authenticated(cfg.User.ID)
		db, err := database.Open(cfg.Durable.Driver, cfg.Durable.DSN)
		if err != nil {
			logger.Error("failed to open durable store", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(); err != nil {
			logger.Error("failed to prepare durable schema", "error", err)
			os.Exit(1)
		}
		durable := database.NewStore(db, logger)
		store = durable
		migrator = migrate.New(kv, durable, logger)
	} else {
		store = localstore.New(kv, deckID, logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var ctrl *session.Controller
	ctrl, err = session.NewController(session.Config{
		Store:    store,
		Identity: identity,
		DeckID:   deckID,
		Migrator: migrator,
		Speaker:  terminalSpeaker{},
		Notifier: terminalNotifier{},
		Logger:   logger,
		// Redraw when the next-card timer fires so the new front shows
		// without waiting for input.
		OnChange: func() { render(ctrl.Snapshot()) },
	})
	if err != nil {
		logger.Error("failed to build session", "error", err)
		os.Exit(1)
	}
	defer ctrl.Close()

	if err := ctrl.Start(ctx); err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}

	runLoop(ctx, ctrl)
}

// runLoop reads commands from stdin until EOF, quit, or signal. Enter flips
// the current card, y/n reports the outcome, "only A B" narrows study to
// those cards, "all" restores the full deck.
func runLoop(ctx context.Context, ctrl *session.Controller) {
	render(ctrl.Snapshot())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !scanner.Scan() {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			if err := ctrl.Flip(); err != nil {
				fmt.Println(err)
			}
		case line == "y" || line == "n":
			if err := ctrl.Resolve(ctx, line == "y"); err != nil {
				fmt.Println(err)
			}
		case strings.HasPrefix(line, "only "):
			ctrl.SetSubset(strings.Fields(strings.TrimPrefix(line, "only ")))
			ctrl.Reselect()
		case line == "all":
			ctrl.ClearSubset()
			ctrl.Reselect()
		case line == "q" || line == "quit":
			return
		default:
			fmt.Println("commands: enter=flip  y=got it  n=not yet  only <ids>  all  quit")
		}
		render(ctrl.Snapshot())
	}
}

func render(snap session.Snapshot) {
	switch snap.State {
	case session.StateReady:
		fmt.Printf("\n[%s] %s  (stars: %d)\n", snap.Deck.Name, snap.Card.Front, snap.TotalStars)
	case session.StateFlipped:
		fmt.Printf("%s is for %s. Got it? (y/n)\n", snap.Card.Back, snap.Card.Word)
	case session.StateResolved:
		fmt.Printf("stars: %d\n", snap.TotalStars)
	case session.StateEmpty:
		fmt.Println("no cards to play in this deck")
	}
	if snap.Notification != nil {
		fmt.Printf("%s %s: %s\n", snap.Notification.Icon, snap.Notification.Name, snap.Notification.Description)
	}
}

type terminalSpeaker struct{}

func (terminalSpeaker) Speak(text string) {
	fmt.Printf("🔊 %s\n", text)
}

type terminalNotifier struct{}

func (terminalNotifier) NotifyAchievement(a achievement.Achievement) {
	fmt.Printf("🎉 %s %s\n", a.Icon, a.Name)
}

func ensureLocalDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
