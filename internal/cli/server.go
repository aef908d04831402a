package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"safequiz-bot/internal/app"
	"safequiz-bot/internal/config"
	"safequiz-bot/internal/content"
	jsonstore "safequiz-bot/internal/infra/jsonfile"
	"safequiz-bot/internal/infra/memory"
	pgstore "safequiz-bot/internal/infra/postgres"
	redisstore "safequiz-bot/internal/infra/redis"
	"safequiz-bot/internal/transport/telegram"
	"safequiz-bot/internal/transport/web"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand that runs the bot and the dashboard.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz bot and the leaderboard dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token not configured")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	langs, scores, err := buildStores(cfg, redisClient)
	if err != nil {
		return err
	}

	bundles, err := content.LoadBundles(filepath.Join(cfg.Content.Dir, "locales"), cfg.Quiz.DefaultLanguage, cfg.Quiz.Languages)
	if err != nil {
		return err
	}
	resolver := content.NewResolver(bundles, cfg.Quiz.DefaultLanguage, langs)

	tips, err := content.LoadTips(filepath.Join(cfg.Content.Dir, "learning"), cfg.Quiz.DefaultLanguage, cfg.Quiz.Languages)
	if err != nil {
		return err
	}

	var loader content.BankLoader = content.NewFileBankLoader(filepath.Join(cfg.Content.Dir, "questions.json"))
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgstore.NewBankLoader(pool)
	}
	bankTTL := config.Duration(cfg.Content.BankTTL, 10*time.Minute)
	bank := content.NewCachedBankRepository(loader, cfg.Quiz.Languages, bankTTL)

	// A malformed bank means the state machine cannot hold its invariants;
	// refuse to start.
	if _, err := bank.GetBank(ctx); err != nil {
		return fmt.Errorf("question bank: %w", err)
	}

	service := app.NewQuizService(memory.NewSessionStore(), scores, langs, bank, resolver, app.Options{
		QuizLength: cfg.Quiz.Length,
		Languages:  cfg.Quiz.Languages,
	})

	pacing := config.Duration(cfg.Quiz.Pacing, time.Second)
	bot, err := telegram.NewBot(cfg.Telegram.Token, service, resolver, tips, cfg.Telegram.WebURL, pacing)
	if err != nil {
		return err
	}

	dashboard := web.NewHandler(service, cfg.Quiz.DefaultLanguage)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      web.NewRouter(dashboard),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, runCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		log.Printf("starting dashboard on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Printf("starting telegram poller")
		if err := bot.Run(runCtx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-runCtx.Done()
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildStores picks the persistence backend: Redis when configured, JSON
// snapshot files otherwise.
func buildStores(cfg config.Config, redisClient *redis.Client) (app.LanguageStore, app.LeaderboardStore, error) {
	if redisClient != nil {
		return redisstore.NewLanguageStore(redisClient), redisstore.NewLeaderboardStore(redisClient), nil
	}
	for _, path := range []string{cfg.Storage.ScoresPath, cfg.Storage.LanguagesPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, err
			}
		}
	}
	scores, err := jsonstore.NewLeaderboardStore(cfg.Storage.ScoresPath)
	if err != nil {
		return nil, nil, err
	}
	langs, err := jsonstore.NewLanguageStore(cfg.Storage.LanguagesPath)
	if err != nil {
		return nil, nil, err
	}
	return langs, scores, nil
}
