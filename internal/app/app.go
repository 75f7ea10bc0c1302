package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"edutest-bot/internal/app/handlers/http/banks_handler"
	"edutest-bot/internal/app/handlers/http/leaderboard_handler"
	"edutest-bot/internal/app/handlers/http/pending_handler"
	"edutest-bot/internal/app/handlers/telegram/abort_handler"
	"edutest-bot/internal/app/handlers/telegram/admin_handler"
	"edutest-bot/internal/app/handlers/telegram/callback_handler"
	"edutest-bot/internal/app/handlers/telegram/score_handler"
	"edutest-bot/internal/app/handlers/telegram/start_handler"
	"edutest-bot/internal/app/handlers/telegram/test_handler"
	"edutest-bot/internal/app/handlers/telegram/text_handler"
	botmw "edutest-bot/internal/app/middleware"
	accessRepo "edutest-bot/internal/domain/access/repository"
	accessService "edutest-bot/internal/domain/access/service"
	"edutest-bot/internal/domain/bank"
	"edutest-bot/internal/domain/dispatch"
	"edutest-bot/internal/domain/engine"
	"edutest-bot/internal/domain/model"
	resultsRepo "edutest-bot/internal/domain/results/repository"
	resultsService "edutest-bot/internal/domain/results/service"
	"edutest-bot/internal/infra/config"
	redisinfra "edutest-bot/internal/infra/redis"
	httpError "edutest-bot/pkg/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gopkg.in/telebot.v4"
)

type Services struct {
	accessService *accessService.AccessService
	resultService *resultsService.ResultService
	engine        *engine.Engine
	dispatcher    *dispatch.Dispatcher
}

type App struct {
	config *config.Config
	bot    *telebot.Bot
	db     *pgxpool.Pool
	server *http.Server

	catalog    atomic.Pointer[bank.Catalog]
	loadMu     sync.Mutex
	loadErrors []bank.LoadError

	Services
}

// NewApp собирает приложение: база, банки вопросов, сервисы, бот и
// административный HTTP-сервер.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := InitDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{config: cfg, db: db}

	if err := app.ReloadBanks(); err != nil {
		return nil, err
	}

	app.initServices()

	if err := app.initBot(); err != nil {
		return nil, err
	}
	app.initHTTP()
	return app, nil
}

// ReloadBanks перечитывает банки вопросов из каталога. Каталог заменяется
// атомарно: идущие сессии продолжают работать со старым снимком.
func (app *App) ReloadBanks() error {
	loader := bank.NewLoader(app.config.Banks.Dir)
	catalog, loadErrs, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load question banks: %w", err)
	}
	for _, e := range loadErrs {
		log.Printf("bank load error: %v", e)
	}

	app.loadMu.Lock()
	app.loadErrors = loadErrs
	app.loadMu.Unlock()
	app.catalog.Store(catalog)

	log.Printf("loaded %d question banks from %s", catalog.Len(), app.config.Banks.Dir)
	return nil
}

func (app *App) catalogFn() *bank.Catalog {
	return app.catalog.Load()
}

func (app *App) lastLoadErrors() []bank.LoadError {
	app.loadMu.Lock()
	defer app.loadMu.Unlock()
	out := make([]bank.LoadError, len(app.loadErrors))
	copy(out, app.loadErrors)
	return out
}

// initServices инициализирует репозитории, сервисы и движок сессий.
func (app *App) initServices() {
	userRepo := accessRepo.NewUserRepository(app.db)
	resultRepo := resultsRepo.NewResultRepository(app.db)

	app.accessService = accessService.NewAccessService(userRepo, app.config.Admin.IDs)
	app.resultService = resultsService.NewResultService(resultRepo)

	policy := model.SelectionPolicy{
		Mode:                 model.SelectionMode(app.config.Selection.Mode),
		SubsetSize:           app.config.Selection.SubsetSize,
		PerQuestionTimeLimit: config.Duration(app.config.Selection.PerQuestionTimeLimit, 0),
	}

	var opts []engine.Option
	if app.config.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     app.config.Redis.Addr,
			Password: app.config.Redis.Password,
			DB:       app.config.Redis.DB,
		})
		ttl := config.Duration(app.config.Redis.TTL, 2*time.Hour)
		opts = append(opts, engine.WithMarker(redisinfra.NewMarker(client, ttl)))
	}

	app.engine = engine.NewEngine(app.catalogFn, app.accessService, resultRepo, policy, opts...)
	app.dispatcher = dispatch.NewDispatcher(app.engine, app.accessService, app.resultService, app.catalogFn)
}

// initBot создаёт бота и регистрирует обработчики.
func (app *App) initBot() error {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  app.config.TelegramBot.Token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return fmt.Errorf("telebot.NewBot: %w", err)
	}
	app.bot = bot

	app.bootstrapHandlersTelegram()
	return nil
}

// bootstrapHandlersTelegram - регистрирует обработчики для бота
func (app *App) bootstrapHandlersTelegram() {
	app.bot.Use(botmw.Recover())
	if app.config.TelegramBot.Debug {
		app.bot.Use(botmw.Logger())
		app.bot.Use(botmw.DebugUserActions(true))
	}

	app.bot.Handle("/start", start_handler.NewStartHandler(app.dispatcher).GetHandlerFunc())

	testHandler := test_handler.NewTestHandler(app.dispatcher)
	app.bot.Handle("/test", testHandler.GetTestHandlerFunc())
	app.bot.Handle("/banks", testHandler.GetBanksHandlerFunc())

	app.bot.Handle("/abort", abort_handler.NewAbortHandler(app.dispatcher).GetHandlerFunc())

	scoreHandler := score_handler.NewScoreHandler(app.dispatcher)
	app.bot.Handle("/score", scoreHandler.GetScoreHandlerFunc())
	app.bot.Handle("/leaderboard", scoreHandler.GetLeaderboardHandlerFunc())
	app.bot.Handle("/help", scoreHandler.GetHelpHandlerFunc())

	adminHandler := admin_handler.NewAdminHandler(app.dispatcher)
	app.bot.Handle("/pending", adminHandler.GetPendingHandlerFunc())
	app.bot.Handle("/approve", adminHandler.GetApproveHandlerFunc())
	app.bot.Handle("/ban", adminHandler.GetBanHandlerFunc())

	// Ответы на вопросы и выбор банка приходят инлайн-кнопками.
	app.bot.Handle(telebot.OnCallback, callback_handler.NewCallbackHandler(app.dispatcher).GetHandlerFunc())

	// Произвольный текст — имя в регистрационном диалоге.
	app.bot.Handle(telebot.OnText, text_handler.NewTextHandler(app.dispatcher).GetHandlerFunc())
}

// initHTTP настраивает административный HTTP-сервер. Без адреса сервер не
// поднимается; без токена административные маршруты не монтируются.
func (app *App) initHTTP() {
	if app.config.Admin.HTTPAddr == "" {
		return
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	if app.config.Admin.Token == "" {
		log.Printf("admin token is not configured, admin endpoints are disabled")
	} else {
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireToken(app.config.Admin.Token))
			r.Method(http.MethodGet, "/leaderboard/{bankID}",
				leaderboard_handler.NewLeaderboardHandler(app.resultService, app.catalogFn))
			r.Method(http.MethodGet, "/pending",
				pending_handler.NewPendingHandler(app.accessService))
			r.Method(http.MethodGet, "/banks",
				banks_handler.NewBanksHandler(app.catalogFn, app.lastLoadErrors))
		})
	}

	app.server = &http.Server{
		Addr:         app.config.Admin.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

// requireToken проверяет статический bearer-токен администратора.
func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				httpError.ErrorResponse(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Run собирает приложение и обслуживает его до сигнала остановки.
func Run(ctx context.Context, cfg *config.Config) error {
	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	return app.ListenAndServe(ctx)
}

// ListenAndServe запускает бота и HTTP-сервер и останавливает их по
// SIGINT/SIGTERM. SIGHUP перечитывает банки вопросов без перезапуска.
func (app *App) ListenAndServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("starting telegram bot")
		app.bot.Start()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		app.bot.Stop()
		return nil
	})

	if app.server != nil {
		g.Go(func() error {
			log.Printf("starting admin http server on %s", app.server.Addr)
			if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return app.server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				if err := app.ReloadBanks(); err != nil {
					log.Printf("failed to reload banks: %v", err)
				}
			}
		}
	})

	err := g.Wait()
	app.db.Close()
	return err
}
