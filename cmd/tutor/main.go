package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/tutor/internal/handler"
	appI18n "github.com/pavelanni/tutor/internal/i18n"
	"github.com/pavelanni/tutor/internal/knowledge"
	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/model"
	"github.com/pavelanni/tutor/internal/session"
	"github.com/pavelanni/tutor/internal/store"
	"github.com/pavelanni/tutor/internal/tutor"
)

func main() {
	// A missing .env is fine; the environment may be set another way.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tutor",
		Short: "NCERT study tutor powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, askCmd(), exportCmd(), topicsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `tutor --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-provider", llm.ProviderGemini, "Model provider (gemini, openai, anthropic, mock)")
	f.String("llm-key", "", "API key for the model provider (or set TUTOR_LLM_KEY / GEMINI_API_KEY)")
	f.String("llm-model", "", "Model name or alias (default depends on provider)")
	f.String("llm-base-url", "", "Base URL for OpenAI-compatible servers (e.g. http://localhost:11434/v1)")
	f.Duration("llm-timeout", 2*time.Minute, "Timeout for each model call")
}

func addKnowledgeFlags(cmd *cobra.Command, dbDefault string) {
	f := cmd.Flags()
	f.String("db", dbDefault, "SQLite database path")
	f.StringSliceP("knowledge", "k", nil, "Extra knowledge JSON files to import (repeatable)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP tutoring server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	addKnowledgeFlags(cmd, "tutor.db")
	addLLMFlags(cmd)
	f.StringP("lang", "l", "en", "Default UI language (en, hi)")
	f.String("default-class", "Class 6", "Class selected for new sessions")
	f.String("default-subject", "Mathematics", "Subject selected for new sessions")
	f.Int("max-conversations", 50, "Conversations remembered per session")
	f.Int("max-sessions", session.DefaultMaxSessions, "Live sessions kept before the least recently used is evicted")
	f.Duration("session-ttl", session.DefaultTTL, "Idle time before a session is discarded")
	f.String("session-key", "", "Cookie signing key (default: generated and stored in the database)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /tutor)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.StringSlice("allowed-origins", []string{"http://localhost:3000"}, "Origins allowed to call the JSON API")
	f.String("admin-user", "admin", "Admin username")
	f.String("admin-password", "", "Admin password (or set TUTOR_ADMIN_PASSWORD)")
	addLogFlags(cmd)
	return cmd
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [text]",
		Short: "Run one tutoring turn from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	f := cmd.Flags()
	f.StringP("mode", "m", string(model.ModeAsk), "Mode (ask, explain, homework, quiz)")
	f.StringP("class", "c", "Class 6", "Class level")
	f.StringP("subject", "s", "Mathematics", "Subject")
	f.String("explanation-type", string(model.ExplainSummary), "Explanation style for explain mode")
	f.String("help-type", string(model.HelpStepByStep), "Help type for homework mode")
	f.IntP("num-questions", "n", 5, "Number of quiz questions")
	f.String("difficulty", string(model.DifficultyMedium), "Quiz difficulty")
	f.String("question-type", string(model.QuestionMultipleChoice), "Quiz question type")
	addKnowledgeFlags(cmd, "")
	addLLMFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the interaction log as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "tutor.db", "SQLite database path")
	f.String("since", "", "Only export turns at or after this time (RFC 3339 or YYYY-MM-DD)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)
	return cmd
}

func topicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List knowledge base sections or suggest topics",
		RunE:  runTopics,
	}
	f := cmd.Flags()
	f.StringP("class", "c", "", "Class level (with --subject, lists its topics)")
	f.StringP("subject", "s", "", "Subject")
	f.StringP("query", "q", "", "Rank topics against a partial name")
	f.Int("limit", 10, "Maximum topics to print")
	addKnowledgeFlags(cmd, "")
	addLogFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("TUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("tutor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/tutor")
	v.AddConfigPath("/etc/tutor")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// providerKeyEnv names the conventional API key variable of each provider.
var providerKeyEnv = map[string]string{
	llm.ProviderGemini:    "GEMINI_API_KEY",
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

func llmConfig(v *viper.Viper) llm.Config {
	cfg := llm.DefaultConfig()
	cfg.Provider = strings.ToLower(strings.TrimSpace(v.GetString("llm-provider")))
	cfg.APIKey = v.GetString("llm-key")
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(providerKeyEnv[cfg.Provider])
	}
	cfg.Model = v.GetString("llm-model")
	cfg.BaseURL = v.GetString("llm-base-url")
	cfg.Timeout = v.GetDuration("llm-timeout")
	return cfg
}

// newKnowledgeBase returns the seeded knowledge base with stored additions
// replayed and new knowledge files imported. db may be nil, in which case
// files are loaded without being recorded.
func newKnowledgeBase(db *store.Store, paths []string) (*knowledge.Base, error) {
	kb, err := knowledge.NewSeeded()
	if err != nil {
		return nil, err
	}
	if db != nil {
		stored, err := db.ListKnowledge()
		if err != nil {
			return nil, fmt.Errorf("list stored knowledge: %w", err)
		}
		kb.Import(stored)
		if len(stored) > 0 {
			slog.Info("replayed stored knowledge", "entries", len(stored))
		}
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		items, err := knowledge.ParseImport(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if db == nil {
			kb.Import(items)
			continue
		}
		applied, err := db.ImportKnowledgeFile(path, sha256sum(data), items)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", path, err)
		}
		// Already-imported files were replayed from the database above.
		if applied {
			kb.Import(items)
		}
	}
	return kb, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func seedAdmin(db *store.Store, username, password string) error {
	if password == "" {
		count, err := db.AdminCount()
		if err != nil {
			return err
		}
		if count == 0 {
			slog.Warn("no admin account: set --admin-password or TUTOR_ADMIN_PASSWORD to enable /admin")
		}
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	return db.UpsertAdmin(username, string(hash))
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing credential is fatal before anything else starts.
	gw, err := llm.New(ctx, llmConfig(v))
	if err != nil {
		return fmt.Errorf("create model gateway: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-user"), v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	kb, err := newKnowledgeBase(db, v.GetStringSlice("knowledge"))
	if err != nil {
		return fmt.Errorf("load knowledge: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	svc, err := tutor.New(gw, kb, db)
	if err != nil {
		return fmt.Errorf("create tutor: %w", err)
	}

	key := []byte(v.GetString("session-key"))
	if len(key) == 0 {
		if key, err = db.SessionKey(); err != nil {
			return fmt.Errorf("load session key: %w", err)
		}
	}
	signer, err := session.NewSigner(key)
	if err != nil {
		return fmt.Errorf("create signer: %w", err)
	}

	sessions := session.NewManager(session.Options{
		TTL:              v.GetDuration("session-ttl"),
		MaxSessions:      v.GetInt("max-sessions"),
		MaxConversations: v.GetInt("max-conversations"),
		DefaultClass:     v.GetString("default-class"),
		DefaultSubject:   v.GetString("default-subject"),
	})
	go sessions.Run(ctx, 0)

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	serverCfg := model.ServerConfig{
		BasePath:       basePath,
		SecureCookies:  v.GetBool("secure-cookies"),
		DefaultClass:   v.GetString("default-class"),
		DefaultSubject: v.GetString("default-subject"),
		AllowedOrigins: v.GetStringSlice("allowed-origins"),
	}

	h, err := handler.New(svc, kb, sessions, signer, db, serverCfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(serverCfg.SecureCookies))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"provider", gw.Provider(),
			"model", gw.Model(),
			"lang", lang,
			"base_path", basePath,
			"session_ttl", sessions.TTL(),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
