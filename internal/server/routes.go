package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/WIlski54/Leseassistent/internal/assist"
	"github.com/WIlski54/Leseassistent/internal/cache"
	"github.com/WIlski54/Leseassistent/internal/config"
	"github.com/WIlski54/Leseassistent/internal/db"
	"github.com/WIlski54/Leseassistent/internal/logging"
	"github.com/WIlski54/Leseassistent/internal/providers"
	"github.com/WIlski54/Leseassistent/internal/sessions"
	"github.com/WIlski54/Leseassistent/internal/voices"
)

const (
	ttsCacheSize         = 500
	translationCacheSize = 1000
)

func Run() error {
	appCfg := config.Load()
	logging.Setup(logging.Options{Level: appCfg.LogLevel, Format: appCfg.LogFormat})

	voiceRegistry := voices.Defaults()
	if appCfg.VoicesConfig != "" {
		loaded, err := voices.Load(appCfg.VoicesConfig)
		if err != nil {
			slog.Warn("voices config not loaded, using defaults", "path", appCfg.VoicesConfig, "err", err)
		} else {
			voiceRegistry = loaded
		}
	}

	providerClient := providers.NewClient()
	srv := &Server{
		Sessions:         sessions.NewStore(time.Duration(appCfg.SessionTTLHours) * time.Hour),
		Providers:        providerClient,
		Assist:           assist.New(providerClient),
		Voices:           voiceRegistry,
		Metrics:          NewMetrics(),
		TTSCache:         cache.New(ttsCacheSize),
		TranslationCache: cache.New(translationCacheSize),
		BaseURL:          appCfg.BaseURL,
	}

	// Optional database connection
	if appCfg.DatabaseURL != "" {
		database, err := db.Connect(appCfg.DatabaseURL)
		if err != nil {
			slog.Warn("database connection failed, running without usage analytics", "err", err)
		} else {
			if err := database.Migrate(); err != nil {
				slog.Error("migration failed", "err", err)
			}
			srv.DB = database
			srv.UsageBuffer = make(chan db.UsageEvent, 1000)
			go usageBatchWriter(database, srv.UsageBuffer)
			slog.Info("database connected and migrations applied")
		}
	} else {
		slog.Info("DATABASE_URL not set, running without usage analytics")
	}

	mux := srv.routes()

	addr := "0.0.0.0:" + appCfg.Port
	slog.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/session/create", s.handleSessionCreate)
	mux.HandleFunc("POST /api/session/join", s.handleSessionJoin)
	mux.HandleFunc("POST /api/session/end", s.handleSessionEnd)
	mux.HandleFunc("GET /api/session/status/{code}", s.handleSessionStatus)
	mux.HandleFunc("GET /api/session/settings/{code}", s.handleSessionSettings)
	mux.HandleFunc("GET /api/session/qr/{code}", s.handleSessionQR)
	mux.HandleFunc("POST /api/session/text", s.handleSessionTextSet)
	mux.HandleFunc("GET /api/session/text/{code}", s.handleSessionTextGet)

	mux.HandleFunc("POST /api/tts", s.handleTTS)
	mux.HandleFunc("POST /api/translate", s.handleTranslate)
	mux.HandleFunc("POST /api/ocr", s.handleOCR)
	mux.HandleFunc("POST /api/speech-to-text", s.handleSpeechToText)
	mux.HandleFunc("POST /api/generate-tasks", s.handleGenerateTasks)
	mux.HandleFunc("POST /api/word-info", s.handleWordInfo)
	mux.HandleFunc("POST /api/simplify-text", s.handleSimplify)

	mux.HandleFunc("GET /api/cache-stats", s.handleCacheStats)
	mux.HandleFunc("GET /api/usage-stats", s.handleUsageStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	return mux
}

func usageBatchWriter(database *db.DB, buffer chan db.UsageEvent) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	batch := make([]db.UsageEvent, 0, 50)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := database.BatchRecordEvents(batch); err != nil {
			slog.Error("batch recording usage events", "err", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-buffer:
			batch = append(batch, ev)
			if len(batch) >= 50 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
