package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/acrobash/server/internal/ai"
	"github.com/acrobash/server/internal/ai/gemini"
	"github.com/acrobash/server/internal/ai/openai"
	"github.com/acrobash/server/internal/config"
	"github.com/acrobash/server/internal/game"
	"github.com/acrobash/server/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Acrobash - Real-time backronym party game

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 3001 or PORT env var)

Environment Variables:
  PORT                Port to listen on (default: 3001)
  AI_PROVIDER         AI provider: "gemini" or "openai" (default: gemini)
  GEMINI_API_KEY      Gemini API key (API_KEY also accepted)
  GEMINI_MODEL        Gemini model to use (default: gemini-2.5-flash)
  GEMINI_BASE_URL     Custom Gemini API base URL (optional)
  OPENAI_API_KEY      OpenAI API key (required for OpenAI provider)
  OPENAI_MODEL        OpenAI model to use (default: gpt-4o-mini)
  OPENAI_BASE_URL     Custom OpenAI API base URL (optional)

Without an API key the server still runs; AI opponents submit canned
fallback backronyms and vote randomly.

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Acrobash %s\n", version)
		return
	}

	// .env is optional, real env vars win either way
	_ = godotenv.Load()

	// Determine port
	cfg := config.FromEnv()
	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Provider selection
	var provider ai.Provider
	var model string
	switch cfg.Provider {
	case "openai":
		if cfg.OpenAIKey != "" {
			provider = openai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL)
		}
		model = cfg.OpenAIModel
	default:
		if cfg.GeminiKey != "" {
			provider = gemini.New(cfg.GeminiKey, cfg.GeminiBaseURL)
		}
		model = cfg.GeminiModel
	}
	if provider == nil {
		zerologlog.Warn().Str("provider", cfg.Provider).Msg("no API key configured, AI opponents will use fallback content")
	}
	director := ai.NewDirector(provider, model)

	// Socket server + game engine
	reg := game.NewRegistry()
	srv := ws.New(reg)
	engine := game.NewEngine(reg, director, srv, clockwork.NewRealClock(), game.DefaultTimings())
	srv.SetEngine(engine)
	io := srv.Mount(r)
	defer io.Close()

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
