package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/abenov/tenge-scan/internal/scanning"
	"github.com/abenov/tenge-scan/internal/session"
	"github.com/abenov/tenge-scan/internal/transaction"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("tenge-scan")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "tenge-scan.db", "Database file path")
		storagePath = fs.StringLong("storage", "./uploads", "Upload storage directory path")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set TENGE_SCAN_GEMINI_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		tessdata    = fs.StringLong("tessdata", "", "Tesseract traineddata directory (default: system tessdata)")
		tessLangs   = fs.StringLong("tess-langs", "rus,kaz,eng", "Tesseract languages, comma separated")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("TENGE_SCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		slog.Error("Gemini API key is required. Set --gemini-key flag or TENGE_SCAN_GEMINI_KEY environment variable")
		os.Exit(1)
	}

	slog.Info("Initializing database...")
	db, err := transaction.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing storage...")
	store, err := transaction.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Validate engine configuration up front; the orchestrator then reuses
	// these instances for the process lifetime.
	slog.Info("Initializing Gemini engine...", "model", *geminiModel)
	gemini, err := scanning.NewGemini(apiKey, *geminiModel)
	if err != nil {
		slog.Error("Failed to initialize Gemini engine", "error", err)
		os.Exit(1)
	}

	slog.Info("Initializing Tesseract engine...", "langs", *tessLangs)
	tesseract, err := scanning.NewTesseract(*tessdata, strings.Split(*tessLangs, ","))
	if err != nil {
		slog.Error("Failed to initialize Tesseract engine", "error", err)
		os.Exit(1)
	}

	orchestrator := scanning.NewOrchestrator(
		func() (scanning.Engine, error) { return gemini, nil },
		func() (scanning.Engine, error) { return tesseract, nil },
	)
	defer orchestrator.Close()

	controller := session.NewController(scanning.NewFitzRenderer(), orchestrator, db)

	basicAuth := session.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := session.NewServer(controller, db, store, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
