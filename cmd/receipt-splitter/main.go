package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zombor/receipt-splitter/internal/parsing"
	"github.com/zombor/receipt-splitter/internal/receipt"
	"github.com/zombor/receipt-splitter/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// configureLogging installs the default slog handler
func configureLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	default:
		return fmt.Errorf("invalid log format %q, want text or json", format)
	}
	return nil
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-splitter")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "receipt-splitter.db", "Database file path")
		storageType  = fs.StringLong("storage", "local", "Storage backend: 'local' or 's3'")
		storagePath  = fs.StringLong("storage-path", "./receipts", "Storage directory path for local storage")
		s3Bucket     = fs.StringLong("s3-bucket", "", "S3 bucket for receipt images")
		s3Region     = fs.StringLong("s3-region", "", "S3 region (defaults to the AWS environment)")
		s3Endpoint   = fs.StringLong("s3-endpoint", "", "S3-compatible endpoint URL, e.g. for R2 or MinIO")
		s3AccessKey  = fs.StringLong("s3-access-key", "", "S3 access key (optional, otherwise the AWS credential chain)")
		s3SecretKey  = fs.StringLong("s3-secret-key", "", "S3 secret key")
		s3Prefix     = fs.StringLong("s3-prefix", "receipts/", "Key prefix for stored images")
		detectorType = fs.StringLong("detector", "textract", "Word detector: 'textract', 'azure', 'gemini' or 'ollama'")
		awsRegion    = fs.StringLong("aws-region", "", "AWS region for Textract (defaults to the AWS environment)")
		azureURL     = fs.StringLong("azure-endpoint", "", "Azure Computer Vision endpoint URL")
		azureKey     = fs.StringLong("azure-key", "", "Azure Computer Vision API key")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "qwen2-vl", "Ollama vision model name")
		strategyName = fs.StringLong("column-strategy", "union", "Price column detection: 'union', 'runs' or 'median'")
		logLevel     = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat    = fs.StringLong("log-format", "text", "Log format: text or json")
		_            = fs.StringLong("config", "", "Config file with one 'flag value' per line (optional)")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	// A .env file is optional; its variables feed the RECEIPT_SPLITTER_ prefix
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_SPLITTER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := configureLogging(*logLevel, *logFormat); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	strategy, err := parsing.ParseColumnStrategy(*strategyName)
	if err != nil {
		slog.Error("Invalid column strategy", "error", err)
		os.Exit(1)
	}

	// Initialize database
	slog.Info("Initializing database...", "path", *dbPath)
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize detector based on type
	var detector scanning.Detector
	switch *detectorType {
	case "textract":
		slog.Info("Initializing Textract detector...", "region", *awsRegion)
		detector, err = scanning.NewTextract(*awsRegion)
		if err != nil {
			slog.Error("Failed to initialize Textract", "error", err)
			os.Exit(1)
		}
	case "azure":
		slog.Info("Initializing Azure detector...", "endpoint", *azureURL)
		detector, err = scanning.NewAzure(*azureURL, *azureKey)
		if err != nil {
			slog.Error("Failed to initialize Azure", "error", err)
			os.Exit(1)
		}
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini detector...", "model", *geminiModel)
		detector, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama detector...", "url", *ollamaURL, "model", *ollamaModel)
		detector, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid detector type", "type", *detectorType, "valid", "textract, azure, gemini or ollama")
		os.Exit(1)
	}
	defer detector.Close()

	// Initialize storage
	var store receipt.Storage
	switch *storageType {
	case "local":
		slog.Info("Initializing local storage...", "path", *storagePath)
		store, err = receipt.NewLocalStorage(*storagePath)
	case "s3":
		slog.Info("Initializing S3 storage...", "bucket", *s3Bucket, "endpoint", *s3Endpoint)
		store, err = receipt.NewS3Storage(receipt.S3Config{
			Bucket:    *s3Bucket,
			Region:    *s3Region,
			Endpoint:  *s3Endpoint,
			AccessKey: *s3AccessKey,
			SecretKey: *s3SecretKey,
			Prefix:    *s3Prefix,
		})
	default:
		err = fmt.Errorf("invalid storage type %q, want local or s3", *storageType)
	}
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	receiptService := receipt.NewService(db, detector, store, parsing.NewParser(strategy), receipt.NewMetrics(registry))
	server := receipt.NewServer(receiptService, registry)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started",
		"address", fmt.Sprintf("http://localhost%s", addr),
		"detector", *detectorType,
		"storage", *storageType,
		"column_strategy", string(strategy),
	)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
