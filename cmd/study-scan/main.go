package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/study-scan/internal/scanning"
	"github.com/zombor/study-scan/internal/scanning/tesseract"
	"github.com/zombor/study-scan/internal/session"
	"github.com/zombor/study-scan/internal/synthesis"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Credentials may live in a .env file next to the binary
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	fs := ff.NewFlagSet("study-scan")
	var (
		port            = fs.IntLong("port", 8080, "HTTP server port")
		storagePath     = fs.StringLong("storage", filepath.Join(os.TempDir(), "study-scan"), "Directory for uploaded documents")
		ocrType         = fs.StringLong("ocr", "tesseract", "OCR engine: 'tesseract' or 'gemini'")
		ocrLang         = fs.StringLong("ocr-lang", "eng", "Tesseract language codes, '+' separated (e.g. eng+fra)")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		remoteURL       = fs.StringLong("remote-url", "https://api.openai.com/v1", "Chat completions API base URL")
		remoteKey       = fs.StringLong("remote-key", "", "Chat completions API key (or set OPENAI_API_KEY env var)")
		remoteModel     = fs.StringLong("remote-model", "gpt-3.5-turbo", "Chat completions model name")
		remoteMaxTokens = fs.IntLong("remote-max-tokens", 1000, "Maximum tokens in a remote synthesis")
		remoteTimeout   = fs.IntLong("remote-timeout", 30, "Seconds to wait for a remote synthesis before falling back")
		authUser        = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass        = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion     = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("STUDY_SCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize OCR engine based on type
	var ocr scanning.ImageOCR
	switch *ocrType {
	case "tesseract":
		slog.Info("Initializing Tesseract OCR...", "lang", *ocrLang)
		ocr = tesseract.New(strings.Split(*ocrLang, "+")...)
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini OCR...", "model", *geminiModel)
		var err error
		ocr, err = scanning.NewGeminiOCR(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid OCR type", "type", *ocrType, "valid", "tesseract or gemini")
		os.Exit(1)
	}

	// Initialize synthesis generator; without a key every synthesis is a local fallback
	timeout := time.Duration(*remoteTimeout) * time.Second
	apiKey := *remoteKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	var remote synthesis.Remote
	if apiKey == "" {
		slog.Warn("No remote API key configured, syntheses will use the local fallback")
	} else {
		client, err := synthesis.NewChatClient(synthesis.ChatConfig{
			BaseURL:   *remoteURL,
			APIKey:    apiKey,
			Model:     *remoteModel,
			MaxTokens: *remoteMaxTokens,
			Timeout:   timeout,
		}, slog.Default())
		if err != nil {
			slog.Error("Failed to initialize remote synthesis", "error", err)
			os.Exit(1)
		}
		remote = client
	}
	generator := synthesis.NewGeneratorWithDeps(remote, timeout, slog.Default())

	if args := fs.GetArgs(); len(args) > 0 {
		os.Exit(runOnce(args[0], ocr, generator, os.Stdout))
	}
	defer ocr.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "path", *storagePath)
	store, err := scanning.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	extractor := scanning.NewDispatcher(store, ocr)
	sess := session.New(extractor, generator)

	basicAuth := session.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := session.NewServer(sess, store, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// runOnce scans a single local file, writes its synthesis to out and returns
// the exit code. It closes ocr before returning.
func runOnce(path string, ocr scanning.ImageOCR, generator session.Generator, out io.Writer) int {
	defer func() {
		if err := ocr.Close(); err != nil {
			slog.Warn("Failed to close OCR engine", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor := scanning.NewDispatcher(scanning.LoaderFunc(os.ReadFile), ocr)
	sess := session.New(extractor, generator)

	intent := scanning.PickImage
	if scanning.KindFromFilename(path) == scanning.Document {
		intent = scanning.PickDocument
	}

	if _, err := sess.Scan(ctx, scanning.FileSource{Path: path}, intent); err != nil {
		slog.Error("Failed to scan document", "path", path, "error", err)
		return 1
	}

	result, err := sess.RequestSynthesis(ctx)
	if err != nil {
		slog.Error("Failed to generate synthesis", "path", path, "error", err)
		return 1
	}

	slog.Info("Synthesis generated", "path", path, "origin", result.Origin)
	fmt.Fprintln(out, result.Body)
	return 0
}
