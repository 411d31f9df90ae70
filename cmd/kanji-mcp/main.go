package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ironsheep/kanji-match-mcp/internal/config"
	"github.com/ironsheep/kanji-match-mcp/internal/recognizer"
	"github.com/ironsheep/kanji-match-mcp/internal/server"
	"github.com/ironsheep/kanji-match-mcp/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const defaultStorePath = "templates.db"

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("kanji-match-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage(os.Stdout)
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if len(os.Args) > 1 && os.Args[1] == "populate" {
		if err := populate(os.Args[2:]); err != nil {
			log.Fatalf("Populate failed: %v", err)
		}
		return
	}

	logLevel := os.Getenv("KANJI_MCP_LOG_LEVEL")
	if logLevel == "debug" {
		log.Printf("Kanji Match MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	cfg, err := loadConfig(os.Getenv("KANJI_MCP_CONFIG"))
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	st, err := store.Open(envOr("KANJI_MCP_STORE", defaultStorePath))
	if err != nil {
		log.Fatalf("Template store error: %v", err)
	}
	if err := serve(cfg, st, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// serve runs the MCP server until r is exhausted. st is closed before
// serve returns, on success or failure.
func serve(cfg config.Config, st store.Backend, r io.Reader, w io.Writer) (err error) {
	defer func() {
		if cerr := st.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close template store: %w", cerr)
		}
	}()

	srv, err := server.New(cfg, st, server.WithOCRLanguage(os.Getenv("KANJI_MCP_OCR_LANG")))
	if err != nil {
		return err
	}
	return srv.Serve(r, w)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "kanji-match-mcp - MCP server for hand-drawn character recognition")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  kanji-mcp                     Serve MCP over stdin/stdout")
	fmt.Fprintln(w, "  kanji-mcp populate [flags]    Build templates from a glyph file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Populate flags:")
	fmt.Fprintln(w, "  -glyphs FILE     JSON glyph file (required)")
	fmt.Fprintln(w, "  -store PATH      Template store, .db/.sqlite or .json")
	fmt.Fprintln(w, "  -config PATH     Configuration file, .json/.yaml/.yml")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  KANJI_MCP_LOG_LEVEL=debug    Enable debug logging")
	fmt.Fprintln(w, "  KANJI_MCP_CONFIG=PATH        Configuration file")
	fmt.Fprintln(w, "  KANJI_MCP_STORE=PATH         Template store (default templates.db)")
	fmt.Fprintln(w, "  KANJI_MCP_OCR_LANG=LANG      Tesseract language (default jpn)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The server communicates via MCP protocol over stdin/stdout.")
	fmt.Fprintln(w, "Configure it in your MCP client (e.g., Claude Desktop).")
}

// populate builds a template for every glyph in a glyph file.
func populate(args []string) error {
	fs := flag.NewFlagSet("populate", flag.ContinueOnError)
	glyphsPath := fs.String("glyphs", "", "JSON glyph file")
	storePath := fs.String("store", envOr("KANJI_MCP_STORE", defaultStorePath), "template store")
	configPath := fs.String("config", os.Getenv("KANJI_MCP_CONFIG"), "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *glyphsPath == "" {
		return fmt.Errorf("-glyphs is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	glyphs, err := recognizer.LoadGlyphs(*glyphsPath)
	if err != nil {
		return err
	}

	st, err := store.Open(*storePath)
	if err != nil {
		return err
	}
	defer st.Close()

	tr, err := recognizer.NewTrainer(cfg, st)
	if err != nil {
		return err
	}
	_, err = tr.Populate(glyphs)
	return err
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
