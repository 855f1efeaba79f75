package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	autocurator "github.com/autocurator/go-autocurator"
)

func main() {
	// .env is optional; real env vars win.
	_ = godotenv.Load()

	var (
		outputPath   = flag.String("o", "", "write ranked results JSON to this file")
		captionsPath = flag.String("c", "", "write captions for the top photos to this file")
		topN         = flag.Int("n", autocurator.DefaultTopN, "number of top photos to keep")
		backendKind  = flag.String("backend", autocurator.BackendLocal, "evaluation backend: local or cloud")
		apiKey       = flag.String("api-key", os.Getenv("OPENAI_API_KEY"), "credential for the cloud backend")
		endpoint     = flag.String("endpoint", "", "override the backend endpoint")
		model        = flag.String("model", "", "override the backend model")
		noDuplicates = flag.Bool("no-duplicates", false, "skip duplicate detection")
		threshold    = flag.Int("threshold", autocurator.DefaultSimilarityThreshold, "duplicate similarity threshold (Hamming distance)")
		concurrency  = flag.Int("concurrency", 1, "parallel evaluations")
		strictGate   = flag.Bool("require-pass", false, "exclude photos failing the technical-quality gate")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <photo-folder>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	folder := flag.Arg(0)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	backend, err := autocurator.NewBackend(*backendKind, autocurator.BackendOptions{
		Endpoint: *endpoint,
		Model:    *model,
		APIKey:   *apiKey,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	cfg := &autocurator.Config{
		Backend:              backend,
		TopN:                 *topN,
		DisableDeduplication: *noDuplicates,
		SimilarityThreshold:  *threshold,
		Concurrency:          *concurrency,
		RequireTechnicalPass: *strictGate,
	}

	result, err := cfg.Curate(context.Background(), folder)
	if result != nil {
		fmt.Print(autocurator.RenderSummary(result))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, autocurator.ErrFolderNotFound) || errors.Is(err, autocurator.ErrNoImagesFound) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	if *outputPath != "" {
		doc, err := autocurator.RenderJSON(result)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error rendering results:", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*outputPath, doc, 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "error writing results:", err)
			os.Exit(1)
		}
		slog.Info("results written", "path", *outputPath)
	}

	if *captionsPath != "" {
		if err := os.WriteFile(*captionsPath, []byte(autocurator.RenderCaptions(result)), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "error writing captions:", err)
			os.Exit(1)
		}
		slog.Info("captions written", "path", *captionsPath)
	}
}
