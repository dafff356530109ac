// Command souschef turns unstructured recipe text into validated,
// exportable recipe documents.
//
// Usage:
//
//	souschef transform --text "..."            # transform pasted text
//	souschef transform --file soup.txt         # transform a .txt file
//	souschef transform --url https://...       # transform a recipe page
//	souschef history                           # show recent runs
//	souschef version                           # show version info
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"souschef/batch"
	"souschef/config"
	"souschef/export"
	"souschef/ingest"
	"souschef/internal/metrics"
	"souschef/llm"
	"souschef/llm/providers/groq"
	"souschef/llm/retry"
	"souschef/pipeline"
	"souschef/store"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "transform":
		runTransform(os.Args[2:])
	case "history":
		runHistory(os.Args[2:])
	case "version":
		fmt.Printf("souschef %s (built %s)\n", Version, BuildTime)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// stringList collects repeatable flags.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func runTransform(args []string) {
	fs := flag.NewFlagSet("transform", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	text := fs.String("text", "", "Recipe text to transform")
	name := fs.String("name", "", "Name for pasted recipe text")
	var files, urls stringList
	fs.Var(&files, "file", "Recipe .txt file (repeatable)")
	fs.Var(&urls, "url", "Recipe page URL (repeatable)")
	outDir := fs.String("out", "", "Override the export directory")
	limit := fs.Int("limit", 0, "Process at most N inputs (0 = all)")
	fs.Parse(args)

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *outDir != "" {
		cfg.Export.Directory = *outDir
	}
	if *limit > 0 {
		cfg.Batch.Limit = *limit
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inputs, err := collectInputs(ctx, *text, *name, files, urls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "No inputs: pass --text, --file or --url")
		os.Exit(1)
	}

	runner := buildRunner(cfg, logger)
	results := runner.Run(ctx, inputs)

	runStore, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		logger.Warn("run history unavailable", zap.Error(err))
		runStore = nil
	} else {
		defer runStore.Close()
	}

	failed := reportResults(cfg, logger, runStore, results)
	if failed > 0 {
		os.Exit(1)
	}
}

func collectInputs(ctx context.Context, text, name string, files, urls []string) ([]*ingest.RawInput, error) {
	var inputs []*ingest.RawInput
	if strings.TrimSpace(text) != "" {
		in, err := ingest.FromText(name, text)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	for _, path := range files {
		in, err := ingest.FromFile(path)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	fetcher := ingest.NewFetcher(nil)
	for _, u := range urls {
		in, err := fetcher.FromURL(ctx, u)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// buildRunner assembles the provider stack (Groq, retries, shared rate
// limiter), the pipeline and the batch runner from the configuration.
func buildRunner(cfg *config.Config, logger *zap.Logger) *batch.Runner {
	apiKey := cfg.LLM.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}

	var provider llm.Provider = groq.New(groq.Config{
		APIKey:       apiKey,
		BaseURL:      cfg.LLM.BaseURL,
		DefaultModel: cfg.LLM.Model,
		Timeout:      cfg.LLM.Timeout,
	}, logger)

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.LLM.MaxRetries
	provider = retry.WrapProvider(provider, policy, logger)

	var limiter *rate.Limiter
	if cfg.LLM.InterCallDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.LLM.InterCallDelay), 1)
	}
	provider = llm.NewThrottled(provider, limiter, logger)

	collector := metrics.NewCollector("souschef", logger)
	pipe := pipeline.New(provider, pipeline.Config{
		Model:                  cfg.LLM.Model,
		Temperature:            float32(cfg.LLM.Temperature),
		MaxTokens:              cfg.LLM.MaxTokens,
		MaxIterations:          cfg.Pipeline.MaxIterations,
		RecipeCharLimit:        cfg.Pipeline.RecipeCharLimit,
		CondenseLongInput:      cfg.Pipeline.CondenseLongInput,
		AnalyzeFirst:           cfg.Pipeline.AnalyzeFirst,
		MaxStepDurationSeconds: cfg.Pipeline.MaxStepDurationSeconds,
	}, logger, collector)

	return batch.NewRunner(pipe, batch.Options{
		Workers: cfg.Batch.Workers,
		Limit:   cfg.Batch.Limit,
	}, logger)
}

// reportResults writes artifacts, records history and prints the summary.
// It returns the number of inputs that did not produce an accepted recipe.
func reportResults(cfg *config.Config, logger *zap.Logger, runStore *store.RunStore, results []batch.Result) int {
	failed := 0
	for i := range results {
		result := &results[i]
		var jsonPath, csvPath string

		if result.Accepted() && result.Artifact != nil {
			var err error
			jsonPath, csvPath, err = export.WriteFiles(cfg.Export.Directory, slugify(result.Name), result.Artifact)
			if err != nil {
				logger.Error("failed to write artifacts", zap.String("input", result.Name), zap.Error(err))
				result.Err = err
			}
		}

		if runStore != nil {
			if _, err := runStore.Record(result, jsonPath, csvPath); err != nil {
				logger.Warn("failed to record run", zap.String("input", result.Name), zap.Error(err))
			}
		}

		switch {
		case result.Accepted() && result.Err == nil:
			fmt.Printf("✓ %-30s accepted after %d iteration(s) -> %s\n", result.Name, result.Iterations, jsonPath)
		case result.Err != nil:
			failed++
			fmt.Printf("✗ %-30s %s: %v\n", result.Name, orUnknown(string(result.Status)), result.Err)
		default:
			failed++
			fmt.Printf("✗ %-30s %s with %d outstanding error(s)\n",
				result.Name, result.Status, len(result.Violations.Errors()))
		}
	}
	return failed
}

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	storePath := fs.String("store", "", "Override the history database path")
	limit := fs.Int("n", 20, "Number of runs to show")
	status := fs.String("status", "", "Filter by terminal status")
	fs.Parse(args)

	path := *storePath
	if path == "" {
		cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
		if err != nil {
			// History only needs the store path; a missing model must not
			// block reading it.
			path = config.DefaultConfig().Store.Path
		} else {
			path = cfg.Store.Path
		}
	}

	runStore, err := store.Open(path, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open run history: %v\n", err)
		os.Exit(1)
	}
	defer runStore.Close()

	var records []store.RunRecord
	if *status != "" {
		records, err = runStore.ByStatus(*status, *limit)
	} else {
		records, err = runStore.Recent(*limit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read run history: %v\n", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Println("No runs recorded yet.")
		return
	}
	for _, r := range records {
		line := fmt.Sprintf("%s  %-16s %-30s iterations=%d violations=%d",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.Status, r.Name, r.Iterations, r.ViolationCount)
		if r.JSONPath != "" {
			line += "  " + r.JSONPath
		}
		fmt.Println(line)
	}
}

func printUsage() {
	fmt.Println(`souschef - recipe transformation pipeline

Usage:
  souschef <command> [options]

Commands:
  transform   Transform recipe inputs into validated documents
  history     Show recent runs
  version     Show version information
  help        Show this help message

Options for 'transform':
  --config <path>   Configuration file (YAML)
  --text <recipe>   Pasted recipe text
  --name <name>     Name for pasted text
  --file <path>     Recipe .txt file (repeatable)
  --url <url>       Recipe page URL (repeatable)
  --out <dir>       Export directory override
  --limit <n>       Process at most n inputs

Options for 'history':
  --n <count>       Number of runs to show (default 20)
  --status <s>      Filter by status (accepted, failed_budget, failed_permanent)
  --store <path>    History database path override

The model id is required: set llm.model in the config file or
SOUSCHEF_LLM_MODEL. The Groq API key comes from llm.api_key,
SOUSCHEF_LLM_API_KEY or GROQ_API_KEY.`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	logger, err := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// slugify turns an input name into a safe artifact file stem.
func slugify(name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(name))
	slug = strings.Trim(strings.Join(strings.FieldsFunc(slug, func(r rune) bool { return r == '-' }), "-"), "-")
	if slug == "" {
		return "recipe"
	}
	return slug
}

func orUnknown(s string) string {
	if s == "" {
		return "failed"
	}
	return s
}
