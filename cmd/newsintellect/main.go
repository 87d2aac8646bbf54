package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/NewsIntellect/internal/config"
	"github.com/TobiSchelling/NewsIntellect/internal/database"
	"github.com/TobiSchelling/NewsIntellect/internal/export"
	"github.com/TobiSchelling/NewsIntellect/internal/fetch"
	"github.com/TobiSchelling/NewsIntellect/internal/llm"
	"github.com/TobiSchelling/NewsIntellect/internal/logging"
	"github.com/TobiSchelling/NewsIntellect/internal/news"
	"github.com/TobiSchelling/NewsIntellect/internal/sentiment"
	"github.com/TobiSchelling/NewsIntellect/internal/server"
	"github.com/TobiSchelling/NewsIntellect/internal/summarize"
	"github.com/TobiSchelling/NewsIntellect/internal/workflow"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsintellect",
	Short:   "News search with AI summaries and sentiment",
	Long:    "NewsIntellect searches news providers, summarizes articles and scores their sentiment with an LLM, and keeps a browsable history.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			logger = logging.New(os.Stderr, "info", "text")
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger = logging.New(os.Stderr, level, cfg.Logging.Format)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(deleteCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsintellect", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsintellect/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to choose the news and LLM providers, then export the API keys it names.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and provider status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		provider, err := newProvider(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("Database:")
		fmt.Printf("  Driver: %s\n", db.Dialect())
		if db.Path() != "" {
			fmt.Printf("  Path: %s\n", db.Path())
		}
		fmt.Println("\nArticles:")
		fmt.Printf("  Total: %d\n", stats.Articles)
		fmt.Printf("  Without analysis: %d\n", stats.OrphanedArticles)
		fmt.Println("\nAnalyses:")
		fmt.Printf("  Total: %d\n", stats.Analyses)
		fmt.Printf("  Positive: %d\n", stats.Positive)
		fmt.Printf("  Neutral: %d\n", stats.Neutral)
		fmt.Printf("  Negative: %d\n", stats.Negative)
		fmt.Println("\nProviders:")
		fmt.Printf("  News: %s\n", cfg.News.Provider)
		fmt.Printf("  LLM: %s (%s), configured: %t\n", provider.Name(), cfg.LLM.Model, provider.IsConfigured())
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and history page",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		searcher, err := news.New(cfg.News, logger)
		if err != nil {
			return err
		}
		wf, err := newWorkflow(cmd.Context(), db)
		if err != nil {
			return err
		}

		srv, err := server.New(db, searcher, wf, server.Options{
			CORSOrigins: cfg.Server.CORSOrigins,
			Logger:      logger,
		})
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://%s\n", cfg.Addr())
		fmt.Println("Press Ctrl+C to stop")
		return srv.ListenAndServe(ctx, cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- search command ---

var searchCategory string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the configured news provider",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		searcher, err := news.New(cfg.News, logger)
		if err != nil {
			return err
		}

		articles, err := searcher.Search(cmd.Context(), news.Query{
			Text:     strings.Join(args, " "),
			Category: searchCategory,
		})
		if err != nil {
			return err
		}

		if len(articles) == 0 {
			fmt.Println("No articles found.")
			return nil
		}
		for i, a := range articles {
			fmt.Printf("%2d. %s\n", i+1, a.Title)
			fmt.Printf("    %s · %s\n", a.Source.Name, a.PublishedAt)
			fmt.Printf("    %s\n", a.URL)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "Restrict to a category (GNews top headlines)")
}

// --- analyze command ---

var analyzeFlags workflow.Payload

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url>",
	Short: "Summarize an article and score its sentiment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		wf, err := newWorkflow(cmd.Context(), db)
		if err != nil {
			return err
		}

		p := analyzeFlags
		p.URL = args[0]
		if p.PublishedAt == "" {
			p.PublishedAt = time.Now().UTC().Format(time.RFC3339)
		}

		res, err := wf.AnalyzeArticle(cmd.Context(), p)
		if err != nil {
			return err
		}

		a := res.Analysis
		fmt.Printf("%s\n\n", res.Article.Title)
		fmt.Printf("Summary:\n  %s\n\n", a.Summary)
		fmt.Printf("Sentiment: %s (%d%% confidence)\n", a.Sentiment, a.Confidence)
		fmt.Printf("  positive %d%% · neutral %d%% · negative %d%%\n", a.PositiveScore, a.NeutralScore, a.NegativeScore)
		fmt.Printf("\nAnalysis ID: %s\n", a.ID)
		return nil
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.Title, "title", "", "Article title (required)")
	f.StringVar(&analyzeFlags.Content, "content", "", "Article text (required)")
	f.StringVar(&analyzeFlags.Description, "description", "", "Article description")
	f.StringVar(&analyzeFlags.PublishedAt, "published", "", "Publication date (defaults to now)")
	f.StringVar(&analyzeFlags.Source.Name, "source", "", "Source name (required)")
	f.StringVar(&analyzeFlags.Source.URL, "source-url", "", "Source homepage")
	f.StringVar(&analyzeFlags.Author, "author", "", "Article author")
	f.StringVar(&analyzeFlags.URLToImage, "image", "", "Image URL")
}

// --- history command ---

var historySentiment string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analyses, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		analyses, err := db.ListAnalyses(cmd.Context(), database.ListFilter{Sentiment: historySentiment})
		if err != nil {
			return err
		}
		if len(analyses) == 0 {
			fmt.Println("No analyses yet. Analyze one with: newsintellect analyze <url> --title ... --content ... --source ...")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSENTIMENT\tCONF\tANALYZED\tTITLE")
		for _, a := range analyses {
			fmt.Fprintf(tw, "%s\t%s\t%d%%\t%s\t%s\n", a.ID, a.Sentiment, a.Confidence, humanize.Time(a.CreatedAt), truncate(a.Article.Title, 60))
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().StringVar(&historySentiment, "sentiment", "", "Filter by sentiment (positive, neutral, negative)")
}

// --- export command ---

var (
	exportOutput    string
	exportSentiment string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export analyses as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		analyses, err := db.ListAnalyses(cmd.Context(), database.ListFilter{Sentiment: exportSentiment})
		if err != nil {
			return err
		}

		var w io.Writer = os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("creating %s: %w", exportOutput, err)
			}
			defer f.Close()
			w = f
		}

		if err := export.WriteCSV(w, analyses); err != nil {
			return err
		}
		if exportOutput != "" {
			fmt.Fprintf(os.Stderr, "Exported %d analyses to %s\n", len(analyses), exportOutput)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().StringVar(&exportSentiment, "sentiment", "", "Filter by sentiment")
}

// --- delete command ---

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an analysis (its article is kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteAnalysis(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted analysis %s\n", args[0])
		return nil
	},
}

func openDB() (*database.DB, error) {
	dsn, err := cfg.DatabaseDSN()
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetLogger(logger)
	return db, nil
}

func newProvider(ctx context.Context) (llm.Provider, error) {
	return llm.CreateProvider(ctx, llm.Settings{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      os.Getenv(cfg.LLM.APIKeyEnv),
		BaseURL:     cfg.LLM.BaseURL,
		OllamaURL:   cfg.LLM.OllamaURL,
		Temperature: cfg.LLM.Temperature,
	}, logger)
}

func newWorkflow(ctx context.Context, db database.Store) (*workflow.Workflow, error) {
	provider, err := newProvider(ctx)
	if err != nil {
		return nil, err
	}

	var fetcher workflow.TextFetcher
	if cfg.Analysis.FetchFullText {
		fetcher = fetch.NewFetcher(time.Duration(cfg.Analysis.FetchTimeoutSeconds) * time.Second)
	}

	return workflow.New(
		db,
		summarize.NewSummarizer(provider, cfg.LLM.MaxTokens),
		sentiment.NewAnalyzer(provider, cfg.LLM.MaxTokens, logger),
		fetcher,
		logger,
	), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
