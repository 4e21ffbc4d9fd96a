package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TheStoneMX/Tech9-Evaluation/pkg/clients"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/config"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/research"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/research/tools"
	"github.com/TheStoneMX/Tech9-Evaluation/pkg/state"
)

var (
	query         string
	maxIterations int
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "research-agent",
		Short: "An autonomous research agent",
		Long:  `research-agent runs an iterative research loop: it plans subtasks, gathers web evidence per task, synthesizes insights and recommendations, and stops once quality is sufficient.`,
		Run: func(cmd *cobra.Command, args []string) {
			queryFlagChanged := cmd.Flags().Changed("query")

			if !queryFlagChanged {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research query: ")
				input, _ := reader.ReadString('\n')
				query = strings.TrimSpace(input)
				if query == "" {
					slog.Error("Query cannot be empty")
					os.Exit(1)
				}
			} else if query == "" {
				slog.Error("--query flag provided but empty")
				os.Exit(1)
			}

			if maxIterations == 0 {
				maxIterations = cfg.MaxIterations
			}

			slog.Info("Starting research", "query", query, "max_iterations", maxIterations)

			llm, err := clients.OpenAi(clients.ModelType(cfg.ReasoningModel))
			if err != nil {
				slog.Error("Error initializing LLM", "error", err)
				os.Exit(1)
			}

			engineCfg := research.Config{
				MaxIterations:      maxIterations,
				MaxResultsPerQuery: cfg.MaxResults,
				SearchDepth:        cfg.SearchDepth,
				MinSourceQuality:   cfg.MinQuality,
				MinRelevance:       cfg.MinRelevance,
			}

			engine := research.NewEngine(
				engineCfg,
				research.NewLLMGenerator(llm),
				tools.NewTavilyClient(cfg.TavilyApiKey),
				slog.Default(),
			)

			report, err := engine.Run(context.Background(), query)
			if err != nil {
				slog.Error("Error running research", "error", err)
				os.Exit(1)
			}

			printReport(report)
		},
	}

	rootCmd.Flags().StringVarP(&query, "query", "q", "", "The research query")
	rootCmd.Flags().IntVarP(&maxIterations, "max-iterations", "n", 0, "Maximum research iterations")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func printReport(report *state.FinalReport) {
	divider := strings.Repeat("=", 80)
	section := strings.Repeat("-", 80)

	fmt.Println("\n" + divider)
	fmt.Println("AUTONOMOUS RESEARCH AGENT - FINAL REPORT")
	fmt.Println(divider)

	fmt.Printf("\n%s\n", report.Summary)

	fmt.Println("\n" + section)
	fmt.Println("STRATEGIC INSIGHTS")
	fmt.Println(section)

	for i, insight := range report.Insights {
		fmt.Printf("\n%d. [%s] (Priority: %d/5, Confidence: %.0f%%)\n",
			i+1, strings.ToUpper(insight.Category), insight.Priority, insight.Confidence*100)
		fmt.Printf("   %s\n", insight.Description)
	}

	fmt.Println("\n" + section)
	fmt.Println("RECOMMENDATIONS")
	fmt.Println(section)

	for i, rec := range report.Recommendations {
		fmt.Printf("\n%d. %s\n", i+1, rec.Title)
		fmt.Printf("   Impact: %s | Effort: %s\n", strings.ToUpper(rec.Impact), strings.ToUpper(rec.Effort))
		fmt.Printf("   %s\n", rec.Description)
		fmt.Printf("   Rationale: %s\n", rec.Rationale)
	}

	fmt.Println("\n" + section)
	fmt.Println("SOURCES")
	fmt.Println(section)

	for i, source := range report.Sources {
		if i == 10 {
			break
		}
		title := source.Title
		if title == "" {
			title = "Unknown"
		}
		fmt.Printf("%d. [%.2f] %s\n   %s\n", i+1, source.QualityScore, title, source.URL)
	}

	fmt.Println("\n" + section)
	fmt.Println("METADATA")
	fmt.Println(section)

	fmt.Printf("Iterations: %d\n", report.Metadata.Iterations)
	fmt.Printf("Total Findings: %d\n", report.Metadata.TotalFindings)
	fmt.Printf("API Calls: %d\n", report.Metadata.APICalls)
	fmt.Printf("Completed: %s\n", report.Metadata.CompletedAt.Format("2006-01-02 15:04:05"))

	fmt.Println("\nQuality Metrics:")
	fmt.Printf("  Coverage: %.0f%%\n", report.QualityMetrics.CoverageScore*100)
	fmt.Printf("  Source Quality: %.0f%%\n", report.QualityMetrics.SourceQualityScore*100)
	fmt.Printf("  Insight Depth: %.0f%%\n", report.QualityMetrics.InsightDepthScore*100)

	fmt.Println("\n" + divider)
}
