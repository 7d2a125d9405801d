package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Capybaralifestyle/moonshot-poc/internal/adapter/llm"
	"github.com/Capybaralifestyle/moonshot-poc/internal/agent"
	"github.com/Capybaralifestyle/moonshot-poc/internal/config"
	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
	"github.com/Capybaralifestyle/moonshot-poc/internal/export"
	"github.com/Capybaralifestyle/moonshot-poc/internal/orchestrator"
)

type ui struct {
	title func(a ...interface{}) string
	ok    func(a ...interface{}) string
	warn  func(a ...interface{}) string
	err   func(a ...interface{}) string
	dim   func(a ...interface{}) string
}

func newUI() ui {
	return ui{
		title: color.New(color.FgWhite, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed).SprintFunc(),
		dim:   color.New(color.Faint).SprintFunc(),
	}
}

// agentColors assigns each agent a distinct color, as the original CLI did.
var agentColors = map[string]*color.Color{
	"architect":   color.New(color.FgRed),
	"pm":          color.New(color.FgGreen),
	"cost":        color.New(color.FgYellow),
	"security":    color.New(color.FgBlue),
	"devops":      color.New(color.FgMagenta),
	"performance": color.New(color.FgCyan),
	"data":        color.New(color.FgHiYellow),
	"ux":          color.New(color.FgHiWhite),
	"datasci":     color.New(color.FgHiCyan),
}

func main() {
	_ = godotenv.Load()
	// Keep library logs quiet unless asked for.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	root := &cobra.Command{
		Use:           "moonshot",
		Short:         "Run planning agents over a project description",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAgentsCmd(), newRunCmd())

	if err := root.Execute(); err != nil {
		u := newUI()
		fmt.Fprintln(os.Stderr, u.err("Error:"), err)
		os.Exit(1)
	}
}

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the available agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range agent.NewRegistry().Keys() {
				fmt.Println(key)
			}
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var (
		agentsFlag string
		filePath   string
		doExport   bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "run [description]",
		Short: "Run the selected agents over a description",
		Long: "Runs the planning agents over a project description given as an " +
			"argument, read from --file, or piped on stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			u := newUI()

			description, err := readDescription(args, filePath)
			if err != nil {
				return err
			}

			cfg, err := config.Load(os.Getenv("MOONSHOT_CONFIG"))
			if err != nil {
				return err
			}
			if verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
			}

			client, err := llm.New(llm.Config{
				Provider:      cfg.LLM.Provider,
				Model:         cfg.LLM.Model,
				BaseURL:       cfg.LLM.BaseURL,
				APIKey:        cfg.LLM.APIKey,
				Timeout:       cfg.LLMTimeout(),
				MaxAttempts:   cfg.LLM.MaxAttempts,
				RetryInterval: cfg.RetryInterval(),
			})
			if err != nil {
				return err
			}

			registry := agent.NewRegistry()

			var worker *export.Worker
			if doExport || cfg.Export.Enabled {
				worker = export.NewWorker(newExporter(cfg.Export), cfg.Export.QueueSize, slog.Default())
				worker.Start()
			}

			orch := orchestrator.New(registry, client, orchestrator.Options{
				ExportWorker:  worker,
				ExportDefault: cfg.Export.Enabled,
				MaxConcurrent: cfg.LLM.MaxConcurrent,
			})

			req := domain.RunRequest{Description: description}
			if agentsFlag != "" {
				req.Agents = strings.Split(agentsFlag, ",")
			}
			if doExport {
				enabled := true
				req.ExportEnabled = &enabled
			}

			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			s.Suffix = " running agents..."
			s.Start()
			results, err := orch.Run(context.Background(), req)
			s.Stop()
			if err != nil {
				return err
			}
			if worker != nil {
				// Let the export drain before the process exits.
				worker.Close()
			}

			printResults(u, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentsFlag, "agents", "", "comma-separated agent keys (default: all)")
	cmd.Flags().StringVar(&filePath, "file", "", "read the description from a text file")
	cmd.Flags().BoolVar(&doExport, "export", false, "export results for this run")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log agent activity to stderr")
	return cmd
}

func readDescription(args []string, filePath string) (string, error) {
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read description file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	description := strings.TrimSpace(string(data))
	if description == "" {
		return "", fmt.Errorf("no description given (argument, --file, or stdin)")
	}
	return description, nil
}

func printResults(u ui, results domain.RunResult) {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		c := agentColors[key]
		if c == nil {
			c = color.New(color.FgWhite)
		}
		c.Printf("\n=== %s ===\n", key)
		res := results[key]
		if !res.OK() {
			fmt.Println(u.err(res.Err))
			if res.Raw != "" {
				fmt.Println(u.dim(res.Raw))
			}
			continue
		}
		var pretty map[string]interface{}
		if err := json.Unmarshal(res.Value, &pretty); err == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(out))
		} else {
			fmt.Println(string(res.Value))
		}
	}

	fmt.Println(u.title("\n===== Summary ====="))
	if failed := results.Errors(); len(failed) > 0 {
		fmt.Println(u.warn(fmt.Sprintf("%d of %d agents failed: %s", len(failed), len(results), strings.Join(failed, ", "))))
	} else {
		fmt.Println(u.ok(fmt.Sprintf("all %d agents completed", len(results))))
	}
}

func newExporter(cfg config.ExportConfig) export.Exporter {
	if cfg.Format == "csv" {
		return export.NewCSVExporter(cfg.Path)
	}
	return export.NewExcelExporter(cfg.Path)
}
