package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crazyfrank/webclip/internal/config"
	"github.com/crazyfrank/webclip/internal/extractor"
	"github.com/crazyfrank/webclip/internal/log"
	"github.com/crazyfrank/webclip/internal/report"
	"github.com/crazyfrank/webclip/pkg/webclip"
)

// Exit codes for granular error handling
const (
	ExitSuccess      = 0
	ExitTotalFailure = 1
	ExitInvalidInput = 3
	ExitConfigError  = 4
	ExitFileIOError  = 5
	ExitPartialError = 6 // some URLs failed, some succeeded
)

var (
	cfgFile      string
	urlFile      string
	outputDir    string
	outputFormat string
	backendChain []string
	concurrency  int
	delayMs      int
	deadlineS    int
	quiet        bool
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "webclip [urls...]",
	Short: "Extract article content from web pages as Markdown",
	Long: `webclip extracts article-like content (title, body, metadata) from web
pages and normalizes it into Markdown records. It falls back across extraction
backends: a remote rendering API, headless Chrome, and a plain-HTTP fetcher.`,
	Version:       version,
	RunE:          run,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitErr); ok {
			os.Exit(exitErr.code)
		}
		os.Exit(ExitInvalidInput)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/webclip/config.toml)")

	rootCmd.Flags().StringVarP(&urlFile, "file", "f", "", "read URLs from file (one per line, # comments)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "write per-URL JSON and Markdown files into this directory (default: digest to stdout)")
	rootCmd.Flags().StringVar(&outputFormat, "format", "", "digest format (markdown|json)")
	rootCmd.Flags().StringSliceVarP(&backendChain, "backend", "B", nil, "backend fallback chain, priority order (static, jina, chrome)")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "max concurrent extractions (default from config)")
	rootCmd.Flags().IntVar(&delayMs, "delay", 0, "minimum delay between dispatches in ms (rate limiting)")
	rootCmd.Flags().IntVar(&deadlineS, "deadline", 0, "overall batch deadline in seconds (0 = none)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress all non-content output")
}

func run(cmd *cobra.Command, args []string) error {
	// Auto-create config on first run
	if cfgFile == "" {
		if path := config.DefaultConfigPath(); path != "" {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if createErr := config.Default().CreateExampleConfig(path); createErr == nil && !quiet {
					fmt.Fprintf(os.Stderr, "Created config file: %s\n", path)
				}
			}
		}
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return exitError(ExitConfigError, "failed to load config: %v", err)
	}
	log.SetLevel(cfg.Logging.Level)
	if quiet {
		log.SetLevel("error")
	}

	if cmd.Flags().Changed("backend") {
		cfg.Backends.Chain = backendChain
	}
	if cmd.Flags().Changed("delay") {
		cfg.Batch.DelayMs = delayMs
	}
	if cmd.Flags().Changed("deadline") {
		cfg.Batch.DeadlineS = deadlineS
	}
	if outputFormat == "" {
		outputFormat = cfg.Output.Format
	}

	urls, err := collectURLs(args)
	if err != nil {
		return exitError(ExitInvalidInput, "failed to collect URLs: %v", err)
	}
	if len(urls) == 0 {
		return exitError(ExitInvalidInput, "no URLs provided")
	}

	clipper, err := webclip.New(cfg)
	if err != nil {
		return exitError(ExitConfigError, "%v", err)
	}
	defer clipper.Close()

	results := clipper.ExtractBatch(context.Background(), urls, concurrency)
	stats := extractor.Summarize(results)

	if outputDir != "" {
		if err := report.WriteJSON(outputDir, results); err != nil {
			return exitError(ExitFileIOError, "%v", err)
		}
		if err := report.WriteMarkdown(outputDir, results, cfg.Output.PreviewLength, cfg.Output.IncludeContent); err != nil {
			return exitError(ExitFileIOError, "%v", err)
		}
		if !quiet {
			fmt.Fprintf(os.Stderr, "Saved %d results to %s\n", len(results), outputDir)
		}
	} else if err := writeDigest(results, cfg); err != nil {
		return exitError(ExitFileIOError, "%v", err)
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "Done: %d succeeded, %d failed, %d words\n",
			stats.Succeeded, stats.Failed, stats.TotalWords)
	}

	switch {
	case stats.Succeeded == 0:
		return &exitErr{code: ExitTotalFailure}
	case stats.Failed > 0:
		return &exitErr{code: ExitPartialError}
	}
	return nil
}

func writeDigest(results []*extractor.Result, cfg *config.Config) error {
	if outputFormat == "json" {
		return report.DigestJSON(os.Stdout, results)
	}
	return report.Digest(os.Stdout, results, cfg.Output.PreviewLength)
}

func collectURLs(args []string) ([]string, error) {
	var urls []string
	urls = append(urls, args...)

	if urlFile != "" {
		fileURLs, err := readURLsFromFile(urlFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read URLs from file %s: %w", urlFile, err)
		}
		urls = append(urls, fileURLs...)
	}

	if len(args) == 0 && urlFile == "" {
		stdinURLs, err := readURLsFromStdin()
		if err != nil {
			return nil, fmt.Errorf("failed to read URLs from stdin: %w", err)
		}
		urls = append(urls, stdinURLs...)
	}

	var clean []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			clean = append(clean, u)
		}
	}
	return clean, nil
}

func readURLsFromFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	return urls, scanner.Err()
}

func readURLsFromStdin() ([]string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return nil, nil
	}

	var urls []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	return urls, scanner.Err()
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string {
	return e.msg
}

func exitError(code int, format string, args ...interface{}) *exitErr {
	msg := fmt.Sprintf(format, args...)
	if msg != "" && !quiet {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
	return &exitErr{code: code, msg: msg}
}
