package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nguyenvanduocit/tradubot/pkg/processor"
	"github.com/nguyenvanduocit/tradubot/pkg/translator"
)

var Translate = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate text once, or every line of a file with --file",
	Example: `tradubot translate "The quick brown fox"
tradubot translate --file posts.txt --workers 4 --json`,
	Args: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" && len(args) == 0 {
			return errors.New("text or --file is required")
		}
		if file != "" && len(args) > 0 {
			return errors.New("text and --file are mutually exclusive")
		}
		return nil
	},
	RunE: runTranslate,
}

func init() {
	Translate.Flags().StringP("file", "f", "", "file with one text per line (use - for stdin)")
	Translate.Flags().Int64("user", 0, "identity charged against the rate limit; every line of a --file batch is charged to it")
	Translate.Flags().IntP("workers", "w", 2, "number of concurrent translations in --file mode")
	Translate.Flags().Bool("json", false, "print results as JSON")
}

type translateOutput struct {
	Text     string   `json:"text"`
	Best     string   `json:"best,omitempty"`
	Variants []string `json:"variants,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	engine, err := newEngine(ctx, appConfig, logger)
	if err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("file")
	userID, _ := cmd.Flags().GetInt64("user")
	workers, _ := cmd.Flags().GetInt("workers")
	asJSON, _ := cmd.Flags().GetBool("json")

	var items []string
	if file == "" {
		items = []string{strings.Join(args, " ")}
	} else {
		items, err = readItems(cmd.InOrStdin(), file)
		if err != nil {
			return err
		}
	}

	if over := overQuota(len(items), appConfig.RateLimiter().MaxCalls); over > 0 {
		logger.Warn("batch is larger than the per user quota, the extra lines will be rate limited",
			"user_id", userID, "lines", len(items), "max_calls", appConfig.RateLimiter().MaxCalls, "over", over)
	}

	results, err := processor.Process(ctx, items, processor.Config{Workers: workers, JobBuffer: workers}, func(ctx context.Context, text string) (translator.Result, error) {
		return engine.TranslateWithVariants(ctx, userID, text)
	})

	outputs := make([]translateOutput, len(results))
	for i, res := range results {
		outputs[i] = translateOutput{Text: res.Item, Best: res.Value.Best, Variants: res.Value.Variants}
		if res.Err != nil {
			outputs[i].Error = res.Err.Error()
		}
	}

	if printErr := printOutputs(cmd.OutOrStdout(), outputs, asJSON); printErr != nil {
		return printErr
	}

	return err
}

// overQuota is how many of n calls from one identity the limiter will deny
// when its window starts empty.
func overQuota(n, maxCalls int) int {
	if n <= maxCalls {
		return 0
	}
	return n - maxCalls
}

func readItems(stdin io.Reader, file string) ([]string, error) {
	if file == "-" {
		return processor.ReadLines(stdin)
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	return processor.ReadLines(f)
}

func printOutputs(w io.Writer, outputs []translateOutput, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if len(outputs) == 1 {
			return enc.Encode(outputs[0])
		}
		return enc.Encode(outputs)
	}

	for i, out := range outputs {
		if len(outputs) > 1 {
			fmt.Fprintf(w, "%d/%d: %s\n", i+1, len(outputs), out.Text)
		}
		if out.Error != "" {
			fmt.Fprintf(w, "\terror: %s\n", out.Error)
			continue
		}
		fmt.Fprintln(w, out.Best)
	}
	return nil
}
