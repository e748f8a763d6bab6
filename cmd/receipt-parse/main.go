// Command receipt-parse runs the receipt parser on previously detected words
// and prints the items and totals as JSON. Input is either a JSON array of
// words with normalized bounding boxes or a saved Textract
// DetectDocumentText response.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-splitter/internal/parsing"
	"github.com/zombor/receipt-splitter/internal/receipt"
	"github.com/zombor/receipt-splitter/internal/scanning"
)

func readWords(r io.Reader, format string) ([]parsing.Word, error) {
	switch format {
	case "words":
		var words []parsing.Word
		if err := json.NewDecoder(r).Decode(&words); err != nil {
			return nil, fmt.Errorf("decoding words: %w", err)
		}
		return words, nil
	case "textract":
		return scanning.WordsFromTextractJSON(r)
	default:
		return nil, fmt.Errorf("unknown input format %q, want words or textract", format)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := ff.NewFlagSet("receipt-parse")
	var (
		format       = fs.StringLong("format", "words", "Input format: 'words' or 'textract'")
		strategyName = fs.StringLong("strategy", "union", "Price column detection: 'union', 'runs' or 'median'")
		verbose      = fs.BoolLong("verbose", "Log dropped rows and total fallbacks to stderr")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("RECEIPT_PARSE")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	strategy, err := parsing.ParseColumnStrategy(*strategyName)
	if err != nil {
		return err
	}

	in := stdin
	if rest := fs.GetArgs(); len(rest) > 0 && rest[0] != "-" {
		f, err := os.Open(rest[0])
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	words, err := readWords(in, *format)
	if err != nil {
		return err
	}

	summary := receipt.NewSummary(parsing.NewParser(strategy).Parse(words))
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
