package processor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Config holds the configuration for the batch processor
type Config struct {
	Workers      int
	JobBuffer    int
	ResultBuffer int
}

// ItemProcessor handles a single input item
type ItemProcessor[T any] func(ctx context.Context, item string) (T, error)

// Result is the outcome for the item at Index in the input.
type Result[T any] struct {
	Index int
	Item  string
	Value T
	Err   error
}

// ErrNotProcessed marks items left over when processing stopped early.
var ErrNotProcessed = errors.New("not processed")

type job struct {
	index int
	item  string
}

// Process runs processor over items with a fixed pool of workers. Results come
// back in input order. Per item failures are reported in the results and
// summarized in the returned error; they do not stop the other items.
func Process[T any](ctx context.Context, items []string, cfg Config, processor ItemProcessor[T]) ([]Result[T], error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	jobs := make(chan job, cfg.JobBuffer)
	results := make(chan Result[T], cfg.ResultBuffer)

	g, ctx := errgroup.WithContext(ctx)

	// Start worker pool
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			return worker(ctx, jobs, results, processor)
		})
	}

	// Feed jobs
	go func() {
		defer close(jobs)
		for i, item := range items {
			select {
			case jobs <- job{index: i, item: item}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Collect results
	go func() {
		g.Wait()
		close(results)
	}()

	ordered := make([]Result[T], len(items))
	for i, item := range items {
		ordered[i] = Result[T]{Index: i, Item: item, Err: ErrNotProcessed}
	}

	for res := range results {
		ordered[res.Index] = res
	}

	var failed int
	for _, res := range ordered {
		if res.Err != nil {
			failed++
		}
	}

	if err := g.Wait(); err != nil {
		return ordered, err
	}

	if failed > 0 {
		return ordered, fmt.Errorf("encountered %d errors during processing", failed)
	}

	return ordered, nil
}

func worker[T any](ctx context.Context, jobs <-chan job, results chan<- Result[T], processor ItemProcessor[T]) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j, ok := <-jobs:
			if !ok {
				return nil
			}
			value, err := processor(ctx, j.item)
			results <- Result[T]{Index: j.index, Item: j.item, Value: value, Err: err}
		}
	}
}

// ReadLines returns the non blank lines of r, skipping lines starting with "#".
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lines: %w", err)
	}
	return lines, nil
}
