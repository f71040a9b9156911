package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/Skufu/symptomdx/internal/config"
	"github.com/Skufu/symptomdx/internal/dataset"
	"github.com/Skufu/symptomdx/internal/diagnostics"
)

type trainOptions struct {
	dataPath   string
	modelPath  string
	labelsPath string
	testSize   float64
	seed       int64
}

func main() {
	opts, err := parseFlags(os.Args[1:], defaultOptions())
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("train: %v", err)
	}
	if err := run(opts, os.Stdout); err != nil {
		log.Fatalf("train: %v", err)
	}
}

// defaultOptions takes artifact paths from DATA_PATH, MODEL_PATH and
// LABELS_PATH when the environment is usable.
func defaultOptions() trainOptions {
	opts := trainOptions{
		dataPath:   dataset.DefaultPath,
		modelPath:  diagnostics.DefaultModelPath,
		labelsPath: diagnostics.DefaultLabelsPath,
	}
	if cfg, err := config.Load(); err == nil {
		opts.dataPath = cfg.Model.DataPath
		opts.modelPath = cfg.Model.ModelPath
		opts.labelsPath = cfg.Model.LabelsPath
	}
	return opts
}

func parseFlags(args []string, defaults trainOptions) (trainOptions, error) {
	var opts trainOptions
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.StringVar(&opts.dataPath, "data", defaults.dataPath, "Training CSV (seeded with demo rows when missing)")
	fs.StringVar(&opts.modelPath, "model", defaults.modelPath, "Where to write the model artifact")
	fs.StringVar(&opts.labelsPath, "labels", defaults.labelsPath, "Where to write the label list")
	fs.Float64Var(&opts.testSize, "test-size", 0.2, "Fraction of rows held out for evaluation")
	fs.Int64Var(&opts.seed, "seed", 42, "Shuffle seed for the train/test split")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [options]\n\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.testSize <= 0 || opts.testSize >= 1 {
		return opts, fmt.Errorf("-test-size must be between 0 and 1, got %v", opts.testSize)
	}
	return opts, nil
}

func run(opts trainOptions, out io.Writer) error {
	created, err := dataset.Ensure(opts.dataPath)
	if err != nil {
		return fmt.Errorf("seed dataset: %w", err)
	}
	if created {
		fmt.Fprintf(out, "Created sample dataset at %s\n", opts.dataPath)
	}

	examples, err := dataset.Load(opts.dataPath)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	fmt.Fprintf(out, "Loaded %d training samples\n", len(examples))

	train, test := dataset.Split(examples, opts.testSize, opts.seed)
	fmt.Fprintf(out, "Train set: %d samples, Test set: %d samples\n", len(train), len(test))

	model := diagnostics.New()
	if err := model.Fit(train); err != nil {
		return fmt.Errorf("fit: %w", err)
	}

	if len(test) > 0 {
		report, err := model.Evaluate(test)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		fmt.Fprintln(out, "\nEvaluation on test set:")
		fmt.Fprintln(out, report.String())
	}

	if err := model.Save(opts.modelPath, opts.labelsPath); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	fmt.Fprintf(out, "\nModel saved to %s\n", filepath.Dir(opts.modelPath))
	for _, path := range []string{opts.modelPath, opts.labelsPath} {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
