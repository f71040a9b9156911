package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Skufu/symptomdx/internal/config"
	"github.com/Skufu/symptomdx/internal/diagnostics"
	"github.com/Skufu/symptomdx/internal/explain"
	"github.com/Skufu/symptomdx/internal/features"
	"github.com/Skufu/symptomdx/pkg/logger"
)

type cliOptions struct {
	symptoms   string
	age        float64
	sex        string
	duration   float64
	useAI      bool
	modelPath  string
	labelsPath string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("diagnose: %v", err)
	}

	if err := run(context.Background(), opts, newGenerator, os.Stdout); err != nil {
		log.Fatalf("diagnose: %v", err)
	}
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("diagnose", flag.ContinueOnError)
	fs.StringVar(&opts.symptoms, "symptoms", "", "Symptoms description (required)")
	fs.Float64Var(&opts.age, "age", 30, "Patient age")
	fs.StringVar(&opts.sex, "sex", "", "Patient sex")
	fs.Float64Var(&opts.duration, "duration", 1, "Duration in days")
	fs.BoolVar(&opts.useAI, "use-ai", false, "Generate AI explanation")
	fs.StringVar(&opts.modelPath, "model", diagnostics.DefaultModelPath, "Model artifact")
	fs.StringVar(&opts.labelsPath, "labels", diagnostics.DefaultLabelsPath, "Label list artifact")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s -symptoms TEXT [options]\n\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.symptoms = strings.TrimSpace(opts.symptoms)
	if opts.symptoms == "" {
		fs.Usage()
		return opts, errors.New("missing required -symptoms")
	}
	return opts, nil
}

// newGenerator reads the DIAG_AI_* settings. Without an API key the
// generator is disabled and reports so.
func newGenerator() (*explain.Generator, error) {
	cfg, err := config.LoadAI()
	if err != nil {
		return nil, err
	}
	genCfg := explain.Config{
		Model:    cfg.Model,
		Timeout:  cfg.Timeout,
		CacheTTL: cfg.CacheTTL,
	}
	if !cfg.Enabled() {
		return explain.NewGenerator(nil, nil, genCfg, logger.Nop()), nil
	}
	client, err := explain.NewOpenAIClient(cfg.APIKey, cfg.Endpoint, cfg.Model)
	if err != nil {
		return nil, err
	}
	return explain.NewGenerator(client, nil, genCfg, logger.Nop()), nil
}

// run prints the ranking. Explanation setup and generation failures are
// printed as "Error: ..." and never fail the command.
func run(ctx context.Context, opts cliOptions, newGen func() (*explain.Generator, error), out io.Writer) error {
	model, err := diagnostics.Load(opts.modelPath, opts.labelsPath)
	if err != nil {
		return fmt.Errorf("load model (run cmd/train first): %w", err)
	}

	sample := features.Sample{
		Symptoms: opts.symptoms,
		Age:      features.Number(opts.age),
		Sex:      opts.sex,
		Duration: features.Number(opts.duration),
	}
	ranked, err := model.PredictProba(sample)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Ranked conditions:")
	for _, line := range diagnostics.Summary(ranked, 5) {
		fmt.Fprintln(out, line)
	}

	if !opts.useAI {
		return nil
	}

	fmt.Fprintln(out, "\nGenerating AI explanation...")
	gen, err := newGen()
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return nil
	}
	result := gen.Generate(ctx, explain.Payload{Sample: sample}, ranked)
	if !result.OK() {
		fmt.Fprintf(out, "Error: %s\n", result.Error)
		return nil
	}
	fmt.Fprintln(out, "\nAI Explanation:")
	fmt.Fprintln(out, result.Explanation)
	return nil
}
