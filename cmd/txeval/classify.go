package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/txeval/txeval/internal/annodb"
	"github.com/txeval/txeval/internal/chunk"
	"github.com/txeval/txeval/internal/classify"
	"github.com/txeval/txeval/internal/config"
	"github.com/txeval/txeval/internal/gene"
	"github.com/txeval/txeval/internal/genome"
	"github.com/txeval/txeval/internal/output"
	"github.com/txeval/txeval/internal/psl"
)

type classifyOptions struct {
	dbPath      string
	refGP       string
	targetFasta string
	txGPs       []string
	psls        []string
	genomicPSL  string
	outDir      string
	save        bool
}

func newClassifyCmd() *cobra.Command {
	opts := &classifyOptions{}
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify transcript alignments",
		Long: `Classify runs the structural classifiers over every transcript
alignment and the context classifiers over the transMap alignments, then
writes one Metrics and one Evaluation table per (mode, method) pair.`,
		Example: `  txeval classify --db ref.duckdb --ref-gp ref.gp --target-fasta tgt.fa \
    --tx-gp transMap=tm.gp --psl transMap:mRNA=tm.mrna.psl --out-dir results/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", "", "annotation DuckDB database (required)")
	cmd.Flags().StringVar(&opts.refGP, "ref-gp", "", "reference genePred (required)")
	cmd.Flags().StringVar(&opts.targetFasta, "target-fasta", "", "target genome FASTA (required)")
	cmd.Flags().StringArrayVar(&opts.txGPs, "tx-gp", nil, "target transcripts per method, method=path (repeatable)")
	cmd.Flags().StringArrayVar(&opts.psls, "psl", nil, "transcript alignments, method:mode=path (repeatable)")
	cmd.Flags().StringVar(&opts.genomicPSL, "genomic-psl", "", "genomic transMap PSL for context flags (optional)")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", ".", "directory for TSV result tables")
	cmd.Flags().BoolVar(&opts.save, "save", false, "also persist result tables into the annotation database")
	for _, f := range []string{"db", "ref-gp", "target-fasta"} {
		cobra.CheckErr(cmd.MarkFlagRequired(f))
	}

	return cmd
}

func runClassify(cmd *cobra.Command, opts *classifyOptions) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	db, err := annodb.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	in, err := loadInputs(db, opts, logger)
	if err != nil {
		return err
	}

	pool := chunk.NewPool(cfg.Workers)
	pool.SetLogger(logger)
	pipeline := classify.NewPipeline(cfg, pool, logger)

	tables, err := pipeline.Run(cmd.Context(), in)
	if err != nil {
		return err
	}

	if err := ensureDir(opts.outDir); err != nil {
		return err
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := tables[name]
		if err := writeTable(outPath(opts.outDir, name), t); err != nil {
			return err
		}
		if opts.save {
			if err := db.SaveTable(t); err != nil {
				return err
			}
		}
		logger.Info("wrote table", zap.String("table", name), zap.Int("rows", len(t.Rows)))
	}
	return nil
}

func loadInputs(db *annodb.DB, opts *classifyOptions, logger *zap.Logger) (*classify.Inputs, error) {
	refTxs, err := gene.LoadGenePred(opts.refGP)
	if err != nil {
		return nil, err
	}
	biotypes, err := db.TranscriptBiotypeMap()
	if err != nil {
		return nil, err
	}
	targetGenome, err := genome.LoadFASTA(opts.targetFasta)
	if err != nil {
		return nil, err
	}

	txPaths, err := parseMethodPaths(opts.txGPs)
	if err != nil {
		return nil, err
	}
	targets := make(map[gene.SourceMethod]map[string]*gene.Transcript, len(txPaths))
	for method, path := range txPaths {
		txs, err := gene.LoadGenePred(path)
		if err != nil {
			return nil, err
		}
		targets[method] = txs
	}

	alignments, err := loadAlignments(opts.psls)
	if err != nil {
		return nil, err
	}

	genomic := make(map[string]*psl.Record)
	if opts.genomicPSL != "" {
		recs, err := loadPSL(opts.genomicPSL)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			genomic[rec.QName] = rec
		}
	}

	logger.Info("loaded inputs",
		zap.Int("refTranscripts", len(refTxs)),
		zap.Int("methods", len(targets)),
		zap.Int("genomicAlignments", len(genomic)))

	return &classify.Inputs{
		RefTranscripts:    refTxs,
		TargetTranscripts: targets,
		Biotypes:          biotypes,
		Alignments:        alignments,
		GenomicAlignments: genomic,
		TargetGenome:      targetGenome,
	}, nil
}

// loadAlignments parses repeated method:mode=path values into the nested
// alignment map.
func loadAlignments(values []string) (map[gene.SourceMethod]map[gene.AlignmentMode][]*psl.Record, error) {
	out := make(map[gene.SourceMethod]map[gene.AlignmentMode][]*psl.Record)
	for _, v := range values {
		key, path, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("expected method:mode=path, got %q", v)
		}
		methodStr, modeStr, ok := strings.Cut(key, ":")
		if !ok {
			return nil, fmt.Errorf("expected method:mode=path, got %q", v)
		}
		method, err := parseMethod(methodStr)
		if err != nil {
			return nil, err
		}
		mode, err := parseMode(modeStr)
		if err != nil {
			return nil, err
		}
		recs, err := loadPSL(path)
		if err != nil {
			return nil, err
		}
		if out[method] == nil {
			out[method] = make(map[gene.AlignmentMode][]*psl.Record)
		}
		out[method][mode] = append(out[method][mode], recs...)
	}
	return out, nil
}

func loadPSL(path string) ([]*psl.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PSL file: %w", err)
	}
	defer f.Close()
	recs, err := psl.ParseAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

func writeTable(path string, t *classify.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return output.NewTabWriter(f).WriteTable(t)
}
