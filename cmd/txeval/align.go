package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/txeval/txeval/internal/align"
	"github.com/txeval/txeval/internal/annodb"
	"github.com/txeval/txeval/internal/chunk"
	"github.com/txeval/txeval/internal/config"
	"github.com/txeval/txeval/internal/gene"
	"github.com/txeval/txeval/internal/genome"
	"github.com/txeval/txeval/internal/psl"
)

type alignOptions struct {
	dbPath      string
	refGP       string
	refFasta    string
	targetFasta string
	txGPs       []string
	modes       []string
	outDir      string
}

func newAlignCmd() *cobra.Command {
	opts := &alignOptions{}
	cmd := &cobra.Command{
		Use:   "align",
		Short: "Align target transcripts back to their reference transcripts",
		Long: `Align extracts the mRNA (and, for coding pairs, in-frame CDS)
sequence of every target transcript, pairs it with its reference transcript
and aligns the pair with blat. Output records are validated with pslCheck;
only the best same-strand record per pair is kept.`,
		Example: `  txeval align --db ref.duckdb --ref-gp ref.gp --ref-fasta ref.fa \
    --target-fasta tgt.fa --tx-gp transMap=tm.gp --out-dir aln/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlign(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", "", "annotation DuckDB database (required)")
	cmd.Flags().StringVar(&opts.refGP, "ref-gp", "", "reference genePred (required)")
	cmd.Flags().StringVar(&opts.refFasta, "ref-fasta", "", "reference genome FASTA (required)")
	cmd.Flags().StringVar(&opts.targetFasta, "target-fasta", "", "target genome FASTA (required)")
	cmd.Flags().StringArrayVar(&opts.txGPs, "tx-gp", nil, "target transcripts per method, method=path (repeatable)")
	cmd.Flags().StringSliceVar(&opts.modes, "mode", []string{"mRNA", "CDS"}, "alignment modes to run")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", ".", "directory for PSL output files")
	for _, f := range []string{"db", "ref-gp", "ref-fasta", "target-fasta", "tx-gp"} {
		cobra.CheckErr(cmd.MarkFlagRequired(f))
	}

	return cmd
}

func runAlign(cmd *cobra.Command, opts *alignOptions) error {
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

	refTxs, err := gene.LoadGenePred(opts.refGP)
	if err != nil {
		return err
	}
	biotypes, err := db.TranscriptBiotypeMap()
	if err != nil {
		return err
	}
	geneTxs, err := db.GeneTranscriptMap()
	if err != nil {
		return err
	}
	refGenome, err := genome.LoadFASTA(opts.refFasta)
	if err != nil {
		return err
	}
	targetGenome, err := genome.LoadFASTA(opts.targetFasta)
	if err != nil {
		return err
	}

	txPaths, err := parseMethodPaths(opts.txGPs)
	if err != nil {
		return err
	}
	modes := make([]gene.AlignmentMode, 0, len(opts.modes))
	for _, m := range opts.modes {
		mode, err := parseMode(m)
		if err != nil {
			return err
		}
		modes = append(modes, mode)
	}

	if err := ensureDir(opts.outDir); err != nil {
		return err
	}

	pool := chunk.NewPool(cfg.Workers)
	pool.SetLogger(logger)
	runner := align.NewRunner(cfg, pool)
	runner.SetLogger(logger)

	for method, path := range txPaths {
		targets, err := gene.LoadGenePred(path)
		if err != nil {
			return err
		}
		source := &align.PairSource{
			RefTranscripts:    refTxs,
			TargetTranscripts: targets,
			Biotypes:          biotypes,
			GeneTranscripts:   geneTxs,
			RefGenome:         refGenome,
			TargetGenome:      targetGenome,
			MinSize:           cfg.MinCDSSize,
			Logger:            logger,
		}
		for _, mode := range modes {
			recs, err := runner.Run(cmd.Context(), source.Pairs(mode), mode)
			if err != nil {
				return fmt.Errorf("%s %s: %w", method, mode, err)
			}
			out := filepath.Join(opts.outDir, fmt.Sprintf("%s.%s.psl", method, mode))
			if err := writePSL(out, recs); err != nil {
				return err
			}
			logger.Info("wrote alignments",
				zap.String("method", string(method)), zap.String("mode", string(mode)),
				zap.String("path", out), zap.Int("records", len(recs)))
		}
	}
	return nil
}

func writePSL(path string, recs []*psl.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	for _, rec := range recs {
		if _, err := fmt.Fprintln(f, rec.String()); err != nil {
			return err
		}
	}
	return nil
}
