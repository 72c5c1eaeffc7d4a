// Package main provides the txeval command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/txeval/txeval/internal/gene"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "txeval",
		Short: "Classify transcript alignments against a reference annotation",
		Long: `txeval aligns projected and predicted transcripts back to their
reference transcripts and classifies the alignments: indels, frame-breaking
stops, missing or gained exons, paralogy, synteny and contig-context flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.txeval.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	cobra.OnInitialize(initConfig)

	root.AddCommand(newClassifyCmd())
	root.AddCommand(newAlignCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".txeval")
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("TXEVAL")
	viper.AutomaticEnv()

	// A missing config file is fine; anything else is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			fmt.Fprintf(os.Stderr, "Warning: reading config: %v\n", err)
		}
	}
}

// newLogger builds the run logger; library code receives it explicitly.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("txeval version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// parseMethodPaths parses repeated method=path flag values, e.g.
// "transMap=run1.gp".
func parseMethodPaths(values []string) (map[gene.SourceMethod]string, error) {
	out := make(map[gene.SourceMethod]string, len(values))
	for _, v := range values {
		method, path, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("expected method=path, got %q", v)
		}
		m, err := parseMethod(method)
		if err != nil {
			return nil, err
		}
		out[m] = path
	}
	return out, nil
}

func parseMethod(s string) (gene.SourceMethod, error) {
	switch s {
	case string(gene.SourceTransMap):
		return gene.SourceTransMap, nil
	case string(gene.SourceAugTM):
		return gene.SourceAugTM, nil
	case string(gene.SourceAugTMR):
		return gene.SourceAugTMR, nil
	case string(gene.SourceAugCGP):
		return gene.SourceAugCGP, nil
	}
	return "", fmt.Errorf("unknown source method %q (want transMap, augTM, augTMR or augCGP)", s)
}

func parseMode(s string) (gene.AlignmentMode, error) {
	switch s {
	case string(gene.ModeMRNA):
		return gene.ModeMRNA, nil
	case string(gene.ModeCDS):
		return gene.ModeCDS, nil
	}
	return "", fmt.Errorf("unknown alignment mode %q (want mRNA or CDS)", s)
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return nil
}

func outPath(dir, name string) string {
	return filepath.Join(dir, name+".tsv")
}
