package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/config"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/core"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/logging"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/memory"
	"go.uber.org/zap"
)

type app struct {
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "ebm_interactions",
		Short: "Validate shared datasets and inspect the interaction terms built over them",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.New(cfg.Level(), cfg.LogDevelopment, stderr, stderr)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "yaml config file")
	root.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().Bool("log-development", false, "human readable logs")
	root.PersistentFlags().Uint64("memory-limit", 0, "bytes a core may reserve, 0 for no limit")

	root.AddCommand(a.inspectCommand(), a.termsCommand())
	return root
}

// coreOptions turns the loaded configuration into core options.
func (a *app) coreOptions() []core.Option {
	opts := []core.Option{core.WithLogger(a.logger)}
	if a.cfg.Memory.LimitBytes != 0 {
		opts = append(opts, core.WithAllocator(memory.NewHeap(uintptr(a.cfg.Memory.LimitBytes))))
	}
	return opts
}

type datasetFlags struct {
	dataset    string
	bag        string
	initScores string
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dataset, "dataset", "", "shared dataset blob")
	cmd.Flags().StringVar(&f.bag, "bag", "", "int8 .npy bag vector")
	cmd.Flags().StringVar(&f.initScores, "init-scores", "", "float64 .npy init scores, one row per sample")
	_ = cmd.MarkFlagRequired("dataset")
}

// createCore loads the files named by f and creates a core from them. The
// core is returned for freeing even when err is set.
func (a *app) createCore(f datasetFlags) (*core.Core, error) {
	blob, err := os.ReadFile(f.dataset)
	if err != nil {
		return nil, err
	}
	var entries []int8
	if f.bag != "" {
		if entries, err = readBag(f.bag); err != nil {
			return nil, err
		}
	}
	var initScores []float64
	if f.initScores != "" {
		if initScores, err = readScores(f.initScores); err != nil {
			return nil, err
		}
	}
	a.logger.Info("creating core",
		zap.String("dataset", f.dataset),
		zap.Int("bytes", len(blob)),
		zap.Bool("bagged", entries != nil),
		zap.Bool("init_scores", initScores != nil))
	return core.Create(blob, entries, initScores, core.Experimental(a.cfg.Experimental), a.coreOptions()...)
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
