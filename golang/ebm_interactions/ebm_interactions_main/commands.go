package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/bin"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/core"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/dataset"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/ebmerr"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/render"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/shell"
	"github.com/tarstars/ebm_interactions/golang/ebm_interactions/term"
	"go.uber.org/zap"
)

func (a *app) inspectCommand() *cobra.Command {
	var flags datasetFlags
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Validate a dataset and print its features",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.createCore(flags)
			defer core.Free(c)
			if err != nil {
				return errors.WithMessagef(err, "dataset %s rejected (%s)", flags.dataset, ebmerr.KindOf(err))
			}

			out := cmd.OutOrStdout()
			target := fmt.Sprintf("classification, %d classes", c.ClassCount())
			if c.ClassCount() == dataset.Regression {
				target = "regression"
			}
			fmt.Fprintf(out, "target:     %s\n", target)
			fmt.Fprintf(out, "scores:     %d\n", c.ScoreCount())
			fmt.Fprintf(out, "samples:    %d\n", c.SampleCount())
			fmt.Fprintf(out, "training:   %d\n", c.TrainingCount())
			fmt.Fprintf(out, "validation: %d\n", c.ValidationCount())
			fmt.Fprintf(out, "weighted:   %t\n", c.WeightCount() == 1)
			fmt.Fprintf(out, "frame:      %d bytes\n\n", c.Frame().Bytes())

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FEATURE\tBINS\tKIND\tMISSING\tUNKNOWN")
			for i, f := range c.Features() {
				fmt.Fprintf(w, "%d\t%d\t%s\t%t\t%t\n", i, f.BinCount, f.Kind(), f.Missing, f.Unknown)
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) termsCommand() *cobra.Command {
	var flags datasetFlags
	var graph string
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Build every pair term of a dataset and report its histogram sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.createCore(flags)
			defer core.Free(c)
			if err != nil {
				return errors.WithMessagef(err, "dataset %s rejected (%s)", flags.dataset, ebmerr.KindOf(err))
			}

			terms, err := term.AllocatePairs(c.Allocator(), c.Features())
			if err != nil {
				return errors.WithMessage(err, "allocating pair terms")
			}
			defer term.FreeTerms(c.Allocator(), terms)
			a.logger.Info("allocated pair terms", zap.Int("terms", len(terms)))

			s := shell.New(c, shell.WithLogger(a.logger))
			defer s.Free()

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TERM\tFEATURES\tTERM BYTES\tTENSOR BINS\tAUX BINS\tHISTOGRAM BYTES\tOCCUPIED")
			for i, t := range terms {
				h, err := s.Histogram(t)
				if err != nil {
					return errors.WithMessagef(err, "histogram for term %d", i)
				}
				occupied := countOccupied(c, t, h)
				histogramBytes := bin.BinSize[float64](c.IsClassification(), c.ScoreCount()) * uintptr(t.TensorBinCount()+t.AuxiliaryBinCount())
				fmt.Fprintf(w, "%d\t%v\t%d\t%d\t%d\t%d\t%d\n",
					i, t.FeatureIndices(), t.Bytes(), t.TensorBinCount(), t.AuxiliaryBinCount(), histogramBytes, occupied)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if len(terms) == 0 {
				fmt.Fprintln(out, "no feature pairs with more than one bin")
			}

			if graph == "" {
				return nil
			}
			file, err := os.Create(graph)
			if err != nil {
				return err
			}
			if err := render.Terms(file, a.cfg.Render.Format, c.Features(), terms); err != nil {
				_ = file.Close()
				return err
			}
			a.logger.Info("rendered term graph", zap.String("file", graph), zap.String("format", a.cfg.Render.Format))
			return file.Close()
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&graph, "graph", "", "write a graph of features and pair terms to this file")
	cmd.Flags().String("format", "svg", "graph format: svg, dot or png")
	return cmd
}

// countOccupied fills h with the training samples of c and returns the number
// of tensor bins that received at least one sample.
func countOccupied(c *core.Core, t *term.Term, h *bin.Histogram[float64]) int {
	frame := c.Frame()
	if frame.TrainingCount() == 0 || c.ScoreCount() == 0 {
		return 0
	}
	gradients := make([]float64, c.ScoreCount())
	hessians := make([]float64, c.ScoreCount())
	weights := frame.Weights()
	for sample := 0; sample < frame.TrainingCount(); sample++ {
		index := 0
		for d := 0; d < t.FeatureCount(); d++ {
			index += frame.Bin(t.FeatureIndex(d), sample) * t.Stride(d)
		}
		weight := 1.0
		if weights != nil {
			weight = weights[sample]
		}
		h.Add(index, weight, gradients, hessians)
	}
	occupied := 0
	for _, count := range h.Counts[:t.TensorBinCount()] {
		if count != 0 {
			occupied++
		}
	}
	return occupied
}
