package main

import (
	"github.com/jmccarv/decipher/internal/alphabet"
	"github.com/jmccarv/decipher/internal/corpus"
	"github.com/spf13/cobra"
)

func (a *app) statsCmd() *cobra.Command {
	var (
		input, alpha string
		perLine      int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the symbol frequencies of a corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" {
				return errMissingInput
			}
			if !cmd.Flags().Changed("alphabet") {
				alpha = a.cfg.Alphabet
			}
			al, err := alphabet.ByName(alpha)
			if err != nil {
				return err
			}
			st, err := corpus.BuildFile(al, input, a.cfg.Stats)
			if err != nil {
				return err
			}
			return st.WriteShares(cmd.OutOrStdout(), perLine)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "training corpus")
	f.StringVar(&alpha, "alphabet", "full", "symbol set: full or lower")
	f.IntVar(&perLine, "per-line", 10, "symbols per output line")
	return cmd
}
