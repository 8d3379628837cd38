package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmccarv/decipher/internal/alphabet"
	"github.com/jmccarv/decipher/internal/corpus"
	"github.com/jmccarv/decipher/internal/report"
	"github.com/jmccarv/decipher/internal/solver"
	"github.com/spf13/cobra"
)

var errMissingInput = errors.New("input file is not specified")

func (a *app) scrambleCmd() *cobra.Command {
	var (
		input, output, keyOut, alpha string
		seed                         uint64
	)
	cmd := &cobra.Command{
		Use:   "scramble",
		Short: "Encipher a plaintext with a random substitution key",
		Long: "scramble draws a random key that keeps letters on letters and other\n" +
			"symbols on other symbols, then encodes every alphabet symbol of the input.\n" +
			"Characters outside the alphabet are copied unchanged.",
		Args: cobra.NoArgs,
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
			raw, err := corpus.ReadFile(input)
			if err != nil {
				return err
			}

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			enc := solver.RandomKey(al, solver.NewRand(seed))
			if err := os.WriteFile(output, []byte(report.Decode(al, enc, raw)), 0644); err != nil {
				return fmt.Errorf("could not write ciphertext: %w", err)
			}
			if keyOut != "" {
				data := enc.Inverse().Encode(al) + "\n"
				if err := os.WriteFile(keyOut, []byte(data), 0644); err != nil {
					return fmt.Errorf("could not write key: %w", err)
				}
			}

			slog.Info("scrambled", "input", input, "output", output, "alphabet", al.Name(), "seed", seed)
			fmt.Fprintf(cmd.OutOrStdout(), "Decoding key: %s\n", enc.Inverse().Format(al))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "plaintext to encipher")
	f.StringVarP(&output, "output", "o", "scrambled.txt", "where to write the ciphertext")
	f.StringVar(&keyOut, "key-out", "", "write the decoding key here, usable as decode --init-key")
	f.Uint64Var(&seed, "seed", 0, "random seed, 0 picks one from the clock")
	f.StringVar(&alpha, "alphabet", "full", "symbol set: full or lower")
	return cmd
}
