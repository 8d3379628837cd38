package main

import (
	"log/slog"
	"os"

	"github.com/jmccarv/decipher/internal/config"
	"github.com/spf13/cobra"
)

// app carries settings from the root command to its subcommands.
type app struct {
	cfg        config.Config
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "decipher",
		Short: "Break monoalphabetic substitution ciphers by Metropolis-Hastings search",
		Long: "decipher trains a first-order character model on a corpus and searches\n" +
			"the space of symbol permutations for the key that makes the ciphertext\n" +
			"most likely under that model.",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "YAML config file")
	pf.StringVar(&a.envFile, "env-file", ".env", "file of DECIPHER_* variables to load if present")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&a.logFormat, "log-format", "", "text or json")

	root.AddCommand(a.decodeCmd(), a.scrambleCmd(), a.statsCmd())
	return root
}

// setup loads the configuration layers and installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}

	h, err := cfg.Log.Handler()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(h))
	a.cfg = cfg
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
