package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qcsim/wavesim/pkg/logutil"
)

type globalFlags struct {
	configFile string
	debug      bool
	backend    string
	address    string
}

var (
	flags globalFlags
	cfg   Config
)

var rootCmd = &cobra.Command{
	Use:   "wavesim",
	Short: "Predict AWG output for compiled pulse programs",
	Long: `wavesim predicts the analog output of the quantum-control AWG for a
compiled pulse program, either with the local analytic synthesizer or with a
remote cycle-accurate simulator.

  Run Mode:    wavesim run --program prog.json [--out wave.parquet]
  Server Mode: wavesim serve [-p 8080]
  Stand-in:    wavesim peer [-l localhost:9100]`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(flags.configFile)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("backend") {
			if err := cfg.Backend.Kind.UnmarshalText([]byte(flags.backend)); err != nil {
				return err
			}
		}
		if flags.address != "" {
			cfg.Backend.Remote.Address = flags.address
		}
		if flags.debug {
			cfg.Debug = true
		}

		return logutil.InitLogger(cfg.Debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logutil.GetLogger().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flags.backend, "backend", "b", "local", "Simulation backend: local or remote")
	rootCmd.PersistentFlags().StringVar(&flags.address, "address", "", "Remote simulator host:port (remote backend only)")

	rootCmd.AddCommand(runCmd, serveCmd, peerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
