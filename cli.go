package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qcsim/wavesim/pkg/backend"
	"github.com/qcsim/wavesim/pkg/logutil"
	"github.com/qcsim/wavesim/pkg/program"
)

type runFlags struct {
	programFile  string
	outputFile   string
	duration     float64
	adcToneHz    float64
	adcAmplitude float64
	demod        bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate one compiled program and save the DAC output",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		var duration *float64
		if cmd.Flags().Changed("duration") {
			duration = &runOpts.duration
		}
		return runCLI(ctx, cfg, runOpts, duration)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.programFile, "program", "f", "", "Compiled program (JSON)")
	runCmd.Flags().StringVarP(&runOpts.outputFile, "out", "o", "", "Output parquet file")
	runCmd.Flags().Float64VarP(&runOpts.duration, "duration", "t", 0, "Simulated time in seconds (default: fit the program)")
	runCmd.Flags().Float64Var(&runOpts.adcToneHz, "adc-tone", 0, "Inject a test tone at the ADC, in Hz (remote backend only)")
	runCmd.Flags().Float64Var(&runOpts.adcAmplitude, "adc-amplitude", 0.5, "Normalized amplitude of the injected tone")
	runCmd.Flags().BoolVar(&runOpts.demod, "demod", false, "Capture demodulated I/Q streams (remote backend only)")
	_ = runCmd.MarkFlagRequired("program")
}

// runCLI executes the one-shot simulation and file save
func runCLI(ctx context.Context, cfg Config, opts runFlags, duration *float64) error {
	logger := logutil.GetLogger()

	fmt.Println("--- Simulation Start ---")

	bundle, err := program.LoadBundleFile(opts.programFile)
	if err != nil {
		return err
	}

	job := backend.Job{
		Compiled:     bundle.Compiled,
		Assembled:    bundle.Assembled,
		Duration:     duration,
		CaptureDemod: opts.demod,
	}
	if opts.adcToneHz > 0 {
		d := backend.DefaultRemoteDuration
		if duration != nil {
			d = *duration
		}
		n := int(d * cfg.Hardware.ADCSampleRate)
		job.ADCStream = generateTone(n, opts.adcToneHz, cfg.Hardware.ADCSampleRate, opts.adcAmplitude)
	}

	fmt.Printf("Program: %s | Backend: %s\n", opts.programFile, cfg.Backend.Kind)
	fmt.Println(">>> SIMULATING...")

	orch := backend.New(cfg.Backend, cfg.Hardware, nil)
	start := time.Now()
	out, err := orch.Dispatch(ctx, job)
	if err != nil {
		logger.Error("simulation failed", zap.Error(err))
		return err
	}
	elapsed := time.Since(start)

	fmt.Println("--- Results ---")
	fmt.Printf("Channels:       %d\n", out.Buffer.Channels)
	fmt.Printf("Samples:        %d\n", out.Buffer.Samples)
	fmt.Printf("Readout marker: %d\n", out.ReadoutMarker)
	fmt.Printf("Duration:       %v\n", elapsed)
	if out.Remote != nil && out.Remote.RDLO != nil {
		fmt.Printf("Demod streams:  %d\n", len(out.Remote.RDLO))
	}

	if opts.outputFile == "" {
		return nil
	}

	fmt.Printf(">>> SAVING TO FILE: %s ... ", opts.outputFile)
	saveStart := time.Now()

	f, err := os.Create(opts.outputFile)
	if err != nil {
		fmt.Println()
		return errors.Wrap(err, "create output")
	}
	rows, err := WriteOutput(f, &cfg, out)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Println()
		return errors.Wrap(err, "write output")
	}

	fmt.Printf("DONE\n")
	fmt.Printf("Rows:            %d\n", rows)
	fmt.Printf("Save Duration:   %v\n", time.Since(saveStart))
	return nil
}
