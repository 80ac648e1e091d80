package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qcsim/wavesim/pkg/hwconfig"
	"github.com/qcsim/wavesim/pkg/logutil"
	"github.com/qcsim/wavesim/pkg/remote"
)

var (
	peerListen     string
	peerMaxSamples int
)

var peerCmd = &cobra.Command{
	Use:   "peer",
	Short: "Run a stand-in remote simulator that returns silent output",
	Long: `peer speaks the remote simulator's wire protocol and answers every
request with zero-valued DAC output of the requested length, one channel per
assembled core. It is meant for exercising clients without the real simulator.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		ln, err := net.Listen("tcp", peerListen)
		if err != nil {
			return errors.Wrap(err, "listen")
		}
		logutil.GetLogger().Info("stand-in simulator listening", zap.String("addr", ln.Addr().String()))

		if err := remote.Serve(ctx, ln, silentPeer(cfg.Hardware, peerMaxSamples)); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	peerCmd.Flags().StringVarP(&peerListen, "listen", "l", "localhost:9100", "Address to listen on")
	peerCmd.Flags().IntVar(&peerMaxSamples, "max-samples", 1<<22, "Largest nsamples a request may ask for")
}

// silentPeer builds the stand-in simulator's handler. Requests for more than
// maxSamples samples per channel are refused.
func silentPeer(t hwconfig.Timing, maxSamples int) remote.Handler {
	return remote.HandlerFunc(func(_ context.Context, req *remote.Request) (*remote.Payload, error) {
		if req.NSamples < 0 || req.NSamples > maxSamples {
			return nil, errors.Errorf("nsamples %d outside [0, %d]", req.NSamples, maxSamples)
		}
		channels := 1
		if req.AsmProg != nil && len(req.AsmProg.Cores) > 0 {
			channels = len(req.AsmProg.Cores)
		}

		p := &remote.Payload{
			DACOut: make([][]float64, channels),
			Acc:    make([][]int64, channels),
		}
		for i := range p.DACOut {
			p.DACOut[i] = make([]float64, req.NSamples)
			p.Acc[i] = []int64{}
		}

		if req.CaptureDemod {
			nadc := int(float64(req.NSamples) * t.ADCSampleRate / t.DACSampleRate)
			p.RDLO = make([][]complex128, channels)
			p.RDLOxADC = make([][]complex128, channels)
			for i := range p.RDLO {
				p.RDLO[i] = make([]complex128, nadc)
				p.RDLOxADC[i] = make([]complex128, nadc)
			}
		}
		return p, nil
	})
}
