// Command client subscribes to a running wavesim server's result feed and
// prints a summary of every frame it receives.
package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qcsim/wavesim/pkg/logutil"
)

var (
	host    string
	mode    string
	channel int
	fftSize int
	count   int
)

type frame struct {
	Type          string    `json:"type"`
	Backend       string    `json:"backend"`
	Channels      int       `json:"channels"`
	Samples       int       `json:"samples"`
	ReadoutMarker int       `json:"readout_marker"`
	Channel       int       `json:"channel"`
	Y             []float64 `json:"y"`
	Spectrum      []float64 `json:"spectrum"`
}

var rootCmd = &cobra.Command{
	Use:   "client",
	Short: "Watch the websocket result feed of a wavesim server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logutil.InitLogger(false); err != nil {
			return err
		}
		return watch()
	},
}

func init() {
	rootCmd.Flags().StringVar(&host, "host", "localhost:8080", "Server host:port")
	rootCmd.Flags().StringVar(&mode, "mode", "both", "Stream mode: raw, fft or both")
	rootCmd.Flags().IntVar(&channel, "channel", 0, "DAC channel to display")
	rootCmd.Flags().IntVar(&fftSize, "fft-size", 0, "Spectrum length (power of two, 0 keeps the server's)")
	rootCmd.Flags().IntVarP(&count, "count", "n", 0, "Exit after this many frames (0 runs until the server closes)")
}

func watch() error {
	logger := logutil.GetLogger()
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer c.Close()

	config := map[string]interface{}{
		"mode":    mode,
		"channel": channel,
	}
	if fftSize > 0 {
		config["fft_size"] = fftSize
	}
	if err := c.WriteJSON(config); err != nil {
		return err
	}

	for i := 0; count == 0 || i < count; {
		_, msg, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}

		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			logger.Warn("bad frame", zap.Error(err))
			continue
		}
		switch f.Type {
		case "result":
			i++
			fmt.Printf("[%s] ch %d/%d  samples %d  marker %d  shown %d  bins %d  peak %.2f dBFS\n",
				f.Backend, f.Channel, f.Channels, f.Samples, f.ReadoutMarker,
				len(f.Y), len(f.Spectrum), peak(f.Spectrum))
		case "backend_update":
			fmt.Printf("backend switched to %s\n", f.Backend)
		}
	}
	return nil
}

func peak(spectrum []float64) float64 {
	if len(spectrum) == 0 {
		return 0
	}
	m := spectrum[0]
	for _, v := range spectrum[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
