package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/multiformats/go-multiaddr"
	"github.com/spf13/cobra"

	"gitlab.com/fidonext/connectivity-service/internal"
	"gitlab.com/fidonext/connectivity-service/p2p"
)

var (
	runUseQuic   bool
	runLport     int
	runDport     int
	runBootstrap []string
)

func init() {
	runCmd.Flags().BoolVar(&runUseQuic, "use-quic", false, "use the QUIC transport instead of TCP")
	runCmd.Flags().IntVar(&runLport, "lport", 41000, "port for the listener node")
	runCmd.Flags().IntVar(&runDport, "dport", 41001, "port for the dialer node")
	runCmd.Flags().StringArrayVar(&runBootstrap, "bootstrap", nil, "bootstrap peer multiaddr (repeatable)")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a listener and a dialer node and exchange pings",
	Long:  `Starts two local nodes, dials the listener from the dialer and keeps both alive until interrupted. The example driver for the connectivity controller.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		bootstrap, err := p2p.ParseBootstrapPeers(runBootstrap)
		if err != nil {
			return fmt.Errorf("invalid --bootstrap address: %w", err)
		}

		listener, err := newDriverNode(ctx, runLport, bootstrap)
		if err != nil {
			return fmt.Errorf("listener node: %w", err)
		}
		defer listener.Shutdown()

		dialer, err := newDriverNode(ctx, runDport, bootstrap)
		if err != nil {
			return fmt.Errorf("dialer node: %w", err)
		}
		defer dialer.Shutdown()

		targets := listener.Session().AnnounceAddrs()
		if len(targets) == 0 {
			return fmt.Errorf("listener node has no dialable addresses")
		}

		intent, err := dialer.Dial(ctx, targets[0])
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}

		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := intent.Wait(waitCtx); err != nil {
			return fmt.Errorf("dial %s did not settle: %w", intent.Target, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dialer %s connected to listener %s\n",
			dialer.PeerID().String(), listener.PeerID().String())

		<-internal.ShutdownChan
		return nil
	},
}

func newDriverNode(ctx context.Context, port int, bootstrap []multiaddr.Multiaddr) (*p2p.Node, error) {
	opts, err := p2p.OptionsFromConfig()
	if err != nil {
		return nil, err
	}
	opts.UseQuic = runUseQuic
	opts.BootstrapPeers = append(opts.BootstrapPeers, bootstrap...)

	listen, err := multiaddr.NewMultiaddr(driverMultiaddr(port, runUseQuic))
	if err != nil {
		return nil, err
	}
	opts.ListenAddrs = []multiaddr.Multiaddr{listen}

	return p2p.New(ctx, opts)
}

func driverMultiaddr(port int, useQuic bool) string {
	if useQuic {
		return fmt.Sprintf("/ip4/127.0.0.1/udp/%d/quic-v1", port)
	}
	return fmt.Sprintf("/ip4/127.0.0.1/tcp/%d", port)
}
