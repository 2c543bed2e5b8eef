// Command bridgeworker runs the cross-chain relay worker: it loads a
// topology document, wires one Listener per source chain, and supervises
// them until told to stop.
//
// Command layout follows cmd/synnergy/main.go in the teacher: a bare cobra
// root with subcommands attached, each built by its own *Cmd() constructor.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synnergy-chain/bridgeworker/internal/bridgeconfig"
	"github.com/synnergy-chain/bridgeworker/internal/keystore"
	"github.com/synnergy-chain/bridgeworker/internal/listener"
	"github.com/synnergy-chain/bridgeworker/internal/metrics"
	"github.com/synnergy-chain/bridgeworker/internal/rpcdial"
	"github.com/synnergy-chain/bridgeworker/internal/supervisor"
	"github.com/synnergy-chain/bridgeworker/internal/topology"
)

func main() {
	root := &cobra.Command{Use: "bridgeworker"}
	root.AddCommand(runCmd())
	root.AddCommand(checkConfigCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var configPath, keystoreDir string
	var metricsPort int
	var startBlocks []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the bridge worker against a topology document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := bridgeconfig.LoadFromEnv(); err != nil {
				return fmt.Errorf("load process config: %w", err)
			}
			if configPath != "" {
				bridgeconfig.AppConfig.Worker.ConfigPath = configPath
			}
			if keystoreDir != "" {
				bridgeconfig.AppConfig.Worker.KeystoreDir = keystoreDir
			}
			if metricsPort != 0 {
				bridgeconfig.AppConfig.Worker.MetricsPort = metricsPort
			}

			overrides, err := parseStartBlocks(startBlocks)
			if err != nil {
				return err
			}

			log := logrus.StandardLogger()
			if lvl, err := logrus.ParseLevel(bridgeconfig.AppConfig.Logging.Level); err == nil {
				log.SetLevel(lvl)
			}

			raw, err := os.ReadFile(bridgeconfig.AppConfig.Worker.ConfigPath)
			if err != nil {
				return fmt.Errorf("read topology document: %w", err)
			}
			doc, err := topology.ParseDocument(raw)
			if err != nil {
				return err
			}

			reg := metrics.New()
			ks := keystore.New(bridgeconfig.AppConfig.Worker.KeystoreDir).WithLogger(log)

			contexts, err := topology.Build(cmd.Context(), doc, topology.BuildOptions{
				DataDir:             bridgeconfig.AppConfig.Worker.DataDir,
				Clients:             rpcdial.New(log),
				Signers:             ks,
				Metrics:             reg,
				Log:                 log,
				StartBlockOverrides: overrides,
			})
			if err != nil {
				return fmt.Errorf("build topology: %w", err)
			}

			workers := make(map[string]supervisor.Worker, len(contexts))
			for _, c := range contexts {
				workers[c.ID] = listener.New(c, listener.WithLogger(log), listener.WithMetrics(reg))
			}
			sup := supervisor.New(workers, log)

			srv := &http.Server{Addr: fmt.Sprintf(":%d", bridgeconfig.AppConfig.Worker.MetricsPort), Handler: reg.Handler()}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.WithError(err).Error("metrics server exited")
				}
			}()
			defer srv.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.WithField("listeners", len(workers)).Info("bridge worker starting")
			return sup.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the topology document")
	cmd.Flags().StringVar(&keystoreDir, "keystore-dir", "", "directory holding relayer signing keys")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "port to serve /metrics on")
	cmd.Flags().StringArrayVar(&startBlocks, "start-block", nil, "listener_id:block_num override, repeatable")
	return cmd
}

func checkConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-config <path>",
		Short: "validate a topology document without starting any listener",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read topology document: %w", err)
			}
			doc, err := topology.ParseDocument(raw)
			if err != nil {
				return err
			}
			if err := topology.Validate(doc); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			printSummary(cmd, doc)
			return nil
		},
	}
	return cmd
}

func printSummary(cmd *cobra.Command, doc *topology.Document) {
	byID := make(map[string]topology.ListenerSpec, len(doc.Listeners))
	ids := make([]string, 0, len(doc.Listeners))
	for _, l := range doc.Listeners {
		byID[l.ID] = l
		ids = append(ids, l.ID)
	}
	sort.Strings(ids)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "listener\tchain_id\ttype\trelayers")
	for _, id := range ids {
		l := byID[id]
		fmt.Fprintf(out, "%s\t%d\t%s\t%v\n", l.ID, l.ChainID, l.ListenerType, l.RelayerIDs)
	}
	fmt.Fprintln(out, "configuration is valid")
}

func parseStartBlocks(pairs []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(pairs))
	for _, p := range pairs {
		idx := strings.LastIndexByte(p, ':')
		if idx <= 0 || idx == len(p)-1 {
			return nil, fmt.Errorf("invalid --start-block %q: expected listener_id:block_num", p)
		}
		block, err := strconv.ParseUint(p[idx+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --start-block %q: %w", p, err)
		}
		out[p[:idx]] = block
	}
	return out, nil
}
