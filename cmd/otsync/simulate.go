package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/otsync"
	"github.com/aretw0/otsync/internal/presentation/tui"
	"github.com/aretw0/otsync/internal/simulation"
	"github.com/aretw0/otsync/pkg/modifiers"
	"github.com/aretw0/otsync/pkg/ports"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a randomized multi-client convergence simulation",
	Long: `Runs several clients against the in-memory reference hub with random edits,
server-side rejections and connection drops, then reports whether every replica
converged on the server document. The command fails if any replica diverged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		sim := &cfg.Simulation
		if flags.Changed("clients") {
			sim.Clients, _ = flags.GetInt("clients")
		}
		if flags.Changed("edits") {
			sim.Edits, _ = flags.GetInt("edits")
		}
		if flags.Changed("seed") {
			sim.Seed, _ = flags.GetInt64("seed")
		}
		if flags.Changed("drop-rate") {
			sim.DropRate, _ = flags.GetFloat64("drop-rate")
		}
		if flags.Changed("reject-rate") {
			sim.RejectRate, _ = flags.GetFloat64("reject-rate")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		mods, err := cfg.BuildModifiers(modifiers.NewRegistry())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		quiet, _ := flags.GetBool("quiet")
		opts := []simulation.Option{
			simulation.WithLogger(logger),
			simulation.WithModifiers(mods...),
		}
		if !quiet {
			tui.PrintBanner(out, strings.TrimSpace(otsync.Version))
			opts = append(opts, simulation.WithStatus(func(client string) ports.StatusStore {
				return tui.NewStatus(out, client)
			}))
		}

		report, err := simulation.New(opts...).Run(cmd.Context(), simulation.Config{
			Clients:    sim.Clients,
			Edits:      sim.Edits,
			Seed:       sim.Seed,
			DropRate:   sim.DropRate,
			RejectRate: sim.RejectRate,
			Initial:    sim.Initial,
		})
		if err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}

		if dump, _ := flags.GetBool("dump"); dump {
			fmt.Fprintln(out, report.Dump())
		}
		if err := tui.PrintReport(out, report); err != nil {
			return err
		}
		if !report.Converged {
			return fmt.Errorf("replicas diverged (seed %d)", report.Seed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Int("clients", 3, "Number of simulated clients")
	simulateCmd.Flags().Int("edits", 50, "Total number of user edits across all clients")
	simulateCmd.Flags().Int64("seed", 1, "Random seed")
	simulateCmd.Flags().Float64("drop-rate", 0, "Chance per step that a client loses its connection")
	simulateCmd.Flags().Float64("reject-rate", 0, "Chance that the hub rolls back a submission")
	simulateCmd.Flags().Bool("dump", false, "Dump the full report structure")
	simulateCmd.Flags().BoolP("quiet", "q", false, "Hide the banner and connectivity changes")
}
