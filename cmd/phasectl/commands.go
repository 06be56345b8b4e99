package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/buildledger/buildledger/pkg/allocation"
	"github.com/buildledger/buildledger/pkg/financials"
	"github.com/buildledger/buildledger/pkg/phase_sync"
	"github.com/spf13/cobra"
)

type services struct {
	financials financials.Service
	sync       phase_sync.Service
	allocation allocation.Service
}

type connectFunc func(ctx context.Context, configPath string) (*services, func(), error)

func newRootCmd(connect connectFunc) *cobra.Command {
	var configPath string
	svc := &services{}
	var closeDB func()

	root := &cobra.Command{
		Use:           "phasectl",
		Short:         "Inspect and maintain phase financials",
		Long:          `phasectl reads phase financial summaries, forces cache recalculation and previews floor budget splits. Output is JSON on stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			connected, closeFn, err := connect(cmd.Context(), configPath)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			*svc = *connected
			closeDB = closeFn
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if closeDB != nil {
				closeDB()
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "./config/application.yaml", "path to the application config file")

	root.AddCommand(summaryCmd(svc))
	root.AddCommand(projectCmd(svc))
	root.AddCommand(recalcCmd(svc))
	root.AddCommand(suggestCmd(svc))
	return root
}

func summaryCmd(svc *services) *cobra.Command {
	var phaseId int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a phase's financial summary",
		Long:  `Aggregates the phase from its cost records, purchase orders and material requests.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositive("phase", phaseId); err != nil {
				return err
			}
			summary, err := svc.financials.GetPhaseFinancialSummary(cmd.Context(), phaseId)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), financials.SummaryToDTO(summary))
		},
	}
	cmd.Flags().IntVar(&phaseId, "phase", 0, "phase id")
	_ = cmd.MarkFlagRequired("phase")
	return cmd
}

func projectCmd(svc *services) *cobra.Command {
	var projectId int
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Print the roll-up of every phase of a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositive("project", projectId); err != nil {
				return err
			}
			summary, err := svc.financials.GetProjectFinancialSummary(cmd.Context(), projectId)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), financials.ProjectSummaryToDTO(summary))
		},
	}
	cmd.Flags().IntVar(&projectId, "project", 0, "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func recalcCmd(svc *services) *cobra.Command {
	var phaseId int
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate and store a phase's cached financials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositive("phase", phaseId); err != nil {
				return err
			}
			p, err := svc.sync.RecalculateAndPersist(cmd.Context(), phaseId)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), phase_sync.PhaseToDTO(p))
		},
	}
	cmd.Flags().IntVar(&phaseId, "phase", 0, "phase id")
	_ = cmd.MarkFlagRequired("phase")
	return cmd
}

func suggestCmd(svc *services) *cobra.Command {
	var phaseId int
	var strategy string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Preview how a phase budget would split over the project's floors",
		Long:  `Suggestions are not stored. Submit them through the floor allocation API to apply them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requirePositive("phase", phaseId); err != nil {
				return err
			}
			s, err := allocation.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			result, err := svc.allocation.SuggestFloorAllocations(cmd.Context(), phaseId, s)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), allocation.SuggestionsToDTO(result))
		},
	}
	cmd.Flags().IntVar(&phaseId, "phase", 0, "phase id")
	cmd.Flags().StringVar(&strategy, "strategy", string(allocation.Even), "even | weighted | manual")
	_ = cmd.MarkFlagRequired("phase")
	return cmd
}

func requirePositive(flag string, v int) error {
	if v <= 0 {
		return apperrors.Validation("--%s must be a positive id, got %d", flag, v)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
