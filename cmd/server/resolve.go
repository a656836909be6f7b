package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docspace-portals/backend/internal/fillsign"
	"github.com/docspace-portals/backend/internal/models"
	"github.com/spf13/cobra"
)

func newResolveCmd(root *rootOptions) *cobra.Command {
	var patientID string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print a patient's fill-and-sign assignments with their current status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load()
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			client, err := a.docspaceClient()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			patient, err := store.GetPatient(ctx, patientID)
			if err != nil {
				return err
			}
			stored, err := store.ListAssignments(ctx, patientID)
			if err != nil {
				return err
			}
			assignments := make([]models.Assignment, 0, len(stored))
			for _, s := range stored {
				assignments = append(assignments, *s)
			}

			resolved, err := fillsign.NewResolver(client, a.logger).ResolveAssignments(ctx, assignments, patient.FullName)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resolved); err != nil {
				return fmt.Errorf("writing result: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&patientID, "patient", "", "patient id")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	cmd.MarkFlagRequired("patient")
	return cmd
}
