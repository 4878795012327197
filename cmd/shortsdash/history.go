package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	sqlitestore "github.com/bnema/shortsdash/internal/adapter/storage/sqlite"
	"github.com/bnema/shortsdash/internal/domain"
)

type historyRow struct {
	ObservedAt time.Time          `json:"observed_at"`
	Kind       domain.HistoryKind `json:"kind"`
	Status     domain.VideoStatus `json:"status,omitempty"`
	Reason     string             `json:"reason,omitempty"`
}

// History prints what was recorded while supervising one video.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	store, err := sqlitestore.NewStore(r.cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	entries, err := store.ListHistory(ctx, cmd.String("video"))
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	return r.printHistory(entries, cmd.Bool("json"))
}

func (r *Runner) printHistory(entries []domain.HistoryEntry, asJSON bool) error {
	if asJSON {
		rows := make([]historyRow, len(entries))
		for i, e := range entries {
			rows[i] = historyRow{ObservedAt: e.ObservedAt.UTC(), Kind: e.Kind, Status: e.Status, Reason: e.Reason}
		}
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(r.out, "no history recorded")
		return err
	}

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "OBSERVED\tEVENT\tDETAIL")
	for _, e := range entries {
		detail := e.Status.Label()
		if e.Kind == domain.HistoryKindClosed {
			detail = e.Reason
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ObservedAt.UTC().Format(time.RFC3339), e.Kind, detail)
	}
	return tw.Flush()
}
