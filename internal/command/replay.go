package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"warehouse/internal/inventory"
	"warehouse/internal/logging"
)

// Summary describes one replay.
type Summary struct {
	Declared int           `json:"declared"`
	Applied  int           `json:"applied"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Replayer applies operation streams to an inventory.
type Replayer struct {
	inv inventory.Inventory

	// bestFit sends plain add records through the alternate placement policy.
	bestFit bool
}

// NewReplayer creates a replayer. With bestFit set, "add" records behave like
// "betteradd".
func NewReplayer(inv inventory.Inventory, bestFit bool) *Replayer {
	return &Replayer{inv: inv, bestFit: bestFit}
}

// Replay reads every declared record from r and applies it. Cancellation is
// checked between records; records applied before an error stay applied.
func (rp *Replayer) Replay(ctx context.Context, r io.Reader) (Summary, error) {
	start := time.Now()
	reader := NewReader(r)
	var summary Summary

	for {
		select {
		case <-ctx.Done():
			summary.Duration = time.Since(start)
			return summary, ctx.Err()
		default:
		}

		rec, err := reader.Next()
		summary.Declared = reader.Declared()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.Duration = time.Since(start)
			logging.Error(ctx, logging.ComponentCommand, logging.ActionParse, "Failed to read operation stream", err, logging.Fields{
				"applied": summary.Applied,
			})
			return summary, fmt.Errorf("replay: %w", err)
		}

		if !rp.Apply(rec) {
			summary.Skipped++
			logging.Debug(ctx, logging.ComponentCommand, logging.ActionReplay, "Skipped unknown operation", logging.Fields{
				"record": rec.Index,
				"op":     rec.Op,
			})
			continue
		}
		summary.Applied++
	}

	summary.Duration = time.Since(start)
	logging.Info(ctx, logging.ComponentCommand, logging.ActionReplay, "Operation stream replayed", logging.Fields{
		"declared": summary.Declared,
		"applied":  summary.Applied,
		"skipped":  summary.Skipped,
	})
	return summary, nil
}

// Apply forwards one record to the inventory and reports whether the operation
// was recognised.
func (rp *Replayer) Apply(rec Record) bool {
	switch rec.Op {
	case OpAdd:
		if rp.bestFit {
			rp.inv.BetterAddProduct(rec.ID, rec.Name, rec.Stock, rec.Day, rec.Demand)
		} else {
			rp.inv.AddProduct(rec.ID, rec.Name, rec.Stock, rec.Day, rec.Demand)
		}
	case OpBetterAdd:
		rp.inv.BetterAddProduct(rec.ID, rec.Name, rec.Stock, rec.Day, rec.Demand)
	case OpRestock:
		rp.inv.RestockProduct(rec.ID, rec.Amount)
	case OpPurchase:
		rp.inv.PurchaseProduct(rec.ID, rec.Day, rec.Amount)
	case OpDelete:
		rp.inv.DeleteProduct(rec.ID)
	default:
		return false
	}
	return true
}
