package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/clinic-studio/internal/types"
)

// MaxCalculatorHistory caps the calculator_history record.
const MaxCalculatorHistory = 50

// AppendCalculator stores rec at the front of the calculator history,
// assigning an id and timestamp when missing.
func AppendCalculator(ctx context.Context, st Store, rec types.CalculatorRecord) (*types.CalculatorRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	records, err := ListCalculator(ctx, st)
	if err != nil {
		return nil, err
	}
	records = append([]types.CalculatorRecord{rec}, records...)
	if len(records) > MaxCalculatorHistory {
		records = records[:MaxCalculatorHistory]
	}
	if err := st.SaveRecord(ctx, KeyCalculatorHistory, records); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListCalculator returns the calculator history, newest first.
func ListCalculator(ctx context.Context, st Store) ([]types.CalculatorRecord, error) {
	var records []types.CalculatorRecord
	if _, err := st.LoadRecord(ctx, KeyCalculatorHistory, &records); err != nil {
		return nil, err
	}
	return records, nil
}
