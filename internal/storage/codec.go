package storage

import (
	"encoding/json"
	"fmt"

	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

func encodeSnapshot(snapshot model.Snapshot) ([]byte, error) {
	data, err := json.Marshal(normalize(snapshot))
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (model.Snapshot, error) {
	var snapshot model.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return normalize(snapshot), nil
}

// normalize makes absent lists empty so they encode as [] rather than null.
func normalize(snapshot model.Snapshot) model.Snapshot {
	if snapshot.Incomes == nil {
		snapshot.Incomes = []model.Income{}
	}
	if snapshot.Expenses == nil {
		snapshot.Expenses = []model.Expense{}
	}
	return snapshot
}
