package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jask/moneyboard/internal/database/repository"
)

// TransferMatcher labels equal-and-opposite movements between the user's own
// accounts as internal transfers. Labels are never removed once applied.
type TransferMatcher struct {
	Transactions *repository.TransactionRepo
	Log          zerolog.Logger
}

// MarkAll scans the whole table.
func (m *TransferMatcher) MarkAll(ctx context.Context) (int64, error) {
	n, err := m.Transactions.MarkInternalTransfers(ctx, nil)
	if err != nil {
		return 0, err
	}
	m.Log.Info().Int64("marked", n).Msg("internal transfers marked")
	return n, nil
}

// MarkAmong only considers pairs with at least one leg in ids.
func (m *TransferMatcher) MarkAmong(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := m.Transactions.MarkInternalTransfers(ctx, ids)
	if err != nil {
		return 0, err
	}
	m.Log.Info().Int64("marked", n).Int("candidates", len(ids)).Msg("internal transfers marked")
	return n, nil
}
