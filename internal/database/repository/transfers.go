package repository

import (
	"context"
	"encoding/json"
)

// TransferWindowSeconds is the widest gap between the two legs of a transfer.
const TransferWindowSeconds = 3 * 24 * 60 * 60

const transferPairs = `
	SELECT t1.id AS id1, t2.id AS id2
	FROM transactions t1
	JOIN transactions t2
	  ON t1.id < t2.id
	 AND t1.account_id != t2.account_id
	 AND CAST(t1.amount AS REAL) = -CAST(t2.amount AS REAL)
	 AND ABS(COALESCE(t1.transacted_at, t1.posted) - COALESCE(t2.transacted_at, t2.posted)) <= ?`

// MarkInternalTransfers labels both legs of every equal-and-opposite pair
// across two accounts within the transfer window. When ids is non-empty only
// pairs with at least one leg in ids qualify. It returns the number of rows
// whose category changed; rows already labelled are left alone.
func (r *TransactionRepo) MarkInternalTransfers(ctx context.Context, ids []string) (int64, error) {
	args := []interface{}{TransferWindowSeconds}
	pairs := transferPairs
	if len(ids) > 0 {
		// One JSON parameter keeps large id sets under the bind variable limit.
		idList, err := json.Marshal(ids)
		if err != nil {
			return 0, err
		}
		pairs += " WHERE t1.id IN (SELECT value FROM json_each(?)) OR t2.id IN (SELECT value FROM json_each(?))"
		args = append(args, string(idList), string(idList))
	}
	query := `
	WITH pairs AS (` + pairs + `)
	UPDATE transactions SET category = ?
	WHERE category != ?
	  AND id IN (SELECT id1 FROM pairs UNION SELECT id2 FROM pairs)`
	args = append(args, CategoryInternalTransfer, CategoryInternalTransfer)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
