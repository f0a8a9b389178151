package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-shop-backoffice/internal/postgres"
)

// DecrementStock takes qty from one variant only if enough is left. It reports
// false, with nothing changed, when no row matched (variant gone or quantity < qty).
func DecrementStock(ctx context.Context, q postgres.Querier, productID uuid.UUID, color, size string, qty int) (bool, error) {
	ct, err := q.Exec(ctx, `
		UPDATE product_stock
		SET quantity = quantity - $4
		WHERE product_id = $1 AND color = $2 AND size = $3 AND quantity >= $4`,
		productID, color, size, qty)
	if err != nil {
		return false, fmt.Errorf("catalog: decrement stock: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// RestoreStock gives qty back to a variant. False means the variant no longer exists.
func RestoreStock(ctx context.Context, q postgres.Querier, productID uuid.UUID, color, size string, qty int) (bool, error) {
	ct, err := q.Exec(ctx, `
		UPDATE product_stock
		SET quantity = quantity + $4
		WHERE product_id = $1 AND color = $2 AND size = $3`,
		productID, color, size, qty)
	if err != nil {
		return false, fmt.Errorf("catalog: restore stock: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}
