package infrastructure

import (
	"context"
	"database/sql"

	"github.com/globalbooks/fulfillment-system/shared/faults"
	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PostgresPriceResolver resolves catalog prices from the product_prices
// table. Clients never set prices; the catalog does.
type PostgresPriceResolver struct {
	db *sqlx.DB
}

// NewPostgresPriceResolver creates a new PostgresPriceResolver
func NewPostgresPriceResolver(db *sqlx.DB) *PostgresPriceResolver {
	return &PostgresPriceResolver{db: db}
}

type postgresProductPrice struct {
	ProductID string `db:"product_id"`
	Price     string `db:"price"`
	Currency  string `db:"currency"`
}

// UnitPrice returns the catalog price for a product
func (r *PostgresPriceResolver) UnitPrice(ctx context.Context, productID string) (models.Money, error) {
	query := `SELECT product_id, price, currency FROM product_prices WHERE product_id = $1`

	var row postgresProductPrice
	err := r.db.GetContext(ctx, &row, query, productID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Money{}, faults.Validationf("unknown product %s", productID)
		}
		return models.Money{}, faults.Transient(errors.Wrap(err, "failed to resolve product price"))
	}

	price, err := decimal.NewFromString(row.Price)
	if err != nil {
		return models.Money{}, errors.Wrapf(err, "invalid catalog price for product %s", productID)
	}

	return models.NewMoney(price, row.Currency), nil
}

// StaticPriceResolver serves a fixed price list, used when the service
// runs without a catalog database behind it.
type StaticPriceResolver struct {
	prices map[string]models.Money
}

// NewStaticPriceResolver creates a resolver over a fixed price list
func NewStaticPriceResolver(prices map[string]models.Money) *StaticPriceResolver {
	return &StaticPriceResolver{prices: prices}
}

// UnitPrice returns the listed price for a product
func (r *StaticPriceResolver) UnitPrice(_ context.Context, productID string) (models.Money, error) {
	price, ok := r.prices[productID]
	if !ok {
		return models.Money{}, faults.Validationf("unknown product %s", productID)
	}
	return price, nil
}
