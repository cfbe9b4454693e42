// Command seed-db loads demo campaigns, supplier-state conditions, and
// payment conditions for local development.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/supplyhub/procure/internal/postgres"
)

const (
	upsertCampaignSQL = `INSERT INTO campaigns
		(id, supplier_org_id, name, type, scope, min_total, min_quantity,
		cashback_percent, gift_product_id, category_id, product_ids, start_at, end_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, type = EXCLUDED.type, scope = EXCLUDED.scope,
			min_total = EXCLUDED.min_total, min_quantity = EXCLUDED.min_quantity,
			cashback_percent = EXCLUDED.cashback_percent, active = EXCLUDED.active`

	upsertConditionSQL = `INSERT INTO supplier_state_conditions
		(id, supplier_org_id, state, cashback_percent, payment_term_days, unit_price_adjustment)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (supplier_org_id, state) DO UPDATE SET
			cashback_percent = EXCLUDED.cashback_percent,
			payment_term_days = EXCLUDED.payment_term_days,
			unit_price_adjustment = EXCLUDED.unit_price_adjustment`

	upsertPaymentConditionSQL = `INSERT INTO payment_conditions
		(id, supplier_org_id, name, payment_term_days, payment_method, notes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, payment_term_days = EXCLUDED.payment_term_days,
			payment_method = EXCLUDED.payment_method, active = EXCLUDED.active`
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCampaigns(ctx, pool); err != nil {
		return errors.Wrap(err, "seed campaigns")
	}
	if err := seedConditions(ctx, pool); err != nil {
		return errors.Wrap(err, "seed conditions")
	}
	return nil
}

func seedCampaigns(ctx context.Context, pool *pgxpool.Pool) error {
	now := time.Now()
	monthEnd := now.AddDate(0, 1, 0)

	type campaign struct {
		id, supplier, name, campType, scope string
		minTotal                            *string
		minQuantity                         *int
		cashbackPercent                     string
		giftProductID, categoryID           string
		productIDs                          []string
		startAt, endAt                      *time.Time
	}

	minTotal := "100.00"
	minQty := 10
	campaigns := []campaign{
		{
			id: "camp-welcome", supplier: "sup-acme", name: "Welcome cashback",
			campType: "CASHBACK", scope: "ALL", cashbackPercent: "5",
		},
		{
			id: "camp-bulk", supplier: "sup-acme", name: "Bulk order bonus",
			campType: "CASHBACK", scope: "ALL", cashbackPercent: "3",
			minTotal: &minTotal, minQuantity: &minQty,
		},
		{
			id: "camp-snacks", supplier: "sup-acme", name: "Snack category promo",
			campType: "CASHBACK", scope: "CATEGORY", cashbackPercent: "10",
			categoryID: "cat-snacks", startAt: &now, endAt: &monthEnd,
		},
		{
			id: "camp-sampler", supplier: "sup-acme", name: "Free sampler pack",
			campType: "GIFT", scope: "PRODUCT", cashbackPercent: "0",
			giftProductID: "prod-sampler", productIDs: []string{"prod-1", "prod-2"},
		},
	}

	for _, c := range campaigns {
		if _, err := pool.Exec(ctx, upsertCampaignSQL,
			c.id, c.supplier, c.name, c.campType, c.scope, c.minTotal, c.minQuantity,
			c.cashbackPercent, c.giftProductID, c.categoryID, c.productIDs,
			c.startAt, c.endAt, true,
		); err != nil {
			return errors.Wrapf(err, "upsert campaign %s", c.id)
		}
	}

	slog.Info("campaigns seeded", slog.Int("count", len(campaigns)))
	return nil
}

func seedConditions(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, upsertConditionSQL,
		"ssc-acme-sp", "sup-acme", "SP", "2.5", 30, "-0.50",
	); err != nil {
		return errors.Wrap(err, "upsert supplier state condition")
	}

	paymentConditions := [][]any{
		{"pay-net30", "sup-acme", "Net 30", 30, "bank_transfer", "", true},
		{"pay-net60", "sup-acme", "Net 60", 60, "bank_transfer", "negotiated accounts only", true},
		{"pay-upfront", "sup-acme", "Upfront", 0, "pix", "", true},
	}
	for _, args := range paymentConditions {
		if _, err := pool.Exec(ctx, upsertPaymentConditionSQL, args...); err != nil {
			return errors.Wrapf(err, "upsert payment condition %v", args[0])
		}
	}

	slog.Info("conditions seeded")
	return nil
}
