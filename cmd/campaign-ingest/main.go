// Command campaign-ingest attaches PRODUCT-scope campaigns to bulk product-id
// exports. Supplier catalog exports arrive as large gzip'd id-per-line files;
// an id is accepted only when it appears in 2 or more exports, which filters
// out ids from stale or partial dumps.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/supplyhub/procure/internal/postgres"
)

const (
	bloomCapacity = 120_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000_000
	minIDLen      = 4
	maxIDLen      = 64
	batchSize     = 5_000
)

const (
	updateCampaignProductsSQL = `UPDATE campaigns
		SET product_ids = product_ids || $2::TEXT[]
		WHERE id = $1 AND scope = 'PRODUCT'`

	setCashbackPercentSQL = `UPDATE campaigns
		SET cashback_percent = $2
		WHERE id = $1`
)

// fileResult holds candidate product ids found in a single export during pass 2.
type fileResult struct {
	candidates map[string]uint
}

func main() {
	var (
		dataDir         string
		databaseURL     string
		campaignID      string
		cashbackPercent string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing product export .gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&campaignID, "campaign-id", "", "PRODUCT-scope campaign to attach the ids to")
	flag.StringVar(&cashbackPercent, "cashback-percent", "", "optionally overwrite the campaign's cashback percent")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if campaignID == "" {
		slog.Error("--campaign-id is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, campaignID, cashbackPercent); err != nil {
		slog.Error("campaign ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("campaign ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL, campaignID, cashbackPercent string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list export files")
	}
	if len(files) < 2 {
		return errors.Errorf("need at least 2 export files in %s, found %d", dataDir, len(files))
	}
	sort.Strings(files)

	// Pass 1: Build bloom filters concurrently.
	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	// Pass 2: Find product ids appearing in 2+ exports.
	slog.Info("pass 2: finding confirmed product ids")

	validIDs, err := findValidIDs(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find valid product ids")
	}

	slog.Info("confirmed product ids", slog.Int("count", len(validIDs)))

	if len(validIDs) == 0 {
		slog.Info("no product ids to attach")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := attachToCampaign(ctx, pool, campaignID, cashbackPercent, validIDs); err != nil {
		return errors.Wrap(err, "attach product ids to campaign")
	}

	return nil
}

// buildBloomFilters creates one bloom filter per export file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(buildFilterForFile(ctx, i, f, filters))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return filters, nil
}

func buildFilterForFile(ctx context.Context, idx int, path string, filters []*bloom.BloomFilter) func() error {
	return func() error {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
		var count uint64

		if err := streamGzFile(ctx, path, func(id string) {
			if len(id) >= minIDLen && len(id) <= maxIDLen {
				filter.AddString(id)
				count++
				if count%progressEvery == 0 {
					slog.Info("pass 1 progress",
						slog.Int("file", idx+1),
						slog.Uint64("ids", count),
					)
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "build filter for file %d", idx+1)
		}

		slog.Info("pass 1 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_ids", count),
		)

		filters[idx] = filter
		return nil
	}
}

// findValidIDs re-streams each export and checks ids against OTHER exports'
// bloom filters. An id is valid if it appears in 2 or more exports.
func findValidIDs(ctx context.Context, files []string, filters []*bloom.BloomFilter) ([]string, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(findCandidatesInFile(ctx, i, f, filters, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge bitmasks from all exports.
	merged := make(map[string]uint)
	for _, r := range results {
		for id, mask := range r.candidates {
			merged[id] |= mask
		}
	}

	// Keep ids appearing in 2+ exports.
	var valid []string
	for id, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			valid = append(valid, id)
		}
	}
	sort.Strings(valid)

	return valid, nil
}

func findCandidatesInFile(
	ctx context.Context,
	idx int,
	path string,
	filters []*bloom.BloomFilter,
	results []fileResult,
) func() error {
	return func() error {
		candidates := make(map[string]uint)
		fileBit := uint(1) << uint(idx)
		var count uint64

		if err := streamGzFile(ctx, path, func(id string) {
			if len(id) < minIDLen || len(id) > maxIDLen {
				return
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("pass 2 progress",
					slog.Int("file", idx+1),
					slog.Uint64("ids", count),
				)
			}

			// Check if this id appears in any OTHER export's bloom filter.
			for j, f := range filters {
				if j == idx {
					continue
				}
				if f.TestString(id) {
					candidates[id] |= fileBit
					break
				}
			}
		}); err != nil {
			return errors.Wrapf(err, "scan file %d for candidates", idx+1)
		}

		slog.Info("pass 2 complete",
			slog.Int("file", idx+1),
			slog.Uint64("total_ids", count),
			slog.Int("candidates", len(candidates)),
		)

		results[idx] = fileResult{candidates: candidates}
		return nil
	}
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(id string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// attachToCampaign appends the confirmed product ids to the campaign in
// batches and optionally updates its cashback percent.
func attachToCampaign(ctx context.Context, pool *pgxpool.Pool, campaignID, cashbackPercent string, ids []string) error {
	slog.Info("attaching product ids", slog.String("campaign", campaignID), slog.Int("count", len(ids)))

	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))

		tag, err := pool.Exec(ctx, updateCampaignProductsSQL, campaignID, ids[start:end])
		if err != nil {
			return errors.Wrapf(err, "attach batch %d-%d", start, end)
		}
		if tag.RowsAffected() == 0 {
			return errors.Errorf("campaign %s not found or not PRODUCT-scoped", campaignID)
		}

		slog.Info("attach progress", slog.Int("written", end), slog.Int("total", len(ids)))
	}

	if cashbackPercent != "" {
		pct, err := decimal.NewFromString(cashbackPercent)
		if err != nil {
			return errors.Wrap(err, "parse cashback percent")
		}
		if _, err := pool.Exec(ctx, setCashbackPercentSQL, campaignID, pct); err != nil {
			return errors.Wrap(err, "update cashback percent")
		}
	}

	return nil
}
