// Package notionsync mirrors the lent ledger into a Notion database, one page
// per lent transaction keyed by its transaction id.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/dvloznov/fintrack/internal/logger"
	"github.com/jomei/notionapi"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100
)

// Report counts what a sync did (or would do, in dry-run mode).
type Report struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// SyncLent mirrors every lent transaction in txs into the Notion database.
// Existing pages are matched by their Transaction ID property and updated in
// place, so running the sync twice creates no duplicates. Pages whose id is
// missing or no longer a lent transaction are archived. Failures on single
// pages are logged and counted; only a failed database query aborts the sync.
func SyncLent(ctx context.Context, notionClient NotionService, notionDBID string, txs []domain.Transaction, methods []domain.PaymentMethod, dryRun bool) (Report, error) {
	log := logger.FromContext(ctx)
	var report Report

	var lentTxs []domain.Transaction
	valid := make(map[string]bool)
	for _, tx := range txs {
		if tx.IsLent() {
			lentTxs = append(lentTxs, tx)
			valid[tx.ID] = true
		}
	}

	log.Info().
		Int("lent_count", len(lentTxs)).
		Bool("dry_run", dryRun).
		Msg("Starting lent ledger sync to Notion")

	pages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return report, fmt.Errorf("SyncLent: query Notion pages: %w", err)
	}

	pageByTxID := make(map[string]string)
	for _, page := range pages {
		txID := extractTransactionID(page)
		if txID != "" && valid[txID] {
			if _, dup := pageByTxID[txID]; !dup {
				pageByTxID[txID] = string(page.ID)
				continue
			}
		}

		if dryRun {
			log.Info().
				Str("transaction_id", txID).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would delete stale Notion page")
			report.Deleted++
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", txID).
				Str("page_id", string(page.ID)).
				Msg("Failed to delete stale Notion page")
			report.Failed++
			continue
		}
		report.Deleted++
	}

	for i := 0; i < len(lentTxs); i += BatchSize {
		end := i + BatchSize
		if end > len(lentTxs) {
			end = len(lentTxs)
		}

		log.Debug().
			Int("batch_start", i).
			Int("batch_end", end).
			Msg("Processing batch")

		for _, tx := range lentTxs[i:end] {
			pageID, exists := pageByTxID[tx.ID]

			if dryRun {
				if exists {
					log.Info().Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("[DRY RUN] Would update Notion page")
					report.Updated++
				} else {
					log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would create Notion page")
					report.Created++
				}
				continue
			}

			props := LentToNotionProperties(tx, methods)

			if exists {
				if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
					log.Warn().
						Err(err).
						Str("transaction_id", tx.ID).
						Str("page_id", pageID).
						Msg("Failed to update Notion page")
					report.Failed++
					continue
				}
				report.Updated++
				continue
			}

			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().
					Err(err).
					Str("transaction_id", tx.ID).
					Msg("Failed to create Notion page")
				report.Failed++
				continue
			}
			log.Debug().
				Str("transaction_id", tx.ID).
				Str("page_id", string(page.ID)).
				Msg("Created Notion page")
			report.Created++
		}
	}

	log.Info().
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("deleted", report.Deleted).
		Int("failed", report.Failed).
		Msg("Lent ledger sync completed")

	return report, nil
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

// extractTransactionID returns the Transaction ID property of a page, or "".
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(richText.RichText) > 0 {
				return richText.RichText[0].PlainText
			}
		}
	}
	return ""
}
