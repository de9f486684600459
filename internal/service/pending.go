package service

import (
	"context"

	"printshop/storefront/internal/domain"
	"printshop/storefront/internal/gallery"
	"printshop/storefront/internal/state"

	log "github.com/sirupsen/logrus"
)

type pendingSource struct {
	gallery.Source
	tally state.PendingDownloads
}

// WithPendingDownloads adds queued but unapplied downloads to the counts source
// returns. A tally lookup failure leaves the fetched counts as they are.
func WithPendingDownloads(source gallery.Source, tally state.PendingDownloads) gallery.Source {
	return &pendingSource{Source: source, tally: tally}
}

func (p *pendingSource) FetchItems(ctx context.Context) ([]domain.CatalogItem, error) {
	items, err := p.Source.FetchItems(ctx)
	if err != nil || len(items) == 0 {
		return items, err
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	counts, err := p.tally.Pending(ctx, ids)
	if err != nil {
		log.Warnf("⚠️ Showing counts without pending downloads: %v", err)
		return items, nil
	}

	for i := range items {
		if n, ok := counts[items[i].ID]; ok {
			items[i].DownloadCount += n
			items[i].Pending = true
		}
	}
	return items, nil
}
