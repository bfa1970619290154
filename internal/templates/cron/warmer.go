package cronjob

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
	"github.com/draftpilot/draftpilot-backend/internal/projects/repository"
)

// warmBatchSize is how many of the most-used published templates get
// re-primed per run.
const warmBatchSize = 50

// PublishedTemplateLister is the repository surface the warmer needs.
type PublishedTemplateLister interface {
	ListPublishedTemplates(ctx context.Context, limit int) ([]domain.Template, error)
}

// Warmer periodically re-primes the published-template cache so the hot
// templates survive TTL expiry without a Firestore read on the request path.
type Warmer struct {
	repo  PublishedTemplateLister
	cache *repository.TemplateCache
}

func NewWarmer(repo PublishedTemplateLister, cache *repository.TemplateCache) *Warmer {
	return &Warmer{repo: repo, cache: cache}
}

// Start schedules the warm job every 5 minutes and runs one pass immediately.
func (w *Warmer) Start() *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("@every 5m", w.run)
	if err != nil {
		slog.Error("failed to schedule template cache warmer", "error", err)
		return c
	}

	go w.run()
	c.Start()
	slog.Info("template cache warmer started", "interval", "5m", "batch", warmBatchSize)
	return c
}

func (w *Warmer) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	templates, err := w.repo.ListPublishedTemplates(ctx, warmBatchSize)
	if err != nil {
		slog.Warn("template cache warm pass failed", "error", err)
		return
	}

	warmed := 0
	for i := range templates {
		if err := w.cache.Set(ctx, &templates[i]); err != nil {
			slog.Warn("failed to warm template", "template_id", templates[i].ID, "error", err)
			continue
		}
		warmed++
	}
	slog.Info("template cache warm pass complete", "warmed", warmed)
}
