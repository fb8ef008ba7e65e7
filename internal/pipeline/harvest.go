package pipeline

import (
	"context"
	"time"

	"github.com/vmunix/exvid/internal/httpx"
	"github.com/vmunix/exvid/internal/ledger"
	"github.com/vmunix/exvid/internal/page"
	"github.com/vmunix/exvid/pkg/catalog"
)

// harvestPage is one exercise page named by ledger rows.
type harvestPage struct {
	url    string
	path   catalog.PagePath
	record ledger.Record // first row naming the page
}

// harvestPages groups rows by page URL in first-seen order.
func (p *Pipeline) harvestPages(records []ledger.Record) []harvestPage {
	seen := make(map[string]bool)
	var out []harvestPage
	for _, rec := range records {
		if rec.PageURL == "" || seen[rec.PageURL] {
			continue
		}
		seen[rec.PageURL] = true
		pp, ok := catalog.ParsePagePath(rec.PageURL)
		if !ok {
			p.logger.Warn("skipping ledger row with unrecognized page URL", "title", rec.Title, "url", rec.PageURL)
			continue
		}
		out = append(out, harvestPage{url: rec.PageURL, path: pp, record: rec})
	}
	return out
}

// Harvest downloads every video embedded in the pages named by records,
// whatever angle or gender each one carries. Each page is fetched once.
func (p *Pipeline) Harvest(ctx context.Context, records []ledger.Record) (Summary, error) {
	pages := p.harvestPages(records)
	runID := p.start(ctx, "harvest", MethodHarvest, len(pages))
	started := time.Now()

	var sum Summary
	for i, hp := range pages {
		if i > 0 {
			if err := httpx.Wait(ctx, p.cfg.RateLimit); err != nil {
				return sum, err
			}
		}
		if err := p.harvestPage(ctx, hp, &sum); err != nil {
			return sum, err
		}
	}

	p.finish(ctx, runID, sum, started)
	return sum, nil
}

func (p *Pipeline) harvestPage(ctx context.Context, hp harvestPage, sum *Summary) error {
	ref := catalog.ExerciseRef{
		Title:     exerciseName(hp.record.Title, hp.path.Muscle),
		Equipment: hp.record.Equipment,
		Muscle:    hp.path.Muscle,
		Slug:      hp.record.Slug,
	}
	pageTarget := Target{Entry: catalog.Entry{ExerciseRef: ref, Gender: hp.path.Gender, URL: hp.url, Section: hp.path.Muscle}}

	urls, err := p.videos(ctx, hp.url)
	if err != nil || len(urls) == 0 {
		if cerr := ctxErr(ctx, err); cerr != nil {
			return cerr
		}
		return p.fail(ctx, pageTarget, failure{MethodHarvest, ledger.ReasonNoMP4InPage}, sum)
	}

	for _, u := range urls {
		g := page.InferGender(u, hp.path.Gender)
		t := pageTarget
		t.Gender = g
		t.URL = pageForGender(hp.url, hp.path.Gender, g)
		t.Angle = page.InferAngle(u, p.cfg.Angles)

		if skipped, err := p.skip(ctx, t, sum); skipped || err != nil {
			if err != nil {
				return err
			}
			continue
		}
		if err := p.deliver(ctx, t, resolution{URL: u, Method: MethodHarvest, Angle: t.Angle}, sum); err != nil {
			return err
		}
	}
	return nil
}
