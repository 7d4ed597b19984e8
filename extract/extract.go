package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/cataloger/models"
)

// GapReason names why a product container was skipped.
type GapReason string

const (
	GapMissingLink  GapReason = "missing_link"
	GapInvalidHref  GapReason = "invalid_href"
	GapEmptyTitle   GapReason = "empty_title"
	GapMissingPrice GapReason = "missing_price"
	GapEmptyPrice   GapReason = "empty_price"
)

// Report summarises one extraction.
type Report struct {
	// Candidates is the number of containers matched.
	Candidates int
	// Extracted is the number of records produced.
	Extracted int
	// Gaps counts skipped containers by reason.
	Gaps map[GapReason]int
}

// Skipped returns the total number of skipped containers.
func (r Report) Skipped() int {
	n := 0
	for _, c := range r.Gaps {
		n += c
	}
	return n
}

// GapCounts returns Gaps keyed by plain strings, for JSON output.
func (r Report) GapCounts() map[string]int {
	if len(r.Gaps) == 0 {
		return nil
	}
	out := make(map[string]int, len(r.Gaps))
	for k, v := range r.Gaps {
		out[string(k)] = v
	}
	return out
}

// Extractor turns rendered catalog markup into product records.
// It is stateless and safe for concurrent use.
type Extractor struct {
	profile Profile
}

// New creates an Extractor for the given profile.
func New(profile Profile) *Extractor {
	return &Extractor{profile: profile}
}

// Extract parses page and returns one record per well-formed product
// container, in document order. Containers lacking a product link, a
// qualifying href, or a price are skipped and logged; they never abort the
// batch. An unparsable or empty page yields an empty batch.
func (e *Extractor) Extract(page models.RenderedPage) (models.ExtractionBatch, Report) {
	report := Report{Gaps: make(map[GapReason]int)}
	batch := models.ExtractionBatch{}

	if page.Empty() {
		return batch, report
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		slog.Error("extract: failed to parse page", "url", page.FinalURL, "error", err)
		return batch, report
	}

	containers := e.profile.Container.FindIn(doc.Selection)
	report.Candidates = containers.Length()
	slog.Debug("extract: containers located",
		"count", report.Candidates,
		"matcher", e.profile.Container.String(),
	)

	containers.Each(func(i int, s *goquery.Selection) {
		rec, gap := e.extractOne(s)
		if gap != "" {
			report.Gaps[gap]++
			slog.Error("extract: skipping product container",
				"index", i,
				"reason", string(gap),
			)
			return
		}
		batch = append(batch, rec)
	})

	report.Extracted = len(batch)
	return batch, report
}

// ExtractHTML is a convenience wrapper for markup that did not come from
// the harvester (saved pages, fixtures).
func (e *Extractor) ExtractHTML(rawHTML string) (models.ExtractionBatch, Report) {
	return e.Extract(models.RenderedPage{HTML: rawHTML})
}

func (e *Extractor) extractOne(s *goquery.Selection) (models.ProductRecord, GapReason) {
	link := e.profile.Link.FindIn(s).First()
	if link.Length() == 0 {
		return models.ProductRecord{}, GapMissingLink
	}
	href, ok := link.Attr("href")
	if !ok || !strings.Contains(href, e.profile.HrefMarker) {
		slog.Debug("extract: link rejected", "href", href)
		return models.ProductRecord{}, GapInvalidHref
	}

	brand, model := ParseTitle(link.Text(), e.profile.CategoryLabel)
	if brand == "" {
		return models.ProductRecord{}, GapEmptyTitle
	}

	priceSel := e.profile.Price.FindIn(s).First()
	if priceSel.Length() == 0 {
		return models.ProductRecord{}, GapMissingPrice
	}
	price := NormalizePrice(priceSel.Text(), e.profile.Currency)
	if price == "" {
		return models.ProductRecord{}, GapEmptyPrice
	}

	return models.ProductRecord{Brand: brand, Model: model, Price: price}, ""
}
