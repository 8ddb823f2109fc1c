// Package catalog imports playlist documents into the catalog store and
// serves paginated and searched views of it.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
	"github.com/cesargomez89/iptvcatalog/internal/logger"
	"github.com/cesargomez89/iptvcatalog/internal/metrics"
)

// Writer is the part of the store an import writes to.
type Writer interface {
	BulkPutCategories(ctx context.Context, categories []domain.Category) error
	BulkPutStreams(ctx context.Context, streams []domain.Stream) error
}

type Phase string

const (
	PhaseCategories Phase = "categories"
	PhaseStreams    Phase = "streams"
	PhaseDone       Phase = "done"
)

// Progress is reported after every category batch and stream chunk.
type Progress struct {
	Phase      Phase             `json:"phase"`
	StreamType domain.StreamType `json:"streamType,omitempty"`
	Percent    float64           `json:"percent"`
	Categories int               `json:"categories"`
	Streams    int               `json:"streams"`
	Skipped    int               `json:"skipped"`
}

// Result counts the rows an import wrote.
type Result struct {
	Categories int `json:"categories"`
	Streams    int `json:"streams"`
	Skipped    int `json:"skipped"`
	// Reassigned counts streams whose id was already written under another
	// category in the same import. The later write owns the row.
	Reassigned int `json:"reassigned"`
}

type Importer struct {
	store     Writer
	logger    *logger.Logger
	chunkSize int
}

func NewImporter(store Writer, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Default()
	}
	return &Importer{
		store:     store,
		logger:    log.WithComponent("importer"),
		chunkSize: constants.StreamChunkSize,
	}
}

type plannedCategory struct {
	category   domain.Category
	items      []any
	hasItems   bool
	positional bool
}

type plannedType struct {
	streamType domain.StreamType
	categories []plannedCategory
}

// Plan is a parsed playlist document ready to be written.
type Plan struct {
	types []plannedType
	items int
}

// Categories returns the number of category rows the plan writes.
func (p *Plan) Categories() int {
	n := 0
	for _, pt := range p.types {
		n += len(pt.categories)
	}
	return n
}

// Items returns the number of stream items resolved from the document,
// including those that will be skipped for lacking an identifier.
func (p *Plan) Items() int {
	return p.items
}

// Import parses payload and writes it. Chunks written before a failure stay
// in the store.
func (im *Importer) Import(ctx context.Context, payload []byte, onProgress func(Progress)) (*Result, error) {
	plan, err := im.Parse(payload)
	if err != nil {
		return nil, err
	}
	return im.Write(ctx, plan, onProgress)
}

// Write upserts the categories of plan type by type, then their streams in
// chunks, reporting progress after every batch.
func (im *Importer) Write(ctx context.Context, plan *Plan, onProgress func(Progress)) (*Result, error) {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}

	denominator := plan.items
	if denominator == 0 {
		denominator = constants.AssumedStreamTotal
	}

	res := &Result{}
	processed := 0
	owners := make(map[string]string, plan.items)

	report := func(phase Phase, streamType domain.StreamType, percent float64) {
		if percent > 100 {
			percent = 100
		}
		onProgress(Progress{
			Phase:      phase,
			StreamType: streamType,
			Percent:    percent,
			Categories: res.Categories,
			Streams:    res.Streams,
			Skipped:    res.Skipped,
		})
	}

	for i, pt := range plan.types {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cats := make([]domain.Category, len(pt.categories))
		for j := range pt.categories {
			cats[j] = pt.categories[j].category
		}
		if err := im.store.BulkPutCategories(ctx, cats); err != nil {
			return nil, fmt.Errorf("failed to write %s categories: %w", pt.streamType, err)
		}
		res.Categories += len(cats)
		metrics.RowsWritten.WithLabelValues(constants.CategoriesTable).Add(float64(len(cats)))

		report(PhaseCategories, pt.streamType, constants.CategoryProgressWeight*float64(i+1)/float64(len(plan.types)))
	}

	for _, pt := range plan.types {
		for _, pc := range pt.categories {
			log := im.logger.WithCategory(pc.category.ID, pc.category.CategoryName)
			if !pc.hasItems {
				log.Info("Category has no streams")
				continue
			}

			for start := 0; start < len(pc.items); start += im.chunkSize {
				if err := ctx.Err(); err != nil {
					return nil, err
				}

				end := min(start+im.chunkSize, len(pc.items))
				chunk := make([]domain.Stream, 0, end-start)
				for k := start; k < end; k++ {
					s, err := normalizeStream(pc.category, pc.items[k])
					if err != nil {
						log.Warn("Skipping stream", "index", k, "error", err)
						res.Skipped++
						metrics.StreamsSkipped.Inc()
						continue
					}
					if prev, ok := owners[s.ID]; ok && prev != s.CategoryID {
						log.Warn("Stream id already written under another category, moving it",
							"stream_id", s.ID, "previous_category", prev)
						res.Reassigned++
					}
					owners[s.ID] = s.CategoryID
					chunk = append(chunk, s)
				}

				if err := im.store.BulkPutStreams(ctx, chunk); err != nil {
					return nil, fmt.Errorf("failed to write streams of %s: %w", pc.category.ID, err)
				}
				res.Streams += len(chunk)
				processed += end - start
				metrics.RowsWritten.WithLabelValues(constants.StreamsTable).Add(float64(len(chunk)))
				metrics.ChunkSize.Observe(float64(len(chunk)))

				report(PhaseStreams, pt.streamType,
					constants.CategoryProgressWeight+constants.StreamProgressWeight*float64(processed)/float64(denominator))
			}
		}
	}

	report(PhaseDone, "", 100)
	im.logger.Info("Import finished", "categories", res.Categories, "streams", res.Streams, "skipped", res.Skipped, "reassigned", res.Reassigned)
	return res, nil
}

// Parse decodes payload once and resolves every category and its items
// without touching the store.
func (im *Importer) Parse(payload []byte) (*Plan, error) {
	doc, err := decodeDocument(payload)
	if err != nil {
		return nil, err
	}

	data, ok := doc["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing data object", domain.ErrMalformedPayload)
	}

	categorized, hasCategorized := data["categorizedStreams"].(map[string]any)
	metadata, hasMetadata := data["categories"].(map[string]any)
	if !hasCategorized && !hasMetadata {
		return nil, fmt.Errorf("%w: data has neither categorizedStreams nor categories", domain.ErrMalformedPayload)
	}

	plan := &Plan{}
	for _, streamType := range orderStreamTypes(categorized, metadata) {
		entries, _ := categorized[string(streamType)].([]any)
		if len(entries) == 0 {
			entries, _ = metadata[string(streamType)].([]any)
		}
		if len(entries) == 0 {
			im.logger.Debug("No categories for stream type", "stream_type", streamType)
			continue
		}

		if !streamType.Known() {
			im.logger.Warn("Importing unknown stream type", "stream_type", streamType)
		}

		pt := plannedType{streamType: streamType}
		explicit := make(map[string]bool)
		var candidates []plannedCategory
		for i, entry := range entries {
			cat, ok := normalizeCategory(streamType, entry, i)
			if !ok {
				im.logger.Warn("Skipping category entry", "stream_type", streamType, "index", i, "type", fmt.Sprintf("%T", entry))
				continue
			}
			_, positional := rawCategoryID(entry, i)
			if !positional {
				explicit[cat.CategoryID] = true
			}
			items, _, hasItems := resolveItems(entry)
			candidates = append(candidates, plannedCategory{category: cat, items: items, hasItems: hasItems, positional: positional})
		}

		for _, pc := range candidates {
			if pc.positional && explicit[pc.category.CategoryID] {
				im.logger.Warn("Skipping category without id that clashes with an existing id",
					"stream_type", streamType, "category_id", pc.category.CategoryID)
				continue
			}
			pt.categories = append(pt.categories, pc)
			plan.items += len(pc.items)
		}
		if len(pt.categories) > 0 {
			plan.types = append(plan.types, pt)
		}
	}

	return plan, nil
}

func decodeDocument(payload []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrMalformedPayload)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: top level is %s, not an object", domain.ErrMalformedPayload, typeErr.Value)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedPayload, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is null", domain.ErrMalformedPayload)
	}
	return doc, nil
}
