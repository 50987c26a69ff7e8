// Package processor orchestrates meeting processing: cache lookup, text
// extraction and quality gating, summarization (monolithic or item-level),
// and persistence, matching spec.md §4.6's single writer-of-summaries
// contract. Each phase is exposed as its own method so the Temporal
// activities in internal/temporal can drive them independently while the
// two top-level methods below compose them for direct (non-workflow) use.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/engagic/pipeline/internal/filters"
	"github.com/engagic/pipeline/internal/httpclient"
	"github.com/engagic/pipeline/internal/parsers"
	"github.com/engagic/pipeline/internal/pipelineerr"
	"github.com/engagic/pipeline/internal/store"
	"github.com/engagic/pipeline/internal/summarizer"
	"github.com/engagic/pipeline/internal/topics"
)

// ErrPremiumTierRequired means the free Tier-1 pipeline (PDF text extraction
// plus the small/large model split) could not produce a usable summary —
// no text, or text that failed the quality heuristics. Premium fallbacks
// (OCR, a vision model) live in a quarantined module outside this pipeline's
// steady-state path, per spec.md §4.6 step 3. It wraps pipelineerr.ErrProcessing
// so callers can distinguish it from configuration/rate-limit failures with
// a single errors.Is check.
var ErrPremiumTierRequired = fmt.Errorf("processor: requires premium tier: %w", pipelineerr.ErrProcessing)

// autoDetectSmallPages/autoDetectSmallChars gate spec.md §4.6's auto-detection
// path: a packet this small is processed monolithically even with no
// pre-supplied items; anything larger is worth attempting to chunk first.
const (
	autoDetectSmallPages = 10
	autoDetectSmallChars = 30_000
)

// ProcessingResult is what every processing path converges on before the
// caller persists it and marks the queue entry complete.
type ProcessingResult struct {
	Cached           bool
	Summary          string
	Topics           []string
	ProcessingMethod string
	ProcessingTime   float64
	Participation    string
}

// Processor wires the store, summarizer, and topic normalizer together.
// It holds no per-call state and is safe for concurrent use as long as the
// underlying Store tolerates concurrent calls (it serializes writes itself).
type Processor struct {
	Store      *store.Store
	Summarizer *summarizer.Summarizer
	Topics     *topics.Normalizer
	HTTP       *httpclient.Client
	logger     *slog.Logger
}

func New(st *store.Store, summ *summarizer.Summarizer, normalizer *topics.Normalizer, httpClient *httpclient.Client, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Store: st, Summarizer: summ, Topics: normalizer, HTTP: httpClient, logger: logger}
}

// LookupCache returns the cached summary for packetURL, or nil if absent.
func (p *Processor) LookupCache(packetURL string) (*store.CacheEntry, error) {
	entry, err := p.Store.GetCacheEntry(packetURL)
	if err != nil {
		return nil, fmt.Errorf("processor: cache lookup for %s: %w", packetURL, err)
	}
	return entry, nil
}

// ExtractAndQualityCheck downloads packetURL, extracts its text, and runs
// spec.md §4.6's quality gate. Returns ErrPremiumTierRequired if either step
// fails — the Tier-1 pipeline has no further fallback.
func (p *Processor) ExtractAndQualityCheck(ctx context.Context, packetURL string) (string, parsers.Participation, error) {
	data, err := p.HTTP.DownloadPDF(ctx, packetURL)
	if err != nil {
		return "", parsers.Participation{}, fmt.Errorf("%w: downloading packet: %v", ErrPremiumTierRequired, err)
	}
	text, err := parsers.ExtractTextFromBytes(data)
	if err != nil || !parsers.TextQuality(text) {
		return "", parsers.Participation{}, fmt.Errorf("%w: extracted text failed quality checks", ErrPremiumTierRequired)
	}
	return text, parsers.ParseParticipation(text), nil
}

// SummarizeText runs the monolithic meeting-level summarizer over
// already-extracted text.
func (p *Processor) SummarizeText(ctx context.Context, text string) (string, error) {
	summary, err := p.Summarizer.SummarizeMeeting(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPremiumTierRequired, err)
	}
	return summary, nil
}

// PersistCachedSummary writes a freshly computed monolithic summary to the
// packet cache so a repeat enqueue of the same document never re-runs the
// model.
func (p *Processor) PersistCachedSummary(packetURL, summary string, elapsed float64) error {
	if err := p.Store.PutCacheEntry(packetURL, summary, elapsed); err != nil {
		return fmt.Errorf("processor: caching summary for %s: %w", packetURL, err)
	}
	return nil
}

// ProcessMeetingWithCache runs spec.md §4.6's Tier-1 monolithic pipeline
// against a meeting's packet URL: cache lookup, extract, quality-check,
// summarize, persist.
func (p *Processor) ProcessMeetingWithCache(ctx context.Context, packetURL string) (ProcessingResult, error) {
	entry, err := p.LookupCache(packetURL)
	if err != nil {
		return ProcessingResult{}, err
	}
	if entry != nil {
		return ProcessingResult{
			Cached:           true,
			Summary:          entry.Summary,
			ProcessingMethod: "cached",
			ProcessingTime:   entry.ProcessingTime,
		}, nil
	}

	start := time.Now()

	text, participation, err := p.ExtractAndQualityCheck(ctx, packetURL)
	if err != nil {
		return ProcessingResult{}, err
	}

	summary, err := p.SummarizeText(ctx, text)
	if err != nil {
		return ProcessingResult{}, err
	}

	elapsed := time.Since(start).Seconds()
	if err := p.PersistCachedSummary(packetURL, summary, elapsed); err != nil {
		return ProcessingResult{}, err
	}

	return ProcessingResult{
		Summary:          summary,
		ProcessingMethod: "tier1_pymupdf_gemini",
		ProcessingTime:   elapsed,
		Participation:    participationString(participation),
	}, nil
}

// ItemsNeedingSummary partitions a meeting's items into the ones already
// summarized or processor-skipped (left untouched) and the ones that still
// need a batch request built.
func ItemsNeedingSummary(items []store.AgendaItem) []store.AgendaItem {
	out := make([]store.AgendaItem, 0, len(items))
	for _, it := range items {
		if it.Summarized {
			continue
		}
		if filters.ShouldSkipProcessing(it.Title, it.MatterType) {
			// Stored, but never sent to the summarizer: ceremonial/low-value
			// items per spec.md §4.3's processor-skip tier.
			continue
		}
		out = append(out, it)
	}
	return out
}

// BuildItemRequests concatenates each item's attachment text into a
// summarizer.ItemRequest, skipping items whose attachments yield no
// extractable text.
func (p *Processor) BuildItemRequests(ctx context.Context, items []store.AgendaItem) []summarizer.ItemRequest {
	requests := make([]summarizer.ItemRequest, 0, len(items))
	for _, it := range items {
		text := p.concatenateAttachmentText(ctx, it)
		if text == "" {
			p.logger.Warn("processor: no extractable text for item, skipping", "item_id", it.ID)
			continue
		}
		requests = append(requests, summarizer.ItemRequest{
			ItemID:   it.ID,
			Title:    it.Title,
			Text:     text,
			Sequence: it.Sequence,
		})
	}
	return requests
}

// SummarizeItems batch-summarizes a set of pre-built item requests.
func (p *Processor) SummarizeItems(ctx context.Context, requests []summarizer.ItemRequest) ([]summarizer.ItemResult, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	return p.Summarizer.SummarizeBatch(ctx, requests)
}

// PersistItemResults writes each successful batch result's summary/topics
// back to its agenda item. Failed results are logged and skipped, not
// returned, per spec.md §4.6's "per-item failure doesn't fail the meeting"
// semantics; a store write error is returned.
func (p *Processor) PersistItemResults(results []summarizer.ItemResult) error {
	for _, r := range results {
		if !r.Success {
			p.logger.Warn("processor: item summarization failed", "item_id", r.ItemID, "error", r.Error)
			continue
		}
		normalized := r.Topics
		if p.Topics != nil {
			normalized = p.Topics.Normalize(r.Topics)
		}
		if err := p.Store.UpdateItemSummary(r.ItemID, r.Summary, normalized); err != nil {
			return fmt.Errorf("processor: persisting item summary %s: %w", r.ItemID, err)
		}
	}
	return nil
}

// AggregateMeetingSummary reloads a meeting's items (after PersistItemResults
// has run) and rolls them up into a meeting-level summary and topic list.
func (p *Processor) AggregateMeetingSummary(meetingID string) (ProcessingResult, error) {
	finalItems, err := p.Store.ListAgendaItems(meetingID)
	if err != nil {
		return ProcessingResult{}, fmt.Errorf("processor: reloading items for meeting %s: %w", meetingID, err)
	}

	var summaryParts []string
	var perItemTopics [][]string
	for _, it := range finalItems {
		if it.Summary == "" {
			continue
		}
		summaryParts = append(summaryParts, it.Title+"\n"+it.Summary)
		perItemTopics = append(perItemTopics, it.Topics)
	}

	return ProcessingResult{
		Summary:          strings.Join(summaryParts, "\n\n"),
		Topics:           topics.AggregateByFrequency(perItemTopics),
		ProcessingMethod: fmt.Sprintf("item_level_%d_items", len(finalItems)),
	}, nil
}

// ProcessMeetingWithItems runs spec.md §4.6's item-level pipeline: partition
// already-summarized items, batch-summarize the rest, normalize topics,
// aggregate a meeting-level summary and topic list.
func (p *Processor) ProcessMeetingWithItems(ctx context.Context, meetingID, meetingTitle string, items []store.AgendaItem) (ProcessingResult, error) {
	start := time.Now()

	needsProcessing := ItemsNeedingSummary(items)
	requests := p.BuildItemRequests(ctx, needsProcessing)

	if len(requests) > 0 {
		results, err := p.SummarizeItems(ctx, requests)
		if err != nil {
			return ProcessingResult{}, fmt.Errorf("processor: batch summarizing items for meeting %s: %w", meetingID, err)
		}
		if err := p.PersistItemResults(results); err != nil {
			return ProcessingResult{}, err
		}
	}

	result, err := p.AggregateMeetingSummary(meetingID)
	if err != nil {
		return ProcessingResult{}, err
	}
	result.ProcessingTime = time.Since(start).Seconds()
	return result, nil
}

// concatenateAttachmentText builds the text blob an item's batch request is
// built from, per spec.md §4.6 step 2: text_segments used as-is, PDFs fetched
// and extracted, failures logged and that attachment skipped.
func (p *Processor) concatenateAttachmentText(ctx context.Context, item store.AgendaItem) string {
	var parts []string
	for _, att := range item.Attachments {
		var text string
		switch att.Type {
		case store.AttachmentTextSegment:
			text = att.Content
		case store.AttachmentPDF:
			data, err := p.HTTP.DownloadPDF(ctx, att.URL)
			if err != nil {
				p.logger.Warn("processor: downloading attachment failed", "item_id", item.ID, "url", att.URL, "error", err)
				continue
			}
			extracted, err := parsers.ExtractTextFromBytes(data)
			if err != nil {
				p.logger.Warn("processor: extracting attachment text failed", "item_id", item.ID, "url", att.URL, "error", err)
				continue
			}
			text = extracted
		default:
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("=== %s ===\n%s", att.Name, text))
	}
	return strings.Join(parts, "\n\n")
}

// DetectItems implements spec.md §4.6's auto-detection path: a small packet
// is processed monolithically; a larger one is run through the structural
// chunker and its chunks returned as items ready for item-level processing.
func (p *Processor) DetectItems(ctx context.Context, packetURL string) ([]parsers.Chunk, error) {
	data, err := p.HTTP.DownloadPDF(ctx, packetURL)
	if err != nil {
		return nil, fmt.Errorf("processor: downloading packet for detection: %w", err)
	}
	text, err := parsers.ExtractTextFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("processor: extracting packet text for detection: %w", err)
	}

	if summarizer.EstimatePages(text) <= autoDetectSmallPages || len(text) < autoDetectSmallChars {
		return nil, nil
	}

	chunks := parsers.ChunkByStructure(text)
	if len(chunks) == 0 {
		chunks = parsers.ChunkByPatterns(text)
	}
	return chunks, nil
}

func participationString(p parsers.Participation) string {
	var parts []string
	if p.Email != "" {
		parts = append(parts, "email: "+p.Email)
	}
	if p.Phone != "" {
		parts = append(parts, "phone: "+p.Phone)
	}
	if p.VirtualURL != "" {
		parts = append(parts, "virtual: "+p.VirtualURL)
	}
	return strings.Join(parts, "; ")
}
