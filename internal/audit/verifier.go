package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"charak/internal/audit/metrics"
	dErrors "charak/pkg/domain-errors"
)

// KeyResolver maps a key id to HMAC key material. Retired keys must stay
// resolvable for as long as events signed under them are retained,
// otherwise old segments become unverifiable.
type KeyResolver interface {
	ChainKey(ctx context.Context, kid string) ([]byte, error)
}

// Verifier replays persisted chains and recomputes every link. It never
// repairs anything; breaks are reported with their location and left in
// place for investigation.
type Verifier struct {
	store   Store
	keys    KeyResolver
	markers MarkerStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// VerifierOption configures a Verifier instance.
type VerifierOption func(*Verifier)

// WithVerifierMarkers lets the verifier treat marker boundaries as
// expected chain resets. Without a marker store, a mid-chain reset is
// only accepted when the key id changes.
func WithVerifierMarkers(markers MarkerStore) VerifierOption {
	return func(v *Verifier) {
		v.markers = markers
	}
}

// WithVerifierMetrics attaches verification metrics.
func WithVerifierMetrics(m *metrics.Metrics) VerifierOption {
	return func(v *Verifier) {
		v.metrics = m
	}
}

func NewVerifier(store Store, keys KeyResolver, logger *slog.Logger, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		store:  store,
		keys:   keys,
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// VerifyChain replays the whole log, verifying every encounter chain and
// aggregating the results.
func (v *Verifier) VerifyChain(ctx context.Context) (VerificationResult, error) {
	ctx, span := tracer.Start(ctx, "audit.verify_chain")
	defer span.End()

	set, err := v.store.Replay(ctx)
	if err != nil {
		return VerificationResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "replay audit log")
	}
	markers, err := v.loadMarkers(ctx)
	if err != nil {
		return VerificationResult{}, err
	}

	// Group by encounter, preserving append order within each chain.
	order := make([]string, 0)
	chains := make(map[string][]Event)
	for _, e := range set.Events {
		if _, ok := chains[e.EncounterID]; !ok {
			order = append(order, e.EncounterID)
		}
		chains[e.EncounterID] = append(chains[e.EncounterID], e)
	}

	result := VerificationResult{IsValid: true, MalformedLines: set.Malformed}
	for _, encounterID := range order {
		r := v.verifySequence(ctx, encounterID, chains[encounterID], markers)
		result.ValidEvents += r.ValidEvents
		result.ChainBreaks += r.ChainBreaks
		result.Breaks = append(result.Breaks, r.Breaks...)
		if !r.IsValid {
			result.IsValid = false
		}
	}
	span.SetAttributes(
		attribute.Int("audit.valid_events", result.ValidEvents),
		attribute.Int("audit.chain_breaks", result.ChainBreaks),
	)

	v.metrics.IncrementVerification(result.ChainBreaks)
	if !result.IsValid {
		v.logger.WarnContext(ctx, "audit chain verification failed",
			"chain_breaks", result.ChainBreaks, "valid_events", result.ValidEvents, "malformed_lines", result.MalformedLines)
	}
	return result, nil
}

// VerifyEncounter replays a single encounter's chain.
func (v *Verifier) VerifyEncounter(ctx context.Context, encounterID string) (VerificationResult, error) {
	if encounterID == "" {
		return VerificationResult{}, dErrors.New(dErrors.CodeInvalidInput, "encounter id is required")
	}
	ctx, span := tracer.Start(ctx, "audit.verify_encounter")
	defer span.End()
	span.SetAttributes(attribute.String("audit.encounter_id", encounterID))

	events, err := v.store.ListByEncounter(ctx, encounterID)
	if err != nil {
		return VerificationResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "replay encounter events")
	}
	markers, err := v.loadMarkers(ctx)
	if err != nil {
		return VerificationResult{}, err
	}

	result := v.verifySequence(ctx, encounterID, events, markers)
	v.metrics.IncrementVerification(result.ChainBreaks)
	return result, nil
}

// verifySequence checks one ordered chain. Each event's prev_hash must be
// the MAC of its predecessor under the key named by the event's own kid.
// A mid-chain genesis sentinel counts as a segment reset, not a break,
// when the kid changed or a boundary marker falls between the timestamps.
// After a break the expectation resyncs on the stored event so one tamper
// is counted once, not once per descendant.
func (v *Verifier) verifySequence(ctx context.Context, encounterID string, events []Event, markers []ChainMarker) VerificationResult {
	result := VerificationResult{IsValid: true}

	expected := GenesisSentinel
	for i, e := range events {
		switch {
		case e.PrevHash == expected:
			result.ValidEvents++
		case e.PrevHash == GenesisSentinel && i > 0 && v.resetAllowed(events[i-1], e, markers):
			result.ValidEvents++
		default:
			result.ChainBreaks++
			result.IsValid = false
			result.Breaks = append(result.Breaks, ChainBreak{
				EncounterID: encounterID,
				Index:       i,
				Expected:    expected,
				Got:         e.PrevHash,
				Reason:      "prev_hash mismatch",
			})
		}

		key, err := v.keys.ChainKey(ctx, e.KeyID)
		if err != nil {
			// Without the key the next link cannot be recomputed. Count
			// one break here unless the next event starts a new segment.
			v.logger.WarnContext(ctx, "chain key unresolvable during verification",
				"encounter_id", encounterID, "kid", e.KeyID, "index", i)
			expected = ""
			continue
		}
		expected = ComputeLink(key, e)
	}
	return result
}

// resetAllowed reports whether a mid-chain genesis sentinel between prev
// and cur is an expected boundary rather than tampering.
func (v *Verifier) resetAllowed(prev, cur Event, markers []ChainMarker) bool {
	if prev.KeyID != cur.KeyID {
		return true
	}
	for _, m := range markers {
		if m.Kind == MarkerStitch {
			continue
		}
		if !m.Timestamp.Before(prev.Timestamp) && !m.Timestamp.After(cur.Timestamp) {
			return true
		}
	}
	return false
}

func (v *Verifier) loadMarkers(ctx context.Context) ([]ChainMarker, error) {
	if v.markers == nil {
		return nil, nil
	}
	markers, err := v.markers.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list chain markers")
	}
	return markers, nil
}

// AnalyzeDuplicates flags events persisted more than once. Duplicates do
// not break linkage by themselves but usually mean a writer replayed.
func (v *Verifier) AnalyzeDuplicates(ctx context.Context) (DuplicateAnalysis, error) {
	set, err := v.store.Replay(ctx)
	if err != nil {
		return DuplicateAnalysis{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "replay audit log")
	}

	type dupKey struct {
		encounterID string
		event       EventType
		ts          string
		prevHash    string
	}
	counts := make(map[dupKey]int)
	firsts := make(map[dupKey]Event)
	order := make([]dupKey, 0)
	for _, e := range set.Events {
		k := dupKey{e.EncounterID, e.Event, e.Timestamp.UTC().Format(time.RFC3339Nano), e.PrevHash}
		if counts[k] == 0 {
			firsts[k] = e
			order = append(order, k)
		}
		counts[k]++
	}

	var analysis DuplicateAnalysis
	for _, k := range order {
		if counts[k] < 2 {
			continue
		}
		e := firsts[k]
		analysis.Duplicates = append(analysis.Duplicates, DuplicateEvent{
			EncounterID: e.EncounterID,
			Event:       e.Event,
			Timestamp:   e.Timestamp,
			Count:       counts[k],
		})
		analysis.Recommendations = append(analysis.Recommendations,
			fmt.Sprintf("event %s for encounter %s recorded %d times; check for a replayed writer or restored backup", e.Event, e.EncounterID, counts[k]))
	}
	return analysis, nil
}

// AnalyzeOrder flags timestamp regressions inside a chain segment.
// Segments restart the comparison, so a reset after rollover does not
// count as a regression.
func (v *Verifier) AnalyzeOrder(ctx context.Context) (OrderAnalysis, error) {
	set, err := v.store.Replay(ctx)
	if err != nil {
		return OrderAnalysis{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "replay audit log")
	}

	order := make([]string, 0)
	chains := make(map[string][]Event)
	for _, e := range set.Events {
		if _, ok := chains[e.EncounterID]; !ok {
			order = append(order, e.EncounterID)
		}
		chains[e.EncounterID] = append(chains[e.EncounterID], e)
	}

	var analysis OrderAnalysis
	for _, encounterID := range order {
		events := chains[encounterID]
		for i := 1; i < len(events); i++ {
			if events[i].PrevHash == GenesisSentinel {
				// New segment, comparison restarts.
				continue
			}
			if events[i].Timestamp.Before(events[i-1].Timestamp) {
				analysis.Violations = append(analysis.Violations, OrderViolation{
					EncounterID: encounterID,
					Index:       i,
					Previous:    events[i-1].Timestamp,
					Current:     events[i].Timestamp,
				})
				analysis.Recommendations = append(analysis.Recommendations,
					fmt.Sprintf("encounter %s has a timestamp regression at position %d; check device clock changes", encounterID, i))
			}
		}
	}
	return analysis, nil
}
