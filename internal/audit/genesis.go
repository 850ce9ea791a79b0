package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "charak/pkg/domain-errors"
)

// GenesisManager owns the chain-boundary markers: one genesis per
// install, a rollover for every planned segment boundary, and stitch
// records documenting detected gaps. It is the only writer of the marker
// store.
type GenesisManager struct {
	store  MarkerStore
	clock  Clock
	logger *slog.Logger

	mu sync.Mutex
}

// GenesisManagerOption configures a GenesisManager instance.
type GenesisManagerOption func(*GenesisManager)

// WithGenesisClock sets the clock used for marker timestamps.
func WithGenesisClock(clock Clock) GenesisManagerOption {
	return func(m *GenesisManager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func NewGenesisManager(store MarkerStore, logger *slog.Logger, opts ...GenesisManagerOption) *GenesisManager {
	m := &GenesisManager{
		store:  store,
		clock:  time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// EnsureGenesis returns the current genesis marker, creating one if the
// store has none. Repeated calls after the first are reads, so startup
// can call this unconditionally.
func (m *GenesisManager) EnsureGenesis(ctx context.Context, keyID string) (ChainMarker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.currentGenesisLocked(ctx)
	if err != nil {
		return ChainMarker{}, err
	}
	if current != nil {
		return *current, nil
	}

	marker := ChainMarker{
		ID:           uuid.NewString(),
		Kind:         MarkerGenesis,
		Timestamp:    m.clock().UTC(),
		KeyID:        keyID,
		TerminalHash: GenesisSentinel,
	}
	if err := m.store.Append(ctx, marker); err != nil {
		return ChainMarker{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist genesis marker")
	}
	m.logger.InfoContext(ctx, "audit chain genesis created", "genesis_id", marker.ID, "kid", keyID)
	return marker, nil
}

// RecordRollover closes the current segment and opens a new one under
// newKeyID. terminalHash is the link hash of the last event written under
// the outgoing key so a verifier can tie the segments together.
func (m *GenesisManager) RecordRollover(ctx context.Context, newKeyID, terminalHash, reason string) (ChainMarker, error) {
	if newKeyID == "" {
		return ChainMarker{}, dErrors.New(dErrors.CodeInvalidInput, "new key id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.currentGenesisLocked(ctx)
	if err != nil {
		return ChainMarker{}, err
	}
	if current == nil {
		return ChainMarker{}, dErrors.New(dErrors.CodeConflict, "rollover without genesis")
	}
	if terminalHash == "" {
		terminalHash = GenesisSentinel
	}

	marker := ChainMarker{
		ID:            uuid.NewString(),
		Kind:          MarkerRollover,
		Timestamp:     m.clock().UTC(),
		KeyID:         newKeyID,
		TerminalHash:  terminalHash,
		PrevGenesisID: current.ID,
		Reason:        reason,
	}
	if err := m.store.Append(ctx, marker); err != nil {
		return ChainMarker{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist rollover marker")
	}
	m.logger.InfoContext(ctx, "audit chain rollover recorded",
		"rollover_id", marker.ID, "prev_genesis_id", current.ID, "kid", newKeyID, "reason", reason)
	return marker, nil
}

// RecordStitch documents a detected gap between chain segments. Stitches
// never repair anything; they exist so later gap analysis can tell a
// known, investigated gap from a fresh one.
func (m *GenesisManager) RecordStitch(ctx context.Context, prevGenesisID, reason string) (ChainMarker, error) {
	if prevGenesisID == "" {
		return ChainMarker{}, dErrors.New(dErrors.CodeInvalidInput, "previous genesis id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	marker := ChainMarker{
		ID:            uuid.NewString(),
		Kind:          MarkerStitch,
		Timestamp:     m.clock().UTC(),
		PrevGenesisID: prevGenesisID,
		Reason:        reason,
	}
	if err := m.store.Append(ctx, marker); err != nil {
		return ChainMarker{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "persist stitch marker")
	}
	m.logger.WarnContext(ctx, "audit chain stitch recorded", "stitch_id", marker.ID, "prev_genesis_id", prevGenesisID, "reason", reason)
	return marker, nil
}

// Markers returns all boundary markers in append order.
func (m *GenesisManager) Markers(ctx context.Context) ([]ChainMarker, error) {
	return m.store.List(ctx)
}

// AnalyzeGaps flags rollovers whose prev_genesis_id references a genesis
// the marker history does not contain. Gaps already covered by a stitch
// marker are still listed, but with a softer recommendation.
func (m *GenesisManager) AnalyzeGaps(ctx context.Context) (GapAnalysis, error) {
	markers, err := m.store.List(ctx)
	if err != nil {
		return GapAnalysis{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "list chain markers")
	}

	known := make(map[string]bool)
	stitched := make(map[string]bool)
	for _, marker := range markers {
		switch marker.Kind {
		case MarkerGenesis:
			known[marker.ID] = true
		case MarkerStitch:
			stitched[marker.PrevGenesisID] = true
		}
	}

	var analysis GapAnalysis
	for _, marker := range markers {
		if marker.Kind != MarkerRollover || known[marker.PrevGenesisID] {
			continue
		}
		analysis.Gaps = append(analysis.Gaps, ChainGap{
			RolloverID:    marker.ID,
			PrevGenesisID: marker.PrevGenesisID,
			Timestamp:     marker.Timestamp,
		})
		if stitched[marker.PrevGenesisID] {
			analysis.Recommendations = append(analysis.Recommendations,
				fmt.Sprintf("gap before rollover %s already stitched; no further action", marker.ID))
		} else {
			analysis.Recommendations = append(analysis.Recommendations,
				fmt.Sprintf("rollover %s references unknown genesis %s; investigate missing segment and record a stitch", marker.ID, marker.PrevGenesisID))
		}
	}
	return analysis, nil
}

// currentGenesisLocked returns the most recent genesis marker, or nil if
// none exists yet. Caller holds m.mu.
func (m *GenesisManager) currentGenesisLocked(ctx context.Context) (*ChainMarker, error) {
	markers, err := m.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list chain markers")
	}
	for i := len(markers) - 1; i >= 0; i-- {
		if markers[i].Kind == MarkerGenesis {
			marker := markers[i]
			return &marker, nil
		}
	}
	return nil, nil
}
