package cce

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// VectorDimension is the fixed embedding width every Vector Store collection
// and every stored Memory/Episode vector uses.
const VectorDimension = 768

// EmotionalState is the valence/arousal pair carried on Memory, Episode
// summaries and injected stimuli.
type EmotionalState struct {
	Valence float64
	Arousal float64
}

// Intensity mirrors SalienceScore.EmotionalIntensity: |valence| * arousal.
func (e EmotionalState) Intensity() float64 {
	return math.Abs(e.Valence) * e.Arousal
}

// ConsolidationState tracks a Memory's progress toward permanence.
type ConsolidationState struct {
	Strength         float64
	ReplayCount      uint64
	ConsolidationTag bool
	LastReplayed     *time.Time
}

// PermanentThreshold is the strength at or above which a memory is
// considered permanent and ineligible for pruning.
const PermanentThreshold = 0.9

// IsPermanent reports whether the memory has crossed PermanentThreshold.
func (c ConsolidationState) IsPermanent() bool {
	return c.Strength >= PermanentThreshold
}

// AssociationType names the kind of relationship an edge represents.
type AssociationType int

const (
	AssociationSemantic AssociationType = iota
	AssociationTemporal
	AssociationCausal
	AssociationEmotional
	AssociationSpatial
	AssociationGoal
)

func (t AssociationType) String() string {
	switch t {
	case AssociationSemantic:
		return "semantic"
	case AssociationTemporal:
		return "temporal"
	case AssociationCausal:
		return "causal"
	case AssociationEmotional:
		return "emotional"
	case AssociationSpatial:
		return "spatial"
	case AssociationGoal:
		return "goal"
	default:
		return "unknown"
	}
}

// Association is a directed, typed, weighted edge from one memory to
// another, with co-activation bookkeeping used by decay.
type Association struct {
	TargetID         uuid.UUID
	Weight           float64
	Type             AssociationType
	LastCoactivated  time.Time
	CoactivationCount uint64
	EligibilityTrace float64
}

// DecayedWeight applies the hybrid decay law: no decay within the first hour
// since last co-activation; otherwise exponential decay (exp(-0.03*age_h))
// while CoactivationCount < 10, power-law decay (age_h^-0.1) once an edge has
// co-activated often enough to be considered well-established.
func (a Association) DecayedWeight(now time.Time) float64 {
	ageHours := now.Sub(a.LastCoactivated).Hours()
	if ageHours <= 1 {
		return a.Weight
	}
	var factor float64
	if a.CoactivationCount < 10 {
		factor = math.Exp(-0.03 * ageHours)
	} else {
		factor = math.Pow(ageHours, -0.1)
	}
	return a.Weight * factor
}

// Memory is a persisted, consolidatable record in the `memories` collection.
type Memory struct {
	ID                  uuid.UUID
	Content              string
	Vector               []float64 // nil if no embedding was available
	Emotional            EmotionalState
	ConnectionRelevance  float64
	SemanticSalience     float64
	Theta                float64 // BCM sliding threshold
	Consolidation        ConsolidationState
	ClusterID            *string
	Associations         []Association
	EpisodeID            *uuid.UUID
	Source               string
	EncodedAt            time.Time
	LastAccessed         time.Time
	AccessCount          uint64
}

// BoundaryType names why an episode boundary was drawn.
type BoundaryType int

const (
	BoundaryExplicit BoundaryType = iota
	BoundaryPredictionError
	BoundaryTemporal
	BoundaryTaskCompletion
	BoundaryContextShift
)

// Episode groups memories between two boundaries.
type Episode struct {
	ID              uuid.UUID
	Label           string
	Centroid        []float64
	StartedAt       time.Time
	EndedAt         *time.Time // nil == current, still open
	BoundaryType    BoundaryType
	BoundaryTrigger string
	Emotional       EmotionalState
	Consolidated    bool
}

// Close ends an open episode at the given time.
func (e *Episode) Close(at time.Time) {
	e.EndedAt = &at
}

// IsOpen reports whether the episode has not yet been closed.
func (e Episode) IsOpen() bool {
	return e.EndedAt == nil
}

// ArchiveReason names why a thought was moved to the unconscious tier.
type ArchiveReason int

const (
	ArchiveLowSalience ArchiveReason = iota
	ArchiveDecay
	ArchiveDisplacement
)

func (r ArchiveReason) String() string {
	switch r {
	case ArchiveLowSalience:
		return "low_salience"
	case ArchiveDecay:
		return "decay"
	case ArchiveDisplacement:
		return "displacement"
	default:
		return "unknown"
	}
}

// UnconsciousMemory is an archived thought: not searched during normal
// cognition, but reachable via dream replay and spontaneous sampling.
type UnconsciousMemory struct {
	ID               uuid.UUID
	Content          string
	OriginalSalience float64
	ArchiveReason    ArchiveReason
	SurfaceCount     uint64
	LastSurfaced     *time.Time
	ArchivedAt       time.Time
	OriginalStreamID *string
}

// NewUnconsciousMemoryFromForgottenThought builds a fresh archival record.
func NewUnconsciousMemoryFromForgottenThought(content string, salience float64, reason ArchiveReason, streamID *string) UnconsciousMemory {
	return UnconsciousMemory{
		ID:               uuid.New(),
		Content:          content,
		OriginalSalience: salience,
		ArchiveReason:    reason,
		ArchivedAt:       time.Now().UTC(),
		OriginalStreamID: streamID,
	}
}

// MarkSurfaced records that this memory was surfaced (e.g. during a dream or
// a spontaneous sample), bumping SurfaceCount and LastSurfaced.
func (u *UnconsciousMemory) MarkSurfaced(at time.Time) {
	u.SurfaceCount++
	u.LastSurfaced = &at
}

// IdentityRecordID is the well-known, fixed id the identity singleton is
// stored and loaded under in the `identity` collection.
var IdentityRecordID = uuid.MustParse("00000000-0000-0000-0000-00000000da33")

// IdentityMetadata is the engine's singleton self-record. Only the engine
// increments its counters; nothing else holds write access.
type IdentityMetadata struct {
	LifetimeThoughtCount        uint64
	FirstThoughtAt              *time.Time
	LastThoughtAt               *time.Time
	RestartCount                uint64
	SessionStart                time.Time
	LifetimeDreamCount          uint64
	LastDreamCount              uint64
	LastDreamStrengthened       uint64
	CumulativeDreamStrengthened uint64
	CumulativeDreamCandidates   uint64
}

// NewIdentityMetadata returns a fresh identity record for a never-before-seen
// engine, with RestartCount at zero. RecordRestart is only called by the
// store on loads of an *existing* record, never on first creation.
func NewIdentityMetadata(now time.Time) IdentityMetadata {
	return IdentityMetadata{SessionStart: now}
}

// RecordRestart increments RestartCount and resets SessionStart. Called by
// the Vector Store exactly once per successful load of an existing record.
func (m *IdentityMetadata) RecordRestart(now time.Time) {
	m.RestartCount++
	m.SessionStart = now
}

// RecordThought updates the lifetime thought counters.
func (m *IdentityMetadata) RecordThought(at time.Time) {
	m.LifetimeThoughtCount++
	if m.FirstThoughtAt == nil {
		m.FirstThoughtAt = &at
	}
	m.LastThoughtAt = &at
}

// RecordDream folds a completed sleep cycle's counters into the lifetime
// totals.
func (m *IdentityMetadata) RecordDream(strengthened, candidates uint64) {
	m.LifetimeDreamCount++
	m.LastDreamCount = m.LifetimeDreamCount
	m.LastDreamStrengthened = strengthened
	m.CumulativeDreamStrengthened += strengthened
	m.CumulativeDreamCandidates += candidates
}
