package ingest

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ea7klk/bm-stats/models"
	"github.com/ea7klk/bm-stats/repository"
	"github.com/ea7klk/bm-stats/utils"
)

// requiredCallTypes is the tag set a loggable group voice call must carry.
var requiredCallTypes = []string{"Group", "Voice", "Call"}

// envelope is the outer message shape of the last-heard feed: a JSON
// object whose payload field is itself a JSON-encoded string.
type envelope struct {
	Payload string `json:"payload"`
}

// lastHeardEvent is the inner payload describing one call session event.
// Field names follow the upstream contract. Numeric fields use json.Number
// because the feed is noisy and types are not guaranteed.
type lastHeardEvent struct {
	Event           string      `json:"Event"`
	CallTypes       []string    `json:"CallTypes"`
	SourceID        json.Number `json:"SourceID"`
	SourceCall      string      `json:"SourceCall"`
	SourceName      *string     `json:"SourceName"`
	DestinationID   json.Number `json:"DestinationID"`
	DestinationCall *string     `json:"DestinationCall"`
	DestinationName string      `json:"DestinationName"`
	TalkerAlias     *string     `json:"TalkerAlias"`
	Start           json.Number `json:"Start"`
	Stop            json.Number `json:"Stop"`
}

// Normalizer decides, per feed event, whether it represents a completed
// loggable call and persists a CallRecord when it does. It is stateless
// across events: no session tracking spans multiple messages.
//
// Persistence is best-effort and at-most-once: a database error drops the
// event with an error log and the next event is processed normally. The
// data is statistical, so losing isolated samples during a store hiccup is
// an accepted tradeoff.
type Normalizer struct {
	callRepo repository.CallRecordRepository
	logger   *log.Logger

	inserted atomic.Uint64
	wg       sync.WaitGroup
}

// NewNormalizer creates a normalizer that persists through the given
// call record repository.
func NewNormalizer(callRepo repository.CallRecordRepository, logger *log.Logger) *Normalizer {
	if logger == nil {
		logger = log.Default()
	}

	return &Normalizer{
		callRepo: callRepo,
		logger:   logger,
	}
}

// Handle processes one raw feed message. It never returns an error: every
// malformed or unwanted event is expected noise and dropped silently.
func (n *Normalizer) Handle(ctx context.Context, message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil || env.Payload == "" {
		eventsDiscardedTotal.WithLabelValues(reasonBadEnvelope).Inc()
		return
	}

	var ev lastHeardEvent
	if err := json.Unmarshal([]byte(env.Payload), &ev); err != nil {
		eventsDiscardedTotal.WithLabelValues(reasonBadPayload).Inc()
		return
	}

	rec, reason := n.normalize(&ev)
	if rec == nil {
		eventsDiscardedTotal.WithLabelValues(reason).Inc()
		return
	}

	// Fire and continue: the read loop does not wait for the insert, so
	// two events arriving in quick succession may persist out of order.
	// Call records are independent and immutable, so this is harmless.
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.persist(ctx, rec)
	}()
}

// normalize runs the per-event decision procedure and returns the record
// to persist, or nil with the discard reason.
func (n *Normalizer) normalize(ev *lastHeardEvent) (*models.CallRecord, string) {
	if ev.Event != "Session-Stop" {
		return nil, reasonNotStop
	}

	if !hasAllCallTypes(ev.CallTypes, requiredCallTypes) {
		return nil, reasonCallType
	}

	sourceCall := strings.TrimSpace(ev.SourceCall)
	destinationName := strings.TrimSpace(ev.DestinationName)
	if sourceCall == "" || destinationName == "" {
		return nil, reasonMissingFields
	}

	start, ok1 := toInt64(ev.Start)
	stop, ok2 := toInt64(ev.Stop)
	if !ok1 || !ok2 {
		return nil, reasonBadPayload
	}

	duration := stop - start
	if duration <= utils.MinCallDuration {
		return nil, reasonTooShort
	}

	destinationID, ok := toInt64(ev.DestinationID)
	if !ok {
		return nil, reasonBadPayload
	}
	if destinationID == utils.LocalTalkgroupID {
		return nil, reasonLocalTG
	}

	sourceID, ok := toInt64(ev.SourceID)
	if !ok {
		return nil, reasonBadPayload
	}

	return &models.CallRecord{
		SourceID:        sourceID,
		SourceCall:      sourceCall,
		SourceName:      trimPtr(ev.SourceName),
		DestinationID:   destinationID,
		DestinationCall: trimPtr(ev.DestinationCall),
		DestinationName: destinationName,
		Start:           start,
		Stop:            stop,
		TalkerAlias:     ev.TalkerAlias,
		Duration:        duration,
		CreatedAt:       utils.UTCNowUnix(),
	}, ""
}

// persist writes one record. No retry, no buffering, no backpressure to
// the feed: an insert failure loses exactly this record.
func (n *Normalizer) persist(ctx context.Context, rec *models.CallRecord) {
	if err := n.callRepo.Save(ctx, rec); err != nil {
		persistErrorsTotal.Inc()
		n.logger.Printf("ingest: failed to persist call from %s to TG %d: %v", rec.SourceCall, rec.DestinationID, err)
		return
	}

	callsPersistedTotal.Inc()
	total := n.inserted.Add(1)
	if total%utils.InsertLogMilestone == 0 {
		n.logger.Printf("ingest: %d calls persisted", total)
	}
}

// Flush waits for all in-flight persist operations to finish. Used during
// shutdown and by tests.
func (n *Normalizer) Flush() {
	n.wg.Wait()
}

// Inserted returns the number of calls persisted since process start.
func (n *Normalizer) Inserted() uint64 {
	return n.inserted.Load()
}

// hasAllCallTypes reports whether got is a superset of want.
func hasAllCallTypes(got, want []string) bool {
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// toInt64 coerces a JSON number to int64, accepting float encodings.
func toInt64(n json.Number) (int64, bool) {
	if n.String() == "" {
		return 0, false
	}
	if v, err := n.Int64(); err == nil {
		return v, true
	}
	if f, err := n.Float64(); err == nil {
		return int64(f), true
	}
	return 0, false
}

// trimPtr trims a string pointer, mapping empty results to nil.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
