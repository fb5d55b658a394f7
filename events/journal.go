package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"stakevault/storage"
)

// journalHeadKey stores the highest assigned sequence number so a restarted
// journal continues after its existing records instead of overwriting them.
const journalHeadKey = "events/head"

// journalRecord is the persisted envelope for one emitted event.
type journalRecord struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	At      int64           `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Journal appends every emitted event to the key-value store under a
// monotonic sequence key, tagging each record with a unique identifier so
// downstream consumers can deduplicate.
type Journal struct {
	db  storage.Database
	seq atomic.Uint64
	log *slog.Logger
}

// NewJournal creates a journal writing into the given database, resuming the
// sequence from any records the database already holds. The logger is only
// used to report failures; pass nil to use the default.
func NewJournal(db storage.Database, log *slog.Logger) *Journal {
	if log == nil {
		log = slog.Default()
	}
	j := &Journal{db: db, log: log}
	raw, err := db.Get([]byte(journalHeadKey))
	switch {
	case err == nil:
		head, parseErr := strconv.ParseUint(string(raw), 10, 64)
		if parseErr != nil {
			log.Error("event journal head corrupt", "value", string(raw), "error", parseErr)
			return j
		}
		j.seq.Store(head)
	case errors.Is(err, storage.ErrNotFound):
	default:
		log.Error("event journal head read failed", "error", err)
	}
	return j
}

// Emit implements the Emitter interface. Journal writes are best effort: a
// failed append is logged, never propagated into the engine operation that
// produced the event.
func (j *Journal) Emit(evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		j.log.Error("event journal encode failed", "type", evt.EventType(), "error", err)
		return
	}
	record := journalRecord{
		ID:      uuid.NewString(),
		Type:    evt.EventType(),
		At:      time.Now().Unix(),
		Payload: payload,
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		j.log.Error("event journal encode failed", "type", evt.EventType(), "error", err)
		return
	}
	seq := j.seq.Add(1)
	key := fmt.Sprintf("events/%020d", seq)
	if err := j.db.Put([]byte(key), encoded); err != nil {
		j.log.Error("event journal write failed", "type", evt.EventType(), "error", err)
		return
	}
	if err := j.db.Put([]byte(journalHeadKey), []byte(strconv.FormatUint(seq, 10))); err != nil {
		j.log.Error("event journal head write failed", "error", err)
	}
}

// LogEmitter mirrors every event into structured logs.
type LogEmitter struct {
	log *slog.Logger
}

// NewLogEmitter creates an emitter logging at info level.
func NewLogEmitter(log *slog.Logger) *LogEmitter {
	if log == nil {
		log = slog.Default()
	}
	return &LogEmitter{log: log}
}

// Emit implements the Emitter interface.
func (e *LogEmitter) Emit(evt Event) {
	e.log.Info("event", "type", evt.EventType(), "payload", evt)
}
