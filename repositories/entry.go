package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	relayerrors "room-relay/errors"

	"room-relay/contract"
	"room-relay/domain"

	"github.com/dgraph-io/badger/v4"
	badgerpb "github.com/dgraph-io/badger/v4/pb"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// batchBuffer bounds in-flight batches per live query. Buffered so a
// restart can drain batches the old query delivered before it closed.
const batchBuffer = 16

// EntryRepository persists relay entries in BadgerDB and serves live
// queries over them.
//
// The key is formatted as "entry:{room}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     entries arrive at the same nanosecond.
type EntryRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewEntryRepository(db *badger.DB, log *slog.Logger) EntryRepository {
	return EntryRepository{db: db, log: log}
}

// diskEntry is the store's native document shape, CBOR-encoded. The
// timestamp is stored as Unix nanoseconds: the default CBOR time
// encoding is second-granular, and watermark comparisons need the full
// nanosecond resolution of the key.
type diskEntry struct {
	ID      string `cbor:"id"`
	Room    string `cbor:"room"`
	Payload string `cbor:"payload"`
	At      int64  `cbor:"at"`
}

func entryKey(e domain.Entry) []byte {
	return fmt.Appendf(nil, "entry:%s:%019d:%s", e.Room, e.At.UnixNano(), e.ID)
}

func RoomPrefix(room string) []byte {
	return fmt.Appendf(nil, "entry:%s:", room)
}

func encodeEntry(e domain.Entry) ([]byte, error) {
	return cbor.Marshal(diskEntry{
		ID:      e.ID.String(),
		Room:    e.Room,
		Payload: e.Payload,
		At:      e.At.UnixNano(),
	})
}

// DecodeEntry projects a stored document back into the Entry shape.
// Malformed documents yield an error wrapping ErrDecode; callers skip
// the entry and continue the batch rather than crash the loop.
func DecodeEntry(value []byte) (domain.Entry, error) {
	var d diskEntry
	if err := cbor.Unmarshal(value, &d); err != nil {
		return domain.Entry{}, fmt.Errorf("%w: %w", relayerrors.ErrDecode, err)
	}
	if d.Room == "" || d.At == 0 {
		return domain.Entry{}, fmt.Errorf("%w: missing room or timestamp", relayerrors.ErrDecode)
	}
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("%w: bad id %q", relayerrors.ErrDecode, d.ID)
	}
	return domain.Entry{ID: id, Room: d.Room, Payload: d.Payload, At: time.Unix(0, d.At).UTC()}, nil
}

// Append stamps the current time and writes one entry, returning its
// document id.
func (r EntryRepository) Append(_ context.Context, room, payload string) (string, error) {
	e := domain.NewEntry(room, payload)
	value, err := encodeEntry(e)
	if err != nil {
		return "", fmt.Errorf("encoding entry: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(e), value)
	})
	if err != nil {
		return "", fmt.Errorf("appending entry: %w", err)
	}
	return e.ID.String(), nil
}

// AppendMessage is the producer-facing write path. Failures are caught
// and logged; the caller only observes an absent result.
func (r EntryRepository) AppendMessage(ctx context.Context, room, payload string) *string {
	id, err := r.Append(ctx, room, payload)
	if err != nil {
		r.log.Error("Append failed", "room", domain.NormalizeRoom(room), "err", err)
		return nil
	}
	return lo.ToPtr(id)
}

// OpenQuery opens a live query matching the room exactly and
// timestamp >= from, delivering batches sorted ascending by timestamp.
// The query only observes entries written after it opens; historical
// entries are never replayed.
func (r EntryRepository) OpenQuery(ctx context.Context, room string, from time.Time) (contract.LiveQuery, error) {
	room = domain.NormalizeRoom(room)
	qctx, cancel := context.WithCancel(ctx)
	q := &liveQuery{
		log:     r.log,
		room:    room,
		batches: make(chan []domain.Entry, batchBuffer),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go q.listen(qctx, r.db, RoomPrefix(room), from)
	return q, nil
}

// liveQuery owns one background listening task over DB.Subscribe.
type liveQuery struct {
	log     *slog.Logger
	room    string
	batches chan []domain.Entry
	done    chan struct{}
	cancel  context.CancelFunc
	err     error
}

func (q *liveQuery) listen(ctx context.Context, db *badger.DB, prefix []byte, from time.Time) {
	err := db.Subscribe(ctx, func(kv *badger.KVList) error {
		batch := q.project(kv, from)
		if len(batch) == 0 {
			return nil
		}
		select {
		case q.batches <- batch:
			return nil
		case <-ctx.Done():
			// Never block delivery once a close is requested,
			// otherwise Close would deadlock against a full channel.
			return ctx.Err()
		}
	}, []badgerpb.Match{{Prefix: prefix}})

	if err != nil && !errors.Is(err, context.Canceled) {
		q.err = err
	}
	close(q.batches)
	close(q.done)
}

// project decodes one delivered KV list into an ordered entry batch,
// dropping entries below the timestamp bound and skipping documents
// that fail to decode.
func (q *liveQuery) project(kv *badger.KVList, from time.Time) []domain.Entry {
	var batch []domain.Entry
	for _, item := range kv.Kv {
		if len(item.Value) == 0 {
			continue
		}
		e, err := DecodeEntry(item.Value)
		if err != nil {
			q.log.Warn("Skipping undecodable entry", "key", string(item.Key), "err", err)
			continue
		}
		// The key prefix alone is not a room boundary: a room code
		// containing ':' shares a prefix with shorter codes. The
		// decoded room is the authoritative exact match.
		if e.Room != q.room {
			continue
		}
		if e.At.Before(from) {
			continue
		}
		batch = append(batch, e)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].At.Before(batch[j].At) })
	return batch
}

func (q *liveQuery) Batches() <-chan []domain.Entry { return q.batches }

func (q *liveQuery) Done() <-chan struct{} { return q.done }

func (q *liveQuery) Err() error {
	select {
	case <-q.done:
		return q.err
	default:
		return nil
	}
}

// Close cancels the listening task and waits for it to exit.
func (q *liveQuery) Close() {
	q.cancel()
	<-q.done
}
