package serialize

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/reactivescene/recs/ecdb"
	"github.com/reactivescene/recs/handle"
	"github.com/reactivescene/recs/query"
)

// RecordKind tags one replay-log record: 0=remove, 1=insert, 2=update.
type RecordKind uint8

const (
	RecordRemove RecordKind = 0
	RecordInsert RecordKind = 1
	RecordUpdate RecordKind = 2
)

func recordKindOf[V any](c query.ValueChange[V]) RecordKind {
	switch {
	case c.IsRemoved():
		return RecordRemove
	case c.IsNewInsert():
		return RecordInsert
	default:
		return RecordUpdate
	}
}

// Record is one `{kind, idx, payload}` entry.
type Record struct {
	Kind    RecordKind
	Idx     uint32
	Payload []byte
}

// Recorder subscribes to one component's live event stream and writes one
// framed log entry per write transaction: the frame of records between
// Start/End events constitutes one atomic transaction. Use NewRecorder to
// attach it.
type Recorder[V any] struct {
	mu    sync.Mutex
	w     io.Writer
	codec Codec[V]
	buf   []Record
	err   error
}

// NewRecorder attaches a Recorder to c, flushing one frame to w per
// transaction observed on c's event stream from this point forward.
func NewRecorder[V any](c *ecdb.ComponentHandle[V], codec Codec[V], w io.Writer) *Recorder[V] {
	rec := &Recorder[V]{w: w, codec: codec}
	ecdb.SubscribeComponent(c,
		func() {
			rec.mu.Lock()
			rec.buf = rec.buf[:0]
			rec.mu.Unlock()
		},
		func(ent handle.RawEntityHandle, change query.ValueChange[V]) {
			rec.mu.Lock()
			payload := []byte{}
			if v, ok := change.NewValue(); ok {
				payload = codec.Encode(v)
			}
			rec.buf = append(rec.buf, Record{Kind: recordKindOf(change), Idx: ent.Index, Payload: payload})
			rec.mu.Unlock()
		},
		func() bool {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			if len(rec.buf) > 0 {
				if err := writeFrame(rec.w, rec.buf); err != nil {
					rec.err = err
				}
			}
			return false
		},
	)
	return rec
}

// Err returns the first write error the recorder encountered, if any.
func (r *Recorder[V]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func writeFrame(w io.Writer, records []Record) error {
	var buf bytes.Buffer
	writeUint32(&buf, uint32(len(records)))
	for _, rec := range records {
		buf.WriteByte(byte(rec.Kind))
		writeUint32(&buf, rec.Idx)
		writeUint32(&buf, uint32(len(rec.Payload)))
		buf.Write(rec.Payload)
	}

	var framed bytes.Buffer
	writeUint32(&framed, uint32(buf.Len()))
	framed.Write(buf.Bytes())
	_, err := w.Write(framed.Bytes())
	return err
}

// ReadFrame reads one transaction's worth of records from r, or io.EOF at
// the end of the log.
func ReadFrame(r io.Reader) ([]Record, error) {
	frameLen, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	body := make([]byte, frameLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("serialize: reading frame body: %w", err)
	}
	br := bytes.NewReader(body)

	count, err := readUint32(br)
	if err != nil {
		return nil, err
	}
	records := make([]Record, count)
	for i := range records {
		kindByte, err := br.ReadByte()
		if err != nil {
			return nil, err
		}
		idx, err := readUint32(br)
		if err != nil {
			return nil, err
		}
		payloadLen, err := readUint32(br)
		if err != nil {
			return nil, err
		}
		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, err
		}
		records[i] = Record{Kind: RecordKind(kindByte), Idx: idx, Payload: payload}
	}
	return records, nil
}

// ApplyFrame folds one frame's records into state, decoding payloads with
// codec. It is the replay-side counterpart of Recorder, used to rebuild a
// component's materialized view by folding the whole log in order.
func ApplyFrame[V any](state map[uint32]V, frame []Record, codec Codec[V]) {
	for _, rec := range frame {
		switch rec.Kind {
		case RecordRemove:
			delete(state, rec.Idx)
		default:
			state[rec.Idx] = codec.Decode(rec.Payload)
		}
	}
}
