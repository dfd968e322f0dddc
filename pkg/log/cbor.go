package log

import (
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// A trace file is a bare sequence of CBOR items, one per Event, with no
// header. Map keys are small integers in canonical order and timestamps
// are tag 0 strings, so generic CBOR tools can read a file as well.

// Bounds on a single record. An Event nests at most three levels and has
// well under a dozen keys; anything larger is a corrupt file.
const (
	maxRecordNesting = 8
	maxRecordPairs   = 64
	maxRecordItems   = 4096
)

type traceModes struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var modes = sync.OnceValue(func() traceModes {
	enc, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
		TimeTag:       cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace encoder options: %v", err))
	}

	dec, err := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		IndefLength:      cbor.IndefLengthAllowed,
		MaxNestedLevels:  maxRecordNesting,
		MaxMapPairs:      maxRecordPairs,
		MaxArrayElements: maxRecordItems,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("trace decoder options: %v", err))
	}
	return traceModes{enc: enc, dec: dec}
})

// EncodeEvent encodes one trace record.
func EncodeEvent(event Event) ([]byte, error) {
	data, err := modes().enc.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode trace event: %w", err)
	}
	return data, nil
}

// DecodeEvent decodes one trace record. Records with repeated keys are
// rejected.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := modes().dec.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decode trace event: %w", err)
	}
	return event, nil
}

// NewEncoder returns an encoder appending records to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return modes().enc.NewEncoder(w)
}

// NewDecoder returns a decoder reading records from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return modes().dec.NewDecoder(r)
}
