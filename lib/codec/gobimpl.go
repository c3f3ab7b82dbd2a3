package codec

import (
	"bytes"
	"encoding/gob"
	"io"
)

// NewGOBCodec creates a new codec using Go's binary gob format.
func NewGOBCodec() ICodec {
	return &gobCodecImpl{}
}

// gobCodecImpl implements the ICodec interface using gob encoding. Each
// record is gob-encoded independently and framed with a varint length prefix
// so records can be decoded from arbitrary log offsets.
type gobCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (g gobCodecImpl) Encode(rec Record) ([]byte, error) {
	if rec.Type != RecordSet && rec.Type != RecordRemove {
		return nil, errMalformedf("cannot encode record type %d", byte(rec.Type))
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return frame(buf.Bytes()), nil
}

func (g gobCodecImpl) Decode(r io.Reader) (Record, int, error) {
	cr := &countingReader{r: r}
	payload, err := unframe(cr)
	if err != nil {
		return Record{}, cr.n, err
	}

	var rec Record
	dec := gob.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&rec); err != nil {
		return Record{}, cr.n, errMalformedf("gob: %v", err)
	}
	if rec.Type != RecordSet && rec.Type != RecordRemove {
		return Record{}, cr.n, errMalformedf("unknown record type %d", byte(rec.Type))
	}
	return rec, cr.n, nil
}
