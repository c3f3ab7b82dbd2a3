package codec

import (
	"encoding/json"
	"io"
)

// NewJSONCodec creates a new codec using json encoding.
func NewJSONCodec() ICodec {
	return &jsonCodecImpl{}
}

// jsonCodecImpl implements the ICodec interface using json encoding. Like
// the gob codec it frames every payload with a varint length prefix; the
// payload itself stays human-readable, which helps when inspecting a log
// file by hand.
type jsonCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (j jsonCodecImpl) Encode(rec Record) ([]byte, error) {
	if rec.Type != RecordSet && rec.Type != RecordRemove {
		return nil, errMalformedf("cannot encode record type %d", byte(rec.Type))
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return frame(payload), nil
}

func (j jsonCodecImpl) Decode(r io.Reader) (Record, int, error) {
	cr := &countingReader{r: r}
	payload, err := unframe(cr)
	if err != nil {
		return Record{}, cr.n, err
	}

	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, cr.n, errMalformedf("json: %v", err)
	}
	if rec.Type != RecordSet && rec.Type != RecordRemove {
		return Record{}, cr.n, errMalformedf("unknown record type %d", byte(rec.Type))
	}
	return rec, cr.n, nil
}
