package codec

import (
	"encoding/binary"
	"io"
)

// NewBinaryCodec creates a new codec using a custom binary format
// optimized for speed and efficiency.
func NewBinaryCodec() ICodec {
	return &binaryCodecImpl{}
}

// binaryCodecImpl implements ICodec using a custom binary format.
//
// Record layout:
//
//	[type: 1 byte][key length: uvarint][key][value length: uvarint][value]
//
// The value length and value bytes are present only for Set records. The
// format is self-delimiting because every variable field is preceded by its
// length and the type byte determines which fields follow.
type binaryCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ICodec)
// --------------------------------------------------------------------------

func (c binaryCodecImpl) Encode(rec Record) ([]byte, error) {
	if rec.Type != RecordSet && rec.Type != RecordRemove {
		return nil, errMalformedf("cannot encode record type %d", byte(rec.Type))
	}

	// Calculate total size needed
	size := 1 + uvarintLen(uint64(len(rec.Key))) + len(rec.Key)
	if rec.Type == RecordSet {
		size += uvarintLen(uint64(len(rec.Value))) + len(rec.Value)
	}

	result := make([]byte, 0, size)
	result = append(result, byte(rec.Type))
	result = binary.AppendUvarint(result, uint64(len(rec.Key)))
	result = append(result, rec.Key...)
	if rec.Type == RecordSet {
		result = binary.AppendUvarint(result, uint64(len(rec.Value)))
		result = append(result, rec.Value...)
	}

	return result, nil
}

func (c binaryCodecImpl) Decode(r io.Reader) (Record, int, error) {
	cr := &countingReader{r: r}

	// Read record type (the only position where a clean EOF may occur)
	tag, err := cr.readByte(true)
	if err != nil {
		return Record{}, cr.n, err
	}

	rt := RecordType(tag)
	if rt != RecordSet && rt != RecordRemove {
		return Record{}, cr.n, errMalformedf("unknown record type %d", tag)
	}

	// Read key
	keyLen, err := cr.readUvarint(false)
	if err != nil {
		return Record{}, cr.n, err
	}
	if err := checkFieldLen(keyLen); err != nil {
		return Record{}, cr.n, err
	}
	key := make([]byte, keyLen)
	if err := cr.readFull(key); err != nil {
		return Record{}, cr.n, err
	}

	rec := Record{Type: rt, Key: string(key)}
	if rt == RecordRemove {
		return rec, cr.n, nil
	}

	// Read value
	valLen, err := cr.readUvarint(false)
	if err != nil {
		return Record{}, cr.n, err
	}
	if err := checkFieldLen(valLen); err != nil {
		return Record{}, cr.n, err
	}
	value := make([]byte, valLen)
	if err := cr.readFull(value); err != nil {
		return Record{}, cr.n, err
	}
	rec.Value = value

	return rec, cr.n, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// uvarintLen returns the encoded size of x as an unsigned varint.
func uvarintLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}
