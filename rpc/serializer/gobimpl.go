package serializer

import (
	"bytes"
	"encoding/gob"

	"github.com/strandkv/strand/rpc/common"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format.
//
// Gob elides zero-valued fields: a zero-length Value or Pairs entry
// arrives as nil on the other side. The server boundary renormalizes
// nil payload fields back to empty, so the elision is not observable
// through the store interface.
func NewGOBSerializer() IRPCSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IRPCSerializer interface using gob encoding.
// Encoder and decoder are created per message: gob streams carry type
// descriptors as internal state, so they must not be reused across
// independently-delivered messages.
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	buf := bytes.NewBuffer(b)
	dec := gob.NewDecoder(buf)
	return dec.Decode(msg)
}
