package serializer

import (
	"encoding/json"

	"github.com/strandkv/strand/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding. This is
// the only human-readable wire format and the default for the CLI.
//
// The Message struct tags omit empty fields, so a zero-length Value
// arrives as nil on the other side. The server boundary renormalizes nil
// payload fields back to empty, so the elision is not observable through
// the store interface.
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return json.Unmarshal(b, msg)
}
