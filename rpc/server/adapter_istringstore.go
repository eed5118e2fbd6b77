package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/store"
	"github.com/strandkv/strand/rpc/common"
)

// NewStringStoreServerAdapter creates an adapter that translates wire
// messages into store.IStringStore calls. Each message type is mapped to
// the command it describes; command construction failures are returned to
// the client as invalid argument errors without touching the store.
func NewStringStoreServerAdapter() IRPCServerAdapter {
	return &stringStoreServerAdapterImpl{}
}

type stringStoreServerAdapterImpl struct{}

func (adapter *stringStoreServerAdapterImpl) Handle(ctx context.Context, req *common.Message, str store.IStringStore) *common.Message {
	// Check for nil store
	if str == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTStrSet:
		cmd, err := buildSetCommand(req)
		if err != nil {
			return common.NewSetResponse(false, invalidArgument(err))
		}
		ok, err := str.Set(ctx, cmd)
		return common.NewSetResponse(ok, err)

	case common.MsgTStrSetNX:
		cmd, err := buildSetCommand(req)
		if err != nil {
			return common.NewSetNXResponse(false, invalidArgument(err))
		}
		ok, err := str.SetNX(ctx, cmd)
		return common.NewSetNXResponse(ok, err)

	case common.MsgTStrSetEX:
		cmd, err := buildSetCommand(req)
		if err != nil {
			return common.NewSetEXResponse(false, invalidArgument(err))
		}
		ok, err := str.SetEX(ctx, cmd)
		return common.NewSetEXResponse(ok, err)

	case common.MsgTStrPSetEX:
		cmd, err := buildSetCommand(req)
		if err != nil {
			return common.NewPSetEXResponse(false, invalidArgument(err))
		}
		ok, err := str.PSetEX(ctx, cmd)
		return common.NewPSetEXResponse(ok, err)

	case common.MsgTStrMSet:
		cmd, err := command.MSet(reqPairs(req))
		if err != nil {
			return common.NewMSetResponse(false, invalidArgument(err))
		}
		ok, err := str.MSet(ctx, cmd)
		return common.NewMSetResponse(ok, err)

	case common.MsgTStrMSetNX:
		cmd, err := command.MSet(reqPairs(req))
		if err != nil {
			return common.NewMSetNXResponse(false, invalidArgument(err))
		}
		ok, err := str.MSetNX(ctx, cmd)
		return common.NewMSetNXResponse(ok, err)

	case common.MsgTStrGet:
		cmd, err := command.NewKey([]byte(req.Key))
		if err != nil {
			return common.NewGetResponse(nil, invalidArgument(err))
		}
		value, err := str.Get(ctx, cmd)
		return common.NewGetResponse(value, err)

	case common.MsgTStrGetDel:
		cmd, err := command.NewKey([]byte(req.Key))
		if err != nil {
			return common.NewGetDelResponse(nil, invalidArgument(err))
		}
		value, err := str.GetDel(ctx, cmd)
		return common.NewGetDelResponse(value, err)

	case common.MsgTStrGetEx:
		cmd, err := buildGetExCommand(req)
		if err != nil {
			return common.NewGetExResponse(nil, invalidArgument(err))
		}
		value, err := str.GetEx(ctx, cmd)
		return common.NewGetExResponse(value, err)

	case common.MsgTStrGetSet:
		cmd, err := buildSetCommand(req)
		if err != nil {
			return common.NewGetSetResponse(nil, invalidArgument(err))
		}
		value, err := str.GetSet(ctx, cmd)
		return common.NewGetSetResponse(value, err)

	case common.MsgTStrMGet:
		cmd, err := command.MGet(byteKeys(req.Keys)...)
		if err != nil {
			return common.NewMGetResponse(nil, invalidArgument(err))
		}
		values, err := str.MGet(ctx, cmd)
		return common.NewMGetResponse(values, err)

	case common.MsgTStrStrLen:
		cmd, err := command.NewKey([]byte(req.Key))
		if err != nil {
			return common.NewStrLenResponse(0, invalidArgument(err))
		}
		length, err := str.StrLen(ctx, cmd)
		return common.NewStrLenResponse(length, err)

	case common.MsgTStrAppend:
		cmd, err := buildAppendCommand(req)
		if err != nil {
			return common.NewAppendResponse(0, invalidArgument(err))
		}
		length, err := str.Append(ctx, cmd)
		return common.NewAppendResponse(length, err)

	case common.MsgTStrGetRange:
		cmd, err := command.GetRange([]byte(req.Key))
		if err != nil {
			return common.NewGetRangeResponse(nil, invalidArgument(err))
		}
		if req.HasRange {
			cmd = cmd.Within(command.NewRange(req.Start, req.End))
		}
		value, err := str.GetRange(ctx, cmd)
		return common.NewGetRangeResponse(value, err)

	case common.MsgTStrSetRange:
		cmd, err := buildSetRangeCommand(req)
		if err != nil {
			return common.NewSetRangeResponse(0, invalidArgument(err))
		}
		length, err := str.SetRange(ctx, cmd)
		return common.NewSetRangeResponse(length, err)

	case common.MsgTStrGetBit:
		cmd, err := command.GetBit([]byte(req.Key))
		if err != nil {
			return common.NewGetBitResponse(false, invalidArgument(err))
		}
		bit, err := str.GetBit(ctx, cmd.AtOffset(req.Offset))
		return common.NewGetBitResponse(bit, err)

	case common.MsgTStrSetBit:
		cmd, err := command.SetBit([]byte(req.Key))
		if err != nil {
			return common.NewSetBitResponse(false, invalidArgument(err))
		}
		bit, err := str.SetBit(ctx, cmd.AtOffset(req.Offset).To(req.Bit))
		return common.NewSetBitResponse(bit, err)

	case common.MsgTStrBitCount:
		cmd, err := command.BitCount([]byte(req.Key))
		if err != nil {
			return common.NewBitCountResponse(0, invalidArgument(err))
		}
		if req.HasRange {
			cmd = cmd.Within(command.NewRange(req.Start, req.End))
		}
		count, err := str.BitCount(ctx, cmd)
		return common.NewBitCountResponse(count, err)

	case common.MsgTStrBitOp:
		cmd, err := buildBitOpCommand(req)
		if err != nil {
			return common.NewBitOpResponse(0, invalidArgument(err))
		}
		length, err := str.BitOp(ctx, cmd)
		return common.NewBitOpResponse(length, err)

	case common.MsgTStrInfo:
		info, err := str.Info(ctx)
		if err != nil {
			return common.NewInfoResponse(nil, err)
		}
		meta, err := json.Marshal(info)
		return common.NewInfoResponse(meta, err)

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC StringStoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}

// --------------------------------------------------------------------------
// Command Reconstruction
// --------------------------------------------------------------------------

// invalidArgument folds a command construction failure into a typed
// argument error so clients can tell it apart from an internal failure.
func invalidArgument(err error) error {
	return store.NewErrorf(store.RetCInvalidArgument, "%v", err)
}

// reqValue returns the request value. Serializers drop zero-length fields,
// so a request that legally carries an empty value arrives as nil and is
// normalized back here.
func reqValue(req *common.Message) []byte {
	if req.Value == nil {
		return []byte{}
	}
	return req.Value
}

// reqPairs normalizes the pair values of an MSet/MSetNX request, same
// reasoning as reqValue.
func reqPairs(req *common.Message) map[string][]byte {
	for key, value := range req.Pairs {
		if value == nil {
			req.Pairs[key] = []byte{}
		}
	}
	return req.Pairs
}

func byteKeys(keys []string) [][]byte {
	out := make([][]byte, len(keys))
	for i, key := range keys {
		out[i] = []byte(key)
	}
	return out
}

// buildSetCommand rebuilds the command shared by the SET family (Set,
// SetNX, SetEX, PSetEX, GetSet) from the wire fields.
func buildSetCommand(req *common.Message) (command.SetCommand, error) {
	cmd, err := command.Set([]byte(req.Key))
	if err != nil {
		return command.SetCommand{}, err
	}
	cmd, err = cmd.WithValue(reqValue(req))
	if err != nil {
		return command.SetCommand{}, err
	}
	if req.HasTTL {
		cmd = cmd.Expiring(time.Duration(req.TTL))
	}
	return cmd.WithOption(command.SetOption(req.Option)), nil
}

func buildGetExCommand(req *common.Message) (command.GetExCommand, error) {
	cmd, err := command.GetEx([]byte(req.Key))
	if err != nil {
		return command.GetExCommand{}, err
	}
	if req.HasTTL {
		cmd = cmd.Expiring(time.Duration(req.TTL))
	}
	return cmd, nil
}

func buildAppendCommand(req *common.Message) (command.AppendCommand, error) {
	cmd, err := command.Append([]byte(req.Key))
	if err != nil {
		return command.AppendCommand{}, err
	}
	return cmd.WithValue(reqValue(req))
}

func buildSetRangeCommand(req *common.Message) (command.SetRangeCommand, error) {
	cmd, err := command.Overwrite([]byte(req.Key))
	if err != nil {
		return command.SetRangeCommand{}, err
	}
	cmd, err = cmd.WithValue(reqValue(req))
	if err != nil {
		return command.SetRangeCommand{}, err
	}
	return cmd.AtOffset(req.Offset), nil
}

func buildBitOpCommand(req *common.Message) (command.BitOpCommand, error) {
	cmd, err := command.Perform(command.BitOperation(req.Option)).OnKeys(byteKeys(req.Keys)...)
	if err != nil {
		return command.BitOpCommand{}, err
	}
	return cmd.AndSaveAs([]byte(req.Key))
}
