package client

import (
	"context"
	"encoding/json"

	"github.com/strandkv/strand/lib/command"
	"github.com/strandkv/strand/lib/db"
	"github.com/strandkv/strand/lib/store"
	"github.com/strandkv/strand/rpc/common"
	"github.com/strandkv/strand/rpc/serializer"
	"github.com/strandkv/strand/rpc/transport"
)

// NewRPCStringStore creates a new RPC string store
// The function takes a database ID, a config, a transport and a serializer as parameters
// It returns a store.IStringStore and an error
func NewRPCStringStore(
	dbID uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStringStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStringStore{
		rpcClientAdapter{
			dbID:       dbID,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStringStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStringStore) Set(ctx context.Context, cmd command.SetCommand) (bool, error) {
	// A nil value is not representable on the wire (it would arrive as an
	// empty value on the server), so it is rejected before dispatch.
	if cmd.Value() == nil {
		return false, store.NewError(store.RetCInvalidArgument, "Set command has no value")
	}
	ttl, hasTTL := cmd.Expiration()
	req := common.NewSetRequest(string(cmd.Key()), cmd.Value(), ttl, hasTTL, cmd.Option())
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStringStore) SetNX(ctx context.Context, cmd command.SetCommand) (bool, error) {
	if cmd.Value() == nil {
		return false, store.NewError(store.RetCInvalidArgument, "SetNX command has no value")
	}
	req := common.NewSetNXRequest(string(cmd.Key()), cmd.Value())
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStringStore) SetEX(ctx context.Context, cmd command.SetCommand) (bool, error) {
	if cmd.Value() == nil {
		return false, store.NewError(store.RetCInvalidArgument, "SetEX command has no value")
	}
	ttl, hasTTL := cmd.Expiration()
	req := common.NewSetEXRequest(string(cmd.Key()), cmd.Value(), ttl, hasTTL)
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStringStore) PSetEX(ctx context.Context, cmd command.SetCommand) (bool, error) {
	if cmd.Value() == nil {
		return false, store.NewError(store.RetCInvalidArgument, "PSetEX command has no value")
	}
	ttl, hasTTL := cmd.Expiration()
	req := common.NewPSetEXRequest(string(cmd.Key()), cmd.Value(), ttl, hasTTL)
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStringStore) MSet(ctx context.Context, cmd command.MSetCommand) (bool, error) {
	req := common.NewMSetRequest(cmd.Entries())
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStringStore) MSetNX(ctx context.Context, cmd command.MSetCommand) (bool, error) {
	req := common.NewMSetNXRequest(cmd.Entries())
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStringStore) Get(ctx context.Context, cmd command.KeyCommand) ([]byte, error) {
	req := common.NewGetRequest(string(cmd.Key()))
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return resp.ValueBytes(), nil
}

func (i *rpcStringStore) GetDel(ctx context.Context, cmd command.KeyCommand) ([]byte, error) {
	req := common.NewGetDelRequest(string(cmd.Key()))
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return resp.ValueBytes(), nil
}

func (i *rpcStringStore) GetEx(ctx context.Context, cmd command.GetExCommand) ([]byte, error) {
	ttl, hasTTL := cmd.Expiration()
	req := common.NewGetExRequest(string(cmd.Key()), ttl, hasTTL)
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return resp.ValueBytes(), nil
}

func (i *rpcStringStore) GetSet(ctx context.Context, cmd command.SetCommand) ([]byte, error) {
	if cmd.Value() == nil {
		return nil, store.NewError(store.RetCInvalidArgument, "GetSet command has no value")
	}
	req := common.NewGetSetRequest(string(cmd.Key()), cmd.Value())
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return resp.ValueBytes(), nil
}

func (i *rpcStringStore) MGet(ctx context.Context, cmd command.MGetCommand) ([][]byte, error) {
	req := common.NewMGetRequest(stringKeys(cmd.Keys()))
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return resp.MGetValues(), nil
}

func (i *rpcStringStore) Append(ctx context.Context, cmd command.AppendCommand) (int64, error) {
	if cmd.Value() == nil {
		return 0, store.NewError(store.RetCInvalidArgument, "Append command has no value")
	}
	req := common.NewAppendRequest(string(cmd.Key()), cmd.Value())
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Num, nil
}

func (i *rpcStringStore) GetRange(ctx context.Context, cmd command.RangeCommand) ([]byte, error) {
	rng := cmd.Range()
	req := common.NewGetRangeRequest(string(cmd.Key()), rng.From, rng.To)
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return resp.ValueBytes(), nil
}

func (i *rpcStringStore) SetRange(ctx context.Context, cmd command.SetRangeCommand) (int64, error) {
	if cmd.Value() == nil {
		return 0, store.NewError(store.RetCInvalidArgument, "SetRange command has no value")
	}
	req := common.NewSetRangeRequest(string(cmd.Key()), cmd.Offset(), cmd.Value())
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Num, nil
}

func (i *rpcStringStore) GetBit(ctx context.Context, cmd command.GetBitCommand) (bool, error) {
	req := common.NewGetBitRequest(string(cmd.Key()), cmd.Offset())
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Bit, nil
}

func (i *rpcStringStore) SetBit(ctx context.Context, cmd command.SetBitCommand) (bool, error) {
	req := common.NewSetBitRequest(string(cmd.Key()), cmd.Offset(), cmd.Bit())
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Bit, nil
}

func (i *rpcStringStore) BitCount(ctx context.Context, cmd command.BitCountCommand) (int64, error) {
	rng, hasRange := cmd.Range()
	req := common.NewBitCountRequest(string(cmd.Key()), rng.From, rng.To, hasRange)
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Num, nil
}

func (i *rpcStringStore) BitOp(ctx context.Context, cmd command.BitOpCommand) (int64, error) {
	req := common.NewBitOpRequest(cmd.Op(), string(cmd.Destination()), stringKeys(cmd.Keys()))
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Num, nil
}

func (i *rpcStringStore) StrLen(ctx context.Context, cmd command.KeyCommand) (int64, error) {
	req := common.NewStrLenRequest(string(cmd.Key()))
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Num, nil
}

func (i *rpcStringStore) Info(ctx context.Context) (db.DatabaseInfo, error) {
	req := common.NewInfoRequest()
	resp, err := invokeRPCRequest(ctx, i.dbID, req, i.transport, i.serializer)
	if err != nil {
		return db.DatabaseInfo{}, err
	}

	var info db.DatabaseInfo
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		return db.DatabaseInfo{}, store.NewErrorf(store.RetCInternalError, "failed to decode database info: %v", err)
	}
	return info, nil
}
