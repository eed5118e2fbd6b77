package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/strandkv/strand/lib/db"
	"github.com/strandkv/strand/lib/db/engines/bolt"
	"github.com/strandkv/strand/lib/db/engines/sisal"
	"github.com/strandkv/strand/lib/store"
	"github.com/strandkv/strand/lib/store/lstore"
	"github.com/strandkv/strand/rpc/common"
	"github.com/strandkv/strand/rpc/serializer"
	"github.com/strandkv/strand/rpc/transport"

	_ "net/http/pprof"
)

var Logger = logger.GetLogger("server")

// serverDatabase pairs one hosted database with the adapter that answers
// requests for it
type serverDatabase struct {
	Store   store.IStringStore
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// Create databases map
	databases := xsync.NewMapOf[uint64, serverDatabase]()

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		databases:  databases,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	databases  *xsync.MapOf[uint64, serverDatabase]
}

func (s *rpcServer) registerTransportHandler() {
	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	s.transport.RegisterHandler(func(dbID uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Get appropriate database
		database, ok := s.databases.Load(dbID)

		// Case database does not exist -> error
		if !ok {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "database not found",
			}
		} else {
			// Decode the request
			err := s.serializer.Deserialize(req, &msg)

			if err != nil {
				respMsg = common.Message{
					MsgType: common.MsgTError,
					Err:     fmt.Sprintf("failed to deserialize request: %s", err),
				}
			} else {
				// Let the adapter handle the request, bounded by the
				// configured timeout (zero disables the bound)
				ctx := context.Background()
				var cancel context.CancelFunc = func() {}
				if timeout > 0 {
					ctx, cancel = context.WithTimeout(ctx, timeout)
				}

				start := time.Now()
				respMsg = *database.Adapter.Handle(ctx, &msg, database.Store)
				cancel()

				op := msg.MsgType.String()
				metrics.GetOrCreateCounter(fmt.Sprintf(`strand_server_requests_total{op=%q}`, op)).Inc()
				metrics.GetOrCreateSummary(fmt.Sprintf(`strand_server_request_duration_seconds{op=%q}`, op)).UpdateDuration(start)
				if respMsg.Err != "" {
					metrics.GetOrCreateCounter(fmt.Sprintf(`strand_server_errors_total{op=%q}`, op)).Inc()
				}
			}
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			// the fallback carries no payload and serializes with every codec
			val, _ = s.serializer.Serialize(common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			})
		}
		return val
	})
}

// engineFactory resolves the configured engine into a per-database
// store.DBFactory constructor. The bolt engine opens one database file per
// hosted database under the configured data directory.
func (s *rpcServer) engineFactory() (func(id uint64) (store.DBFactory, error), error) {
	switch s.config.Engine {
	case "", "sisal":
		return func(uint64) (store.DBFactory, error) {
			return func() db.StringDB { return sisal.New(sisal.DBOptions{}) }, nil
		}, nil

	case "bolt":
		if s.config.DataDir == "" {
			return nil, fmt.Errorf("bolt engine requires a data directory")
		}
		if err := os.MkdirAll(s.config.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return func(id uint64) (store.DBFactory, error) {
			d, err := bolt.Open(bolt.DBOptions{
				Path: filepath.Join(s.config.DataDir, fmt.Sprintf("strand-%d.db", id)),
			})
			if err != nil {
				return nil, fmt.Errorf("failed to open database %d: %w", id, err)
			}
			return func() db.StringDB { return d }, nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown engine: %q", s.config.Engine)
	}
}

func (s *rpcServer) init() error {

	// Init logger
	common.InitLoggers(s.config.LogLevel)

	// Resolve the configured storage engine
	factory, err := s.engineFactory()
	if err != nil {
		return err
	}

	// CREATE DATABASES

	/*
		Note: A single RPC server hosts a fixed number of independent
		databases, addressed by index. Every database gets its own engine
		instance and adapter; requests never cross database boundaries.
	*/

	count := s.config.Databases
	if count < 1 {
		count = 1
	}

	for id := uint64(0); id < count; id++ {
		dbFactory, err := factory(id)
		if err != nil {
			return err
		}
		s.databases.Store(id, serverDatabase{
			Store:   lstore.NewLocalStore(dbFactory),
			Adapter: NewStringStoreServerAdapter(),
		})
		Logger.Infof("created database %d", id)
	}

	Logger.Infof("strand setup completed successfully")

	// Start the ops endpoint if configured
	if s.config.OpsEndpoint != "" {
		go s.serveOps()
	}

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// serveOps exposes prometheus metrics and the pprof handlers on the
// configured ops endpoint.
func (s *rpcServer) serveOps() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	Logger.Infof("ops endpoint listening on %s", s.config.OpsEndpoint)
	if err := http.ListenAndServe(s.config.OpsEndpoint, mux); err != nil {
		Logger.Errorf("ops endpoint failed: %v", err)
	}
}

// Serve starts the RPC server
// This function will also initialize the server plus the hosted databases
// and start the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}
