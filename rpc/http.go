package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stakevault/observability"
	"stakevault/rewards"
	"stakevault/state"
)

// ServerConfig carries the collaborators the RPC server dispatches into.
type ServerConfig struct {
	Pool     *rewards.MultiPool
	Keeper   *state.Keeper
	PoolName string
	Auth     AuthConfig
	Logger   *slog.Logger
	// Now supplies the operation clock. Defaults to time.Now().Unix.
	Now func() uint64
}

// Server exposes the reward pool over JSON-RPC 2.0.
type Server struct {
	pool     *rewards.MultiPool
	keeper   *state.Keeper
	poolName string
	auth     *Authenticator
	logger   *slog.Logger
	metrics  *observability.RPCMetrics
	engine   *observability.EngineMetrics
	now      func() uint64

	// mu serializes mutating operations so persistence snapshots observe a
	// settled pool.
	mu sync.Mutex
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pool == nil {
		return nil, errors.New("rpc: pool is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	poolName := cfg.PoolName
	if poolName == "" {
		poolName = "default"
	}
	return &Server{
		pool:     cfg.Pool,
		keeper:   cfg.Keeper,
		poolName: poolName,
		auth:     NewAuthenticator(cfg.Auth, logger),
		logger:   logger,
		metrics:  observability.RPC(),
		engine:   observability.Engine(),
		now:      now,
	}, nil
}

// Router mounts the RPC endpoint together with health and metrics handlers.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/rpc", s.handle)
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	requestID := uuid.NewString()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	recorder.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(recorder, http.StatusBadRequest, nil, codeParseError, "failed to read request body", nil)
		s.observe("unknown", recorder.status, started)
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(recorder, http.StatusBadRequest, nil, codeParseError, "invalid JSON-RPC request", err.Error())
		s.observe("unknown", recorder.status, started)
		return
	}
	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		writeError(recorder, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid JSON-RPC request", nil)
		s.observe(req.Method, recorder.status, started)
		return
	}

	logger := s.logger.With("request_id", requestID, "method", req.Method)
	s.dispatch(recorder, r, &req, logger)
	s.observe(req.Method, recorder.status, started)
}

func (s *Server) observe(method string, status int, started time.Time) {
	s.metrics.Observe(method, status, time.Since(started))
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest, logger *slog.Logger) {
	switch req.Method {
	case "stake_deposit":
		s.handleStakeDeposit(w, req, logger)
	case "stake_withdraw":
		s.handleStakeWithdraw(w, req, logger)
	case "stake_balance":
		s.handleStakeBalance(w, req)
	case "rewards_claim":
		s.handleRewardsClaim(w, req, logger)
	case "rewards_deposit":
		s.handleRewardsDeposit(w, r, req, logger)
	case "rewards_add":
		s.handleRewardsAdd(w, r, req, logger)
	case "rewards_setDuration":
		s.handleRewardsSetDuration(w, r, req, logger)
	case "rewards_poolInfo":
		s.handleRewardsPoolInfo(w, req)
	case "rewards_assetInfo":
		s.handleRewardsAssetInfo(w, req)
	case "rewards_periodInfo":
		s.handleRewardsPeriodInfo(w, req)
	case "rewards_pending":
		s.handleRewardsPending(w, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

// record tracks the outcome of an engine mutation.
func (s *Server) record(operation string, err error) {
	s.engine.RecordOperation(s.poolName, operation, err)
}

// persist snapshots the pool after a successful mutation. Persistence errors
// are logged, not surfaced: the in-memory pool remains authoritative.
func (s *Server) persist(logger *slog.Logger) {
	if s.keeper == nil {
		return
	}
	if err := s.keeper.SaveMultiPool(s.poolName, s.pool.Snapshot()); err != nil {
		logger.Error("failed to persist pool snapshot", "err", err)
	}
}

// engineError maps reward engine sentinel errors onto HTTP status and RPC
// error codes.
func engineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, rewards.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, "caller not authorized", nil)
	case errors.Is(err, rewards.ErrInvalidAmount),
		errors.Is(err, rewards.ErrInvalidDuration),
		errors.Is(err, rewards.ErrInvalidAsset),
		errors.Is(err, rewards.ErrZeroRate):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	case errors.Is(err, rewards.ErrAssetUnknown),
		errors.Is(err, rewards.ErrAssetExists),
		errors.Is(err, rewards.ErrPeriodActive),
		errors.Is(err, rewards.ErrNoStake),
		errors.Is(err, rewards.ErrInsufficientStake),
		errors.Is(err, rewards.ErrReentrantCall):
		writeError(w, http.StatusConflict, id, codeStateConflict, err.Error(), nil)
	case errors.Is(err, rewards.ErrTransferMismatch):
		writeError(w, http.StatusBadGateway, id, codeTransferFault, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, "internal error", err.Error())
	}
}

func singleParam(req *RPCRequest, v interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "exactly one parameter object expected"}
	}
	if err := json.Unmarshal(req.Params[0], v); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
	}
	return nil
}
