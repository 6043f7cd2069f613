// Package api provides the gRPC translator service: the transport edge that
// hands MMDS control-plane requests to the translator, forwards queued
// actions and reports request counters.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/solatis/mmdsgate/internal/core/auth"
	"github.com/solatis/mmdsgate/internal/core/config"
	"github.com/solatis/mmdsgate/internal/core/metrics"
	"github.com/solatis/mmdsgate/internal/mmds"
	"github.com/solatis/mmdsgate/internal/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Publisher forwards queued actions. Implemented by *queue.Publisher.
type Publisher interface {
	Publish(ctx context.Context, id types.RequestID, clientID string, req types.ParsedRequest) error
}

// TranslatorService implements TranslatorServer.
// Thin orchestration over mmds.Translator, an optional Publisher and the
// counter registry.
type TranslatorService struct {
	translator *mmds.Translator
	counters   *metrics.Registry
	publisher  Publisher
	cfg        *config.GatewayConfig
	logger     *slog.Logger
}

// NewTranslatorService wires a service around a translator that reports to
// counters. publisher may be nil, in which case queued actions are only
// returned to the caller.
func NewTranslatorService(counters *metrics.Registry, publisher Publisher, cfg *config.GatewayConfig, logger *slog.Logger) (*TranslatorService, error) {
	if counters == nil {
		return nil, fmt.Errorf("counters cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TranslatorService{
		translator: mmds.NewTranslator(counters),
		counters:   counters,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Translate parses one request. Immediate actions are never forwarded.
func (s *TranslatorService) Translate(ctx context.Context, req *TranslateRequest) (*TranslateResponse, error) {
	id, err := s.requestID(req.RequestID)
	if err != nil {
		return nil, err
	}
	log := s.logger.With("request_id", string(id), "method", req.Method, "path", req.Path)
	clientID := auth.ClientIDFromContext(ctx)
	if clientID != "" {
		log = log.With("client_id", clientID)
	}

	if len(req.Body) > s.cfg.MaxBodyBytes {
		return nil, s.fail(ctx, log, fmt.Errorf("%w: %d > %d bytes", types.ErrBodyTooLarge, len(req.Body), s.cfg.MaxBodyBytes))
	}

	parsed, err := s.translator.Translate(req.Method, req.Path, req.Body)
	if err != nil {
		return nil, s.fail(ctx, log, err)
	}

	encoded, err := json.Marshal(parsed)
	if err != nil {
		log.Error("encode parsed request failed", "error", err)
		return nil, status.Error(codes.Internal, "encode parsed request")
	}

	enqueued := false
	if s.publisher != nil && parsed.Mode == types.ModeQueued {
		if err := s.publisher.Publish(ctx, id, clientID, parsed); err != nil {
			return nil, s.fail(ctx, log, err)
		}
		enqueued = true
	}

	log.Info("request translated", "action", parsed.Action.Kind(), "mode", string(parsed.Mode), "enqueued", enqueued)
	return &TranslateResponse{RequestID: string(id), Parsed: encoded, Enqueued: enqueued}, nil
}

// Counters returns the current request counters.
func (s *TranslatorService) Counters(ctx context.Context, _ *CountersRequest) (*CountersResponse, error) {
	return &CountersResponse{Counters: s.counters.Snapshot()}, nil
}

func (s *TranslatorService) requestID(supplied string) (types.RequestID, error) {
	if supplied == "" {
		return types.NewRequestID(), nil
	}
	id, err := types.ParseRequestID(supplied)
	if err != nil {
		return "", status.Error(codes.InvalidArgument, fmt.Sprintf("invalid request_id: %v", err))
	}
	return id, nil
}

// fail logs err, attaches the HTTP status trailer and returns the gRPC status.
func (s *TranslatorService) fail(ctx context.Context, log *slog.Logger, err error) error {
	httpStatus, st := statusFromError(err)
	if httpStatus >= 500 {
		log.Error("request failed", "error", err, "http_status", httpStatus)
	} else {
		log.Warn("request rejected", "error", err, "http_status", httpStatus)
	}
	// Fails outside a gRPC call, e.g. when the service is invoked directly.
	_ = grpc.SetTrailer(ctx, metadata.Pairs(HTTPStatusTrailer, strconv.Itoa(httpStatus)))
	return st
}
