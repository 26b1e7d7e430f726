// Package grpcapi implements the calcfield gRPC services: the calculator
// service plus the standard health and reflection services.
package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/calcfield/pkg/expr"
	"github.com/lemonberrylabs/calcfield/pkg/session"
	"github.com/lemonberrylabs/calcfield/pkg/store"
	"github.com/lemonberrylabs/calcfield/pkg/types"
)

// Server implements the calculator gRPC service.
type Server struct {
	store  *store.Store
	grpc   *grpc.Server
	health *health.Server
}

var _ CalculatorServer = (*Server)(nil)

// New creates a new gRPC server wrapping the given store.
func New(s *store.Store) *Server {
	srv := &Server{
		store:  s,
		health: health.NewServer(),
	}

	gs := grpc.NewServer()
	RegisterCalculatorServer(gs, srv)
	healthpb.RegisterHealthServer(gs, srv.health)
	reflection.Register(gs)
	srv.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves gRPC requests on lis.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop marks the services as not serving and gracefully stops the
// gRPC server.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// --- Sessions ---

func (s *Server) CreateSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return sessionToStruct(s.store.CreateSession())
}

func (s *Server) GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rec, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	return sessionToStruct(rec)
}

func (s *Server) DeleteSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionID(req)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteSession(id); err != nil {
		return nil, storeStatus(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

func (s *Server) ProcessEdit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input, ok := stringField(req, "input")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "input is required")
	}
	rec, err := s.lookup(req)
	if err != nil {
		return nil, err
	}

	var r session.EditResult
	rec.Do(func(sess *session.Session) {
		r = sess.ProcessEdit(input)
	})
	return resultToStruct(r, r.Err)
}

func (s *Server) ProcessKey(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, _ := stringField(req, "key")
	if key == "" {
		return nil, status.Error(codes.InvalidArgument, "key is required")
	}
	rec, err := s.lookup(req)
	if err != nil {
		return nil, err
	}

	var r session.KeyResult
	rec.Do(func(sess *session.Session) {
		current, ok := stringField(req, "input")
		if !ok {
			current = sess.Input()
		}
		r = sess.ProcessKey(key, current)
	})
	return resultToStruct(r, r.Err)
}

func (s *Server) Paste(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text, _ := stringField(req, "text")
	rec, err := s.lookup(req)
	if err != nil {
		return nil, err
	}

	var r session.PasteResult
	rec.Do(func(sess *session.Session) {
		r = sess.Paste(text)
	})
	return resultToStruct(r, nil)
}

func (s *Server) Press(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	label, _ := stringField(req, "label")
	if label == "" {
		return nil, status.Error(codes.InvalidArgument, "label is required")
	}
	rec, err := s.lookup(req)
	if err != nil {
		return nil, err
	}

	var r session.KeyResult
	rec.Do(func(sess *session.Session) {
		r = sess.Press(label)
	})
	return resultToStruct(r, r.Err)
}

func (s *Server) Equals(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rec, err := s.lookup(req)
	if err != nil {
		return nil, err
	}

	var r session.EqualsResult
	rec.Do(func(sess *session.Session) {
		r = sess.Equals()
	})
	return resultToStruct(r, r.Err)
}

func (s *Server) ClearAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rec, err := s.lookup(req)
	if err != nil {
		return nil, err
	}

	var snap session.Snapshot
	rec.Do(func(sess *session.Session) {
		snap = sess.ClearAll()
	})
	return resultToStruct(snap, nil)
}

func (s *Server) Backspace(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rec, err := s.lookup(req)
	if err != nil {
		return nil, err
	}

	var r session.EditResult
	rec.Do(func(sess *session.Session) {
		r = sess.Backspace()
	})
	return resultToStruct(r, r.Err)
}

// --- Evaluation ---

func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	expression, ok := stringField(req, "expression")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "expression is required")
	}

	opts := s.store.Options()
	clean, v, err := expr.Evaluator{Policy: opts.Policy}.Calculate(expression)
	fields := map[string]any{
		"expression": expression,
		"sanitized":  clean,
		"tokens":     toAnySlice(expr.Texts(expr.Tokenize(clean))),
	}
	if err != nil {
		fields["display"] = opts.ErrorIndicator
		fields["errorSignaled"] = true
		fields["errorDetail"] = detailMap(err)
	} else {
		fields["display"] = types.FormatNumber(v)
		fields["errorSignaled"] = false
		if types.IsFinite(v) {
			fields["result"] = v
		}
	}
	return newStruct(fields)
}

// --- Helpers ---

func (s *Server) lookup(req *structpb.Struct) (*store.Session, error) {
	id, err := sessionID(req)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.GetSession(id)
	if err != nil {
		return nil, storeStatus(err)
	}
	return rec, nil
}

// sessionID reads the session field, accepting either an ID or a
// "sessions/<id>" resource name.
func sessionID(req *structpb.Struct) (string, error) {
	v, _ := stringField(req, "session")
	id := strings.TrimPrefix(v, "sessions/")
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "session is required")
	}
	return id, nil
}

func stringField(req *structpb.Struct, name string) (string, bool) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", false
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return sv.StringValue, true
}

func storeStatus(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func sessionToStruct(rec *store.Session) (*structpb.Struct, error) {
	snap := rec.Snapshot()
	fields := map[string]any{
		"name":       rec.Name,
		"id":         rec.ID,
		"input":      snap.Input,
		"display":    snap.Display,
		"tokens":     toAnySlice(snap.Tokens),
		"operations": float64(rec.Operations()),
	}
	if snap.LastResult != nil {
		fields["lastResult"] = *snap.LastResult
	}
	return newStruct(fields)
}

// resultToStruct converts a pipeline result to a Struct through its JSON
// form, adding errorDetail when calcErr is set.
func resultToStruct(v any, calcErr error) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding result: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encoding result: %v", err)
	}
	if calcErr != nil {
		fields["errorDetail"] = detailMap(calcErr)
	}
	return newStruct(fields)
}

func detailMap(err error) map[string]any {
	var ce *types.CalcError
	if !errors.As(err, &ce) {
		return map[string]any{"message": err.Error()}
	}
	d := map[string]any{
		"kind":    string(ce.Kind),
		"message": ce.Message,
	}
	if ce.Pos >= 0 {
		d["position"] = float64(ce.Pos)
	}
	return d
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding result: %v", err)
	}
	return st, nil
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
