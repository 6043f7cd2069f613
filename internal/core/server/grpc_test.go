package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/solatis/mmdsgate/internal/core/api"
	"github.com/solatis/mmdsgate/internal/core/auth"
	"github.com/solatis/mmdsgate/internal/core/config"
	"github.com/solatis/mmdsgate/internal/core/db"
	"github.com/solatis/mmdsgate/internal/core/metrics"
	"github.com/solatis/mmdsgate/internal/core/queue"
	"github.com/solatis/mmdsgate/internal/mmds"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testSecretID = "0123456789abcdef0123456789abcdef"

type harness struct {
	conn   *grpc.ClientConn
	client *api.TranslatorClient
	authn  *auth.Authenticator
	redis  *miniredis.Miniredis
}

func startServer(t *testing.T, withAuth bool) *harness {
	t.Helper()
	cfg := config.DefaultGatewayConfig()
	cfg.QueueName = "mmds_test_queue"

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)
	pub, err := queue.NewPublisher(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cfg.QueueName)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { pub.Close() })

	svc, err := api.NewTranslatorService(metrics.NewRegistry(mmds.CounterNames()...), pub, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}

	var authenticator *auth.Authenticator
	if withAuth {
		database, err := db.Open("sqlite://:memory:")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { database.Close() })
		if err := db.MigrateUp(database); err != nil {
			t.Fatal(err)
		}
		queries, err := db.LoadQueries(database)
		if err != nil {
			t.Fatal(err)
		}
		authenticator = auth.NewAuthenticator(map[string][]byte{testSecretID: []byte("test-secret-32-bytes-long-xxxxxxx")}, queries)
	}

	srv, err := NewGRPCServer(cfg, svc, authenticator, nil)
	if err != nil {
		t.Fatalf("NewGRPCServer() error = %v", err)
	}

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &harness{conn: conn, client: api.NewTranslatorClient(conn), authn: authenticator, redis: mr}
}

func TestServer_TranslateEndToEnd(t *testing.T) {
	h := startServer(t, false)
	ctx := context.Background()

	resp, err := h.client.Translate(ctx, &api.TranslateRequest{Method: "PATCH", Path: "/mmds", Body: []byte(`{"k":"v"}`)})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if string(resp.Parsed) != `{"action":"patch_mmds","mode":"queued","payload":{"k":"v"}}` {
		t.Errorf("Parsed = %s", resp.Parsed)
	}
	if !resp.Enqueued {
		t.Error("expected queued action to be enqueued")
	}

	values, err := h.redis.List("mmds_test_queue")
	if err != nil || len(values) != 1 {
		t.Fatalf("queue = %v, %v; want 1 entry", values, err)
	}
	env, err := queue.DecodeEnvelope([]byte(values[0]))
	if err != nil {
		t.Fatal(err)
	}
	if env.RequestID != resp.RequestID {
		t.Errorf("envelope request_id = %q, want %q", env.RequestID, resp.RequestID)
	}
}

func TestServer_RejectionCarriesHTTPStatus(t *testing.T) {
	h := startServer(t, false)

	var trailer metadata.MD
	_, err := h.client.Translate(context.Background(),
		&api.TranslateRequest{Method: "PUT", Path: "/mmds/version", Body: []byte(`{"version":"V3"}`)},
		grpc.Trailer(&trailer),
	)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want InvalidArgument", status.Code(err))
	}
	if got := trailer.Get(api.HTTPStatusTrailer); len(got) != 1 || got[0] != "400" {
		t.Errorf("trailer %s = %v, want [400]", api.HTTPStatusTrailer, got)
	}
}

func TestServer_InvalidUTF8BodyRejected(t *testing.T) {
	h := startServer(t, false)

	var trailer metadata.MD
	_, err := h.client.Translate(context.Background(),
		&api.TranslateRequest{Method: "PATCH", Path: "/mmds", Body: []byte("{\"k\":\"\xff\"}")},
		grpc.Trailer(&trailer),
	)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want InvalidArgument", status.Code(err))
	}
	if got := trailer.Get(api.HTTPStatusTrailer); len(got) != 1 || got[0] != "400" {
		t.Errorf("trailer %s = %v, want [400]", api.HTTPStatusTrailer, got)
	}
	if h.redis.Exists("mmds_test_queue") {
		t.Error("rejected request must not reach the queue")
	}
}

func TestServer_DocumentBytesPreserved(t *testing.T) {
	h := startServer(t, false)
	body := []byte("{ \"name\" : \"caf\u00e9\",\n  \"esc\": \"\\u00e9\" }")

	resp, err := h.client.Translate(context.Background(), &api.TranslateRequest{Method: "PUT", Path: "/mmds", Body: body})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	values, err := h.redis.List("mmds_test_queue")
	if err != nil || len(values) != 1 {
		t.Fatalf("queue = %v, %v; want 1 entry", values, err)
	}
	env, err := queue.DecodeEnvelope([]byte(values[0]))
	if err != nil {
		t.Fatal(err)
	}
	if string(env.Payload) != string(body) {
		t.Errorf("payload = %q, want %q", env.Payload, body)
	}
	if !resp.Enqueued {
		t.Error("expected document to be enqueued")
	}
}

func TestServer_Counters(t *testing.T) {
	h := startServer(t, false)
	ctx := context.Background()

	if _, err := h.client.Translate(ctx, &api.TranslateRequest{Method: "GET", Path: "/mmds"}); err != nil {
		t.Fatal(err)
	}
	resp, err := h.client.Counters(ctx, &api.CountersRequest{})
	if err != nil {
		t.Fatalf("Counters() error = %v", err)
	}
	for _, c := range resp.Counters {
		if c.Name == mmds.CounterGetCount && c.Value != 1 {
			t.Errorf("%s = %d, want 1", c.Name, c.Value)
		}
	}
	if len(resp.Counters) != len(mmds.CounterNames()) {
		t.Errorf("len(Counters) = %d, want %d", len(resp.Counters), len(mmds.CounterNames()))
	}
}

func TestServer_Auth(t *testing.T) {
	h := startServer(t, true)
	req := &api.TranslateRequest{Method: "GET", Path: "/mmds"}

	if _, err := h.client.Translate(context.Background(), req); status.Code(err) != codes.Unauthenticated {
		t.Errorf("no key: code = %v, want Unauthenticated", status.Code(err))
	}

	_, key, err := h.authn.IssueKey("vmm-1", "")
	if err != nil {
		t.Fatal(err)
	}
	ctx := metadata.AppendToOutgoingContext(context.Background(), auth.MetadataKey, key)
	if _, err := h.client.Translate(ctx, req); err != nil {
		t.Errorf("valid key: error = %v", err)
	}

	health := grpc_health_v1.NewHealthClient(h.conn)
	resp, err := health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: api.ServiceName})
	if err != nil {
		t.Fatalf("health check error = %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("health status = %v, want SERVING", resp.Status)
	}
}

func TestNewGRPCServer_Validation(t *testing.T) {
	if _, err := NewGRPCServer(nil, nil, nil, nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewGRPCServer(config.DefaultGatewayConfig(), nil, nil, nil); err == nil {
		t.Error("expected error for nil service")
	}
}
