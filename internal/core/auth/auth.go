// Package auth provides HMAC-based API key authentication for the gateway's
// gRPC surface.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const clientIDKey = contextKey("client_id")

// MetadataKey is the gRPC metadata header carrying the API key.
const MetadataKey = "x-api-key"

// Queries is the subset of *db.Queries used for key lookup and issuance.
type Queries interface {
	Get(name string, dest interface{}, args ...interface{}) error
	Exec(name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys against HMAC digests stored in the database.
// The database never sees the plaintext key.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	now     func() time.Time
}

// NewAuthenticator creates an authenticator with HMAC secrets keyed by secret ID.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{
		secrets: secrets,
		queries: queries,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type apiKeyRow struct {
	APIKeyID   string       `db:"api_key_id"`
	ClientID   string       `db:"client_id"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
}

// Authenticate validates apiKey and returns the owning client ID.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	var row apiKeyRow
	err = a.queries.Get("get-api-key-by-hash", &row, ComputeHMAC(secret, apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}

	if row.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	// Throttled to once a minute per key.
	if now := a.now(); !row.LastUsedAt.Valid || now.Sub(row.LastUsedAt.Time) > time.Minute {
		_, _ = a.queries.Exec("update-last-used", now, row.APIKeyID)
	}

	return row.ClientID, nil
}

// IssueKey creates and stores a new API key for clientID, signed with the
// secret identified by secretID. An empty secretID picks the lowest
// configured ID. The plaintext key is returned once and never stored.
func (a *Authenticator) IssueKey(clientID, secretID string) (apiKeyID, apiKey string, err error) {
	if clientID == "" {
		return "", "", fmt.Errorf("client id cannot be empty")
	}
	if secretID == "" {
		secretID = a.defaultSecretID()
	}
	secret, ok := a.secrets[secretID]
	if !ok {
		return "", "", ErrUnknownKey
	}

	apiKey, err = GenerateAPIKey(secretID)
	if err != nil {
		return "", "", err
	}
	apiKeyID = uuid.Must(uuid.NewV7()).String()

	if _, err := a.queries.Exec("insert-api-key", apiKeyID, clientID, ComputeHMAC(secret, apiKey), a.now()); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrStore, err)
	}
	return apiKeyID, apiKey, nil
}

// RevokeKey marks apiKeyID revoked. Revoking twice is not an error.
func (a *Authenticator) RevokeKey(apiKeyID string) error {
	if _, err := a.queries.Exec("revoke-api-key", a.now(), apiKeyID); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

func (a *Authenticator) defaultSecretID() string {
	ids := make([]string, 0, len(a.secrets))
	for id := range a.secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// UnaryInterceptor returns a gRPC interceptor that authenticates requests.
// Health checks pass through unauthenticated.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if info.FullMethod == "/grpc.health.v1.Health/Check" {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get(MetadataKey)
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		clientID, err := a.Authenticate(ctx, apiKeys[0])
		switch {
		case err == nil:
		case errors.Is(err, ErrKeyRevoked):
			return nil, status.Error(codes.PermissionDenied, err.Error())
		case errors.Is(err, ErrStore):
			return nil, status.Error(codes.Unavailable, err.Error())
		default:
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		return handler(WithClientID(ctx, clientID), req)
	}
}

// WithClientID returns ctx carrying clientID.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}

// ClientIDFromContext returns the authenticated client ID, or "" if none.
func ClientIDFromContext(ctx context.Context) string {
	if clientID, ok := ctx.Value(clientIDKey).(string); ok {
		return clientID
	}
	return ""
}
