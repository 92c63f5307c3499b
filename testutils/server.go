package testutils

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dododo1295/notetree/handler"
	"github.com/dododo1295/notetree/services"
	"github.com/dododo1295/notetree/usecase"

	"github.com/gin-gonic/gin"
)

const (
	apiSecret = "testutils-secret"
	apiIssuer = "notetree"
)

// APIServer is a full HTTP stack over an in-memory SQLite store.
type APIServer struct {
	*httptest.Server
	Notes *usecase.NotesService
}

func NewAPIServer(t *testing.T) *APIServer {
	t.Helper()
	SetupTestEnvironment()
	gin.SetMode(gin.TestMode)

	store := NewSQLStore(t)
	notes := usecase.NewNotesService(store, nil)
	router := handler.NewRouter(handler.RouterConfig{
		Notes:        notes,
		Store:        store,
		Verifier:     services.NewJWTVerifier(apiSecret, apiIssuer, services.NewMemoryRevocationList()),
		MaxBodyBytes: 1 << 20,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &APIServer{Server: srv, Notes: notes}
}

// Token returns a valid bearer token for userID.
func (s *APIServer) Token(t *testing.T, userID string) string {
	t.Helper()
	token, err := services.GenerateToken([]byte(apiSecret), apiIssuer, userID, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}
