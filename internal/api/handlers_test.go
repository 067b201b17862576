package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranAva001/CarMate/internal/auth"
	"github.com/FranAva001/CarMate/internal/config"
	"github.com/FranAva001/CarMate/internal/core"
	"github.com/FranAva001/CarMate/internal/store"
)

type recordingSearcher struct {
	docs   []map[string]any
	nextID string
	err    error
}

func (s *recordingSearcher) Index(ctx context.Context, id string, doc map[string]any) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.docs = append(s.docs, doc)
	if id == "" {
		id = s.nextID
	}
	return id, nil
}

func (s *recordingSearcher) Search(ctx context.Context, query string, size int) ([]map[string]any, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, searcher *recordingSearcher) http.Handler {
	t.Helper()
	config.AppConfig.JWTSecret = "test-secret"

	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	chatService := core.NewChatService(db, nil, nil)
	return NewRouter(NewAPIHandler(chatService, searcher))
}

func postJSON(t *testing.T, router http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := postJSON(t, router, "/api/register", "", map[string]string{"username": "alice", "password": "pw1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/api/login", "", map[string]string{"username": "alice", "password": "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out["token"])
	return out["token"]
}

func TestRegisterAndLogin(t *testing.T) {
	router := newTestRouter(t, &recordingSearcher{})
	registerAndLogin(t, router)
}

func TestLogin_WrongPassword(t *testing.T) {
	router := newTestRouter(t, &recordingSearcher{})
	rec := postJSON(t, router, "/api/register", "", map[string]string{"username": "alice", "password": "pw1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/api/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, router, "/api/login", "", map[string]string{"username": "bob", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	router := newTestRouter(t, &recordingSearcher{})
	rec := postJSON(t, router, "/api/register", "", map[string]string{"username": "alice", "password": "pw1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/api/register", "", map[string]string{"username": "alice", "password": "pw2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestJWTAuthMiddleware_SetsTypedIdentityKeys(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	user, err := db.CreateUser("alice", "hash")
	require.NoError(t, err)
	token, err := auth.GenerateJWT("alice")
	require.NoError(t, err)

	h := NewAPIHandler(core.NewChatService(db, nil, nil), &recordingSearcher{})
	var gotID, gotName, bareKey any
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Context().Value(userIDKey)
		gotName = r.Context().Value(usernameKey)
		bareKey = r.Context().Value("userID")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.JWTAuthMiddleware(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, gotID)
	assert.Equal(t, "alice", gotName)
	assert.Nil(t, bareKey, "identity must not be reachable through a plain string key")
}

func TestCreateCar_RequiresAuth(t *testing.T) {
	router := newTestRouter(t, &recordingSearcher{})
	rec := postJSON(t, router, "/api/cars", "", map[string]string{"company": "Fiat"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateCar_StripsEmptyFields(t *testing.T) {
	searcher := &recordingSearcher{nextID: "es-1"}
	router := newTestRouter(t, searcher)
	token := registerAndLogin(t, router)

	rec := postJSON(t, router, "/api/cars", token, map[string]string{
		"company": " Fiat ",
		"model":   "Panda",
		"engine":  "",
		"fuel":    "benzina",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "es-1", out["id"])

	require.Len(t, searcher.docs, 1)
	doc := searcher.docs[0]
	assert.Equal(t, "Fiat", doc["company"])
	assert.Equal(t, "Panda", doc["model"])
	assert.NotContains(t, doc, "engine")
	assert.NotContains(t, doc, "hp")
}

func TestCreateCar_AllFieldsEmpty(t *testing.T) {
	router := newTestRouter(t, &recordingSearcher{})
	token := registerAndLogin(t, router)

	rec := postJSON(t, router, "/api/cars", token, map[string]string{"company": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCar_IndexFailure(t *testing.T) {
	searcher := &recordingSearcher{err: errors.New("es down")}
	router := newTestRouter(t, searcher)
	token := registerAndLogin(t, router)

	rec := postJSON(t, router, "/api/cars", token, map[string]string{"company": "Fiat"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &recordingSearcher{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
