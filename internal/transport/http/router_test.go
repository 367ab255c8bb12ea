package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	host = domain.Identity{ID: "host", Name: "Host"}
	ann  = domain.Identity{ID: "ann", Name: "Ann"}
	bob  = domain.Identity{ID: "bob", Name: "Bob"}
)

type testEnv struct {
	server *httptest.Server
	auth   *Authenticator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	service := app.NewSessionService(memory.NewSessionStore(), quizzes)
	auth := NewAuthenticator("test-secret", "geoquiz-test")

	server := httptest.NewServer(NewRouter(NewSessionHandler(service, nil), NewWSHandler(service, nil), auth))
	t.Cleanup(server.Close)
	return &testEnv{server: server, auth: auth}
}

func (e *testEnv) token(t *testing.T, id domain.Identity) string {
	t.Helper()
	token, err := e.auth.Issue(id, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, caller *domain.Identity, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, *caller))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"capitals": {
			ID:   "capitals",
			Name: "Capitals",
			Questions: []domain.Question{
				{ID: "0", Text: "Paris", Answer: domain.Point(48.8566, 2.3522)},
				{ID: "1", Text: "Tokyo", Answer: domain.Point(35.6762, 139.6503)},
			},
		},
	}
}

func TestSessionRESTFlow(t *testing.T) {
	env := newTestEnv(t)

	status, session := env.do(t, &host, http.MethodPost, "/sessions", map[string]any{"quizId": "capitals", "answerTimeLimit": 60})
	require.Equal(t, http.StatusCreated, status)
	id := session["id"].(string)
	assert.Equal(t, "lobby", session["state"])
	assert.EqualValues(t, 60, session["answerTimeLimit"])

	status, _ = env.do(t, &ann, http.MethodPost, "/sessions/"+id+"/join", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, &ann, http.MethodPost, "/sessions/"+id+"/start", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", errorCode(body))

	status, session = env.do(t, &host, http.MethodPost, "/sessions/"+id+"/start", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "in-progress", session["state"])
	question := session["currentQuestion"].(map[string]any)
	assert.NotContains(t, question, "correctAnswer")

	status, receipt := env.do(t, &ann, http.MethodPost, "/sessions/"+id+"/answers", domain.Coordinate{Lat: 48.85, Lng: 2.35})
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "0", receipt["questionId"])
	assert.NotContains(t, receipt, "distance")

	status, body = env.do(t, &ann, http.MethodPost, "/sessions/"+id+"/answers", domain.Coordinate{Lat: 1, Lng: 1})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", errorCode(body))

	status, body = env.do(t, &bob, http.MethodPost, "/sessions/"+id+"/answers", domain.Coordinate{Lat: 1, Lng: 1})
	assert.Equal(t, http.StatusForbidden, status)

	status, result := env.do(t, &host, http.MethodPost, "/sessions/"+id+"/advance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "next-question", result["outcome"])

	status, session = env.do(t, &bob, http.MethodGet, "/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	results := session["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "ann", results[0].(map[string]any)["participantId"])
	assert.EqualValues(t, 1, session["currentQuestion"].(map[string]any)["index"])
}

func TestSessionRESTErrors(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, nil, http.MethodGet, "/sessions/whatever", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", errorCode(body))

	status, body = env.do(t, &host, http.MethodGet, "/sessions/whatever", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", errorCode(body))

	status, body = env.do(t, &host, http.MethodPost, "/sessions", map[string]any{"quizId": "capitals", "answerTimeLimit": 2})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", errorCode(body))

	status, _ = env.do(t, &host, http.MethodPost, "/sessions", map[string]any{"quizId": "missing"})
	assert.Equal(t, http.StatusNotFound, status)

	status, session := env.do(t, &host, http.MethodPost, "/sessions", map[string]any{"quizId": "capitals"})
	require.Equal(t, http.StatusCreated, status)
	status, body = env.do(t, &host, http.MethodPost, "/sessions/"+session["id"].(string)+"/advance", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "illegal_state", errorCode(body))

	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthenticatorRejectsForeignTokens(t *testing.T) {
	auth := NewAuthenticator("secret", "geoquiz")
	token, err := NewAuthenticator("other", "geoquiz").Issue(ann, time.Hour)
	require.NoError(t, err)
	_, err = auth.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	token, err = NewAuthenticator("secret", "someone-else").Issue(ann, time.Hour)
	require.NoError(t, err)
	_, err = auth.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	token, err = auth.Issue(domain.Identity{ID: "guest-1", Anonymous: true}, time.Hour)
	require.NoError(t, err)
	id, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{ID: "guest-1", Anonymous: true}, id)
}
