package discussion

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*memoryStore, *Handler, *mux.Router) {
	t.Helper()
	t.Setenv("SECRET_KEY", testSecret)

	store := newMemoryStore()
	store.addUser(1, "Ama", "Mensah", "2015", role(1, "alumnus"))
	store.addUser(2, "Kofi", "Boateng", "2012", role(1, "alumnus"))

	h := &Handler{store: store, hub: NewHub(store)}
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return store, h, router
}

func doJSON(t *testing.T, router *mux.Router, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHTTPSurface(t *testing.T) {
	store, h, router := newTestServer(t)
	token := mintToken(t, 1, time.Hour)
	tokenB := mintToken(t, 2, time.Hour)

	// A joined realtime member observes what the HTTP path does.
	member := h.hub.register(2)

	t.Run("unauthenticated create is rejected with no state change", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/posts", "", `{"content":"Hello"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assertNoEvent(t, member)
	})

	t.Run("create post broadcasts to the room", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/posts", token, `{"content":"Hello"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var view PostView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, "Hello", view.Content)
		assert.Equal(t, "Ama", view.Name)

		ev := recvEvent(t, member)
		assert.Equal(t, "post-created", ev.Event)
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/posts", token, `{"content":"   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assertNoEvent(t, member)
	})

	t.Run("reply on a missing post is a 404", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/posts/99/replies", token, `{"text":"hi"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assertNoEvent(t, member)
	})

	t.Run("reply lands at the end of the post", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/posts/1/replies", tokenB, `{"text":"Welcome back!"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		ev := recvEvent(t, member)
		assert.Equal(t, "reply-added", ev.Event)
	})

	t.Run("invalid emoji is rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/posts/1/reactions", tokenB, `{"emoji":"🔥"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assertNoEvent(t, member)
	})

	t.Run("reaction upsert returns the fresh tally", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/posts/1/reactions", tokenB, `{"emoji":"👍"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Reactions map[string]int `json:"reactions"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Reactions["👍"])

		ev := recvEvent(t, member)
		assert.Equal(t, "reaction-updated", ev.Event)
	})

	t.Run("removing a reaction twice reports the second attempt", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/posts/1/reactions", tokenB, "")
		require.Equal(t, http.StatusOK, rec.Code)
		recvEvent(t, member)

		rec = doJSON(t, router, http.MethodDelete, "/posts/1/reactions", tokenB, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assertNoEvent(t, member)
	})

	t.Run("history is paginated newest first and excludes deactivated posts", func(t *testing.T) {
		doJSON(t, router, http.MethodPost, "/posts", token, `{"content":"Second"}`)
		recvEvent(t, member)

		store.deactivatePost(1)

		rec := doJSON(t, router, http.MethodGet, "/posts?page=1&limit=10", "", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Posts []PostView `json:"posts"`
			Total int64      `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, int64(1), body.Total)
		require.Len(t, body.Posts, 1)
		assert.Equal(t, "Second", body.Posts[0].Content)
	})
}
