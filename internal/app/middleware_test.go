package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMiddleware(t *testing.T) {
	newRouter := func(seen *string) *mux.Router {
		r := mux.NewRouter()
		SetupMiddleware(r)
		r.HandleFunc("/api/ping", func(w http.ResponseWriter, req *http.Request) {
			*seen = RequestId(req.Context())
			w.WriteHeader(http.StatusTeapot)
		})
		return r
	}

	t.Run("should assign a request id", func(t *testing.T) {
		// given
		var seen string
		r := newRouter(&seen)
		rr := httptest.NewRecorder()

		// when
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ping", nil))

		// then
		assert.Equal(t, http.StatusTeapot, rr.Code)
		id := rr.Header().Get("X-Request-Id")
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, seen)
	})

	t.Run("should keep a caller supplied request id", func(t *testing.T) {
		// given
		var seen string
		r := newRouter(&seen)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
		req.Header.Set("X-Request-Id", "trace-42")

		// when
		r.ServeHTTP(rr, req)

		// then
		assert.Equal(t, "trace-42", rr.Header().Get("X-Request-Id"))
		assert.Equal(t, "trace-42", seen)
	})
}
