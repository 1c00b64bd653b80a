package httpx_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purenote/purenote/pkg/httpx"
)

func TestJSON(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	httpx.JSON(w, 200, map[string]bool{"success": true})

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestError(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	httpx.Error(w, 404, "Review not found")

	assert.Equal(t, 404, w.Code)
	assert.JSONEq(t, `{"error":"Review not found"}`, w.Body.String())
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("valid body", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.c"}`))
		var dst struct {
			Email string `json:"email"`
		}
		require.NoError(t, httpx.Decode(r, &dst))
		assert.Equal(t, "a@b.c", dst.Email)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest("POST", "/", strings.NewReader("{not json"))
		var dst map[string]any
		err := httpx.Decode(r, &dst)
		assert.ErrorIs(t, err, httpx.ErrInvalidBody)
	})
}
