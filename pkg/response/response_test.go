package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dailyrent/service-booking/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", domain.NewNotFoundError("Booking", "1"), http.StatusNotFound, "Booking 1 not found"},
		{"conflict", domain.NewConflictError("property already has an approved booking"), http.StatusConflict, "property already has an approved booking"},
		{"bad request", domain.NewBadRequestError("not the property owner"), http.StatusBadRequest, "not the property owner"},
		{"internal hides cause", domain.NewInternalError("gateway failed", errors.New("dial tcp")), http.StatusInternalServerError, "internal server error"},
		{"foreign error", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Error(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body Body
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.message, body.Error)
		})
	}
}
