package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flowdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type testStep struct {
	Name string `json:"name" binding:"required"`
}

type testRequest struct {
	Email string     `json:"email" binding:"required,email"`
	Name  string     `json:"name" binding:"required,max=5"`
	Kind  string     `json:"kind" binding:"omitempty,oneof=a b"`
	Steps []testStep `json:"steps" binding:"dive"`
}

func bindRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req testRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestValidationFields(t *testing.T) {
	router := bindRouter()

	tests := []struct {
		name   string
		body   string
		expect map[string]string
	}{
		{
			name: "field errors use json names",
			body: `{"email":"nope","name":"too long name","kind":"c"}`,
			expect: map[string]string{
				"email": "Invalid email format",
				"name":  "Must be at most 5 characters",
				"kind":  "Must be one of: a b",
			},
		},
		{
			name:   "nested fields keep their path",
			body:   `{"email":"a@b.io","name":"ok","steps":[{"name":""}]}`,
			expect: map[string]string{"steps[0].name": "This field is required"},
		},
		{
			name:   "wrong type",
			body:   `{"email":"a@b.io","name":7}`,
			expect: map[string]string{"name": "Must be of type string"},
		},
		{
			name:   "malformed json",
			body:   `{"email":`,
			expect: map[string]string{dto.RootField: "Malformed JSON body"},
		},
		{
			name:   "empty body",
			body:   ``,
			expect: map[string]string{dto.RootField: "Request body is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, dto.StatusError, resp.Status)
			assert.Equal(t, dto.ErrCodeValidation, resp.Code)
			assert.Equal(t, tt.expect, resp.Errors)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}
