package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHourString(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"09:00", 9, true},
		{"17:00", 17, true},
		{"9", 9, true},
		{"0", 0, true},
		{"23", 23, true},
		{"09:30", 0, false},
		{"24", 0, false},
		{"-1", 0, false},
		{"noon", 0, false},
	}
	for _, tc := range cases {
		got, err := parseHourString(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got, tc.in)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}

func TestAuthMiddlewareStaticToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware("", "sekrit,other"))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer sekrit", http.StatusOK},
		{"second token", "Bearer other", http.StatusOK},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic sekrit", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}
