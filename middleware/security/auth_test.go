package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	jwtsec "HoodChat/tools/security"

	"github.com/gin-gonic/gin"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	opts := jwtsec.DefaultOptions([]byte("mw-secret"))
	v, err := jwtsec.NewVerifier(opts)
	if err != nil {
		t.Fatal(err)
	}
	tok, _, _ := jwtsec.Generate(opts, "u1")

	r := gin.New()
	r.GET("/me", Middleware(v, &Options{EnableAuthorizationBearer: true, EnableQueryToken: true}), func(c *gin.Context) {
		uid, err := UserID(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, uid)
	})

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer", "Bearer " + tok, "", http.StatusOK},
		{"query", "", "?token=" + tok, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"garbage", "Bearer abc", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusOK && w.Body.String() != "u1" {
				t.Fatalf("user = %q", w.Body.String())
			}
		})
	}
}

func TestUserIDWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if _, err := UserID(c); err == nil {
		t.Fatal("expected error")
	}
}
