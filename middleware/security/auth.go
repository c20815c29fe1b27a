package security

import (
	"net/http"
	"strings"

	"HoodChat/logger"
	"HoodChat/tools/errs"
	jwtsec "HoodChat/tools/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by Middleware.
const (
	PPCtxAuthKey   = "authorization"
	PPCtxUserIDKey = "userId"
)

type Options struct {
	// HeaderToken is read first; a raw token without the Bearer prefix.
	HeaderToken               string
	EnableAuthorizationBearer bool
	// EnableQueryToken also accepts ?token=, as socket handshakes do.
	EnableQueryToken bool
}

func DefaultOptions() *Options {
	return &Options{
		HeaderToken:               PPCtxAuthKey,
		EnableAuthorizationBearer: true,
	}
}

// Middleware verifies the request token and stores the caller's user id
// under PPCtxUserIDKey. Requests without a valid token stop with 401.
func Middleware(v *jwtsec.Verifier, opts *Options) gin.HandlerFunc {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(c *gin.Context) {
		token := requestToken(c, opts)
		userID, err := v.Verify(token)
		if err != nil {
			logger.Debug("[Auth] rejected", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"statusCode": http.StatusUnauthorized,
				"message":    "Unauthorized",
			})
			return
		}
		c.Set(PPCtxAuthKey, token)
		c.Set(PPCtxUserIDKey, userID)
		c.Next()
	}
}

func requestToken(c *gin.Context, opts *Options) string {
	if opts.HeaderToken != "" && !strings.EqualFold(opts.HeaderToken, "Authorization") {
		if tok := strings.TrimSpace(c.GetHeader(opts.HeaderToken)); tok != "" {
			return tok
		}
	}
	if opts.EnableAuthorizationBearer {
		if tok := jwtsec.BearerToken(c.GetHeader("Authorization")); tok != "" {
			return tok
		}
	}
	if opts.EnableQueryToken {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}

// UserID returns the authenticated caller, or ErrUnauthenticated when the
// route was mounted without Middleware.
func UserID(c *gin.Context) (string, error) {
	if v, ok := c.Get(PPCtxUserIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errs.ErrUnauthenticated.WrapMsg("no authenticated user")
}
