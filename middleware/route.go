package middleware

import (
	"github.com/gin-gonic/gin"
)

type RouteOpt struct {
	IsAuth bool
}

// Router mounts handlers, putting the auth middleware in front of the ones
// that ask for it.
type Router struct {
	r    gin.IRoutes
	auth gin.HandlerFunc
}

func NewRouter(r gin.IRoutes, auth gin.HandlerFunc) *Router {
	return &Router{r: r, auth: auth}
}

func (rt *Router) chain(handler gin.HandlerFunc, opt RouteOpt) []gin.HandlerFunc {
	if opt.IsAuth && rt.auth != nil {
		return []gin.HandlerFunc{rt.auth, handler}
	}
	return []gin.HandlerFunc{handler}
}

func (rt *Router) POST(path string, handler gin.HandlerFunc, opt RouteOpt) {
	rt.r.POST(path, rt.chain(handler, opt)...)
}

func (rt *Router) GET(path string, handler gin.HandlerFunc, opt RouteOpt) {
	rt.r.GET(path, rt.chain(handler, opt)...)
}

func (rt *Router) PATCH(path string, handler gin.HandlerFunc, opt RouteOpt) {
	rt.r.PATCH(path, rt.chain(handler, opt)...)
}
