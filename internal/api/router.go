package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Router builds the injection API's gin engine: two public routes (health
// check and graph export) and two Bearer-authenticated routes for injection
// and audit lookup,
// following the reference implementation's public/protected route split.
func Router(deps *Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if deps.RateLimit.EnableCORS {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowHeaders = []string{"Authorization", "Content-Type"}
		corsCfg.AllowMethods = []string{"GET", "POST"}
		r.Use(cors.New(corsCfg))
	}

	r.GET("/health", deps.Health)
	r.GET("/graph/export", deps.GraphExport)

	protected := r.Group("/")
	protected.Use(RequireAuth(deps.Keys))
	protected.POST("/inject", deps.Inject)
	protected.GET("/recent_injections", deps.RecentInjections)

	return r
}
