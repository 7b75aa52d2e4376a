// Package server — router.go собирает маршруты API.
// Пакет не знает о фичах: обработчики приходят готовыми функциями,
// поэтому features могут использовать хелперы ответов без цикла импортов.
package server

import "github.com/gin-gonic/gin"

// Routes — все обработчики API, сгруппированные по зонам доступа.
type Routes struct {
	// Публичные
	Register gin.HandlerFunc
	Login    gin.HandlerFunc
	Profile  gin.HandlerFunc
	Ranking  gin.HandlerFunc

	// Требуют сессии
	Logout       gin.HandlerFunc
	Me           gin.HandlerFunc
	SubmitAction gin.HandlerFunc
	History      gin.HandlerFunc
	Achievements gin.HandlerFunc
	BadgesImport gin.HandlerFunc
	BadgesList   gin.HandlerFunc

	// Только администратор
	AdminRecent     gin.HandlerFunc
	AdminCorrect    gin.HandlerFunc
	AdminDelete     gin.HandlerFunc
	AdminStats      gin.HandlerFunc
	AdminRemoveUser gin.HandlerFunc
}

// NewRouter создаёт gin-роутер со всеми middleware и маршрутами.
func NewRouter(resolve SessionResolver, limiter *RateLimiter, routes Routes) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(), RequestLogger(), RateLimit(limiter))

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", routes.Register)
			auth.POST("/login", routes.Login)
			auth.POST("/logout", Auth(resolve), routes.Logout)
		}

		api.GET("/users/:username", routes.Profile)
		api.GET("/ranking", routes.Ranking)

		private := api.Group("")
		private.Use(Auth(resolve))
		{
			private.GET("/me", routes.Me)
			private.POST("/actions", routes.SubmitAction)
			private.GET("/history", routes.History)
			private.GET("/achievements", routes.Achievements)
			private.POST("/badges/import", routes.BadgesImport)
			private.GET("/badges", routes.BadgesList)
		}

		admin := api.Group("/admin")
		admin.Use(Auth(resolve), AdminOnly())
		{
			admin.GET("/actions", routes.AdminRecent)
			admin.POST("/actions/:id/correct", routes.AdminCorrect)
			admin.DELETE("/actions/:id", routes.AdminDelete)
			admin.GET("/stats", routes.AdminStats)
			admin.DELETE("/users/:username", routes.AdminRemoveUser)
		}
	}

	return router
}
