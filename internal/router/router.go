package router

import (
	"time"

	"github.com/malevo2026ma-wq/backend/internal/config"
	"github.com/malevo2026ma-wq/backend/internal/handler"
	"github.com/malevo2026ma-wq/backend/internal/middleware"
	"github.com/malevo2026ma-wq/backend/internal/repository"
	"github.com/malevo2026ma-wq/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	cajaRepo := repository.NewCajaRepository(db)
	ventaRepo := repository.NewVentaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	cajaSvc := service.NewCajaService(cajaRepo, ventaRepo, rdb)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cajaH := handler.NewCajaHandler(cajaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		operadores := middleware.RequireRole("cajero", "supervisor", "administrador")
		supervisores := middleware.RequireRole("supervisor", "administrador")

		caja := v1.Group("/caja")
		{
			caja.GET("/estado", operadores, cajaH.Estado)
			caja.POST("/abrir", operadores, cajaH.Abrir)
			caja.POST("/cerrar", operadores, cajaH.Cerrar)
			caja.POST("/movimiento", operadores, cajaH.RegistrarAjuste)
			caja.POST("/pago-cuenta", operadores, cajaH.RegistrarPagoCuenta)
			caja.GET("/movimientos", operadores, cajaH.ListarMovimientos)
			caja.GET("/:id/detalle", operadores, cajaH.Detalle)

			// Historial and configuration are supervisory operations
			caja.GET("/historial", supervisores, cajaH.Historial)
			caja.GET("/configuracion", supervisores, cajaH.Configuracion)
			caja.PUT("/configuracion", supervisores, cajaH.ActualizarConfiguracion)
		}
	}

	return r
}
