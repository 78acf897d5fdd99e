package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/malevo2026ma-wq/backend/internal/apierror"
	"github.com/malevo2026ma-wq/backend/internal/dto"
	"github.com/malevo2026ma-wq/backend/internal/middleware"
	"github.com/malevo2026ma-wq/backend/internal/repository"
	"github.com/malevo2026ma-wq/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// respondError maps service sentinels to HTTP statuses and stable codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCajaYaAbierta):
		c.JSON(http.StatusBadRequest, apierror.WithCode("CASH_ALREADY_OPEN", err.Error()))
	case errors.Is(err, service.ErrSinCajaAbierta):
		c.JSON(http.StatusBadRequest, apierror.WithCode("NO_OPEN_CASH", err.Error()))
	case errors.Is(err, service.ErrMontoInvalido):
		c.JSON(http.StatusBadRequest, apierror.WithCode("INVALID_AMOUNT", err.Error()))
	case errors.Is(err, service.ErrConteoInvalido):
		c.JSON(http.StatusBadRequest, apierror.WithCode("INVALID_PHYSICAL_AMOUNT", err.Error()))
	case errors.Is(err, service.ErrConteoRequerido):
		c.JSON(http.StatusBadRequest, apierror.WithCode("COUNT_REQUIRED", err.Error()))
	case errors.Is(err, service.ErrDescripcionCorta):
		c.JSON(http.StatusBadRequest, apierror.WithCode("INVALID_DESCRIPTION", err.Error()))
	case errors.Is(err, service.ErrEfectivoNegativo):
		c.JSON(http.StatusBadRequest, apierror.WithCode("NEGATIVE_CASH_NOT_ALLOWED", err.Error()))
	case errors.Is(err, service.ErrSesionNoEncontrada):
		c.JSON(http.StatusNotFound, apierror.WithCode("SESSION_NOT_FOUND", err.Error()))
	default:
		// logged by the error middleware; the client sees a generic message
		_ = c.Error(err)
	}
}

// Abrir godoc
// @Summary Abre una nueva sesion de caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.SesionCajaResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := actorID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cerrar godoc
// @Summary Cierra la sesion abierta y registra el arqueo
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCajaRequest true "Datos de cierre"
// @Success 200 {object} dto.CierreCajaResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/caja/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := actorID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Estado godoc
// @Summary Estado actual de la caja con arqueo en vivo
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.EstadoCajaResponse
// @Router /v1/caja/estado [get]
func (h *CajaHandler) Estado(c *gin.Context) {
	resp, err := h.svc.EstadoActual(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarAjuste godoc
// @Summary Registra un deposito, retiro o gasto manual
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AjusteCajaRequest true "Movimiento manual"
// @Success 201 {object} dto.MovimientoCajaResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/caja/movimiento [post]
func (h *CajaHandler) RegistrarAjuste(c *gin.Context) {
	var req dto.AjusteCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := actorID(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarAjuste(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarPagoCuenta godoc
// @Summary Registra el cobro de una cuenta corriente en la caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.PagoCuentaRequest true "Pago de cuenta corriente"
// @Success 201 {object} dto.MovimientoCajaResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/caja/pago-cuenta [post]
func (h *CajaHandler) RegistrarPagoCuenta(c *gin.Context) {
	var req dto.PagoCuentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := actorID(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarPagoCuenta(c.Request.Context(), usuarioID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListarMovimientos godoc
// @Summary Lista movimientos de caja con filtros y paginacion
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MovimientosCajaResponse
// @Router /v1/caja/movimientos [get]
func (h *CajaHandler) ListarMovimientos(c *gin.Context) {
	f := repository.FiltroMovimientos{
		Tipo:              c.Query("tipo"),
		SoloSesionAbierta: c.DefaultQuery("solo_sesion_abierta", "true") == "true",
	}
	f.Desde, f.Hasta = parseRangoFechas(c)
	f.Page, f.Limit = parsePaginacion(c, 50)

	resp, err := h.svc.ListMovimientos(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial godoc
// @Summary Historial paginado de sesiones cerradas
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.HistorialCajaResponse
// @Router /v1/caja/historial [get]
func (h *CajaHandler) Historial(c *gin.Context) {
	desde, hasta := parseRangoFechas(c)
	page, limit := parsePaginacion(c, 20)

	resp, err := h.svc.Historial(c.Request.Context(), desde, hasta, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Detalle godoc
// @Summary Detalle de una sesion: movimientos y arqueo persistido
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.DetalleSesionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/detalle [get]
func (h *CajaHandler) Detalle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode("INVALID_SESSION_ID", "ID de sesión inválido"))
		return
	}
	resp, err := h.svc.DetalleSesion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Configuracion returns the global cash settings.
func (h *CajaHandler) Configuracion(c *gin.Context) {
	cfg, err := h.svc.Configuracion(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// ActualizarConfiguracion updates the global cash settings.
func (h *CajaHandler) ActualizarConfiguracion(c *gin.Context) {
	var req dto.ConfigCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cfg, err := h.svc.ActualizarConfiguracion(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func actorID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, apierror.WithCode("UNAUTHORIZED", "Usuario no autenticado"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode("INVALID_USER_ID", "ID de usuario inválido"))
		return uuid.Nil, false
	}
	return id, true
}

// parseRangoFechas reads optional start_date / end_date (YYYY-MM-DD) query
// params; end_date is inclusive, so the upper bound is the following day.
func parseRangoFechas(c *gin.Context) (*time.Time, *time.Time) {
	var desde, hasta *time.Time
	if v := c.Query("start_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			desde = &t
		}
	}
	if v := c.Query("end_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			fin := t.AddDate(0, 0, 1)
			hasta = &fin
		}
	}
	return desde, hasta
}

func parsePaginacion(c *gin.Context, defaultLimit int) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}
