package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/malevo2026ma-wq/backend/internal/dto"
	"github.com/malevo2026ma-wq/backend/internal/model"
	"github.com/malevo2026ma-wq/backend/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Machine-distinguishable failures of the cash session lifecycle. Handlers
// map each to an HTTP status and a stable error code.
var (
	ErrCajaYaAbierta      = errors.New("ya hay una caja abierta")
	ErrSinCajaAbierta     = errors.New("no hay una caja abierta")
	ErrMontoInvalido      = errors.New("monto inválido")
	ErrConteoInvalido     = errors.New("monto de efectivo contado inválido")
	ErrConteoRequerido    = errors.New("la configuración exige conteo físico para cerrar")
	ErrSesionNoEncontrada = errors.New("sesión de caja no encontrada")
	ErrDescripcionCorta   = errors.New("la descripción debe tener al menos 5 caracteres")
	ErrEfectivoNegativo   = errors.New("el movimiento dejaría la caja en negativo")
)

const configCacheKey = "caja:config"

type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error)
	EstadoActual(ctx context.Context) (*dto.EstadoCajaResponse, error)

	RegistrarAjuste(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteCajaRequest) (*dto.MovimientoCajaResponse, error)
	RegistrarPagoCuenta(ctx context.Context, usuarioID uuid.UUID, req dto.PagoCuentaRequest) (*dto.MovimientoCajaResponse, error)

	// Surface consumed in-process by the sales subsystem.
	RegistrarMovimientoVenta(ctx context.Context, usuarioID, sesionID, ventaID uuid.UUID, monto decimal.Decimal, metodo, descripcion string) error
	RegistrarAnulacionVenta(ctx context.Context, usuarioID, sesionID, ventaID uuid.UUID, monto decimal.Decimal, metodo string) error

	Historial(ctx context.Context, desde, hasta *time.Time, page, limit int) (*dto.HistorialCajaResponse, error)
	DetalleSesion(ctx context.Context, id uuid.UUID) (*dto.DetalleSesionResponse, error)
	ListMovimientos(ctx context.Context, f repository.FiltroMovimientos) (*dto.MovimientosCajaResponse, error)

	Configuracion(ctx context.Context) (*model.ConfigCaja, error)
	ActualizarConfiguracion(ctx context.Context, req dto.ConfigCajaRequest) (*model.ConfigCaja, error)
}

type cajaService struct {
	repo   repository.CajaRepository
	ventas repository.VentaRepository
	rdb    *redis.Client
}

func NewCajaService(repo repository.CajaRepository, ventas repository.VentaRepository, rdb *redis.Client) CajaService {
	return &cajaService{repo: repo, ventas: ventas, rdb: rdb}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// buscarPagos adapts the venta repository into the classifier's lookup.
func (s *cajaService) buscarPagos(ctx context.Context, ventaID uuid.UUID) ([]model.VentaPago, error) {
	if s.ventas == nil {
		return nil, nil
	}
	return s.ventas.FindPagos(ctx, ventaID)
}

// sesionAbierta resolves the open session. "No session open" and a storage
// failure are different conditions: only the former maps to the sentinel.
func (s *cajaService) sesionAbierta(ctx context.Context) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionAbierta(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSinCajaAbierta
		}
		return nil, fmt.Errorf("no se pudo consultar la sesión abierta: %w", err)
	}
	return sesion, nil
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	if req.MontoApertura.IsNegative() {
		return nil, ErrMontoInvalido
	}
	switch _, err := s.sesionAbierta(ctx); {
	case err == nil:
		return nil, ErrCajaYaAbierta
	case !errors.Is(err, ErrSinCajaAbierta):
		return nil, err
	}

	sesion := &model.SesionCaja{
		MontoApertura: req.MontoApertura,
		Estado:        model.SesionAbierta,
		AbiertaPor:    usuarioID,
		NotasApertura: req.Notas,
		FechaApertura: time.Now(),
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateSesionTx(tx, sesion); err != nil {
			return err
		}
		mov := &model.MovimientoCaja{
			SesionCajaID: sesion.ID,
			Tipo:         model.TipoApertura,
			Monto:        req.MontoApertura,
			Descripcion:  "Apertura de caja",
			UsuarioID:    usuarioID,
		}
		return s.repo.CreateMovimientoTx(tx, mov)
	})
	if txErr != nil {
		// The partial unique index makes concurrent opens race on the
		// insert; the loser lands here.
		if _, err := s.sesionAbierta(ctx); err == nil {
			return nil, ErrCajaYaAbierta
		}
		return nil, fmt.Errorf("no se pudo abrir la caja: %w", txErr)
	}

	if cfg, err := s.Configuracion(ctx); err == nil && req.MontoApertura.LessThan(cfg.MontoMinimo) {
		log.Warn().Str("sesion_id", sesion.ID.String()).
			Str("monto_apertura", req.MontoApertura.String()).
			Str("monto_minimo", cfg.MontoMinimo.String()).
			Msg("caja abierta por debajo del mínimo configurado")
	}

	resp := sesionToResponse(sesion)
	return &resp, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// The whole close runs in one transaction: aggregate over a consistent
// movement snapshot, write the closed-session fields, append the closing
// movement, and persist the arqueo — all or nothing.

func (s *cajaService) Cerrar(ctx context.Context, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.CierreCajaResponse, error) {
	sesion, err := s.sesionAbierta(ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := s.Configuracion(ctx)
	if err != nil {
		return nil, fmt.Errorf("no se pudo leer la configuración de caja: %w", err)
	}
	if cfg.RequiereConteoCierre && !req.CompararConConteo {
		return nil, ErrConteoRequerido
	}
	if req.CompararConConteo {
		if req.MontoContado == nil || req.MontoContado.IsNegative() {
			return nil, ErrConteoInvalido
		}
	}

	var (
		desglose model.DesgloseCaja
		arqueo   model.ArqueoCaja
	)
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Exclusive lock first: in-flight sale posts holding shared locks
		// drain before the snapshot is read, and later posts see the closed
		// state. A concurrent close losing this lock finds it closed too.
		bloqueada, err := s.repo.FindSesionExclusiveTx(tx, sesion.ID)
		if err != nil {
			return err
		}
		if bloqueada.Estado != model.SesionAbierta {
			return ErrSinCajaAbierta
		}

		movs, err := s.repo.ListMovimientosSesionTx(tx, sesion.ID)
		if err != nil {
			return err
		}
		desglose = Reconciliar(ctx, sesion.MontoApertura, movs, s.buscarPagos)

		esperado := desglose.EfectivoEsperado
		cierre := esperado
		if req.CompararConConteo {
			cierre = *req.MontoContado
			dif := req.MontoContado.Sub(esperado)
			sesion.Diferencia = &dif
		}

		ahora := time.Now()
		sesion.Estado = model.SesionCerrada
		sesion.MontoCierre = &cierre
		sesion.MontoEsperado = &esperado
		sesion.CerradaPor = &usuarioID
		sesion.NotasCierre = req.Notas
		sesion.FechaCierre = &ahora
		if err := s.repo.CerrarSesionTx(tx, sesion); err != nil {
			return err
		}

		mov := &model.MovimientoCaja{
			SesionCajaID: sesion.ID,
			Tipo:         model.TipoCierre,
			Monto:        cierre,
			Descripcion: fmt.Sprintf("Cierre de caja — efectivo esperado: $%s, total general: $%s",
				esperado.StringFixed(2), desglose.TotalGeneral.StringFixed(2)),
			UsuarioID: usuarioID,
		}
		if err := s.repo.CreateMovimientoTx(tx, mov); err != nil {
			return err
		}

		arqueo = model.ArqueoCaja{
			SesionCajaID:  sesion.ID,
			MontoEsperado: esperado,
			MontoContado:  cierre,
			ConConteo:     req.CompararConConteo,
			Desglose:      desglose,
			Notas:         req.Notas,
			UsuarioID:     usuarioID,
		}
		if sesion.Diferencia != nil {
			arqueo.Diferencia = *sesion.Diferencia
		}
		return s.repo.CreateArqueoTx(tx, &arqueo)
	})
	if txErr != nil {
		if errors.Is(txErr, ErrSinCajaAbierta) {
			// a concurrent close won the lock
			return nil, ErrSinCajaAbierta
		}
		log.Error().Err(txErr).Str("sesion_id", sesion.ID.String()).Msg("fallo el cierre de caja")
		return nil, fmt.Errorf("no se pudo cerrar la caja: %w", txErr)
	}

	resp := &dto.CierreCajaResponse{
		Sesion:        sesionToResponse(sesion),
		Desglose:      desglose,
		MontoEsperado: desglose.EfectivoEsperado,
	}
	if req.CompararConConteo {
		resp.MontoContado = req.MontoContado
		resp.Diferencia = sesion.Diferencia
	}
	return resp, nil
}

// ── EstadoActual ──────────────────────────────────────────────────────────────

func (s *cajaService) EstadoActual(ctx context.Context) (*dto.EstadoCajaResponse, error) {
	cfg, err := s.Configuracion(ctx)
	if err != nil {
		return nil, err
	}

	sesion, err := s.sesionAbierta(ctx)
	if errors.Is(err, ErrSinCajaAbierta) {
		return &dto.EstadoCajaResponse{Movimientos: []dto.MovimientoCajaResponse{}, Config: *cfg}, nil
	}
	if err != nil {
		return nil, err
	}

	movs, err := s.repo.ListMovimientosSesion(ctx, sesion.ID)
	if err != nil {
		return nil, err
	}
	desglose := Reconciliar(ctx, sesion.MontoApertura, movs, s.buscarPagos)

	var alertas []string
	if desglose.EfectivoEsperado.LessThan(cfg.MontoMinimo) {
		alertas = append(alertas, "efectivo por debajo del mínimo configurado")
	}
	if desglose.EfectivoEsperado.GreaterThan(cfg.MontoMaximo) {
		alertas = append(alertas, "efectivo por encima del máximo configurado")
	}

	sesionResp := sesionToResponse(sesion)
	return &dto.EstadoCajaResponse{
		Sesion:      &sesionResp,
		Desglose:    &desglose,
		Movimientos: movimientosToResponse(movs),
		Config:      *cfg,
		Alertas:     alertas,
	}, nil
}

// ── Ajustes manuales ──────────────────────────────────────────────────────────

func (s *cajaService) RegistrarAjuste(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteCajaRequest) (*dto.MovimientoCajaResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, ErrMontoInvalido
	}
	if len(strings.TrimSpace(req.Descripcion)) < 5 {
		return nil, ErrDescripcionCorta
	}

	sesion, err := s.sesionAbierta(ctx)
	if err != nil {
		return nil, err
	}

	monto := req.Monto
	if req.Tipo == model.TipoRetiro || req.Tipo == model.TipoGasto {
		monto = req.Monto.Neg()

		cfg, err := s.Configuracion(ctx)
		if err != nil {
			return nil, err
		}
		if !cfg.PermiteEfectivoNegativo {
			movs, err := s.repo.ListMovimientosSesion(ctx, sesion.ID)
			if err != nil {
				return nil, err
			}
			desglose := Reconciliar(ctx, sesion.MontoApertura, movs, s.buscarPagos)
			if desglose.EfectivoEsperado.Sub(req.Monto).IsNegative() {
				return nil, ErrEfectivoNegativo
			}
		}
	}

	mov := &model.MovimientoCaja{
		SesionCajaID: sesion.ID,
		Tipo:         req.Tipo,
		Monto:        monto,
		Descripcion:  strings.TrimSpace(req.Descripcion),
		Referencia:   req.Referencia,
		UsuarioID:    usuarioID,
	}
	if err := s.repo.CreateMovimiento(ctx, mov); err != nil {
		return nil, fmt.Errorf("no se pudo registrar el movimiento: %w", err)
	}
	resp := movimientoToResponse(*mov)
	return &resp, nil
}

func (s *cajaService) RegistrarPagoCuenta(ctx context.Context, usuarioID uuid.UUID, req dto.PagoCuentaRequest) (*dto.MovimientoCajaResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, ErrMontoInvalido
	}
	sesion, err := s.sesionAbierta(ctx)
	if err != nil {
		return nil, err
	}

	descripcion := fmt.Sprintf("Pago cuenta corriente (%s): %s", req.MetodoPago, req.Cliente)
	if req.Descripcion != nil && *req.Descripcion != "" {
		descripcion += " - " + *req.Descripcion
	}

	metodo := req.MetodoPago
	etiqueta := model.EtiquetaPagoCtaCte
	mov := &model.MovimientoCaja{
		SesionCajaID: sesion.ID,
		Tipo:         model.TipoDeposito,
		Monto:        req.Monto,
		Descripcion:  descripcion,
		MetodoPago:   &metodo,
		Etiqueta:     &etiqueta,
		UsuarioID:    usuarioID,
	}
	if err := s.repo.CreateMovimiento(ctx, mov); err != nil {
		return nil, fmt.Errorf("no se pudo registrar el pago: %w", err)
	}
	resp := movimientoToResponse(*mov)
	return &resp, nil
}

// ── Superficie para el subsistema de ventas ───────────────────────────────────

func (s *cajaService) RegistrarMovimientoVenta(ctx context.Context, usuarioID, sesionID, ventaID uuid.UUID, monto decimal.Decimal, metodo, descripcion string) error {
	if !monto.IsPositive() {
		return ErrMontoInvalido
	}
	return s.registrarMovimientoSesion(ctx, sesionID, &model.MovimientoCaja{
		SesionCajaID: sesionID,
		Tipo:         model.TipoVenta,
		Monto:        monto,
		Descripcion:  descripcion,
		MetodoPago:   &metodo,
		VentaID:      &ventaID,
		UsuarioID:    usuarioID,
	})
}

func (s *cajaService) RegistrarAnulacionVenta(ctx context.Context, usuarioID, sesionID, ventaID uuid.UUID, monto decimal.Decimal, metodo string) error {
	if monto.IsZero() {
		return ErrMontoInvalido
	}
	return s.registrarMovimientoSesion(ctx, sesionID, &model.MovimientoCaja{
		SesionCajaID: sesionID,
		Tipo:         model.TipoAnulacion,
		// reversals are stored negative, like every drawer outflow
		Monto:       monto.Abs().Neg(),
		Descripcion: "Anulación de venta",
		MetodoPago:  &metodo,
		VentaID:     &ventaID,
		UsuarioID:   usuarioID,
	})
}

// registrarMovimientoSesion appends a movement after verifying, inside the
// same transaction, that the target session is still open. The shared lock
// on the session row serializes the insert against a concurrent close, so a
// sale can never land on a session whose arqueo snapshot is already taken.
func (s *cajaService) registrarMovimientoSesion(ctx context.Context, sesionID uuid.UUID, mov *model.MovimientoCaja) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		sesion, err := s.repo.FindSesionLockTx(tx, sesionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSesionNoEncontrada
			}
			return fmt.Errorf("no se pudo verificar la sesión: %w", err)
		}
		if sesion.Estado != model.SesionAbierta {
			return ErrSinCajaAbierta
		}
		return s.repo.CreateMovimientoTx(tx, mov)
	})
}

// ── Historial y detalle ───────────────────────────────────────────────────────

func (s *cajaService) Historial(ctx context.Context, desde, hasta *time.Time, page, limit int) (*dto.HistorialCajaResponse, error) {
	page, limit = clampPaginacion(page, limit, 20)
	sesiones, total, err := s.repo.ListSesionesCerradas(ctx, desde, hasta, page, limit)
	if err != nil {
		return nil, err
	}

	items := make([]dto.HistorialCajaItem, 0, len(sesiones))
	for i := range sesiones {
		sesion := sesiones[i]
		// Recomputed with the same engine as the close, so the row always
		// agrees with its persisted arqueo.
		movs, err := s.repo.ListMovimientosSesion(ctx, sesion.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, dto.HistorialCajaItem{
			Sesion:   sesionToResponse(&sesion),
			Desglose: Reconciliar(ctx, sesion.MontoApertura, movs, s.buscarPagos),
		})
	}

	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return &dto.HistorialCajaResponse{
		Historial:  items,
		Paginacion: dto.Paginacion{Page: page, Limit: limit, Total: total, Pages: pages},
	}, nil
}

func (s *cajaService) DetalleSesion(ctx context.Context, id uuid.UUID) (*dto.DetalleSesionResponse, error) {
	sesion, err := s.repo.FindSesionByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSesionNoEncontrada
		}
		return nil, fmt.Errorf("no se pudo leer la sesión: %w", err)
	}
	movs, err := s.repo.ListMovimientosSesion(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.DetalleSesionResponse{
		Sesion:      sesionToResponse(sesion),
		Movimientos: movimientosToResponse(movs),
		Desglose:    Reconciliar(ctx, sesion.MontoApertura, movs, s.buscarPagos),
	}

	if sesion.Estado == model.SesionCerrada {
		if arqueo, err := s.repo.FindArqueoBySesion(ctx, id); err == nil {
			resp.Arqueo = &dto.ArqueoCajaResponse{
				MontoEsperado: arqueo.MontoEsperado,
				MontoContado:  arqueo.MontoContado,
				Diferencia:    arqueo.Diferencia,
				ConConteo:     arqueo.ConConteo,
				Desglose:      arqueo.Desglose,
				Notas:         arqueo.Notas,
				CreatedAt:     arqueo.CreatedAt.Format(time.RFC3339),
			}
		}
	}
	return resp, nil
}

func (s *cajaService) ListMovimientos(ctx context.Context, f repository.FiltroMovimientos) (*dto.MovimientosCajaResponse, error) {
	f.Page, f.Limit = clampPaginacion(f.Page, f.Limit, 50)
	movs, total, err := s.repo.ListMovimientos(ctx, f)
	if err != nil {
		return nil, err
	}
	pages := total / int64(f.Limit)
	if total%int64(f.Limit) != 0 {
		pages++
	}
	return &dto.MovimientosCajaResponse{
		Movimientos: movimientosToResponse(movs),
		Paginacion:  dto.Paginacion{Page: f.Page, Limit: f.Limit, Total: total, Pages: pages},
	}, nil
}

// ── Configuración ─────────────────────────────────────────────────────────────

func (s *cajaService) Configuracion(ctx context.Context) (*model.ConfigCaja, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, configCacheKey).Bytes(); err == nil {
			var c model.ConfigCaja
			if json.Unmarshal(raw, &c) == nil {
				return &c, nil
			}
		}
	}

	cfg, err := s.repo.Config(ctx)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(cfg); err == nil {
			// best-effort cache; reads fall through to the DB on a miss
			_ = s.rdb.Set(ctx, configCacheKey, raw, 5*time.Minute).Err()
		}
	}
	return cfg, nil
}

func (s *cajaService) ActualizarConfiguracion(ctx context.Context, req dto.ConfigCajaRequest) (*model.ConfigCaja, error) {
	cfg, err := s.repo.Config(ctx)
	if err != nil {
		return nil, err
	}

	if req.MontoMinimo != nil {
		if req.MontoMinimo.IsNegative() {
			return nil, ErrMontoInvalido
		}
		cfg.MontoMinimo = *req.MontoMinimo
	}
	if req.MontoMaximo != nil {
		if req.MontoMaximo.IsNegative() {
			return nil, ErrMontoInvalido
		}
		cfg.MontoMaximo = *req.MontoMaximo
	}
	if req.HoraCierre != nil {
		cfg.HoraCierre = *req.HoraCierre
	}
	if req.RequiereConteoCierre != nil {
		cfg.RequiereConteoCierre = *req.RequiereConteoCierre
	}
	if req.PermiteEfectivoNegativo != nil {
		cfg.PermiteEfectivoNegativo = *req.PermiteEfectivoNegativo
	}

	if err := s.repo.UpdateConfig(ctx, cfg); err != nil {
		return nil, err
	}
	if s.rdb != nil {
		_ = s.rdb.Del(ctx, configCacheKey).Err()
	}
	return cfg, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// clampPaginacion bounds caller-supplied paging so page math (offsets and the
// total/limit division) is always defined, regardless of transport.
func clampPaginacion(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = defaultLimit
	}
	return page, limit
}

func sesionToResponse(s *model.SesionCaja) dto.SesionCajaResponse {
	resp := dto.SesionCajaResponse{
		ID:            s.ID.String(),
		MontoApertura: s.MontoApertura,
		MontoCierre:   s.MontoCierre,
		MontoEsperado: s.MontoEsperado,
		Diferencia:    s.Diferencia,
		Estado:        s.Estado,
		AbiertaPor:    s.AbiertaPor.String(),
		NotasApertura: s.NotasApertura,
		NotasCierre:   s.NotasCierre,
		FechaApertura: s.FechaApertura.Format(time.RFC3339),
	}
	if s.CerradaPor != nil {
		cerradaPor := s.CerradaPor.String()
		resp.CerradaPor = &cerradaPor
	}
	if s.FechaCierre != nil {
		fecha := s.FechaCierre.Format(time.RFC3339)
		resp.FechaCierre = &fecha
	}
	return resp
}

func movimientoToResponse(m model.MovimientoCaja) dto.MovimientoCajaResponse {
	resp := dto.MovimientoCajaResponse{
		ID:          m.ID.String(),
		SesionID:    m.SesionCajaID.String(),
		Tipo:        m.Tipo,
		Monto:       m.Monto,
		Descripcion: m.Descripcion,
		MetodoPago:  m.MetodoPago,
		Referencia:  m.Referencia,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
	if m.VentaID != nil {
		ventaID := m.VentaID.String()
		resp.VentaID = &ventaID
	}
	return resp
}

func movimientosToResponse(movs []model.MovimientoCaja) []dto.MovimientoCajaResponse {
	out := make([]dto.MovimientoCajaResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, movimientoToResponse(m))
	}
	return out
}
