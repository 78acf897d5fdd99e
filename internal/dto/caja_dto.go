package dto

import (
	"github.com/malevo2026ma-wq/backend/internal/model"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	MontoApertura decimal.Decimal `json:"monto_apertura" validate:"min=0"`
	Notas         *string         `json:"notas"`
}

type CerrarCajaRequest struct {
	// MontoContado is the operator's physical count; required when
	// CompararConConteo is set.
	MontoContado      *decimal.Decimal `json:"monto_contado"`
	CompararConConteo bool             `json:"comparar_con_conteo"`
	Notas             *string          `json:"notas"`
}

type AjusteCajaRequest struct {
	Tipo        string          `json:"tipo"        validate:"required,oneof=deposit withdrawal expense"`
	Monto       decimal.Decimal `json:"monto"       validate:"required,gt=0"`
	Descripcion string          `json:"descripcion" validate:"required,min=5"`
	Referencia  *string         `json:"referencia"`
}

type PagoCuentaRequest struct {
	Monto       decimal.Decimal `json:"monto"        validate:"required,gt=0"`
	MetodoPago  string          `json:"metodo_pago"  validate:"required,oneof=efectivo tarjeta_credito tarjeta_debito tarjeta transferencia transfer"`
	Cliente     string          `json:"cliente"      validate:"required"`
	Descripcion *string         `json:"descripcion"`
}

type ConfigCajaRequest struct {
	MontoMinimo             *decimal.Decimal `json:"monto_minimo"              validate:"omitempty,min=0"`
	MontoMaximo             *decimal.Decimal `json:"monto_maximo"              validate:"omitempty,min=0"`
	HoraCierre              *string          `json:"hora_cierre"               validate:"omitempty,len=5"`
	RequiereConteoCierre    *bool            `json:"requiere_conteo_cierre"`
	PermiteEfectivoNegativo *bool            `json:"permite_efectivo_negativo"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionCajaResponse struct {
	ID            string           `json:"id"`
	MontoApertura decimal.Decimal  `json:"monto_apertura"`
	MontoCierre   *decimal.Decimal `json:"monto_cierre,omitempty"`
	MontoEsperado *decimal.Decimal `json:"monto_esperado,omitempty"`
	Diferencia    *decimal.Decimal `json:"diferencia,omitempty"`
	Estado        string           `json:"estado"`
	AbiertaPor    string           `json:"abierta_por"`
	CerradaPor    *string          `json:"cerrada_por,omitempty"`
	NotasApertura *string          `json:"notas_apertura,omitempty"`
	NotasCierre   *string          `json:"notas_cierre,omitempty"`
	FechaApertura string           `json:"fecha_apertura"`
	FechaCierre   *string          `json:"fecha_cierre,omitempty"`
}

type MovimientoCajaResponse struct {
	ID          string          `json:"id"`
	SesionID    string          `json:"sesion_caja_id"`
	Tipo        string          `json:"tipo"`
	Monto       decimal.Decimal `json:"monto"`
	Descripcion string          `json:"descripcion"`
	MetodoPago  *string         `json:"metodo_pago,omitempty"`
	VentaID     *string         `json:"venta_id,omitempty"`
	Referencia  *string         `json:"referencia,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

// EstadoCajaResponse is the live status view. Desglose is computed by the
// same engine the close uses, so both always agree on the same snapshot.
type EstadoCajaResponse struct {
	Sesion      *SesionCajaResponse      `json:"sesion"`
	Desglose    *model.DesgloseCaja      `json:"desglose,omitempty"`
	Movimientos []MovimientoCajaResponse `json:"movimientos"`
	Config      model.ConfigCaja         `json:"config"`
	// Alertas flags soft threshold breaches (min/max drawer amounts).
	Alertas []string `json:"alertas,omitempty"`
}

type CierreCajaResponse struct {
	Sesion        SesionCajaResponse `json:"sesion"`
	Desglose      model.DesgloseCaja `json:"desglose"`
	MontoEsperado decimal.Decimal    `json:"monto_esperado"`
	MontoContado  *decimal.Decimal   `json:"monto_contado,omitempty"`
	Diferencia    *decimal.Decimal   `json:"diferencia,omitempty"`
}

type HistorialCajaItem struct {
	Sesion   SesionCajaResponse `json:"sesion"`
	Desglose model.DesgloseCaja `json:"desglose"`
}

type Paginacion struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type HistorialCajaResponse struct {
	Historial  []HistorialCajaItem `json:"historial"`
	Paginacion Paginacion          `json:"paginacion"`
}

type ArqueoCajaResponse struct {
	MontoEsperado decimal.Decimal    `json:"monto_esperado"`
	MontoContado  decimal.Decimal    `json:"monto_contado"`
	Diferencia    decimal.Decimal    `json:"diferencia"`
	ConConteo     bool               `json:"con_conteo"`
	Desglose      model.DesgloseCaja `json:"desglose"`
	Notas         *string            `json:"notas,omitempty"`
	CreatedAt     string             `json:"created_at"`
}

type DetalleSesionResponse struct {
	Sesion      SesionCajaResponse       `json:"sesion"`
	Movimientos []MovimientoCajaResponse `json:"movimientos"`
	// Arqueo is the snapshot persisted at close; nil for open sessions.
	Arqueo *ArqueoCajaResponse `json:"arqueo,omitempty"`
	// Desglose is recomputed from the raw movements with the same engine
	// and must agree with Arqueo for closed sessions.
	Desglose model.DesgloseCaja `json:"desglose"`
}

type MovimientosCajaResponse struct {
	Movimientos []MovimientoCajaResponse `json:"movimientos"`
	Paginacion  Paginacion               `json:"paginacion"`
}
