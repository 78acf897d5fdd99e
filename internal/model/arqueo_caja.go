package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DesgloseCaja is the per-bucket breakdown persisted with an arqueo and
// returned by the status/close endpoints. Stored as jsonb.
type DesgloseCaja struct {
	VentasEfectivo       decimal.Decimal `json:"ventas_efectivo"`
	VentasTarjeta        decimal.Decimal `json:"ventas_tarjeta"`
	VentasTransferencia  decimal.Decimal `json:"ventas_transferencia"`
	DepositosNormales    decimal.Decimal `json:"depositos_normales"`
	PagosCtaCteEfectivo  decimal.Decimal `json:"pagos_cta_cte_efectivo"`
	PagosCtaCteTarjeta   decimal.Decimal `json:"pagos_cta_cte_tarjeta"`
	PagosCtaCteTransfer  decimal.Decimal `json:"pagos_cta_cte_transferencia"`
	Retiros              decimal.Decimal `json:"retiros"`
	Gastos               decimal.Decimal `json:"gastos"`
	TotalPagosCtaCte     decimal.Decimal `json:"total_pagos_cta_cte"`
	TotalGeneral         decimal.Decimal `json:"total_general"`
	EfectivoEsperado     decimal.Decimal `json:"efectivo_esperado"`
	IngresosFisicos      decimal.Decimal `json:"ingresos_fisicos"`
	EgresosFisicos       decimal.Decimal `json:"egresos_fisicos"`
	CantidadVentas       int             `json:"cantidad_ventas"`
	MovimientosIgnorados int             `json:"movimientos_ignorados,omitempty"`
}

func (d DesgloseCaja) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *DesgloseCaja) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("desglose_caja: cannot scan %T", src)
	}
}

// ArqueoCaja is the reconciliation snapshot written once when a session
// closes. It is never recomputed afterward; history queries that re-derive
// totals from raw movements must agree with it.
type ArqueoCaja struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID  uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	MontoEsperado decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MontoContado  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Diferencia    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ConConteo     bool            `gorm:"not null"`
	Desglose      DesgloseCaja    `gorm:"type:jsonb;not null"`
	Notas         *string
	UsuarioID     uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt     time.Time
}

func (ArqueoCaja) TableName() string { return "arqueos_caja" }
