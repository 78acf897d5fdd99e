package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConfigCaja is the single-row global cash configuration. The reconciliation
// engine never reads it; enforcement belongs to the session lifecycle.
type ConfigCaja struct {
	ID                      int             `gorm:"primaryKey" json:"-"`
	MontoMinimo             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:2000.00" json:"monto_minimo"`
	MontoMaximo             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:20000.00" json:"monto_maximo"`
	HoraCierre              string          `gorm:"type:varchar(5);not null;default:'22:00'" json:"hora_cierre"`
	RequiereConteoCierre    bool            `gorm:"not null;default:true" json:"requiere_conteo_cierre"`
	PermiteEfectivoNegativo bool            `gorm:"not null;default:false" json:"permite_efectivo_negativo"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

func (ConfigCaja) TableName() string { return "config_caja" }
