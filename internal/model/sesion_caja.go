package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estado de una sesión de caja. Values match the historical DB rows.
const (
	SesionAbierta = "open"
	SesionCerrada = "closed"
)

// Tipos de movimiento de caja.
const (
	TipoApertura  = "opening"
	TipoCierre    = "closing"
	TipoVenta     = "sale"
	TipoDeposito  = "deposit"
	TipoRetiro    = "withdrawal"
	TipoGasto     = "expense"
	TipoAnulacion = "cancellation"
)

// Métodos de pago reconocidos por el clasificador.
// "tarjeta" and "transfer" are legacy aliases still present in old rows.
const (
	MetodoEfectivo        = "efectivo"
	MetodoTarjetaCredito  = "tarjeta_credito"
	MetodoTarjetaDebito   = "tarjeta_debito"
	MetodoTarjeta         = "tarjeta"
	MetodoTransferencia   = "transferencia"
	MetodoTransfer        = "transfer"
	MetodoCuentaCorriente = "cuenta_corriente"
	MetodoCredito         = "credito"
	MetodoMultiple        = "multiple"
)

// EtiquetaPagoCtaCte tags deposit movements that settle a customer account.
// Set at creation time by the customer-account flow; the classifier falls
// back to description matching only for rows older than the tag.
const EtiquetaPagoCtaCte = "pago_cuenta_corriente"

// SesionCaja is one cash-drawer shift between an open and a close event.
// Invariant: at most one row with Estado = "open" system-wide, enforced by
// a partial unique index (see infra.applySchemaPatches).
// Closing fields are written exactly once; the row is immutable afterward.
type SesionCaja struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MontoApertura decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// MontoCierre and MontoEsperado are set on close; Diferencia only when
	// the operator declared a physical count.
	MontoCierre   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MontoEsperado *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Diferencia    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Estado        string           `gorm:"type:varchar(10);not null;default:'open';index"`
	AbiertaPor    uuid.UUID        `gorm:"type:uuid;not null"`
	CerradaPor    *uuid.UUID       `gorm:"type:uuid"`
	NotasApertura *string
	NotasCierre   *string
	FechaApertura time.Time
	FechaCierre   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

// MovimientoCaja is an immutable event in the cash ledger.
// Sign convention, normalized at ingestion: Monto < 0 decreases physical
// cash (withdrawals, expenses, cancellations); never re-derived by readers.
// Movements are NEVER updated or deleted — reversals are new "cancellation"
// rows referencing the original sale.
type MovimientoCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo         string          `gorm:"type:varchar(20);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descripcion  string          `gorm:"not null"`
	MetodoPago   *string         `gorm:"type:varchar(20)"`
	// VentaID is a weak back-reference: lookup-only, no FK cascade.
	VentaID    *uuid.UUID `gorm:"type:uuid"`
	Referencia *string
	Etiqueta   *string   `gorm:"type:varchar(40)"`
	UsuarioID  uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt  time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
