package service

import (
	"context"
	"strings"

	"github.com/malevo2026ma-wq/backend/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Rubro is the semantic bucket a ledger movement contributes to.
type Rubro string

const (
	RubroVentaEfectivo       Rubro = "ventas_efectivo"
	RubroVentaTarjeta        Rubro = "ventas_tarjeta"
	RubroVentaTransferencia  Rubro = "ventas_transferencia"
	RubroDepositoNormal      Rubro = "depositos_normales"
	RubroPagoCtaCteEfectivo  Rubro = "pagos_cta_cte_efectivo"
	RubroPagoCtaCteTarjeta   Rubro = "pagos_cta_cte_tarjeta"
	RubroPagoCtaCteTransfer  Rubro = "pagos_cta_cte_transferencia"
	RubroRetiro              Rubro = "retiros"
	RubroGasto               Rubro = "gastos"
	RubroApertura            Rubro = "apertura"
	RubroCierre              Rubro = "cierre"
	RubroDesconocido         Rubro = "desconocido"
)

// EntradaCaja is one classified contribution of a movement.
// Monto is signed: negative entries reduce their bucket (reversals) and,
// when AfectaEfectivo, reduce the physical drawer.
type EntradaCaja struct {
	Rubro          Rubro
	Monto          decimal.Decimal
	AfectaEfectivo bool
}

// BuscarPagosVenta resolves the payment split of a multi-method sale.
// Lookups are idempotent point reads keyed by sale id.
type BuscarPagosVenta func(ctx context.Context, ventaID uuid.UUID) ([]model.VentaPago, error)

// Substrings that historically marked a deposit as a customer-account
// settlement. Kept only as a fallback for rows created before the
// explicit Etiqueta tag existed.
var frasesPagoCuenta = []string{
	"cuenta corriente",
	"pago cuenta",
	"cta cte",
	"cta. cte",
}

// ClasificarMovimiento maps one ledger movement to its semantic buckets.
// Pure and deterministic for a given movement and split lookup; the same
// movement always yields the same entries no matter the call site.
//
// Precedence:
//  1. opening/closing are bookkeeping — excluded from every aggregate.
//  2. sales bucket by payment method; "multiple" resolves the real split.
//  3. deposits split into account settlements vs. ordinary inflows.
//  4. withdrawals/expenses always drain the drawer.
//  5. cancellations reverse the original sale's buckets with negative sign.
//
// Anything unrecognized becomes RubroDesconocido: logged, excluded from
// totals, never silently treated as cash.
func ClasificarMovimiento(ctx context.Context, mov model.MovimientoCaja, buscarPagos BuscarPagosVenta) []EntradaCaja {
	switch mov.Tipo {
	case model.TipoApertura:
		return []EntradaCaja{{Rubro: RubroApertura, Monto: mov.Monto}}
	case model.TipoCierre:
		return []EntradaCaja{{Rubro: RubroCierre, Monto: mov.Monto}}
	case model.TipoVenta:
		return clasificarVenta(ctx, mov, buscarPagos)
	case model.TipoDeposito:
		return clasificarDeposito(mov)
	case model.TipoRetiro:
		return []EntradaCaja{{Rubro: RubroRetiro, Monto: mov.Monto.Abs().Neg(), AfectaEfectivo: true}}
	case model.TipoGasto:
		return []EntradaCaja{{Rubro: RubroGasto, Monto: mov.Monto.Abs().Neg(), AfectaEfectivo: true}}
	case model.TipoAnulacion:
		return clasificarAnulacion(ctx, mov, buscarPagos)
	default:
		log.Warn().Str("movimiento_id", mov.ID.String()).Str("tipo", mov.Tipo).
			Msg("tipo de movimiento no reconocido, excluido del arqueo")
		return []EntradaCaja{{Rubro: RubroDesconocido, Monto: mov.Monto}}
	}
}

func clasificarVenta(ctx context.Context, mov model.MovimientoCaja, buscarPagos BuscarPagosVenta) []EntradaCaja {
	metodo := ""
	if mov.MetodoPago != nil {
		metodo = *mov.MetodoPago
	}

	switch metodo {
	case model.MetodoCuentaCorriente, model.MetodoCredito:
		// Store-credit sales never touch the drawer; they should have been
		// filtered out of this ledger view upstream.
		log.Warn().Str("movimiento_id", mov.ID.String()).Str("metodo", metodo).
			Msg("venta a cuenta corriente en el libro de caja, excluida")
		return []EntradaCaja{{Rubro: RubroDesconocido, Monto: mov.Monto}}
	case model.MetodoMultiple:
		pagos := resolverPagos(ctx, mov, buscarPagos)
		if pagos == nil {
			// Committed history with unreadable split data: attribute the
			// whole amount to cash rather than aborting the reconciliation.
			return []EntradaCaja{{Rubro: RubroVentaEfectivo, Monto: mov.Monto, AfectaEfectivo: true}}
		}
		var entradas []EntradaCaja
		for _, p := range pagos {
			rubro, afecta, ok := rubroVenta(p.Metodo)
			if !ok {
				log.Warn().Str("venta_id", p.VentaID.String()).Str("metodo", p.Metodo).
					Msg("método no reconocido en pago múltiple, excluido")
				entradas = append(entradas, EntradaCaja{Rubro: RubroDesconocido, Monto: p.Monto})
				continue
			}
			entradas = append(entradas, EntradaCaja{Rubro: rubro, Monto: p.Monto, AfectaEfectivo: afecta})
		}
		return entradas
	default:
		rubro, afecta, ok := rubroVenta(metodo)
		if !ok {
			log.Warn().Str("movimiento_id", mov.ID.String()).Str("metodo", metodo).
				Msg("método de pago no reconocido en venta, excluido")
			return []EntradaCaja{{Rubro: RubroDesconocido, Monto: mov.Monto}}
		}
		return []EntradaCaja{{Rubro: rubro, Monto: mov.Monto, AfectaEfectivo: afecta}}
	}
}

func clasificarDeposito(mov model.MovimientoCaja) []EntradaCaja {
	if !esPagoCuenta(mov) {
		return []EntradaCaja{{Rubro: RubroDepositoNormal, Monto: mov.Monto, AfectaEfectivo: true}}
	}

	metodo := model.MetodoEfectivo
	if mov.MetodoPago != nil && *mov.MetodoPago != "" {
		metodo = *mov.MetodoPago
	}
	switch metodo {
	case model.MetodoEfectivo:
		return []EntradaCaja{{Rubro: RubroPagoCtaCteEfectivo, Monto: mov.Monto, AfectaEfectivo: true}}
	case model.MetodoTarjetaCredito, model.MetodoTarjetaDebito, model.MetodoTarjeta:
		return []EntradaCaja{{Rubro: RubroPagoCtaCteTarjeta, Monto: mov.Monto}}
	case model.MetodoTransferencia, model.MetodoTransfer:
		return []EntradaCaja{{Rubro: RubroPagoCtaCteTransfer, Monto: mov.Monto}}
	default:
		// Legacy rows sometimes carry odd methods; treat as cash, the way
		// the drawer has always balanced them.
		return []EntradaCaja{{Rubro: RubroPagoCtaCteEfectivo, Monto: mov.Monto, AfectaEfectivo: true}}
	}
}

func clasificarAnulacion(ctx context.Context, mov model.MovimientoCaja, buscarPagos BuscarPagosVenta) []EntradaCaja {
	monto := mov.Monto.Abs()
	metodo := ""
	if mov.MetodoPago != nil {
		metodo = *mov.MetodoPago
	}

	if metodo == model.MetodoMultiple {
		pagos := resolverPagos(ctx, mov, buscarPagos)
		if pagos == nil {
			return []EntradaCaja{{Rubro: RubroVentaEfectivo, Monto: monto.Neg(), AfectaEfectivo: true}}
		}
		var entradas []EntradaCaja
		for _, p := range pagos {
			rubro, afecta, ok := rubroVenta(p.Metodo)
			if !ok {
				entradas = append(entradas, EntradaCaja{Rubro: RubroDesconocido, Monto: p.Monto.Neg()})
				continue
			}
			entradas = append(entradas, EntradaCaja{Rubro: rubro, Monto: p.Monto.Neg(), AfectaEfectivo: afecta})
		}
		return entradas
	}

	rubro, afecta, ok := rubroVenta(metodo)
	if !ok {
		log.Warn().Str("movimiento_id", mov.ID.String()).Str("metodo", metodo).
			Msg("método de pago no reconocido en anulación, excluida")
		return []EntradaCaja{{Rubro: RubroDesconocido, Monto: monto.Neg()}}
	}
	return []EntradaCaja{{Rubro: rubro, Monto: monto.Neg(), AfectaEfectivo: afecta}}
}

// resolverPagos fetches the true split of a multi-method sale. Returns nil
// when the split cannot be resolved (missing sale ref, lookup failure,
// empty split) so callers can fall back to the default bucket.
func resolverPagos(ctx context.Context, mov model.MovimientoCaja, buscarPagos BuscarPagosVenta) []model.VentaPago {
	if mov.VentaID == nil || buscarPagos == nil {
		return nil
	}
	pagos, err := buscarPagos(ctx, *mov.VentaID)
	if err != nil {
		log.Warn().Err(err).Str("venta_id", mov.VentaID.String()).
			Msg("no se pudo resolver el detalle de pagos múltiples")
		return nil
	}
	if len(pagos) == 0 {
		return nil
	}
	return pagos
}

func rubroVenta(metodo string) (Rubro, bool, bool) {
	switch metodo {
	case model.MetodoEfectivo:
		return RubroVentaEfectivo, true, true
	case model.MetodoTarjetaCredito, model.MetodoTarjetaDebito, model.MetodoTarjeta:
		return RubroVentaTarjeta, false, true
	case model.MetodoTransferencia, model.MetodoTransfer:
		return RubroVentaTransferencia, false, true
	default:
		return RubroDesconocido, false, false
	}
}

// esPagoCuenta reports whether a deposit settles a customer account.
// The explicit tag wins; description matching covers historical rows.
func esPagoCuenta(mov model.MovimientoCaja) bool {
	if mov.Etiqueta != nil && *mov.Etiqueta == model.EtiquetaPagoCtaCte {
		return true
	}
	desc := strings.ToLower(mov.Descripcion)
	for _, frase := range frasesPagoCuenta {
		if strings.Contains(desc, frase) {
			return true
		}
	}
	return false
}
