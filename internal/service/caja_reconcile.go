package service

import (
	"context"

	"github.com/malevo2026ma-wq/backend/internal/model"

	"github.com/shopspring/decimal"
)

// Reconciliar folds a ledger snapshot into the expected physical cash and
// the per-bucket breakdown. It is a pure fold: no I/O beyond the split
// lookup, and the result is identical for any ordering of the same
// movements — the mid-session status view and the close computation call
// exactly this function.
func Reconciliar(ctx context.Context, montoApertura decimal.Decimal, movimientos []model.MovimientoCaja, buscarPagos BuscarPagosVenta) model.DesgloseCaja {
	var (
		rubros      = map[Rubro]decimal.Decimal{}
		delta       decimal.Decimal
		ventas      int
		anulaciones int
		ignorados   int
	)

	for _, mov := range movimientos {
		switch mov.Tipo {
		case model.TipoVenta:
			ventas++
		case model.TipoAnulacion:
			anulaciones++
		}

		for _, e := range ClasificarMovimiento(ctx, mov, buscarPagos) {
			switch e.Rubro {
			case RubroApertura, RubroCierre:
				// bookkeeping rows, never aggregated
			case RubroDesconocido:
				ignorados++
			default:
				rubros[e.Rubro] = rubros[e.Rubro].Add(e.Monto)
				if e.AfectaEfectivo {
					delta = delta.Add(e.Monto)
				}
			}
		}
	}

	d := model.DesgloseCaja{
		VentasEfectivo:      rubros[RubroVentaEfectivo],
		VentasTarjeta:       rubros[RubroVentaTarjeta],
		VentasTransferencia: rubros[RubroVentaTransferencia],
		DepositosNormales:   rubros[RubroDepositoNormal],
		PagosCtaCteEfectivo: rubros[RubroPagoCtaCteEfectivo],
		PagosCtaCteTarjeta:  rubros[RubroPagoCtaCteTarjeta],
		PagosCtaCteTransfer: rubros[RubroPagoCtaCteTransfer],
		// Retiro/gasto entries accumulate negative; the buckets report
		// magnitudes.
		Retiros:              rubros[RubroRetiro].Neg(),
		Gastos:               rubros[RubroGasto].Neg(),
		MovimientosIgnorados: ignorados,
	}

	d.TotalPagosCtaCte = d.PagosCtaCteEfectivo.Add(d.PagosCtaCteTarjeta).Add(d.PagosCtaCteTransfer)
	d.TotalGeneral = d.VentasEfectivo.Add(d.VentasTarjeta).Add(d.VentasTransferencia).Add(d.TotalPagosCtaCte)

	// Physical cash: only cash-affecting entries move the drawer.
	// delta = ingresos − egresos; egresos are exactly the drawer outflows.
	d.EgresosFisicos = d.Retiros.Add(d.Gastos)
	d.IngresosFisicos = delta.Add(d.EgresosFisicos)
	d.EfectivoEsperado = montoApertura.Add(delta)

	// Order-independent sale count: a cancellation undoes one sale no
	// matter where it sits in the ledger, floored at zero.
	if d.CantidadVentas = ventas - anulaciones; d.CantidadVentas < 0 {
		d.CantidadVentas = 0
	}

	return d
}
