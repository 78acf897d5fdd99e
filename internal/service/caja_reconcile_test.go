package service

import (
	"context"
	"math/rand"
	"testing"

	"github.com/malevo2026ma-wq/backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eq(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got)
}

// Apertura 2000, venta efectivo 500, venta tarjeta 300, retiro 100:
// esperado 2400 y la tarjeta nunca toca el cajón.
func TestReconciliarTurnoTipico(t *testing.T) {
	movs := []model.MovimientoCaja{
		mov(model.TipoApertura, 2000, ""),
		mov(model.TipoVenta, 500, model.MetodoEfectivo),
		mov(model.TipoVenta, 300, model.MetodoTarjetaCredito),
		mov(model.TipoRetiro, -100, ""),
	}

	d := Reconciliar(context.Background(), decimal.NewFromInt(2000), movs, nil)

	eq(t, 2400, d.EfectivoEsperado)
	eq(t, 500, d.VentasEfectivo)
	eq(t, 300, d.VentasTarjeta)
	eq(t, 100, d.Retiros)
	eq(t, 800, d.TotalGeneral)
	eq(t, 500, d.IngresosFisicos)
	eq(t, 100, d.EgresosFisicos)
	assert.Equal(t, 2, d.CantidadVentas)
}

// Apertura 1000, depósito normal 200, depósito "pago cuenta corriente" 150:
// ambos suman al cajón pero caen en rubros distintos.
func TestReconciliarDepositosSeparados(t *testing.T) {
	dep1 := mov(model.TipoDeposito, 200, model.MetodoEfectivo)
	dep1.Descripcion = "Depósito normal"
	dep2 := mov(model.TipoDeposito, 150, model.MetodoEfectivo)
	dep2.Descripcion = "Pago cuenta corriente cliente X"

	movs := []model.MovimientoCaja{mov(model.TipoApertura, 1000, ""), dep1, dep2}

	d := Reconciliar(context.Background(), decimal.NewFromInt(1000), movs, nil)

	eq(t, 1350, d.EfectivoEsperado)
	eq(t, 200, d.DepositosNormales)
	eq(t, 150, d.PagosCtaCteEfectivo)
	eq(t, 150, d.TotalPagosCtaCte)
	assert.Equal(t, 0, d.CantidadVentas)
}

func TestReconciliarAnulacionRevierteVenta(t *testing.T) {
	venta := mov(model.TipoVenta, 500, model.MetodoEfectivo)
	anulacion := mov(model.TipoAnulacion, -500, model.MetodoEfectivo)

	d := Reconciliar(context.Background(), decimal.NewFromInt(2000),
		[]model.MovimientoCaja{venta, anulacion}, nil)

	eq(t, 0, d.VentasEfectivo)
	eq(t, 2000, d.EfectivoEsperado)
	assert.Equal(t, 0, d.CantidadVentas)
}

func TestReconciliarVentaMultiple(t *testing.T) {
	ventaID := uuid.New()
	venta := mov(model.TipoVenta, 300, model.MetodoMultiple)
	venta.VentaID = &ventaID

	buscar := func(_ context.Context, _ uuid.UUID) ([]model.VentaPago, error) {
		return []model.VentaPago{
			{VentaID: ventaID, Metodo: model.MetodoEfectivo, Monto: decimal.NewFromInt(100)},
			{VentaID: ventaID, Metodo: model.MetodoTarjetaCredito, Monto: decimal.NewFromInt(200)},
		}, nil
	}

	d := Reconciliar(context.Background(), decimal.NewFromInt(1000),
		[]model.MovimientoCaja{venta}, buscar)

	eq(t, 100, d.VentasEfectivo)
	eq(t, 200, d.VentasTarjeta)
	// Sólo los $100 en efectivo entran al cajón.
	eq(t, 1100, d.EfectivoEsperado)
	assert.Equal(t, 1, d.CantidadVentas)
}

// El resultado no depende del orden de los movimientos: la anulación resta
// una venta aunque aparezca antes que ella en el libro.
func TestReconciliarIndependienteDelOrden(t *testing.T) {
	dep := mov(model.TipoDeposito, 150, model.MetodoEfectivo)
	dep.Descripcion = "pago cuenta corriente"
	movs := []model.MovimientoCaja{
		mov(model.TipoApertura, 2000, ""),
		mov(model.TipoVenta, 500, model.MetodoEfectivo),
		mov(model.TipoVenta, 300, model.MetodoTarjetaDebito),
		mov(model.TipoAnulacion, -300, model.MetodoTarjetaDebito),
		dep,
		mov(model.TipoRetiro, -100, ""),
		mov(model.TipoGasto, -50, ""),
	}

	base := Reconciliar(context.Background(), decimal.NewFromInt(2000), movs, nil)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		perm := make([]model.MovimientoCaja, len(movs))
		for j, k := range rng.Perm(len(movs)) {
			perm[j] = movs[k]
		}
		d := Reconciliar(context.Background(), decimal.NewFromInt(2000), perm, nil)
		assert.True(t, d.EfectivoEsperado.Equal(base.EfectivoEsperado))
		assert.True(t, d.TotalGeneral.Equal(base.TotalGeneral))
		assert.Equal(t, base.CantidadVentas, d.CantidadVentas)
	}
}

func TestReconciliarCantidadVentasNuncaNegativa(t *testing.T) {
	movs := []model.MovimientoCaja{
		mov(model.TipoAnulacion, -500, model.MetodoEfectivo),
		mov(model.TipoAnulacion, -300, model.MetodoEfectivo),
		mov(model.TipoVenta, 500, model.MetodoEfectivo),
	}

	d := Reconciliar(context.Background(), decimal.NewFromInt(2000), movs, nil)
	assert.Equal(t, 0, d.CantidadVentas)
}

func TestReconciliarMovimientosDesconocidosExcluidos(t *testing.T) {
	movs := []model.MovimientoCaja{
		mov(model.TipoVenta, 500, model.MetodoEfectivo),
		mov(model.TipoVenta, 999, "cheque"),
		mov("tipo_raro", 123, ""),
	}

	d := Reconciliar(context.Background(), decimal.NewFromInt(1000), movs, nil)

	eq(t, 500, d.VentasEfectivo)
	eq(t, 1500, d.EfectivoEsperado)
	assert.Equal(t, 2, d.MovimientosIgnorados)
}

// Dos corridas sobre el mismo libro producen el mismo desglose.
func TestReconciliarIdempotente(t *testing.T) {
	movs := []model.MovimientoCaja{
		mov(model.TipoApertura, 2000, ""),
		mov(model.TipoVenta, 500, model.MetodoEfectivo),
		mov(model.TipoRetiro, -100, ""),
	}

	a := Reconciliar(context.Background(), decimal.NewFromInt(2000), movs, nil)
	b := Reconciliar(context.Background(), decimal.NewFromInt(2000), movs, nil)

	require.True(t, a.EfectivoEsperado.Equal(b.EfectivoEsperado))
	require.True(t, a.TotalGeneral.Equal(b.TotalGeneral))
	require.Equal(t, a.CantidadVentas, b.CantidadVentas)
	require.Equal(t, a.MovimientosIgnorados, b.MovimientosIgnorados)
}

func TestReconciliarLibroVacio(t *testing.T) {
	d := Reconciliar(context.Background(), decimal.NewFromInt(2000), nil, nil)
	eq(t, 2000, d.EfectivoEsperado)
	eq(t, 0, d.TotalGeneral)
	assert.Equal(t, 0, d.CantidadVentas)
}
