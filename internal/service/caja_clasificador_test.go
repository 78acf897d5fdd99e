package service

import (
	"context"
	"errors"
	"testing"

	"github.com/malevo2026ma-wq/backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mov(tipo string, monto int64, metodo string) model.MovimientoCaja {
	m := model.MovimientoCaja{
		ID:           uuid.New(),
		SesionCajaID: uuid.New(),
		Tipo:         tipo,
		Monto:        decimal.NewFromInt(monto),
		UsuarioID:    uuid.New(),
	}
	if metodo != "" {
		m.MetodoPago = &metodo
	}
	return m
}

func TestClasificarVentaPorMetodo(t *testing.T) {
	cases := []struct {
		metodo string
		rubro  Rubro
		cash   bool
	}{
		{model.MetodoEfectivo, RubroVentaEfectivo, true},
		{model.MetodoTarjetaCredito, RubroVentaTarjeta, false},
		{model.MetodoTarjetaDebito, RubroVentaTarjeta, false},
		{model.MetodoTarjeta, RubroVentaTarjeta, false},
		{model.MetodoTransferencia, RubroVentaTransferencia, false},
		{model.MetodoTransfer, RubroVentaTransferencia, false},
	}
	for _, tc := range cases {
		t.Run(tc.metodo, func(t *testing.T) {
			entradas := ClasificarMovimiento(context.Background(), mov(model.TipoVenta, 500, tc.metodo), nil)
			require.Len(t, entradas, 1)
			assert.Equal(t, tc.rubro, entradas[0].Rubro)
			assert.True(t, entradas[0].Monto.Equal(decimal.NewFromInt(500)))
			assert.Equal(t, tc.cash, entradas[0].AfectaEfectivo)
		})
	}
}

func TestClasificarVentaCuentaCorrienteExcluida(t *testing.T) {
	for _, metodo := range []string{model.MetodoCuentaCorriente, model.MetodoCredito} {
		entradas := ClasificarMovimiento(context.Background(), mov(model.TipoVenta, 800, metodo), nil)
		require.Len(t, entradas, 1)
		assert.Equal(t, RubroDesconocido, entradas[0].Rubro)
		assert.False(t, entradas[0].AfectaEfectivo)
	}
}

func TestClasificarVentaMetodoDesconocido(t *testing.T) {
	entradas := ClasificarMovimiento(context.Background(), mov(model.TipoVenta, 300, "cheque"), nil)
	require.Len(t, entradas, 1)
	assert.Equal(t, RubroDesconocido, entradas[0].Rubro)
	assert.False(t, entradas[0].AfectaEfectivo)
}

func TestClasificarVentaMultipleConDetalle(t *testing.T) {
	ventaID := uuid.New()
	m := mov(model.TipoVenta, 300, model.MetodoMultiple)
	m.VentaID = &ventaID

	buscar := func(_ context.Context, id uuid.UUID) ([]model.VentaPago, error) {
		require.Equal(t, ventaID, id)
		return []model.VentaPago{
			{VentaID: id, Metodo: model.MetodoEfectivo, Monto: decimal.NewFromInt(100)},
			{VentaID: id, Metodo: model.MetodoTarjetaCredito, Monto: decimal.NewFromInt(200)},
		}, nil
	}

	entradas := ClasificarMovimiento(context.Background(), m, buscar)
	require.Len(t, entradas, 2)
	assert.Equal(t, RubroVentaEfectivo, entradas[0].Rubro)
	assert.True(t, entradas[0].Monto.Equal(decimal.NewFromInt(100)))
	assert.True(t, entradas[0].AfectaEfectivo)
	assert.Equal(t, RubroVentaTarjeta, entradas[1].Rubro)
	assert.True(t, entradas[1].Monto.Equal(decimal.NewFromInt(200)))
	assert.False(t, entradas[1].AfectaEfectivo)
}

func TestClasificarVentaMultipleSinDetalle(t *testing.T) {
	// Unresolvable split: whole amount falls back to cash so the aggregate
	// never drops committed money.
	ventaID := uuid.New()
	m := mov(model.TipoVenta, 300, model.MetodoMultiple)
	m.VentaID = &ventaID

	buscar := func(_ context.Context, _ uuid.UUID) ([]model.VentaPago, error) {
		return nil, errors.New("lookup failed")
	}

	entradas := ClasificarMovimiento(context.Background(), m, buscar)
	require.Len(t, entradas, 1)
	assert.Equal(t, RubroVentaEfectivo, entradas[0].Rubro)
	assert.True(t, entradas[0].Monto.Equal(decimal.NewFromInt(300)))
	assert.True(t, entradas[0].AfectaEfectivo)
}

func TestClasificarDepositoNormal(t *testing.T) {
	m := mov(model.TipoDeposito, 200, model.MetodoEfectivo)
	m.Descripcion = "Depósito normal"

	entradas := ClasificarMovimiento(context.Background(), m, nil)
	require.Len(t, entradas, 1)
	assert.Equal(t, RubroDepositoNormal, entradas[0].Rubro)
	assert.True(t, entradas[0].AfectaEfectivo)
}

func TestClasificarDepositoPagoCuentaPorDescripcion(t *testing.T) {
	frases := []string{
		"Pago cuenta corriente cliente X",
		"pago cuenta Pérez",
		"saldo cta cte enero",
		"saldo CTA. CTE marzo",
	}
	for _, desc := range frases {
		t.Run(desc, func(t *testing.T) {
			m := mov(model.TipoDeposito, 150, model.MetodoEfectivo)
			m.Descripcion = desc

			entradas := ClasificarMovimiento(context.Background(), m, nil)
			require.Len(t, entradas, 1)
			assert.Equal(t, RubroPagoCtaCteEfectivo, entradas[0].Rubro)
			assert.True(t, entradas[0].AfectaEfectivo)
		})
	}
}

func TestClasificarDepositoPagoCuentaPorEtiqueta(t *testing.T) {
	// Tag wins even when the description says nothing about accounts.
	etiqueta := model.EtiquetaPagoCtaCte
	m := mov(model.TipoDeposito, 150, model.MetodoTarjetaDebito)
	m.Descripcion = "Cobro mostrador"
	m.Etiqueta = &etiqueta

	entradas := ClasificarMovimiento(context.Background(), m, nil)
	require.Len(t, entradas, 1)
	assert.Equal(t, RubroPagoCtaCteTarjeta, entradas[0].Rubro)
	assert.False(t, entradas[0].AfectaEfectivo)
}

func TestClasificarDepositoPagoCuentaTransferencia(t *testing.T) {
	m := mov(model.TipoDeposito, 400, model.MetodoTransferencia)
	m.Descripcion = "Pago cuenta corriente: García"

	entradas := ClasificarMovimiento(context.Background(), m, nil)
	require.Len(t, entradas, 1)
	assert.Equal(t, RubroPagoCtaCteTransfer, entradas[0].Rubro)
	assert.False(t, entradas[0].AfectaEfectivo)
}

func TestClasificarDepositoPagoCuentaSinMetodo(t *testing.T) {
	// No method recorded: defaults to cash, the way the drawer balances it.
	m := mov(model.TipoDeposito, 100, "")
	m.Descripcion = "pago cuenta corriente"

	entradas := ClasificarMovimiento(context.Background(), m, nil)
	require.Len(t, entradas, 1)
	assert.Equal(t, RubroPagoCtaCteEfectivo, entradas[0].Rubro)
	assert.True(t, entradas[0].AfectaEfectivo)
}

func TestClasificarRetiroYGasto(t *testing.T) {
	for _, tipo := range []string{model.TipoRetiro, model.TipoGasto} {
		t.Run(tipo, func(t *testing.T) {
			entradas := ClasificarMovimiento(context.Background(), mov(tipo, 100, ""), nil)
			require.Len(t, entradas, 1)
			assert.True(t, entradas[0].Monto.Equal(decimal.NewFromInt(-100)))
			assert.True(t, entradas[0].AfectaEfectivo)
		})
	}
}

func TestClasificarRetiroMontoYaNegativo(t *testing.T) {
	// Stored sign never flips twice: -100 and 100 classify identically.
	entradas := ClasificarMovimiento(context.Background(), mov(model.TipoRetiro, -100, ""), nil)
	require.Len(t, entradas, 1)
	assert.True(t, entradas[0].Monto.Equal(decimal.NewFromInt(-100)))
}

func TestClasificarAnulacionEfectivo(t *testing.T) {
	entradas := ClasificarMovimiento(context.Background(), mov(model.TipoAnulacion, -500, model.MetodoEfectivo), nil)
	require.Len(t, entradas, 1)
	assert.Equal(t, RubroVentaEfectivo, entradas[0].Rubro)
	assert.True(t, entradas[0].Monto.Equal(decimal.NewFromInt(-500)))
	assert.True(t, entradas[0].AfectaEfectivo)
}

func TestClasificarAnulacionMetodoDesconocido(t *testing.T) {
	// Unknown method: excluded, never guessed as cash.
	entradas := ClasificarMovimiento(context.Background(), mov(model.TipoAnulacion, 500, "cheque"), nil)
	require.Len(t, entradas, 1)
	assert.Equal(t, RubroDesconocido, entradas[0].Rubro)
	assert.False(t, entradas[0].AfectaEfectivo)
}

func TestClasificarAnulacionMultiple(t *testing.T) {
	ventaID := uuid.New()
	m := mov(model.TipoAnulacion, 300, model.MetodoMultiple)
	m.VentaID = &ventaID

	buscar := func(_ context.Context, _ uuid.UUID) ([]model.VentaPago, error) {
		return []model.VentaPago{
			{VentaID: ventaID, Metodo: model.MetodoEfectivo, Monto: decimal.NewFromInt(100)},
			{VentaID: ventaID, Metodo: model.MetodoTarjetaCredito, Monto: decimal.NewFromInt(200)},
		}, nil
	}

	entradas := ClasificarMovimiento(context.Background(), m, buscar)
	require.Len(t, entradas, 2)
	assert.True(t, entradas[0].Monto.Equal(decimal.NewFromInt(-100)))
	assert.True(t, entradas[1].Monto.Equal(decimal.NewFromInt(-200)))
}

func TestClasificarAperturaCierreSinEfecto(t *testing.T) {
	for _, tipo := range []string{model.TipoApertura, model.TipoCierre} {
		entradas := ClasificarMovimiento(context.Background(), mov(tipo, 2000, ""), nil)
		require.Len(t, entradas, 1)
		assert.False(t, entradas[0].AfectaEfectivo)
	}
}

func TestClasificarTipoDesconocido(t *testing.T) {
	entradas := ClasificarMovimiento(context.Background(), mov("transferencia_bancaria", 100, ""), nil)
	require.Len(t, entradas, 1)
	assert.Equal(t, RubroDesconocido, entradas[0].Rubro)
}
