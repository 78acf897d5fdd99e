//go:build integration

package repository

// Integration tests against a real Postgres via testcontainers.
// Run with: go test -tags integration ./internal/repository/... -v

import (
	"context"
	"testing"
	"time"

	"github.com/malevo2026ma-wq/backend/internal/infra"
	"github.com/malevo2026ma-wq/backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("caja_test"),
		tcPostgres.WithUsername("caja"),
		tcPostgres.WithPassword("caja"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := infra.NewDatabase(pgURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	return db
}

func abrirSesion(t *testing.T, db *gorm.DB, repo CajaRepository, monto int64) *model.SesionCaja {
	t.Helper()
	s := &model.SesionCaja{
		MontoApertura: decimal.NewFromInt(monto),
		Estado:        model.SesionAbierta,
		AbiertaPor:    uuid.New(),
		FechaApertura: time.Now(),
	}
	require.NoError(t, repo.CreateSesionTx(db, s))
	return s
}

func TestIndiceParcialSesionAbiertaUnica(t *testing.T) {
	db := setupDB(t)
	repo := NewCajaRepository(db)

	abrirSesion(t, db, repo, 2000)

	// El índice parcial rechaza la segunda fila abierta.
	segunda := &model.SesionCaja{
		MontoApertura: decimal.NewFromInt(1000),
		Estado:        model.SesionAbierta,
		AbiertaPor:    uuid.New(),
		FechaApertura: time.Now(),
	}
	err := repo.CreateSesionTx(db, segunda)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uni_sesiones_caja_abierta")

	// Cerrada la primera, una nueva apertura vuelve a pasar.
	primera, err := repo.FindSesionAbierta(context.Background())
	require.NoError(t, err)
	primera.Estado = model.SesionCerrada
	require.NoError(t, repo.CerrarSesionTx(db, primera))

	require.NoError(t, repo.CreateSesionTx(db, segunda))
}

func TestLibroExcluyeVentasCuentaCorriente(t *testing.T) {
	db := setupDB(t)
	repo := NewCajaRepository(db)
	sesion := abrirSesion(t, db, repo, 2000)
	ctx := context.Background()

	metodoEfectivo := model.MetodoEfectivo
	metodoCtaCte := model.MetodoCuentaCorriente
	usuario := uuid.New()

	require.NoError(t, repo.CreateMovimiento(ctx, &model.MovimientoCaja{
		SesionCajaID: sesion.ID, Tipo: model.TipoVenta,
		Monto: decimal.NewFromInt(500), Descripcion: "Venta efectivo",
		MetodoPago: &metodoEfectivo, UsuarioID: usuario,
	}))
	require.NoError(t, repo.CreateMovimiento(ctx, &model.MovimientoCaja{
		SesionCajaID: sesion.ID, Tipo: model.TipoVenta,
		Monto: decimal.NewFromInt(800), Descripcion: "Venta fiada",
		MetodoPago: &metodoCtaCte, UsuarioID: usuario,
	}))

	movs, err := repo.ListMovimientosSesion(ctx, sesion.ID)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, "Venta efectivo", movs[0].Descripcion)

	// El listado paginado aplica el mismo filtro.
	todos, total, err := repo.ListMovimientos(ctx, FiltroMovimientos{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, todos, 1)
}

func TestConfigSiembraValoresPorDefecto(t *testing.T) {
	db := setupDB(t)
	repo := NewCajaRepository(db)
	ctx := context.Background()

	cfg, err := repo.Config(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.MontoMinimo.Equal(decimal.NewFromInt(2000)))
	assert.True(t, cfg.MontoMaximo.Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, "22:00", cfg.HoraCierre)
	assert.True(t, cfg.RequiereConteoCierre)
	assert.False(t, cfg.PermiteEfectivoNegativo)

	cfg.MontoMinimo = decimal.NewFromInt(3000)
	require.NoError(t, repo.UpdateConfig(ctx, cfg))

	releido, err := repo.Config(ctx)
	require.NoError(t, err)
	assert.True(t, releido.MontoMinimo.Equal(decimal.NewFromInt(3000)))
}

func TestArqueoDesgloseJSONB(t *testing.T) {
	db := setupDB(t)
	repo := NewCajaRepository(db)
	sesion := abrirSesion(t, db, repo, 2000)
	ctx := context.Background()

	arqueo := &model.ArqueoCaja{
		SesionCajaID:  sesion.ID,
		MontoEsperado: decimal.NewFromInt(2400),
		MontoContado:  decimal.NewFromInt(2400),
		ConConteo:     true,
		Desglose: model.DesgloseCaja{
			VentasEfectivo:   decimal.NewFromInt(500),
			VentasTarjeta:    decimal.NewFromInt(300),
			Retiros:          decimal.NewFromInt(100),
			EfectivoEsperado: decimal.NewFromInt(2400),
			CantidadVentas:   2,
		},
		UsuarioID: uuid.New(),
	}
	require.NoError(t, repo.CreateArqueoTx(db, arqueo))

	leido, err := repo.FindArqueoBySesion(ctx, sesion.ID)
	require.NoError(t, err)
	assert.True(t, leido.Desglose.VentasEfectivo.Equal(decimal.NewFromInt(500)))
	assert.True(t, leido.Desglose.EfectivoEsperado.Equal(decimal.NewFromInt(2400)))
	assert.Equal(t, 2, leido.Desglose.CantidadVentas)

	// Un segundo arqueo para la misma sesión viola la unicidad.
	err = repo.CreateArqueoTx(db, &model.ArqueoCaja{
		SesionCajaID:  sesion.ID,
		MontoEsperado: decimal.NewFromInt(1),
		MontoContado:  decimal.NewFromInt(1),
		UsuarioID:     uuid.New(),
	})
	require.Error(t, err)
}
