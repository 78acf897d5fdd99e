package repository

import (
	"context"
	"time"

	"github.com/malevo2026ma-wq/backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FiltroMovimientos narrows the paginated movement listing.
type FiltroMovimientos struct {
	Desde             *time.Time
	Hasta             *time.Time
	Tipo              string
	SoloSesionAbierta bool
	Page              int
	Limit             int
}

type CajaRepository interface {
	// DB exposes the underlying handle for transaction scoping; nil in
	// unit-test fakes.
	DB() *gorm.DB

	CreateSesionTx(tx *gorm.DB, s *model.SesionCaja) error
	FindSesionAbierta(ctx context.Context) (*model.SesionCaja, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	// FindSesionLockTx reads the session under FOR SHARE: movement posts
	// hold it until commit, so a close's state flip waits for them.
	FindSesionLockTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error)
	// FindSesionExclusiveTx reads under FOR UPDATE: the close takes it
	// before its snapshot so no post can slip in between aggregate and flip.
	FindSesionExclusiveTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error)
	CerrarSesionTx(tx *gorm.DB, s *model.SesionCaja) error

	CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error
	CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error
	ListMovimientosSesion(ctx context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error)
	ListMovimientosSesionTx(tx *gorm.DB, sesionID uuid.UUID) ([]model.MovimientoCaja, error)
	ListMovimientos(ctx context.Context, f FiltroMovimientos) ([]model.MovimientoCaja, int64, error)

	CreateArqueoTx(tx *gorm.DB, a *model.ArqueoCaja) error
	FindArqueoBySesion(ctx context.Context, sesionID uuid.UUID) (*model.ArqueoCaja, error)
	ListSesionesCerradas(ctx context.Context, desde, hasta *time.Time, page, limit int) ([]model.SesionCaja, int64, error)

	Config(ctx context.Context) (*model.ConfigCaja, error)
	UpdateConfig(ctx context.Context, c *model.ConfigCaja) error
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateSesionTx(tx *gorm.DB, s *model.SesionCaja) error {
	// Open-uniqueness rides on the partial unique index over
	// (estado) WHERE estado = 'open'; concurrent opens race on the insert
	// and exactly one wins.
	return tx.Create(s).Error
}

func (r *cajaRepo) FindSesionAbierta(ctx context.Context) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).Where("estado = ?", model.SesionAbierta).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionLockTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := tx.Clauses(clause.Locking{Strength: "SHARE"}).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionExclusiveTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) CerrarSesionTx(tx *gorm.DB, s *model.SesionCaja) error {
	return tx.Save(s).Error
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *cajaRepo) CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error {
	return tx.Create(m).Error
}

// ListMovimientosSesion returns the ledger view the reconciliation engine
// consumes: every movement of the session except store-credit sales, which
// never belong to the drawer.
func (r *cajaRepo) ListMovimientosSesion(ctx context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("sesion_caja_id = ?", sesionID).
		Where("NOT (tipo = ? AND metodo_pago IN ?)", model.TipoVenta,
			[]string{model.MetodoCuentaCorriente, model.MetodoCredito}).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

// ListMovimientosSesionTx is the same ledger view read inside the close
// transaction, so the aggregation sees a snapshot consistent with the
// session-state update that follows it.
func (r *cajaRepo) ListMovimientosSesionTx(tx *gorm.DB, sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := tx.
		Where("sesion_caja_id = ?", sesionID).
		Where("NOT (tipo = ? AND metodo_pago IN ?)", model.TipoVenta,
			[]string{model.MetodoCuentaCorriente, model.MetodoCredito}).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, f FiltroMovimientos) ([]model.MovimientoCaja, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MovimientoCaja{}).
		Where("NOT (tipo = ? AND metodo_pago IN ?)", model.TipoVenta,
			[]string{model.MetodoCuentaCorriente, model.MetodoCredito})

	if f.SoloSesionAbierta {
		q = q.Where("sesion_caja_id IN (?)",
			r.db.Model(&model.SesionCaja{}).Select("id").Where("estado = ?", model.SesionAbierta))
	}
	if f.Desde != nil {
		q = q.Where("created_at >= ?", *f.Desde)
	}
	if f.Hasta != nil {
		q = q.Where("created_at < ?", *f.Hasta)
	}
	if f.Tipo != "" {
		q = q.Where("tipo = ?", f.Tipo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movs []model.MovimientoCaja
	err := q.Order("created_at DESC").
		Offset((f.Page - 1) * f.Limit).Limit(f.Limit).
		Find(&movs).Error
	return movs, total, err
}

func (r *cajaRepo) CreateArqueoTx(tx *gorm.DB, a *model.ArqueoCaja) error {
	return tx.Create(a).Error
}

func (r *cajaRepo) FindArqueoBySesion(ctx context.Context, sesionID uuid.UUID) (*model.ArqueoCaja, error) {
	var a model.ArqueoCaja
	err := r.db.WithContext(ctx).First(&a, "sesion_caja_id = ?", sesionID).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *cajaRepo) ListSesionesCerradas(ctx context.Context, desde, hasta *time.Time, page, limit int) ([]model.SesionCaja, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.SesionCaja{}).Where("estado = ?", model.SesionCerrada)
	if desde != nil {
		q = q.Where("fecha_cierre >= ?", *desde)
	}
	if hasta != nil {
		q = q.Where("fecha_cierre < ?", *hasta)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sesiones []model.SesionCaja
	err := q.Order("fecha_cierre DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sesiones).Error
	return sesiones, total, err
}

// Config returns the single settings row, seeding the defaults on first use.
func (r *cajaRepo) Config(ctx context.Context) (*model.ConfigCaja, error) {
	var c model.ConfigCaja
	err := r.db.WithContext(ctx).Order("id DESC").First(&c).Error
	if err == gorm.ErrRecordNotFound {
		c = model.ConfigCaja{
			ID:                   1,
			MontoMinimo:          decimal.NewFromInt(2000),
			MontoMaximo:          decimal.NewFromInt(20000),
			HoraCierre:           "22:00",
			RequiereConteoCierre: true,
		}
		if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
			return nil, err
		}
		return &c, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cajaRepo) UpdateConfig(ctx context.Context, c *model.ConfigCaja) error {
	return r.db.WithContext(ctx).Save(c).Error
}
