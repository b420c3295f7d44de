package gotable

import (
	"context"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

// GormProfileStore keeps profiles in the tableview_profile table.
type GormProfileStore struct {
	db *gorm.DB
}

// NewGormProfileStore returns a store over db. Unique index violations are
// reported as ErrDuplicateDefaultProfile on MySQL, PostgreSQL and SQLite,
// whether or not db translates errors.
func NewGormProfileStore(db *gorm.DB) *GormProfileStore {
	return &GormProfileStore{db: db}
}

// Migrate creates or updates the profile table and its indexes.
func (s *GormProfileStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Profile{}); err != nil {
		return fmt.Errorf("migrate profiles: %w", err)
	}

	return nil
}

// Get - implements ProfileStore.
func (s *GormProfileStore) Get(ctx context.Context, q ProfileQuery) (*Profile, error) {
	var p Profile
	err := s.scope(ctx, q).Order("id").Limit(1).Find(&p).Error
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if p.ID == 0 {
		return nil, nil
	}

	return &p, nil
}

// GetOrCreate - implements ProfileStore.
func (s *GormProfileStore) GetOrCreate(ctx context.Context, q ProfileQuery, dump string) (*Profile, bool, error) {
	p, err := s.Get(ctx, q)
	if err != nil || p != nil {
		return p, false, err
	}

	created := q.newProfile()
	created.Dump = dump
	if err = s.db.WithContext(ctx).Create(&created).Error; err != nil {
		return nil, false, fmt.Errorf("create profile: %w", s.translate(err))
	}

	return &created, true, nil
}

// Save - implements ProfileStore.
func (s *GormProfileStore) Save(ctx context.Context, p *Profile) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return fmt.Errorf("save profile %d: %w", p.ID, s.translate(err))
	}

	return nil
}

// List - implements ProfileStore.
func (s *GormProfileStore) List(ctx context.Context, q ProfileQuery) ([]Profile, error) {
	var ret []Profile
	if err := s.scope(ctx, q).Order("label").Order("id").Find(&ret).Error; err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	return ret, nil
}

// Delete - implements ProfileStore.
func (s *GormProfileStore) Delete(ctx context.Context, q ProfileQuery) (int64, error) {
	res := s.scope(ctx, q).Delete(&Profile{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete profiles: %w", res.Error)
	}

	return res.RowsAffected, nil
}

// translate marks unique index violations with ErrDuplicateDefaultProfile.
func (s *GormProfileStore) translate(err error) error {
	if isDuplicateKey(s.db, err) {
		return fmt.Errorf("%w: %w", ErrDuplicateDefaultProfile, err)
	}

	return err
}

func isDuplicateKey(db *gorm.DB, err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	if translator, ok := db.Dialector.(gorm.ErrorTranslator); ok && errors.Is(translator.Translate(err), gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	return false
}

func (s *GormProfileStore) scope(ctx context.Context, q ProfileQuery) *gorm.DB {
	db := s.db.WithContext(ctx).Model(&Profile{})

	if q.ID != 0 {
		db = db.Where("id = ?", q.ID)
	}

	if q.TableViewName != "" {
		db = db.Where("tableview_name = ?", q.TableViewName)
	}

	switch q.Owner {
	case OwnerGlobal:
		db = db.Where("user_id IS NULL")
	case OwnerUser:
		db = db.Where("user_id = ?", q.UserID)
	}

	if q.IsDefault != nil {
		db = db.Where("is_default = ?", *q.IsDefault)
	}

	if q.Label != nil {
		db = db.Where("label = ?", *q.Label)
	}

	return db
}

var _ ProfileStore = (*GormProfileStore)(nil)
