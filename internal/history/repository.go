package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repository defines the data access interface for evaluation history
type Repository interface {
	Create(ctx context.Context, e *Evaluation) error
	List(ctx context.Context, filter ListFilter) ([]Evaluation, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PoolOptions sizes the connection pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to PostgreSQL through gorm.
func Open(dsn string, pool PoolOptions) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return db, nil
}

// GormRepository stores evaluations in PostgreSQL.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the evaluations table.
func (r *GormRepository) Migrate() error {
	if err := r.db.AutoMigrate(&Evaluation{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (r *GormRepository) Create(ctx context.Context, e *Evaluation) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	return nil
}

func (r *GormRepository) List(ctx context.Context, filter ListFilter) ([]Evaluation, error) {
	query := r.db.WithContext(ctx).Model(&Evaluation{})
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Crop != "" {
		query = query.Where("LOWER(crop) = ?", strings.ToLower(filter.Crop))
	}
	if filter.District != "" {
		query = query.Where("LOWER(district) = ?", strings.ToLower(filter.District))
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var evals []Evaluation
	if err := query.Order("created_at DESC").Find(&evals).Error; err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return evals, nil
}

func (r *GormRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Evaluation{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete evaluations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MemoryRepository keeps the most recent evaluations in memory. It backs
// the history when no database is configured.
type MemoryRepository struct {
	mu       sync.RWMutex
	evals    []Evaluation
	capacity int
}

func NewMemoryRepository(capacity int) *MemoryRepository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryRepository{capacity: capacity}
}

func (r *MemoryRepository) Create(_ context.Context, e *Evaluation) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evals = append(r.evals, *e)
	if over := len(r.evals) - r.capacity; over > 0 {
		r.evals = append([]Evaluation(nil), r.evals[over:]...)
	}
	return nil
}

func (r *MemoryRepository) List(_ context.Context, filter ListFilter) ([]Evaluation, error) {
	r.mu.RLock()
	var out []Evaluation
	for _, e := range r.evals {
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.evals[:0]
	var deleted int64
	for _, e := range r.evals {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.evals = kept
	return deleted, nil
}

func matches(e Evaluation, f ListFilter) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Crop != "" && !strings.EqualFold(e.Crop, f.Crop) {
		return false
	}
	if f.District != "" && !strings.EqualFold(e.District, f.District) {
		return false
	}
	if f.Since != nil && e.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}
