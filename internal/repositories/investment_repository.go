package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/pitchfeed/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvestmentNotFound = errors.New("investment not found")

// InvestmentRepository defines the interface for investment data operations
type InvestmentRepository interface {
	CreateInvestment(ctx context.Context, inv *models.Investment) error
	GetInvestmentByID(ctx context.Context, id string) (*models.Investment, error)
	UpdateInvestment(ctx context.Context, inv *models.Investment) error
	GetInvestmentsByInvestor(ctx context.Context, investorID uint) ([]models.Investment, error)
	GetInvestmentsByPostIDs(ctx context.Context, postIDs []string) ([]models.Investment, error)
}

// PostgresInvestmentRepository implements InvestmentRepository for PostgreSQL
type PostgresInvestmentRepository struct {
	db *gorm.DB
}

// NewPostgresInvestmentRepository creates a new PostgresInvestmentRepository
func NewPostgresInvestmentRepository(db *gorm.DB) *PostgresInvestmentRepository {
	return &PostgresInvestmentRepository{db: db}
}

// CreateInvestment inserts the investment, assigning a UUID if it has none
func (r *PostgresInvestmentRepository) CreateInvestment(ctx context.Context, inv *models.Investment) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(inv).Error
}

// GetInvestmentByID retrieves an investment by ID
func (r *PostgresInvestmentRepository) GetInvestmentByID(ctx context.Context, id string) (*models.Investment, error) {
	var inv models.Investment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// UpdateInvestment saves all fields of the investment
func (r *PostgresInvestmentRepository) UpdateInvestment(ctx context.Context, inv *models.Investment) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

// GetInvestmentsByInvestor lists an investor's investments, newest first
func (r *PostgresInvestmentRepository) GetInvestmentsByInvestor(ctx context.Context, investorID uint) ([]models.Investment, error) {
	investments := []models.Investment{}
	if err := r.db.WithContext(ctx).Where("investor_id = ?", investorID).Order("created_at desc").Find(&investments).Error; err != nil {
		return nil, err
	}
	return investments, nil
}

// GetInvestmentsByPostIDs lists investments into any of the given posts, newest first
func (r *PostgresInvestmentRepository) GetInvestmentsByPostIDs(ctx context.Context, postIDs []string) ([]models.Investment, error) {
	investments := []models.Investment{}
	if len(postIDs) == 0 {
		return investments, nil
	}
	if err := r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Order("created_at desc").Find(&investments).Error; err != nil {
		return nil, err
	}
	return investments, nil
}
