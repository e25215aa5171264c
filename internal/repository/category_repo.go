package repository

import (
	"context"
	"database/sql"

	"chucheritas/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresCategoryRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresCategoryRepository(db *sql.DB, logger *logrus.Logger) domain.CategoryRepository {
	return &postgresCategoryRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresCategoryRepository) Create(ctx context.Context, description string) (*domain.Category, error) {
	c := &domain.Category{Description: description}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO categories (description) VALUES ($1) RETURNING id`, description,
	).Scan(&c.ID)
	if err != nil {
		r.log.Errorf("Repository: failed to insert category '%s': %v", description, err)
		return nil, classify("create category", err)
	}
	r.log.Infof("Repository: category created with ID %d", c.ID)
	return c, nil
}

func (r *postgresCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, description FROM categories ORDER BY description ASC`)
	if err != nil {
		r.log.Errorf("Repository: failed to list categories: %v", err)
		return nil, classify("list categories", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Description); err != nil {
			return nil, classify("list categories", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list categories", err)
	}
	return categories, nil
}

type postgresLocationRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresLocationRepository(db *sql.DB, logger *logrus.Logger) domain.LocationRepository {
	return &postgresLocationRepository{db: db, log: logger}
}

func (r *postgresLocationRepository) List(ctx context.Context) ([]domain.DeliveryLocation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, description FROM delivery_locations ORDER BY id ASC`)
	if err != nil {
		r.log.Errorf("Repository: failed to list delivery locations: %v", err)
		return nil, classify("list delivery locations", err)
	}
	defer rows.Close()

	locations := []domain.DeliveryLocation{}
	for rows.Next() {
		var l domain.DeliveryLocation
		if err := rows.Scan(&l.ID, &l.Description); err != nil {
			return nil, classify("list delivery locations", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list delivery locations", err)
	}
	return locations, nil
}
