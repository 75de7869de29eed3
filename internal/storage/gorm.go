package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/eugenenazirov/carrier-rates/internal/quoting"
)

// carrierRecord is the relational shape of a carrier. Code holds the
// lowercased name and enforces case-insensitive uniqueness; the autoincrement
// primary key preserves insertion order for listing.
type carrierRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	Name           string `gorm:"not null"`
	Code           string `gorm:"uniqueIndex;not null"`
	PricePerParcel int64  `gorm:"not null"`
}

func (carrierRecord) TableName() string { return "carriers" }

// GormStorage persists carriers in a relational table.
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage migrates the carriers table and returns the store.
func NewGormStorage(db *gorm.DB) (*GormStorage, error) {
	if err := db.AutoMigrate(&carrierRecord{}); err != nil {
		return nil, fmt.Errorf("migrate carriers table: %w", err)
	}
	return &GormStorage{db: db}, nil
}

// ListCarriers returns all carriers in insertion order.
func (s *GormStorage) ListCarriers(ctx context.Context) ([]quoting.Carrier, error) {
	var records []carrierRecord
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	carriers := make([]quoting.Carrier, 0, len(records))
	for _, record := range records {
		carriers = append(carriers, quoting.Carrier{
			Name:           record.Name,
			PricePerParcel: record.PricePerParcel,
		})
	}
	return carriers, nil
}

// UpsertCarrier creates the carrier or updates the row matched by code.
func (s *GormStorage) UpsertCarrier(ctx context.Context, carrier quoting.Carrier) error {
	if err := validateCarrier(carrier); err != nil {
		return err
	}
	code := carrierCode(carrier.Name)

	var record carrierRecord
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&record).Error
	switch {
	case err == nil:
		record.Name = carrier.Name
		record.PricePerParcel = carrier.PricePerParcel
		return s.db.WithContext(ctx).Save(&record).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = carrierRecord{
			Name:           carrier.Name,
			Code:           code,
			PricePerParcel: carrier.PricePerParcel,
		}
		return s.db.WithContext(ctx).Create(&record).Error
	default:
		return err
	}
}

// DeleteCarrier removes the carrier matched case-insensitively by name.
func (s *GormStorage) DeleteCarrier(ctx context.Context, name string) error {
	res := s.db.WithContext(ctx).Where("code = ?", carrierCode(name)).Delete(&carrierRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCarrierNotFound
	}
	return nil
}
