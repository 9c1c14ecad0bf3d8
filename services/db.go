package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// createOrLoad inserts row unless a unique index already holds an equivalent one,
// as happens when two requests race to create the same record. In that case row is
// loaded with the given conditions instead. created reports which path was taken.
func createOrLoad(tx *gorm.DB, row interface{}, query string, args ...interface{}) (created bool, err error) {
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	return false, tx.Where(query, args...).First(row).Error
}
