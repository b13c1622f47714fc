// Package migrations applies the PostgreSQL schema owned by the persistence adapters.
package migrations

import (
	"fmt"

	"gorm.io/gorm"

	orderspg "github.com/Apurer/uniform-orders-api/internal/domains/orders/adapters/persistence/postgres"
	returnspg "github.com/Apurer/uniform-orders-api/internal/domains/returns/adapters/persistence/postgres"
	settlementpg "github.com/Apurer/uniform-orders-api/internal/domains/settlement/adapters/persistence/postgres"
	stockpg "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/persistence/postgres"
)

type contextModels struct {
	name   string
	models []any
}

// Run applies the schema for every bounded context. Stock goes first because
// orders and returns reference garment/size keys it owns.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	for _, c := range schema() {
		if err := db.AutoMigrate(c.models...); err != nil {
			return fmt.Errorf("migrate %s: %w", c.name, err)
		}
	}
	return nil
}

func schema() []contextModels {
	return []contextModels{
		{name: "stock", models: stockpg.Models()},
		{name: "orders", models: orderspg.Models()},
		{name: "returns", models: returnspg.Models()},
		{name: "settlement", models: settlementpg.Models()},
	}
}
