package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/ikelabs/counts_backend/config"
	"github.com/ikelabs/counts_backend/models"
	"github.com/ikelabs/counts_backend/utils"
)

// Seeds a development database with a store, a few locations and a small
// catalog so the scanner app has something to count against.
func main() {
	adminPassword := flag.String("admin-password", "changeme", "Password for the seeded admin user")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "SeedDev")

	if _, err := models.CreateUser(ctx, &models.NewUser{
		Username: "admin",
		Name:     "Administrator",
		Password: *adminPassword,
		Role:     "admin",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "seed admin: %v\n", err)
	}

	store, err := models.CreateStore(ctx, &models.NewStore{
		Name:           "Demo Store",
		Code:           "DEMO",
		CovaLocationId: "cova-demo-1",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed store: %v\n", err)
		os.Exit(1)
	}

	locations := []models.NewLocation{
		{Code: "FLOOR", Name: "Sales Floor", SortOrder: 1},
		{Code: "VAULT", Name: "Vault", SortOrder: 2, RequiresDoubleScan: true},
		{Code: "FLOWER", Name: "Flower Shelf", SortOrder: 3, CategoryFilter: "Flower"},
	}
	for i := range locations {
		if _, err := models.CreateLocation(ctx, store.ID, &locations[i]); err != nil {
			fmt.Fprintf(os.Stderr, "seed location %s: %v\n", locations[i].Code, err)
		}
	}

	products := []models.NewProduct{
		{Sku: "FL-001", CovaSku: "CV-FL-001", Name: "Blue Dream 3.5g", Category: "Flower", Subcategory: "Hybrid",
			CostPrice: decimal.NewFromFloat(12.50), RetailPrice: decimal.NewFromFloat(29.99)},
		{Sku: "FL-002", CovaSku: "CV-FL-002", Name: "OG Kush 3.5g", Category: "Flower", Subcategory: "Indica",
			CostPrice: decimal.NewFromFloat(13.00), RetailPrice: decimal.NewFromFloat(31.99)},
		{Sku: "ED-001", CovaSku: "CV-ED-001", Name: "Gummy Bears 10pk", Category: "Edibles",
			CostPrice: decimal.NewFromFloat(6.00), RetailPrice: decimal.NewFromFloat(15.99)},
	}
	for i := range products {
		product, err := models.CreateProduct(ctx, &products[i])
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed product %s: %v\n", products[i].Sku, err)
			continue
		}
		if _, err := models.UpsertInventoryItem(ctx, store.ID, product.ID, 10,
			product.CostPrice, product.RetailPrice); err != nil {
			fmt.Fprintf(os.Stderr, "seed inventory %s: %v\n", product.Sku, err)
		}
	}

	fmt.Println("seed complete: store", store.Code, "id", store.ID)
}
