package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-grocery/internal/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.RunMigrations(dbURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	queries := db.New(pool)

	seedStores(ctx, queries)
	seedItems(ctx, queries)
	seedPrices(ctx, queries)

	log.Println("Seeding completed successfully!")
}

func seedStores(ctx context.Context, q *db.Queries) {
	lat := func(f float64) *float64 { return &f }
	stores := []db.UpsertStoreParams{
		{ID: "fresh-mart", Name: "Fresh Mart", Address: "12 Market Street", Lat: lat(52.5200), Lng: lat(13.4050)},
		{ID: "green-grocer", Name: "Green Grocer", Address: "4 Elm Avenue", Lat: lat(52.5310), Lng: lat(13.3840)},
		{ID: "budget-basket", Name: "Budget Basket", Address: "88 Long Road", Lat: lat(52.4890), Lng: lat(13.4250)},
		{ID: "corner-deli", Name: "Corner Deli", Address: "1 Short Lane"},
	}
	for _, s := range stores {
		if err := q.UpsertStore(ctx, s); err != nil {
			log.Fatalf("Failed to seed store %s: %v", s.ID, err)
		}
	}
	log.Printf("Seeded %d stores", len(stores))
}

func seedItems(ctx context.Context, q *db.Queries) {
	items := []db.UpsertItemParams{
		{ID: "whole-milk-1l", Name: "Whole Milk 1L", Brand: "DairyBest", Barcode: "4000521000011", Category: "dairy"},
		{ID: "eggs-dozen", Name: "Free Range Eggs (12)", Brand: "Happy Hen", Barcode: "4000521000028", Category: "dairy"},
		{ID: "sourdough-loaf", Name: "Sourdough Loaf", Brand: "Stonebake", Barcode: "4000521000035", Category: "bakery"},
		{ID: "bananas-1kg", Name: "Bananas 1kg", Category: "produce"},
		{ID: "tomatoes-500g", Name: "Tomatoes 500g", Category: "produce"},
		{ID: "spaghetti-500g", Name: "Spaghetti 500g", Brand: "Casa Nostra", Barcode: "4000521000059", Category: "pantry"},
		{ID: "olive-oil-750ml", Name: "Olive Oil 750ml", Brand: "Oliva", Barcode: "4000521000066", Category: "pantry"},
		{ID: "ground-coffee-250g", Name: "Ground Coffee 250g", Brand: "Morning Roast", Barcode: "4000521000073", Category: "beverages"},
	}
	for _, it := range items {
		if err := q.UpsertItem(ctx, it); err != nil {
			log.Fatalf("Failed to seed item %s: %v", it.ID, err)
		}
	}
	log.Printf("Seeded %d items", len(items))
}

func seedPrices(ctx context.Context, q *db.Queries) {
	prices := []db.UpsertPriceParams{
		{ItemID: "whole-milk-1l", StoreID: "fresh-mart", PriceCents: 129, Unit: "1L"},
		{ItemID: "whole-milk-1l", StoreID: "green-grocer", PriceCents: 119, Unit: "1L"},
		{ItemID: "whole-milk-1l", StoreID: "budget-basket", PriceCents: 99, Unit: "1L", IsDeal: true},
		{ItemID: "eggs-dozen", StoreID: "fresh-mart", PriceCents: 349, Unit: "12pc"},
		{ItemID: "eggs-dozen", StoreID: "budget-basket", PriceCents: 299, Unit: "12pc"},
		{ItemID: "sourdough-loaf", StoreID: "fresh-mart", PriceCents: 420, Unit: "800g"},
		{ItemID: "sourdough-loaf", StoreID: "corner-deli", PriceCents: 390, Unit: "800g"},
		{ItemID: "bananas-1kg", StoreID: "green-grocer", PriceCents: 159, Unit: "1kg"},
		{ItemID: "bananas-1kg", StoreID: "budget-basket", PriceCents: 139, Unit: "1kg"},
		{ItemID: "tomatoes-500g", StoreID: "green-grocer", PriceCents: 249, Unit: "500g"},
		{ItemID: "spaghetti-500g", StoreID: "budget-basket", PriceCents: 89, Unit: "500g"},
		{ItemID: "spaghetti-500g", StoreID: "fresh-mart", PriceCents: 135, Unit: "500g"},
		{ItemID: "olive-oil-750ml", StoreID: "fresh-mart", PriceCents: 799, Unit: "750ml"},
		{ItemID: "olive-oil-750ml", StoreID: "green-grocer", PriceCents: 749, Unit: "750ml", IsDeal: true},
		{ItemID: "ground-coffee-250g", StoreID: "corner-deli", PriceCents: 549, Unit: "250g"},
	}
	for _, p := range prices {
		p.Source = "manual"
		if _, err := q.UpsertPrice(ctx, p); err != nil {
			log.Fatalf("Failed to seed price %s@%s: %v", p.ItemID, p.StoreID, err)
		}
	}
	log.Printf("Seeded %d prices", len(prices))
}
