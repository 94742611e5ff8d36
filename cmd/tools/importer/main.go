package main

import (
	"context"
	"flag"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/noah-isme/backend-grocery/internal/db"
)

// Imports the legacy Firestore collections (items, stores, prices) into
// Postgres. Safe to re-run: every write is an upsert keyed on the document ID.
func main() {
	projectID := flag.String("project", os.Getenv("FIRESTORE_PROJECT_ID"), "Firestore project ID")
	credFile := flag.String("credentials", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), "service account credentials file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	if *projectID == "" {
		log.Fatal("Firestore project ID is required (-project or FIRESTORE_PROJECT_ID)")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var clientOpts []option.ClientOption
	if *credFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(*credFile))
	}
	fs, err := firestore.NewClient(ctx, *projectID, clientOpts...)
	if err != nil {
		log.Fatalf("firestore.NewClient: %v", err)
	}
	defer fs.Close()

	if err := db.RunMigrations(dbURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	queries := db.New(pool)

	storeCount := importStores(ctx, fs, queries)
	itemCount := importItems(ctx, fs, queries)
	priceCount := importPrices(ctx, fs, queries)

	log.Printf("Import finished: %d stores, %d items, %d prices", storeCount, itemCount, priceCount)
}

func importStores(ctx context.Context, fs *firestore.Client, q *db.Queries) int {
	iter := fs.Collection("stores").Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Fatalf("iterate stores: %v", err)
		}
		data := doc.Data()
		arg := db.UpsertStoreParams{
			ID:      doc.Ref.ID,
			Name:    stringField(data, "name"),
			Address: stringField(data, "address"),
		}
		if lat, ok := floatField(data, "lat"); ok {
			if lng, ok := floatField(data, "lng"); ok {
				arg.Lat = &lat
				arg.Lng = &lng
			}
		}
		if arg.Name == "" {
			log.Printf("Skipping store %s: missing name", doc.Ref.ID)
			continue
		}
		if err := q.UpsertStore(ctx, arg); err != nil {
			log.Fatalf("upsert store %s: %v", doc.Ref.ID, err)
		}
		count++
	}
	return count
}

func importItems(ctx context.Context, fs *firestore.Client, q *db.Queries) int {
	iter := fs.Collection("items").Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Fatalf("iterate items: %v", err)
		}
		data := doc.Data()
		arg := db.UpsertItemParams{
			ID:       doc.Ref.ID,
			Name:     stringField(data, "name"),
			Brand:    stringField(data, "brand"),
			Barcode:  stringField(data, "barcode"),
			ImageURL: stringField(data, "imageUrl"),
			Category: stringField(data, "category"),
		}
		if arg.Name == "" {
			log.Printf("Skipping item %s: missing name", doc.Ref.ID)
			continue
		}
		if err := q.UpsertItem(ctx, arg); err != nil {
			log.Fatalf("upsert item %s: %v", doc.Ref.ID, err)
		}
		count++
	}
	return count
}

// importPrices reads price docs whose IDs follow the legacy
// "<itemID>_<storeID>" convention and falls back to explicit fields.
func importPrices(ctx context.Context, fs *firestore.Client, q *db.Queries) int {
	iter := fs.Collection("prices").Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Fatalf("iterate prices: %v", err)
		}
		data := doc.Data()
		itemID := stringField(data, "itemId")
		storeID := stringField(data, "storeId")
		if itemID == "" || storeID == "" {
			if parts := strings.SplitN(doc.Ref.ID, "_", 2); len(parts) == 2 {
				itemID, storeID = parts[0], parts[1]
			}
		}
		if itemID == "" || storeID == "" {
			log.Printf("Skipping price %s: cannot determine item/store", doc.Ref.ID)
			continue
		}

		price, ok := floatField(data, "price")
		if !ok || price < 0 {
			log.Printf("Skipping price %s: missing price", doc.Ref.ID)
			continue
		}
		arg := db.UpsertPriceParams{
			ItemID:     itemID,
			StoreID:    storeID,
			PriceCents: int64(math.Round(price * 100)),
			Unit:       stringField(data, "unit"),
			IsDeal:     boolField(data, "isDeal"),
			Source:     "manual",
		}
		if _, err := q.UpsertPrice(ctx, arg); err != nil {
			log.Fatalf("upsert price %s: %v", doc.Ref.ID, err)
		}
		count++
	}
	return count
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func floatField(data map[string]interface{}, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func boolField(data map[string]interface{}, key string) bool {
	v, _ := data[key].(bool)
	return v
}
