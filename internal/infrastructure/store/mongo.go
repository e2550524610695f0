package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foodfacts/scraper/internal/domain"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoConnectTimeout = 10 * time.Second

// MongoRepository stores products as documents, one per barcode
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     zerolog.Logger
}

// NewMongoRepository connects to MongoDB and ensures a unique barcode index
func NewMongoRepository(ctx context.Context, uri, database, collection string, logger zerolog.Logger) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect mongo: %v", domain.ErrStoreUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping mongo: %v", domain.ErrStoreUnavailable, err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: domain.FieldBarcode, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: create barcode index: %v", domain.ErrStoreUnavailable, err)
	}

	logger.Info().Str("database", database).Str("collection", collection).Msg("store ready")
	return &MongoRepository{client: client, collection: coll, logger: logger}, nil
}

// Upsert replaces the fields of the document whose key field matches the
// record, inserting it when absent
func (r *MongoRepository) Upsert(ctx context.Context, record *domain.ProductRecord, key string) error {
	value, err := upsertKeyValue(record, key)
	if err != nil {
		return err
	}
	if value == "" {
		return nil
	}

	update := bson.M{
		"$set":         record,
		"$currentDate": bson.M{"updated_at": true},
		"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{key: value}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s=%s: %w", key, value, err)
	}
	return nil
}

// All returns every product in insertion order
func (r *MongoRepository) All(ctx context.Context) ([]domain.ProductRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 0})

	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	var records []domain.ProductRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return records, nil
}

// Get returns the product with barcode or domain.ErrProductNotFound
func (r *MongoRepository) Get(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	var record domain.ProductRecord
	err := r.collection.FindOne(ctx, bson.M{domain.FieldBarcode: barcode}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", barcode, err)
	}
	return &record, nil
}

// Close disconnects the client
func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
