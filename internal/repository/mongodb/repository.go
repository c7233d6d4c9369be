package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

const reportCollection = "batch_reports"

// ErrNoReport is returned when a batch has no archived report.
var ErrNoReport = errors.New("no archived report")

// Repository archives batch report snapshots.
type Repository interface {
	SaveBatchReports(ctx context.Context, reports []models.BatchReport) error
	LatestReport(ctx context.Context, livestockID uint) (*models.BatchReport, error)
}

// MongoDBRepository implements Repository on a MongoDB collection.
type MongoDBRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoDBRepository connects to MongoDB and verifies the connection.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		coll:   client.Database(dbName).Collection(reportCollection),
	}, nil
}

// SaveBatchReports inserts one document per report.
func (r *MongoDBRepository) SaveBatchReports(ctx context.Context, reports []models.BatchReport) error {
	if len(reports) == 0 {
		return nil
	}
	docs := make([]any, len(reports))
	for i := range reports {
		docs[i] = reports[i]
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert batch reports: %w", err)
	}
	return nil
}

// LatestReport returns the most recent archived report of a batch.
func (r *MongoDBRepository) LatestReport(ctx context.Context, livestockID uint) (*models.BatchReport, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "created_at", Value: -1}})
	var report models.BatchReport
	err := r.coll.FindOne(ctx, bson.M{"livestock_id": livestockID}, opts).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w for batch %d", ErrNoReport, livestockID)
	}
	if err != nil {
		return nil, fmt.Errorf("find latest report of batch %d: %w", livestockID, err)
	}
	return &report, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
