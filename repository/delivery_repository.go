package repository

import (
	"context"
	"time"

	"github.com/lingamvamshikrishnareddy/curry/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeliveryRepository defines the interface for delivery data access.
//
// Create is backed by a unique index on orderId; a second creation for the
// same order is rejected by the store and surfaces IsDuplicate==true, which
// callers treat as "already exists, reload".
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *models.Delivery) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Delivery, error)
	FindByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Delivery, error)
	Save(ctx context.Context, delivery *models.Delivery) error
	FindNearby(ctx context.Context, lon, lat float64, maxDistanceMeters float64) ([]models.Delivery, error)
	IsDuplicate(err error) bool
}

// MongoDeliveryRepository implements DeliveryRepository on the deliveries collection.
type MongoDeliveryRepository struct {
	collection *mongo.Collection
}

func NewMongoDeliveryRepository(db *mongo.Database) *MongoDeliveryRepository {
	return &MongoDeliveryRepository{collection: db.Collection("deliveries")}
}

func (r *MongoDeliveryRepository) Create(ctx context.Context, delivery *models.Delivery) error {
	now := time.Now().UTC()
	delivery.CreatedAt = now
	delivery.UpdatedAt = now
	if delivery.ID.IsZero() {
		delivery.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, delivery)
	return err
}

func (r *MongoDeliveryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&delivery)
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *MongoDeliveryRepository) FindByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&delivery)
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *MongoDeliveryRepository) Save(ctx context.Context, delivery *models.Delivery) error {
	delivery.UpdatedAt = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": delivery.ID}, delivery)
	return err
}

// FindNearby runs a geospatial proximity query restricted to deliveries in
// Assigned or Out for Delivery status. $nearSphere returns nearest first.
func (r *MongoDeliveryRepository) FindNearby(ctx context.Context, lon, lat float64, maxDistanceMeters float64) ([]models.Delivery, error) {
	filter := bson.M{
		"status": bson.M{"$in": []models.DeliveryStatus{
			models.DeliveryAssigned,
			models.DeliveryOutForDelivery,
		}},
		"location": bson.M{
			"$nearSphere": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{lon, lat},
				},
				"$maxDistance": maxDistanceMeters,
			},
		},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var deliveries []models.Delivery
	if err = cursor.All(ctx, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *MongoDeliveryRepository) IsDuplicate(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
