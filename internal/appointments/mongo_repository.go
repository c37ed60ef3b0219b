package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the Mongo collection holding appointments.
const CollectionName = "appointments"

// MongoRepository stores appointments as documents keyed by their id.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoRepository uses the appointments collection of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	if db == nil {
		panic("appointments: mongo database required")
	}
	return newMongoRepositoryWithCollection(db.Collection(CollectionName))
}

func newMongoRepositoryWithCollection(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureIndexes creates the unique slot indexes and the createdAt sort index.
// doctorRef is absent on bookings without a doctor email, so its index is
// partial.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "bookingRef", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_booking_ref"),
		},
		{
			Keys: bson.D{{Key: "doctorRef", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_doctor_ref").
				SetPartialFilterExpression(bson.M{"doctorRef": bson.M{"$exists": true}}),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("created_at_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("appointments: create indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, appt *Appointment) error {
	now := r.now()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, appt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	var appt Appointment
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: find failed: %w", err)
	}
	return &appt, nil
}

func (r *MongoRepository) List(ctx context.Context) ([]*Appointment, error) {
	cursor, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	out := []*Appointment{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("appointments: decode list: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (*Appointment, error) {
	var appt Appointment
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: delete failed: %w", err)
	}
	return &appt, nil
}

func (r *MongoRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("appointments: count failed: %w", err)
	}
	return n, nil
}

func (r *MongoRepository) ExistsByBookingRef(ctx context.Context, ref string) (bool, error) {
	filter := bson.M{"$or": bson.A{bson.M{"bookingRef": ref}, bson.M{"doctorRef": ref}}}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("appointments: booking ref lookup failed: %w", err)
	}
	return n > 0, nil
}

var _ Repository = (*MongoRepository)(nil)
