package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/pkg/metrics"
)

const ordersCollection = "orders"

// OrderRepository handles MongoDB operations for Order.
type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(ordersCollection)}
}

// EnsureIndexes creates the lookup indexes the dashboard queries rely on.
func (r *OrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "orderTime", Value: -1}}},
		{Keys: bson.D{{Key: "customerName", Value: 1}}},
	})
	return err
}

// Create persists a new order and fills in its ObjectID and timestamps.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	defer metrics.ObserveDB(ordersCollection, "insert", time.Now())

	now := time.Now()
	o.ID = primitive.NewObjectID()
	o.CreatedAt, o.UpdatedAt = now, now

	if _, err := r.col.InsertOne(ctx, o); err != nil {
		o.ID = primitive.NilObjectID
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// FindByID looks an order up by its hex ObjectID. Malformed ids are reported
// as ErrNotFound.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	defer metrics.ObserveDB(ordersCollection, "find_one", time.Now())

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var o models.Order
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

// List returns one page of orders matching f, newest first, and the total
// number of matches.
func (r *OrderRepository) List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	defer metrics.ObserveDB(ordersCollection, "find", time.Now())

	query := orderQuery(f)
	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "orderTime", Value: -1}})
	if f.Limit > 0 {
		skip := (int64(max(f.Page, 1)) - 1) * int64(f.Limit)
		if skip < 0 || (f.Page > 1 && skip/int64(f.Limit) != int64(f.Page-1)) {
			return []models.Order{}, total, nil
		}
		opts.SetLimit(int64(f.Limit)).SetSkip(skip)
	}

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find orders: %w", err)
	}
	orders := make([]models.Order, 0)
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus overwrites the status and returns the updated order together
// with the status it replaced.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) (*models.Order, models.OrderStatus, error) {
	defer metrics.ObserveDB(ordersCollection, "update", time.Now())

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, "", ErrNotFound
	}

	update := bson.M{"$set": bson.M{"status": status, "statusUpdatedAt": at, "updatedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var o models.Order
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("update order status: %w", err)
	}

	previous := o.Status
	o.Status, o.StatusUpdatedAt, o.UpdatedAt = status, at, at
	return &o, previous, nil
}

// Delete removes an order and returns the deleted document.
func (r *OrderRepository) Delete(ctx context.Context, id string) (*models.Order, error) {
	defer metrics.ObserveDB(ordersCollection, "delete", time.Now())

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var o models.Order
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete order: %w", err)
	}
	return &o, nil
}

// Stats computes the dashboard counters in a single $facet aggregation.
// Orders placed in [dayStart, dayEnd) count as today's.
func (r *OrderRepository) Stats(ctx context.Context, dayStart, dayEnd time.Time) (models.OrderStats, error) {
	defer metrics.ObserveDB(ordersCollection, "aggregate", time.Now())

	today := bson.M{"orderTime": bson.M{"$gte": dayStart, "$lt": dayEnd}}
	sumTotal := bson.M{"$group": bson.M{"_id": nil, "n": bson.M{"$sum": 1}, "revenue": bson.M{"$sum": "$total"}}}

	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"all":      bson.A{sumTotal},
			"today":    bson.A{bson.M{"$match": today}, sumTotal},
			"byStatus": bson.A{bson.M{"$group": bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return models.OrderStats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	defer cur.Close(ctx)

	type bucket struct {
		ID      string  `bson:"_id"`
		N       int64   `bson:"n"`
		Revenue float64 `bson:"revenue"`
	}
	var out []struct {
		All      []bucket `bson:"all"`
		Today    []bucket `bson:"today"`
		ByStatus []bucket `bson:"byStatus"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return models.OrderStats{}, fmt.Errorf("decode stats: %w", err)
	}

	var s models.OrderStats
	if len(out) == 0 {
		return s, nil
	}
	if all := out[0].All; len(all) > 0 {
		s.TotalOrders, s.TotalRevenue = all[0].N, all[0].Revenue
	}
	if t := out[0].Today; len(t) > 0 {
		s.TodayOrders, s.TodayRevenue = t[0].N, t[0].Revenue
	}
	for _, b := range out[0].ByStatus {
		switch models.OrderStatus(b.ID) {
		case models.StatusPending:
			s.PendingOrders = b.N
		case models.StatusInProgress:
			s.InProgressOrders = b.N
		case models.StatusReady:
			s.ReadyOrders = b.N
		case models.StatusDelivered:
			s.DeliveredOrders = b.N
		}
	}
	return s, nil
}

// Latest returns the most recently placed order.
func (r *OrderRepository) Latest(ctx context.Context) (*models.Order, error) {
	defer metrics.ObserveDB(ordersCollection, "find_one", time.Now())

	opts := options.FindOne().SetSort(bson.D{{Key: "orderTime", Value: -1}})
	var o models.Order
	if err := r.col.FindOne(ctx, bson.M{}, opts).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find latest order: %w", err)
	}
	return &o, nil
}

// orderQuery translates a filter into a Mongo query document.
func orderQuery(f models.OrderFilter) bson.M {
	q := bson.M{}
	switch {
	case f.Status != "":
		q["status"] = f.Status
	case f.ExcludeStatus != "":
		q["status"] = bson.M{"$ne": f.ExcludeStatus}
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"customerName": pattern},
			bson.M{"orderId": pattern},
		}
	}
	window := bson.M{}
	if !f.From.IsZero() {
		window["$gte"] = f.From
	}
	if !f.To.IsZero() {
		window["$lt"] = f.To
	}
	if len(window) > 0 {
		q["orderTime"] = window
	}
	return q
}
