package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jushkitchen/jush/app/models"
	"github.com/jushkitchen/jush/pkg/metrics"
)

const adminsCollection = "admins"

// AdminRepository handles MongoDB operations for Admin.
type AdminRepository struct {
	col *mongo.Collection
}

func NewAdminRepository(db *mongo.Database) *AdminRepository {
	return &AdminRepository{col: db.Collection(adminsCollection)}
}

func (r *AdminRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Count returns the number of admins.
func (r *AdminRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

// Create persists a new admin. The email is normalised to lower case.
func (r *AdminRepository) Create(ctx context.Context, a *models.Admin) error {
	defer metrics.ObserveDB(adminsCollection, "insert", time.Now())

	now := time.Now()
	a.ID = primitive.NewObjectID()
	a.Email = normalizeEmail(a.Email)
	a.CreatedAt, a.UpdatedAt = now, now

	if _, err := r.col.InsertOne(ctx, a); err != nil {
		a.ID = primitive.NilObjectID
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return r.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (r *AdminRepository) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// List returns every admin, newest first.
func (r *AdminRepository) List(ctx context.Context) ([]models.Admin, error) {
	defer metrics.ObserveDB(adminsCollection, "find", time.Now())

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find admins: %w", err)
	}
	admins := make([]models.Admin, 0)
	if err := cur.All(ctx, &admins); err != nil {
		return nil, fmt.Errorf("decode admins: %w", err)
	}
	return admins, nil
}

// Update writes the mutable fields of a back to its document.
func (r *AdminRepository) Update(ctx context.Context, a *models.Admin) error {
	defer metrics.ObserveDB(adminsCollection, "update", time.Now())

	a.UpdatedAt = time.Now()
	res, err := r.col.UpdateByID(ctx, a.ID, bson.M{"$set": bson.M{
		"name":        a.Name,
		"role":        a.Role,
		"isActive":    a.IsActive,
		"password":    a.Password,
		"lastLogin":   a.LastLogin,
		"permissions": a.Permissions,
		"updatedAt":   a.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AdminRepository) Delete(ctx context.Context, id string) error {
	defer metrics.ObserveDB(adminsCollection, "delete", time.Now())

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AdminRepository) findOne(ctx context.Context, filter bson.M) (*models.Admin, error) {
	defer metrics.ObserveDB(adminsCollection, "find_one", time.Now())

	var a models.Admin
	if err := r.col.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return &a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
