package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lastslot/account-service/internal/core/domain"
)

// RoleRepository implements ports.RoleRepository using MongoDB.
type RoleRepository struct {
	db          *mongo.Database
	profiles    *mongo.Collection
	assignments *mongo.Collection
	business    *mongo.Collection
	now         func() time.Time
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{
		db:          db,
		profiles:    db.Collection(profilesCollection),
		assignments: db.Collection(assignmentsCollection),
		business:    db.Collection(businessCollection),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *RoleRepository) ListAssignments(ctx context.Context, userID string, activeOnly bool) ([]domain.RoleAssignment, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"user_id": userID}
	if activeOnly {
		filter["is_active"] = true
	}

	cur, err := r.assignments.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list role assignments: %w", err)
	}
	defer cur.Close(ctx)

	assignments := make([]domain.RoleAssignment, 0, 2)
	if err := cur.All(ctx, &assignments); err != nil {
		return nil, fmt.Errorf("decode role assignments: %w", err)
	}
	return assignments, nil
}

func (r *RoleRepository) AddAssignment(ctx context.Context, a domain.RoleAssignment, business *domain.BusinessDetails) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return withTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		if _, err := r.assignments.InsertOne(sc, a); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrRoleAlreadyHeld
			}
			return fmt.Errorf("insert role assignment: %w", err)
		}
		if business != nil {
			return upsertBusiness(sc, r.business, business)
		}
		return nil
	})
}

// SwitchActiveRole checks the assignment and moves the profile's active role
// in one transaction, so two concurrent switches cannot leave the profile
// pointing at a role that was disabled in between.
func (r *RoleRepository) SwitchActiveRole(ctx context.Context, userID string, target domain.Role, businessName string) (domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := withTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		filter := bson.M{"user_id": userID, "role": target, "is_active": true}
		if err := r.assignments.FindOne(sc, filter).Err(); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return domain.ErrRoleNotHeld
			}
			return fmt.Errorf("find role assignment: %w", err)
		}

		now := r.now()
		if target == domain.RoleProvider && businessName != "" {
			b := &domain.BusinessDetails{UserID: userID, BusinessName: businessName, CreatedAt: now}
			if err := upsertBusiness(sc, r.business, b); err != nil {
				return err
			}
		}

		res, err := r.profiles.UpdateOne(sc,
			bson.M{"_id": userID},
			bson.M{"$set": bson.M{"active_role": target, "updated_at": now}},
		)
		if err != nil {
			return fmt.Errorf("set active role: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrProfileNotFound
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return target, nil
}

func (r *RoleRepository) FindBusiness(ctx context.Context, userID string) (*domain.BusinessDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var b domain.BusinessDetails
	if err := r.business.FindOne(ctx, bson.M{"user_id": userID}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBusinessNotFound
		}
		return nil, fmt.Errorf("find business details: %w", err)
	}
	return &b, nil
}
