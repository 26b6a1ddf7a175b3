package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lastslot/account-service/internal/core/domain"
)

// ProfileRepository implements ports.ProfileRepository using MongoDB. The
// profile document is keyed by the user id.
type ProfileRepository struct {
	db          *mongo.Database
	profiles    *mongo.Collection
	assignments *mongo.Collection
	business    *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{
		db:          db,
		profiles:    db.Collection(profilesCollection),
		assignments: db.Collection(assignmentsCollection),
		business:    db.Collection(businessCollection),
	}
}

func (r *ProfileRepository) FindProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p domain.Profile
	if err := r.profiles.FindOne(ctx, bson.M{"_id": userID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile writes the editable fields only. Role and active role are
// owned by the role procedures and never overwritten here.
func (r *ProfileRepository) UpdateProfile(ctx context.Context, p *domain.Profile) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"full_name":           p.FullName,
		"phone":               p.Phone,
		"location":            p.Location,
		"bio":                 p.Bio,
		"avatar_url":          p.AvatarURL,
		"business_name":       p.BusinessName,
		"is_profile_complete": p.Complete,
		"updated_at":          p.UpdatedAt,
	}}

	res, err := r.profiles.UpdateOne(ctx, bson.M{"_id": p.UserID}, update)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) CreateProfile(ctx context.Context, p *domain.Profile, a domain.RoleAssignment, business *domain.BusinessDetails) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return withTransaction(ctx, r.db, func(sc mongo.SessionContext) error {
		if _, err := r.profiles.InsertOne(sc, p); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrProfileExists
			}
			return fmt.Errorf("insert profile: %w", err)
		}

		// An assignment may predate the profile if a role was granted
		// out of band; keep it and make sure it is enabled.
		_, err := r.assignments.UpdateOne(sc,
			bson.M{"user_id": a.UserID, "role": a.Role},
			bson.M{
				"$set":         bson.M{"is_active": true},
				"$setOnInsert": bson.M{"created_at": a.CreatedAt},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("upsert role assignment: %w", err)
		}

		if business != nil {
			if err := upsertBusiness(sc, r.business, business); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertBusiness(ctx context.Context, coll *mongo.Collection, b *domain.BusinessDetails) error {
	_, err := coll.UpdateOne(ctx,
		bson.M{"user_id": b.UserID},
		bson.M{"$setOnInsert": bson.M{"business_name": b.BusinessName, "created_at": b.CreatedAt}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert business details: %w", err)
	}
	return nil
}
