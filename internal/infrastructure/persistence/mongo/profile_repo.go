package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

const (
	fieldCurrentMentees = "availability.currentMentees"
	fieldMaxMentees     = "availability.maxMentees"
)

// ProfileRepository implements profile.Repository on MongoDB.
type ProfileRepository struct {
	conn    *Connection
	mentors *mongo.Collection
	mentees *mongo.Collection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{
		conn:    conn,
		mentors: conn.Collection(MentorProfilesCollection),
		mentees: conn.Collection(MenteeProfilesCollection),
	}
}

var _ profile.Repository = (*ProfileRepository)(nil)

func (r *ProfileRepository) FindMentor(ctx context.Context, userID shared.UserID) (*profile.MentorProfile, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var d mentorDoc
	err := r.mentors.FindOne(ctx, bson.M{"_id": string(userID)}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrMentorProfileNotFound
		}
		return nil, fmt.Errorf("find mentor profile: %w", err)
	}
	return d.toDomain(), nil
}

func (r *ProfileRepository) FindMentee(ctx context.Context, userID shared.UserID) (*profile.MenteeProfile, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var d menteeDoc
	err := r.mentees.FindOne(ctx, bson.M{"_id": string(userID)}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrMenteeProfileNotFound
		}
		return nil, fmt.Errorf("find mentee profile: %w", err)
	}
	return d.toDomain(), nil
}

func (r *ProfileRepository) ListActiveMentors(ctx context.Context, excluding shared.UserID) ([]*profile.MentorProfile, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"isActive": true, "_id": bson.M{"$ne": string(excluding)}}
	cursor, err := r.mentors.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list active mentors: %w", err)
	}
	var docs []mentorDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode active mentors: %w", err)
	}

	out := make([]*profile.MentorProfile, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *ProfileRepository) ListMentorIDs(ctx context.Context) ([]shared.UserID, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.mentors.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list mentor ids: %w", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode mentor ids: %w", err)
	}

	ids := make([]shared.UserID, len(docs))
	for i, d := range docs {
		ids[i] = shared.UserID(d.ID)
	}
	return ids, nil
}

func (r *ProfileRepository) CreateMentor(ctx context.Context, p *profile.MentorProfile) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	d := toMentorDoc(p)
	d.Version = max(d.Version, 1)
	if _, err := r.mentors.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shared.ErrMentorProfileExists
		}
		return fmt.Errorf("create mentor profile: %w", err)
	}
	p.Version = d.Version
	return nil
}

// SaveMentor sets every field but the load and createdAt. The filter only
// matches the version that was read and while the stored load fits under the
// new maxMentees.
func (r *ProfileRepository) SaveMentor(ctx context.Context, p *profile.MentorProfile) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	d := toMentorDoc(p)
	filter := saveMentorFilter(d)
	update := bson.M{"$set": bson.M{
		"isActive":              d.IsActive,
		"specializations":       d.Specializations,
		"industry":              d.Industry,
		"relatedIndustries":     d.RelatedIndustries,
		"skills":                d.Skills,
		"experienceYears":       d.ExperienceYears,
		"personalityTraits":     d.PersonalityTraits,
		"careerAchievements":    d.CareerAchievements,
		fieldMaxMentees:         d.Availability.MaxMentees,
		"availability.schedule": d.Availability.Schedule,
		"availability.timeZone": d.Availability.TimeZone,
		"testimonials":          d.Testimonials,
		"rating":                d.Rating,
		"updatedAt":             d.UpdatedAt,
	}, "$inc": bson.M{"version": 1}}

	res, err := r.mentors.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("save mentor profile: %w", err)
	}
	if res.MatchedCount > 0 {
		p.Version++
		return nil
	}

	var stored struct {
		Version int `bson:"version"`
	}
	err = r.mentors.FindOne(ctx, bson.M{"_id": d.UserID},
		options.FindOne().SetProjection(bson.M{"version": 1}),
	).Decode(&stored)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return shared.ErrMentorProfileNotFound
		}
		return fmt.Errorf("check mentor profile: %w", err)
	}
	if stored.Version != d.Version {
		return shared.ErrStaleMentorProfile
	}
	return shared.ErrMaxBelowCurrentLoad
}

// saveMentorFilter matches d's profile at the version it was read, while the
// stored load still fits under the new maxMentees.
func saveMentorFilter(d mentorDoc) bson.M {
	return bson.M{
		"_id":               d.UserID,
		"version":           d.Version,
		fieldCurrentMentees: bson.M{"$lte": d.Availability.MaxMentees},
	}
}

func (r *ProfileRepository) SaveMentee(ctx context.Context, p *profile.MenteeProfile) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	d := toMenteeDoc(p)
	_, err := r.mentees.ReplaceOne(ctx, bson.M{"_id": d.UserID}, d, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save mentee profile: %w", err)
	}
	return nil
}

// AdjustMentorLoad increments the load only when the result stays within
// [0, maxMentees]; the guard and the $inc run as one document update.
func (r *ProfileRepository) AdjustMentorLoad(ctx context.Context, userID shared.UserID, delta int) (profile.Availability, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"availability": 1})

	var updated struct {
		Availability availabilityDoc `bson:"availability"`
	}
	err := r.mentors.FindOneAndUpdate(ctx,
		adjustLoadFilter(userID, delta),
		bson.M{"$inc": bson.M{fieldCurrentMentees: delta}},
		opts,
	).Decode(&updated)
	if err == nil {
		return updated.Availability.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return profile.Availability{}, fmt.Errorf("adjust mentor load: %w", err)
	}

	if _, err := r.currentLoad(ctx, userID); err != nil {
		return profile.Availability{}, err
	}
	if delta > 0 {
		return profile.Availability{}, shared.ErrMentorAtCapacity
	}
	return profile.Availability{}, shared.ErrMentorLoadUnderflow
}

// SetMentorLoad replaces the load, clamped to [0, maxMentees], if it still equals expected.
func (r *ProfileRepository) SetMentorLoad(ctx context.Context, userID shared.UserID, expected, load int) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"availability": 1})

	var updated struct {
		Availability availabilityDoc `bson:"availability"`
	}
	err := r.mentors.FindOneAndUpdate(ctx,
		bson.M{"_id": string(userID), fieldCurrentMentees: expected},
		setLoadPipeline(load),
		opts,
	).Decode(&updated)
	if err == nil {
		return updated.Availability.CurrentMentees, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("set mentor load: %w", err)
	}

	current, err := r.currentLoad(ctx, userID)
	if err != nil {
		return 0, err
	}
	return current, shared.ErrMentorLoadChanged
}

func (r *ProfileRepository) currentLoad(ctx context.Context, userID shared.UserID) (int, error) {
	var d struct {
		Availability availabilityDoc `bson:"availability"`
	}
	err := r.mentors.FindOne(ctx, bson.M{"_id": string(userID)},
		options.FindOne().SetProjection(bson.M{"availability": 1}),
	).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, shared.ErrMentorProfileNotFound
		}
		return 0, fmt.Errorf("read mentor load: %w", err)
	}
	return d.Availability.CurrentMentees, nil
}

// adjustLoadFilter matches the mentor only if currentMentees+delta is within [0, maxMentees].
func adjustLoadFilter(userID shared.UserID, delta int) bson.M {
	next := bson.M{"$add": bson.A{"$" + fieldCurrentMentees, delta}}
	return bson.M{
		"_id": string(userID),
		"$expr": bson.M{"$and": bson.A{
			bson.M{"$gte": bson.A{next, 0}},
			bson.M{"$lte": bson.A{next, "$" + fieldMaxMentees}},
		}},
	}
}

// setLoadPipeline is an update pipeline so the clamp can read maxMentees.
func setLoadPipeline(load int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			fieldCurrentMentees: bson.M{"$min": bson.A{
				bson.M{"$max": bson.A{load, 0}},
				"$" + fieldMaxMentees,
			}},
		}}},
	}
}
