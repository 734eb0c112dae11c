package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// MentorshipRepository implements mentorship.Repository on MongoDB.
type MentorshipRepository struct {
	conn *Connection
	coll *mongo.Collection
}

// NewMentorshipRepository creates a new MentorshipRepository.
func NewMentorshipRepository(conn *Connection) *MentorshipRepository {
	return &MentorshipRepository{conn: conn, coll: conn.Collection(MentorshipsCollection)}
}

var _ mentorship.Repository = (*MentorshipRepository)(nil)

func (r *MentorshipRepository) FindByID(ctx context.Context, id mentorship.ID) (*mentorship.Mentorship, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *MentorshipRepository) FindOpenByPair(ctx context.Context, mentorID, menteeID shared.UserID) (*mentorship.Mentorship, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()
	return r.findOne(ctx, bson.M{"mentorId": string(mentorID), "menteeId": string(menteeID), "open": true})
}

func (r *MentorshipRepository) Create(ctx context.Context, m *mentorship.Mentorship) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, toMentorshipDoc(m)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), indexOpenPair) {
				return shared.ErrOpenMentorship
			}
			return shared.NewDomainError("mentorship", "Create", shared.ErrAlreadyExists, "mentorship id already exists")
		}
		return fmt.Errorf("create mentorship: %w", err)
	}
	return nil
}

// Save replaces the mutable fields where the stored version equals m.Version.
func (r *MentorshipRepository) Save(ctx context.Context, m *mentorship.Mentorship) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	d := toMentorshipDoc(m)
	update := bson.M{
		"$set": bson.M{
			"status":       d.Status,
			"open":         d.Open,
			"focusAreas":   d.FocusAreas,
			"goals":        d.Goals,
			"meetings":     d.Meetings,
			"feedback":     d.Feedback,
			"message":      d.Message,
			"cancelReason": d.CancelReason,
			"startDate":    d.StartDate,
			"endDate":      d.EndDate,
			"updatedAt":    d.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": d.ID, "version": d.Version}, update)
	if err != nil {
		return fmt.Errorf("save mentorship: %w", err)
	}
	if res.MatchedCount == 1 {
		m.Version++
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": d.ID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check mentorship: %w", err)
	}
	if n == 0 {
		return shared.ErrMentorshipNotFound
	}
	return shared.ErrStaleMentorship
}

func (r *MentorshipRepository) ListByParticipant(ctx context.Context, userID shared.UserID, filter mentorship.ListFilter) ([]*mentorship.Mentorship, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.coll.Find(ctx, listFilter(userID, filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list mentorships: %w", err)
	}
	var docs []mentorshipDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode mentorships: %w", err)
	}

	out := make([]*mentorship.Mentorship, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *MentorshipRepository) CountActiveByMentor(ctx context.Context, mentorID shared.UserID) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"mentorId": string(mentorID), "status": string(mentorship.StatusActive)})
	if err != nil {
		return 0, fmt.Errorf("count active mentorships: %w", err)
	}
	return int(n), nil
}

func (r *MentorshipRepository) ExistsBetween(ctx context.Context, mentorID, menteeID shared.UserID, statuses ...mentorship.Status) (bool, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"mentorId": string(mentorID), "menteeId": string(menteeID)}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statusStrings(statuses)}
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check mentorship existence: %w", err)
	}
	return n > 0, nil
}

func (r *MentorshipRepository) findOne(ctx context.Context, filter bson.M) (*mentorship.Mentorship, error) {
	var d mentorshipDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrMentorshipNotFound
		}
		return nil, fmt.Errorf("find mentorship: %w", err)
	}
	return d.toDomain(), nil
}

func listFilter(userID shared.UserID, filter mentorship.ListFilter) bson.M {
	id := string(userID)
	f := bson.M{}
	switch filter.Role {
	case mentorship.RoleMentor:
		f["mentorId"] = id
	case mentorship.RoleMentee:
		f["menteeId"] = id
	default:
		f["$or"] = bson.A{bson.M{"mentorId": id}, bson.M{"menteeId": id}}
	}
	if len(filter.Statuses) > 0 {
		f["status"] = bson.M{"$in": statusStrings(filter.Statuses)}
	}
	return f
}

func statusStrings(statuses []mentorship.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
