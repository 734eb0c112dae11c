// Package mongo implements the document-store persistence layer: mentor and
// mentee profiles and mentorships as MongoDB documents, with guarded
// FindOneAndUpdate calls for the mentor capacity counter and a partial
// unique index enforcing one open mentorship per pair.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	MentorProfilesCollection = "mentor_profiles"
	MenteeProfilesCollection = "mentee_profiles"
	MentorshipsCollection    = "mentorships"
)

// Index names referenced by error mapping and tests.
const (
	indexOpenPair = "mentorships_open_pair"
)

// Options configures the client.
type Options struct {
	ConnectTimeout time.Duration
	MaxPoolSize    uint64

	// QueryTimeout bounds every repository call that has no deadline yet.
	QueryTimeout time.Duration
}

// Connection wraps a client and the selected database.
type Connection struct {
	client       *mongo.Client
	db           *mongo.Database
	queryTimeout time.Duration
}

// Open connects, pings the primary and creates the indexes.
func Open(ctx context.Context, uri, database string, opts Options) (*Connection, error) {
	clientOpts := options.Client().ApplyURI(uri)
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	conn := &Connection{
		client:       client,
		db:           client.Database(database),
		queryTimeout: opts.QueryTimeout,
	}
	if err := conn.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return conn, nil
}

// Collection returns a collection handle.
func (c *Connection) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Ping checks the primary.
func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (c *Connection) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func (c *Connection) EnsureIndexes(ctx context.Context) error {
	_, err := c.Collection(MentorshipsCollection).Indexes().CreateMany(ctx, mentorshipIndexes())
	if err != nil {
		return fmt.Errorf("mongo: create mentorship indexes: %w", err)
	}
	_, err = c.Collection(MentorProfilesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "isActive", Value: 1}},
		Options: options.Index().SetName("mentor_profiles_active"),
	})
	if err != nil {
		return fmt.Errorf("mongo: create profile indexes: %w", err)
	}
	return nil
}

func mentorshipIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			// at most one open mentorship per pair
			Keys: bson.D{{Key: "mentorId", Value: 1}, {Key: "menteeId", Value: 1}},
			Options: options.Index().
				SetName(indexOpenPair).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{
			Keys:    bson.D{{Key: "mentorId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("mentorships_mentor_status"),
		},
		{
			Keys:    bson.D{{Key: "menteeId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("mentorships_mentee_created"),
		},
		{
			Keys:    bson.D{{Key: "mentorId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("mentorships_mentor_created"),
		},
	}
}

func (c *Connection) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.queryTimeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.queryTimeout)
}
