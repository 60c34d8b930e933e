package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureMongoCollection creates the evidence archive indexes. Safe to call on
// every startup; existing indexes are left alone.
func EnsureMongoCollection(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection("evidence_archive")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "connector_message_id", Value: 1}, {Key: "archived_at", Value: 1}},
			Options: options.Index().SetName("idx_evidence_archive_message_archived"),
		},
		{
			Keys:    bson.D{{Key: "domain_id", Value: 1}, {Key: "archived_at", Value: -1}},
			Options: options.Index().SetName("idx_evidence_archive_domain_archived"),
		},
		{
			Keys:    bson.D{{Key: "evidence_type", Value: 1}},
			Options: options.Index().SetName("idx_evidence_archive_type"),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	return nil
}
