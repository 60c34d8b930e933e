package evidence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"courier/pkg/models"
)

// ArchivedEvidence is one raw evidence document as kept in the archive.
// The relational store only keeps the lifecycle state; the archive keeps the
// full payloads for audit and support lookups.
type ArchivedEvidence struct {
	ConnectorMessageID string              `bson:"connector_message_id" json:"connectorMessageId"`
	DomainID           string              `bson:"domain_id" json:"domainId"`
	EvidenceType       models.EvidenceType `bson:"evidence_type" json:"evidenceType"`
	Evidence           []byte              `bson:"evidence" json:"evidence"`
	Generated          bool                `bson:"generated" json:"generated"`
	ArchivedAt         time.Time           `bson:"archived_at" json:"archivedAt"`
}

// Archive stores raw evidence payloads.
type Archive interface {
	Store(ctx context.Context, doc ArchivedEvidence) error
	FindByConnectorID(ctx context.Context, connectorMessageID string) ([]ArchivedEvidence, error)
}

type MongoArchive struct {
	collection *mongo.Collection
}

func NewArchive(db *mongo.Database) Archive {
	return &MongoArchive{
		collection: db.Collection("evidence_archive"),
	}
}

func (a *MongoArchive) Store(ctx context.Context, doc ArchivedEvidence) error {
	if doc.ArchivedAt.IsZero() {
		doc.ArchivedAt = time.Now().UTC()
	}
	if _, err := a.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to archive evidence: %w", err)
	}
	return nil
}

func (a *MongoArchive) FindByConnectorID(ctx context.Context, connectorMessageID string) ([]ArchivedEvidence, error) {
	filter := bson.M{"connector_message_id": connectorMessageID}
	opts := options.Find().SetSort(bson.D{{Key: "archived_at", Value: 1}})

	cursor, err := a.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find archived evidence: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []ArchivedEvidence
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode archived evidence: %w", err)
	}

	return docs, nil
}
