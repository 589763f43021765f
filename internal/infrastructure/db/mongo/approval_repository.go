package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

const collectionRequests = "approval_requests"

type ApprovalRepository struct {
	col *mongo.Collection
}

func NewApprovalRepository(db *mongo.Database) *ApprovalRepository {
	return &ApprovalRepository{col: db.Collection(collectionRequests)}
}

type requestDoc struct {
	ID                 primitive.ObjectID    `bson:"_id,omitempty"`
	RequesterID        string                `bson:"requester_id"`
	Type               string                `bson:"type"`
	ContactEmail       string                `bson:"email"`
	Phone              string                `bson:"phone"`
	Note               string                `bson:"note,omitempty"`
	Business           domain.BusinessFields `bson:"business"`
	Status             string                `bson:"status"`
	DecisionInProgress string                `bson:"decision_in_progress,omitempty"`
	DecisionMarkedAt   *time.Time            `bson:"decision_marked_at,omitempty"`
	SubmittedAt        time.Time             `bson:"submitted_at"`
	DecidedAt          *time.Time            `bson:"decided_at,omitempty"`
	DecidedBy          string                `bson:"decided_by,omitempty"`
	RejectionReason    string                `bson:"rejection_reason,omitempty"`
}

func (d requestDoc) toDomain() *domain.ApprovalRequest {
	return &domain.ApprovalRequest{
		ID:                 d.ID.Hex(),
		RequesterID:        d.RequesterID,
		Type:               domain.RequestType(d.Type),
		ContactEmail:       d.ContactEmail,
		Phone:              d.Phone,
		Note:               d.Note,
		Business:           d.Business.Normalized(),
		Status:             domain.RequestStatus(d.Status),
		DecisionInProgress: domain.Decision(d.DecisionInProgress),
		DecisionMarkedAt:   d.DecisionMarkedAt,
		SubmittedAt:        d.SubmittedAt,
		DecidedAt:          d.DecidedAt,
		DecidedBy:          d.DecidedBy,
		RejectionReason:    d.RejectionReason,
	}
}

func (r *ApprovalRepository) Insert(ctx context.Context, req *domain.ApprovalRequest) (*domain.ApprovalRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := requestDoc{
		ID:           primitive.NewObjectID(),
		RequesterID:  req.RequesterID,
		Type:         string(req.Type),
		ContactEmail: req.ContactEmail,
		Phone:        req.Phone,
		Note:         req.Note,
		Business:     req.Business.Normalized(),
		Status:       string(req.Status),
		SubmittedAt:  req.SubmittedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert approval request: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ApprovalRepository) FindByID(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc requestDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("find approval request: %w", err)
	}
	return doc.toDomain(), nil
}

// List returns matching requests oldest first.
func (r *ApprovalRepository) List(ctx context.Context, f ports.RequestFilter) ([]*domain.ApprovalRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, listFilter(f), options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list approval requests: %w", err)
	}
	defer cur.Close(ctx)

	var docs []requestDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode approval requests: %w", err)
	}

	out := make([]*domain.ApprovalRequest, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func listFilter(f ports.RequestFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Type != "" {
		filter["type"] = string(f.Type)
	}
	if f.RequesterID != "" {
		filter["requester_id"] = f.RequesterID
	}
	if f.Interrupted {
		filter["decision_in_progress"] = bson.M{"$exists": true, "$ne": ""}
		// Markers without a timestamp predate it and are always old enough.
		if !f.MarkedBefore.IsZero() {
			filter["$or"] = bson.A{
				bson.M{"decision_marked_at": bson.M{"$lt": f.MarkedBefore}},
				bson.M{"decision_marked_at": bson.M{"$exists": false}},
			}
		}
	}
	return filter
}

// MarkDecisionInProgress is a compare-and-set: it only matches a pending
// request without a marker, or one already marked with the same decision.
func (r *ApprovalRepository) MarkDecisionInProgress(ctx context.Context, id string, d domain.Decision, decidedBy, reason string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrRequestNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":    oid,
		"status": string(domain.RequestPending),
		"$or": bson.A{
			bson.M{"decision_in_progress": bson.M{"$exists": false}},
			bson.M{"decision_in_progress": ""},
			bson.M{"decision_in_progress": string(d)},
		},
	}
	update := bson.M{"$set": bson.M{
		"decision_in_progress": string(d),
		"decided_by":           decidedBy,
		"rejection_reason":     reason,
		"decision_marked_at":   at,
	}}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mark decision: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

// Finalize only matches a pending request carrying marker d.
func (r *ApprovalRepository) Finalize(ctx context.Context, id string, d domain.Decision, decidedBy, reason string, at time.Time) (*domain.ApprovalRequest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrRequestNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"_id":                  oid,
		"status":               string(domain.RequestPending),
		"decision_in_progress": string(d),
	}
	update := bson.M{
		"$set": bson.M{
			"status":           string(d.Status()),
			"decided_at":       at,
			"decided_by":       decidedBy,
			"rejection_reason": reason,
		},
		"$unset": bson.M{"decision_in_progress": "", "decision_marked_at": ""},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc requestDoc
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidTransition
		}
		return nil, fmt.Errorf("finalize approval request: %w", err)
	}
	return doc.toDomain(), nil
}

// EnsureIndexes creates necessary indexes on the approval requests collection.
func (r *ApprovalRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "submitted_at", Value: 1}}},
		{Keys: bson.D{{Key: "requester_id", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "decision_in_progress", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
