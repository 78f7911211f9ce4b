// Package dynamodb implements the note repository on DynamoDB using a
// single-table layout keyed by user and note.
package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"relay/domain"
	apperrors "relay/pkg/errors"
)

// Client is the subset of the DynamoDB API the repository uses. Declared
// here so tests can substitute a fake without a live endpoint.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// NoteRepository persists notes in DynamoDB.
type NoteRepository struct {
	client    Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewNoteRepository creates a DynamoDB-backed note repository. indexName is
// the GSI keyed by note ID for direct lookups.
func NewNoteRepository(client Client, tableName, indexName string, logger *zap.Logger) *NoteRepository {
	return &NoteRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// noteItem is the DynamoDB item layout for a note.
type noteItem struct {
	PK         string   `dynamodbav:"PK"`
	SK         string   `dynamodbav:"SK"`
	GSI1PK     string   `dynamodbav:"GSI1PK"`
	GSI1SK     string   `dynamodbav:"GSI1SK"`
	EntityType string   `dynamodbav:"EntityType"`
	NoteID     string   `dynamodbav:"NoteID"`
	UserID     string   `dynamodbav:"UserID"`
	Title      string   `dynamodbav:"Title"`
	Content    string   `dynamodbav:"Content"`
	Tags       []string `dynamodbav:"Tags,omitempty"`
	CreatedAt  string   `dynamodbav:"CreatedAt"`
	UpdatedAt  string   `dynamodbav:"UpdatedAt"`
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func toItem(note *domain.Note) noteItem {
	return noteItem{
		PK:         fmt.Sprintf("USER#%s", note.UserID),
		SK:         fmt.Sprintf("NOTE#%s", note.ID),
		GSI1PK:     fmt.Sprintf("NOTEID#%s", note.ID),
		GSI1SK:     "METADATA",
		EntityType: "NOTE",
		NoteID:     note.ID,
		UserID:     note.UserID,
		Title:      note.Title,
		Content:    note.Content,
		Tags:       note.Tags,
		CreatedAt:  note.CreatedAt.Format(timeLayout),
		UpdatedAt:  note.UpdatedAt.Format(timeLayout),
	}
}

func (r *NoteRepository) fromItem(item noteItem) (*domain.Note, error) {
	note := &domain.Note{
		ID:      item.NoteID,
		UserID:  item.UserID,
		Title:   item.Title,
		Content: item.Content,
		Tags:    item.Tags,
	}

	var err error
	if note.CreatedAt, err = parseItemTime(item.CreatedAt); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal", err)
	}
	if note.UpdatedAt, err = parseItemTime(item.UpdatedAt); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal", err)
	}
	return note, nil
}

// Save persists a note, overwriting any previous version.
func (r *NoteRepository) Save(ctx context.Context, note *domain.Note) error {
	av, err := attributevalue.MarshalMap(toItem(note))
	if err != nil {
		return apperrors.NewDatabaseError("marshal", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		r.logger.Error("failed to put note",
			zap.Error(err),
			zap.String("note_id", note.ID),
		)
		return apperrors.NewDatabaseError("put_item", err)
	}

	return nil
}

// GetByID retrieves a note through the note-ID index.
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.indexName),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("NOTEID#%s", id)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("query", err)
	}
	if len(out.Items) == 0 {
		return nil, apperrors.NewNotFoundError("note")
	}

	var item noteItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal", err)
	}
	return r.fromItem(item)
}

// ListByUser retrieves all notes owned by a user, newest first.
func (r *NoteRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Note, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
			":sk": &types.AttributeValueMemberS{Value: "NOTE#"},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("query", err)
	}

	notes := make([]*domain.Note, 0, len(out.Items))
	for _, raw := range out.Items {
		var item noteItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, apperrors.NewDatabaseError("unmarshal", err)
		}
		note, err := r.fromItem(item)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	sortNotesNewestFirst(notes)
	return notes, nil
}

// Delete removes a note. Resolves the owner first since the primary key is
// user-scoped.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	note, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", note.UserID)},
			"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("NOTE#%s", id)},
		},
	})
	if err != nil {
		return apperrors.NewDatabaseError("delete_item", err)
	}
	return nil
}
