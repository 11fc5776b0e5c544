package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shivamdarekar/TrendsWave/models"
)

// DynamoAPI is the subset of the DynamoDB client used by the temp upload table.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoTempUploadRepository stores temp uploads in a table keyed by
// `public_id` (string). `expires_at` is an epoch-seconds attribute that can be
// enabled as the table TTL.
type DynamoTempUploadRepository struct {
	client DynamoAPI
	table  string
}

func NewDynamoTempUploadRepository(client DynamoAPI, table string) *DynamoTempUploadRepository {
	return &DynamoTempUploadRepository{client: client, table: table}
}

type ddbTempUpload struct {
	PublicID  string `dynamodbav:"public_id"`
	URL       string `dynamodbav:"url"`
	UserID    string `dynamodbav:"user_id"`
	IsUsed    bool   `dynamodbav:"is_used"`
	CreatedAt string `dynamodbav:"created_at"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

func toDynamoTempUpload(u *models.TempUpload) ddbTempUpload {
	return ddbTempUpload{
		PublicID:  u.PublicID,
		URL:       u.URL,
		UserID:    u.User.Hex(),
		IsUsed:    u.IsUsed,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt: u.CreatedAt.Add(2 * models.TempUploadTTL).Unix(),
	}
}

func (d ddbTempUpload) toModel() models.TempUpload {
	u := models.TempUpload{
		PublicID: d.PublicID,
		URL:      d.URL,
		IsUsed:   d.IsUsed,
	}
	u.User, _ = primitive.ObjectIDFromHex(d.UserID)
	if t, err := time.Parse(time.RFC3339, d.CreatedAt); err == nil {
		u.CreatedAt = t
	}
	return u
}

func (r *DynamoTempUploadRepository) key(publicID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"public_id": &types.AttributeValueMemberS{Value: publicID},
	}
}

func (r *DynamoTempUploadRepository) Create(ctx context.Context, upload *models.TempUpload) error {
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now().UTC()
	}
	item, err := attributevalue.MarshalMap(toDynamoTempUpload(upload))
	if err != nil {
		return fmt.Errorf("marshal temp upload: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: &r.table, Item: item})
	if err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

// MarkUsed flags each existing record. Ids with no record are skipped.
func (r *DynamoTempUploadRepository) MarkUsed(ctx context.Context, publicIDs []string) (int64, error) {
	var marked int64
	for _, id := range publicIDs {
		_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           &r.table,
			Key:                 r.key(id),
			UpdateExpression:    aws.String("SET is_used = :used"),
			ConditionExpression: aws.String("attribute_exists(public_id)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":used": &types.AttributeValueMemberBOOL{Value: true},
			},
		})
		if err != nil {
			var condErr *types.ConditionalCheckFailedException
			if errors.As(err, &condErr) {
				continue
			}
			return marked, fmt.Errorf("dynamodb UpdateItem failed: %w", err)
		}
		marked++
	}
	return marked, nil
}

// FindStale scans for unused uploads created before the cutoff. created_at is
// RFC3339 UTC, which orders lexically.
func (r *DynamoTempUploadRepository) FindStale(ctx context.Context, before time.Time) ([]models.TempUpload, error) {
	input := &dynamodb.ScanInput{
		TableName:        &r.table,
		FilterExpression: aws.String("is_used = :unused AND created_at < :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":unused": &types.AttributeValueMemberBOOL{Value: false},
			":cutoff": &types.AttributeValueMemberS{Value: before.UTC().Format(time.RFC3339)},
		},
	}

	uploads := []models.TempUpload{}
	paginator := dynamodb.NewScanPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan page failed: %w", err)
		}
		for _, it := range page.Items {
			var item ddbTempUpload
			if err := attributevalue.UnmarshalMap(it, &item); err != nil {
				return nil, fmt.Errorf("unmarshal item: %w", err)
			}
			uploads = append(uploads, item.toModel())
		}
	}
	return uploads, nil
}

func (r *DynamoTempUploadRepository) Delete(ctx context.Context, publicID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: &r.table, Key: r.key(publicID)})
	if err != nil {
		return fmt.Errorf("dynamodb DeleteItem failed: %w", err)
	}
	return nil
}

