package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const processedTTL = 7 * 24 * time.Hour

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type processedRecord struct {
	EventKey    string `dynamodbav:"eventKey"`
	Provider    string `dynamodbav:"provider"`
	EventID     string `dynamodbav:"eventId"`
	ProcessedAt string `dynamodbav:"processedAt"`
	ExpiresAt   int64  `dynamodbav:"expiresAt"`
}

// DynamoStore keeps processed event ids in a DynamoDB table keyed by
// eventKey, with expiresAt as the table's TTL attribute.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	now       func() time.Time
}

var _ Deduper = (*DynamoStore)(nil)

func NewDynamoStore(client dynamoAPI, tableName string) *DynamoStore {
	if client == nil {
		panic("events: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("events: table name cannot be empty")
	}
	return &DynamoStore{client: client, tableName: tableName, now: time.Now}
}

func eventKey(provider, eventID string) string { return provider + "#" + eventID }

func (s *DynamoStore) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"eventKey": &types.AttributeValueMemberS{Value: eventKey(provider, eventID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("events: get processed: %w", err)
	}
	return len(out.Item) > 0, nil
}

// MarkProcessed writes the record only if the key is absent.
func (s *DynamoStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	now := s.now().UTC()
	item, err := attributevalue.MarshalMap(processedRecord{
		EventKey:    eventKey(provider, eventID),
		Provider:    provider,
		EventID:     eventID,
		ProcessedAt: now.Format(time.RFC3339Nano),
		ExpiresAt:   now.Add(processedTTL).Unix(),
	})
	if err != nil {
		return false, fmt.Errorf("events: marshal processed: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(eventKey)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return true, nil
}
