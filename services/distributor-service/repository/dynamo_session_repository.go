package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
)

// DynamoAPI is the subset of the DynamoDB client used by the presence store.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoSessionRepository implements SessionRepository using DynamoDB
type DynamoSessionRepository struct {
	client DynamoAPI
	table  string
}

// NewDynamoSessionRepository creates a DynamoDB backed presence store
func NewDynamoSessionRepository(client DynamoAPI, table string) *DynamoSessionRepository {
	return &DynamoSessionRepository{client: client, table: table}
}

type ddbSession struct {
	Username     string `dynamodbav:"username"`
	LastActivity string `dynamodbav:"last_activity"`
	LoginTime    string `dynamodbav:"login_time,omitempty"`
	LogoutTime   string `dynamodbav:"logout_time,omitempty"`
	SessionCount int    `dynamodbav:"session_count"`
}

func parseDDBTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

func (d ddbSession) toModel() models.UserSession {
	s := models.UserSession{
		Username:     d.Username,
		LoginTime:    parseDDBTime(d.LoginTime),
		LogoutTime:   parseDDBTime(d.LogoutTime),
		SessionCount: d.SessionCount,
	}
	if t := parseDDBTime(d.LastActivity); t != nil {
		s.LastActivity = *t
	}
	return s
}

func fromModel(s models.UserSession) ddbSession {
	d := ddbSession{
		Username:     s.Username,
		LastActivity: s.LastActivity.UTC().Format(time.RFC3339Nano),
		SessionCount: s.SessionCount,
	}
	if s.LoginTime != nil {
		d.LoginTime = s.LoginTime.UTC().Format(time.RFC3339Nano)
	}
	if s.LogoutTime != nil {
		d.LogoutTime = s.LogoutTime.UTC().Format(time.RFC3339Nano)
	}
	return d
}

func (r *DynamoSessionRepository) key(username string) (map[string]types.AttributeValue, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"username": username})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return key, nil
}

// Touch upserts the record: last_activity is always set, session_count is
// incremented on login and created as zero otherwise.
func (r *DynamoSessionRepository) Touch(ctx context.Context, username string, action models.PresenceAction, at time.Time) error {
	key, err := r.key(username)
	if err != nil {
		return err
	}

	expr := "SET #last = :now"
	names := map[string]string{"#last": "last_activity", "#count": "session_count"}
	inc := 0
	switch action {
	case models.ActionLogin:
		expr += ", #login = :now"
		names["#login"] = "login_time"
		inc = 1
	case models.ActionLogout:
		expr += ", #logout = :now"
		names["#logout"] = "logout_time"
	}
	expr += " ADD #count :inc"

	nowAV, _ := attributevalue.Marshal(at.UTC().Format(time.RFC3339Nano))
	incAV, _ := attributevalue.Marshal(inc)

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.table),
		Key:                      key,
		UpdateExpression:         aws.String(expr),
		ExpressionAttributeNames: names,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": nowAV,
			":inc": incAV,
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb UpdateItem failed: %w", err)
	}
	return nil
}

// Put writes a whole record, replacing any existing one. Used by the
// presence migration.
func (r *DynamoSessionRepository) Put(ctx context.Context, s models.UserSession) error {
	item, err := attributevalue.MarshalMap(fromModel(s))
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (r *DynamoSessionRepository) Get(ctx context.Context, username string) (*models.UserSession, error) {
	key, err := r.key(username)
	if err != nil {
		return nil, err
	}

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var d ddbSession
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	s := d.toModel()
	return &s, nil
}

func (r *DynamoSessionRepository) List(ctx context.Context) ([]models.UserSession, error) {
	sessions := []models.UserSession{}
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb Scan failed: %w", err)
		}

		var page []ddbSession
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
		for _, d := range page {
			sessions = append(sessions, d.toModel())
		}

		if len(out.LastEvaluatedKey) == 0 {
			return sessions, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
