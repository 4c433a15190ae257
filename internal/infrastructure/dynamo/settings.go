package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fitnease/comms/internal/domain"
)

// SettingRepo provides typed DynamoDB operations for the notification_settings
// table. The composite (user_id, notification_type) key enforces at most one
// row per pair.
type SettingRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSettingRepo(client *dynamodb.Client, tableName string) *SettingRepo {
	return &SettingRepo{client: client, tableName: tableName}
}

// Upsert writes the setting for (s.UserID, s.Type), creating the row on first
// write and preserving created_at afterwards.
func (r *SettingRepo) Upsert(ctx context.Context, s *domain.NotificationSetting) error {
	values := map[string]types.AttributeValue{
		":e":   &types.AttributeValueMemberBOOL{Value: s.Enabled},
		":ee":  &types.AttributeValueMemberBOOL{Value: s.EmailEnabled},
		":pe":  &types.AttributeValueMemberBOOL{Value: s.PushEnabled},
		":now": timeAV(s.UpdatedAt),
	}
	expr := "SET enabled = :e, email_enabled = :ee, push_enabled = :pe, updated_at = :now, created_at = if_not_exists(created_at, :now)"
	if len(s.Preferences) > 0 {
		av, err := attributevalue.Marshal(s.Preferences)
		if err != nil {
			return err
		}
		values[":prefs"] = av
		expr += ", preferences = :prefs"
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey("user_id", s.UserID, "notification_type", string(s.Type)),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeValues: values,
	})
	return err
}

func (r *SettingRepo) Get(ctx context.Context, userID string, t domain.NotificationType) (*domain.NotificationSetting, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "notification_type", string(t)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil // no row means defaults apply
	}
	var s domain.NotificationSetting
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingRepo) ListByUser(ctx context.Context, userID string) ([]domain.NotificationSetting, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var settings []domain.NotificationSetting
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}
