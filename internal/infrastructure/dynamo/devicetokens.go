package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fitnease/comms/internal/domain"
)

// DeviceTokenRepo provides typed DynamoDB operations for the device_tokens
// table. The Expo push token is the partition key.
type DeviceTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDeviceTokenRepo(client *dynamodb.Client, tableName string) *DeviceTokenRepo {
	return &DeviceTokenRepo{client: client, tableName: tableName}
}

// Upsert registers a token, updating the existing row when the token is already
// known. created_at and device_token_id survive re-registration.
func (r *DeviceTokenRepo) Upsert(ctx context.Context, userID, token string, platform domain.Platform, newID string, now time.Time) (*domain.DeviceToken, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("expo_push_token", token),
		UpdateExpression: aws.String(
			"SET user_id = :uid, platform = :p, is_active = :t, last_used_at = :now, updated_at = :now, " +
				"device_token_id = if_not_exists(device_token_id, :id), created_at = if_not_exists(created_at, :now)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
			":p":   &types.AttributeValueMemberS{Value: string(platform)},
			":t":   &types.AttributeValueMemberBOOL{Value: true},
			":id":  &types.AttributeValueMemberS{Value: newID},
			":now": timeAV(now),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert device token: %w", err)
	}
	var d domain.DeviceToken
	if err := attributevalue.UnmarshalMap(out.Attributes, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceTokenRepo) Get(ctx context.Context, token string) (*domain.DeviceToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("expo_push_token", token),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("device token not found: %w", domain.ErrNotFound)
	}
	var d domain.DeviceToken
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListActiveByUser returns the user's active tokens via the user_id GSI.
func (r *DeviceTokenRepo) ListActiveByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	var tokens []domain.DeviceToken
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("user_id-index"),
			KeyConditionExpression: aws.String("user_id = :uid"),
			FilterExpression:       aws.String("is_active = :t"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
				":t":   &types.AttributeValueMemberBOOL{Value: true},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.DeviceToken
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		tokens = append(tokens, page...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return tokens, nil
}

// Remove deletes the row for token. Returns false when no such row existed.
func (r *DeviceTokenRepo) Remove(ctx context.Context, token string) (bool, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          strKey("expo_push_token", token),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, err
	}
	return len(out.Attributes) > 0, nil
}

// Deactivate marks a single token inactive. Used when the push gateway reports
// it permanently dead.
func (r *DeviceTokenRepo) Deactivate(ctx context.Context, token string, now time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"is_active":  false,
		"updated_at": now,
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("expo_push_token", token),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// DeactivateAllForUser marks every active token of the user inactive and
// returns how many were affected.
func (r *DeviceTokenRepo) DeactivateAllForUser(ctx context.Context, userID string, now time.Time) (int, error) {
	active, err := r.ListActiveByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, d := range active {
		if err := r.Deactivate(ctx, d.Token, now); err != nil {
			return 0, err
		}
	}
	return len(active), nil
}
