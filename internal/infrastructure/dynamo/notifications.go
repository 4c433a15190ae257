package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fitnease/comms/internal/domain"
)

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser returns one page of the user's notifications, newest first.
// Pages are 1-based.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, error) {
	if page < 1 {
		page = 1
	}
	want := page * pageSize

	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("user_id-created_at-index"),
			KeyConditionExpression: aws.String("user_id = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
			},
			ScanIndexForward:  aws.Bool(false), // newest first
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil || len(items) >= want {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	offset := (page - 1) * pageSize
	if offset >= len(items) {
		return []domain.Notification{}, nil
	}
	end := offset + pageSize
	if end > len(items) {
		end = len(items)
	}

	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(items[offset:end], &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// UnreadCount counts the user's unread rows. The count is always derived from
// the row set, never cached.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	count := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("user_id-created_at-index"),
			KeyConditionExpression: aws.String("user_id = :uid"),
			FilterExpression:       aws.String("is_read = :f"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
				":f":   &types.AttributeValueMemberBOOL{Value: false},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return 0, err
		}
		count += int(out.Count)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return count, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID string, at time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"is_read":    true,
		"read_at":    at,
		"updated_at": at,
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notification_id", notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// MarkAllRead marks every unread row of the user read and returns how many
// rows were updated.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	ids, err := r.unreadIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := r.MarkRead(ctx, id, at); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (r *NotificationRepo) unreadIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("user_id-created_at-index"),
			KeyConditionExpression: aws.String("user_id = :uid"),
			FilterExpression:       aws.String("is_read = :f"),
			ProjectionExpression:   aws.String("notification_id"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
				":f":   &types.AttributeValueMemberBOOL{Value: false},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			if v, ok := item["notification_id"].(*types.AttributeValueMemberS); ok {
				ids = append(ids, v.Value)
			}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return ids, nil
}

func (r *NotificationRepo) Delete(ctx context.Context, notificationID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	return err
}

// DeleteAllForUser removes every notification owned by userID and returns the
// number of rows deleted.
func (r *NotificationRepo) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	return r.deleteWhere(ctx, userID, "")
}

// DeleteByType removes the user's notifications of one type. Used to clean up
// email_verification rows once the address is confirmed.
func (r *NotificationRepo) DeleteByType(ctx context.Context, userID string, t domain.NotificationType) (int, error) {
	return r.deleteWhere(ctx, userID, t)
}

func (r *NotificationRepo) deleteWhere(ctx context.Context, userID string, t domain.NotificationType) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-created_at-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ProjectionExpression:   aws.String("notification_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	}
	if t != "" {
		input.FilterExpression = aws.String("notification_type = :t")
		input.ExpressionAttributeValues[":t"] = &types.AttributeValueMemberS{Value: string(t)}
	}

	deleted := 0
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return deleted, err
		}
		for _, item := range out.Items {
			v, ok := item["notification_id"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if err := r.Delete(ctx, v.Value); err != nil {
				return deleted, err
			}
			deleted++
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return deleted, nil
}

// ListDue returns unsent notifications whose scheduled time has passed.
func (r *NotificationRepo) ListDue(ctx context.Context, now time.Time) ([]domain.Notification, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			FilterExpression: aws.String("is_sent = :f AND attribute_exists(scheduled_time) AND scheduled_time <= :now"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":f":   &types.AttributeValueMemberBOOL{Value: false},
				":now": timeAV(now),
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(items, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkSent flips is_sent only if the row is still unsent, so two overlapping
// scheduler passes cannot deliver the same notification twice.
func (r *NotificationRepo) MarkSent(ctx context.Context, notificationID string, at time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"is_sent":    true,
		"sent_at":    at,
		"updated_at": at,
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notification_id", notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("is_sent = :unsent"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: mergeValues(ue.Values, map[string]types.AttributeValue{
			":unsent": &types.AttributeValueMemberBOOL{Value: false},
		}),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("notification already sent: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}
