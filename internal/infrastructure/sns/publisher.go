package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/fitnease/comms/internal/config"
	"github.com/fitnease/comms/internal/domain"
)

// Event names consumed by the websocket edge.
const (
	EventNotificationCreated = "notification.created"
	EventUnreadCountUpdated  = "unread.count.updated"
)

// Broadcaster publishes realtime events to per-user private channels. Delivery
// is at-most-once and best-effort: the store stays the source of truth and
// clients can always reconcile by pulling.
type Broadcaster interface {
	NotificationCreated(ctx context.Context, n *domain.Notification, exceptSocketID string) error
	UnreadCountUpdated(ctx context.Context, userID string, unreadCount int) error
}

// Channel returns the private channel name for a user.
func Channel(userID string) string {
	return "user." + userID
}

// envelope is the wire shape published to the realtime topic. The websocket
// edge fans it out to the channel's subscribed sockets, skipping ExceptSocket.
type envelope struct {
	Channel      string      `json:"channel"`
	Event        string      `json:"event"`
	Data         interface{} `json:"data"`
	ExceptSocket string      `json:"except_socket,omitempty"`
}

// Noop returns a broadcaster that drops every event. Used when no realtime
// topic is configured, e.g. in local development without LocalStack.
func Noop() Broadcaster { return noop{} }

type noop struct{}

func (noop) NotificationCreated(context.Context, *domain.Notification, string) error { return nil }
func (noop) UnreadCountUpdated(context.Context, string, int) error                   { return nil }

type publisher struct {
	client   *sns.Client
	topicARN string
}

// NewPublisher builds an SNS-backed broadcaster publishing to the realtime topic.
func NewPublisher(cfg *config.Config) (Broadcaster, error) {
	if cfg.RealtimeTopicARN == "" {
		return nil, fmt.Errorf("SNS_REALTIME_TOPIC_ARN not configured")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &publisher{client: sns.NewFromConfig(awsCfg), topicARN: cfg.RealtimeTopicARN}, nil
}

func (p *publisher) NotificationCreated(ctx context.Context, n *domain.Notification, exceptSocketID string) error {
	return p.publish(ctx, envelope{
		Channel:      Channel(n.UserID),
		Event:        EventNotificationCreated,
		Data:         n,
		ExceptSocket: exceptSocketID,
	})
}

func (p *publisher) UnreadCountUpdated(ctx context.Context, userID string, unreadCount int) error {
	return p.publish(ctx, envelope{
		Channel: Channel(userID),
		Event:   EventUnreadCountUpdated,
		Data: map[string]interface{}{
			"user_id":      userID,
			"unread_count": unreadCount,
		},
	})
}

func (p *publisher) publish(ctx context.Context, ev envelope) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal realtime event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"channel": {DataType: aws.String("String"), StringValue: aws.String(ev.Channel)},
			"event":   {DataType: aws.String("String"), StringValue: aws.String(ev.Event)},
		},
	})
	return err
}
