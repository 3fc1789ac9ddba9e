package vmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	SubscriptionExchange    = "vmd.subscriptions"
	RoutingSubscriptionAdd  = "subscription.add"
	RoutingSubscriptionDrop = "subscription.remove"
)

// NotificationTopic is the push topic of a centre.
func NotificationTopic(department string, centreId string) string {
	return fmt.Sprintf("department_%s_center_%s", department, centreId)
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string) error
	Unsubscribe(ctx context.Context, topic string) error
}

// LogSubscriber only logs, used when no broker is configured.
type LogSubscriber struct{}

func (LogSubscriber) Subscribe(_ context.Context, topic string) error {
	Log.Infof("Subscribed to %s", topic)
	return nil
}

func (LogSubscriber) Unsubscribe(_ context.Context, topic string) error {
	Log.Infof("Unsubscribed from %s", topic)
	return nil
}

type SubscriptionMsg struct {
	Topic  string    `json:"topic"`
	Action string    `json:"action"`
	When   time.Time `json:"when"`
}

// AMQPSubscriber publishes subscription changes to a topic exchange; the
// push gateway consuming it is not part of this module.
type AMQPSubscriber struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPSubscriber(url string) (*AMQPSubscriber, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(SubscriptionExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPSubscriber{conn: conn, ch: ch}, nil
}

func (s *AMQPSubscriber) publish(ctx context.Context, routingKey string, msg SubscriptionMsg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return s.ch.PublishWithContext(ctx, SubscriptionExchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         data,
	})
}

func (s *AMQPSubscriber) Subscribe(ctx context.Context, topic string) error {
	return s.publish(ctx, RoutingSubscriptionAdd, SubscriptionMsg{Topic: topic, Action: "subscribe", When: time.Now()})
}

func (s *AMQPSubscriber) Unsubscribe(ctx context.Context, topic string) error {
	return s.publish(ctx, RoutingSubscriptionDrop, SubscriptionMsg{Topic: topic, Action: "unsubscribe", When: time.Now()})
}

func (s *AMQPSubscriber) Close() {
	if s.ch != nil {
		s.ch.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

// Follow stores the centre as followed, subscribing to its topic when the
// user wants notifications. Changing the type of an already followed centre
// unsubscribes when going to none.
func Follow(ctx context.Context, prefs *Preferences, sub Subscriber, department string, centreId string, notifications NotificationsType) error {
	topic := NotificationTopic(department, centreId)

	previous, wasFollowed, err := prefs.FollowedCentre(ctx, department, centreId)
	if err != nil {
		return err
	}

	switch {
	case notifications == NotificationsAll:
		if err := sub.Subscribe(ctx, topic); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	case wasFollowed && previous.NotificationsType == NotificationsAll:
		if err := sub.Unsubscribe(ctx, topic); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", topic, err)
		}
	}

	return prefs.FollowCentre(ctx, department, FollowedCentre{Id: centreId, NotificationsType: notifications})
}

// Unfollow unsubscribes (when needed) and forgets the centre.
func Unfollow(ctx context.Context, prefs *Preferences, sub Subscriber, department string, centreId string) error {
	previous, wasFollowed, err := prefs.FollowedCentre(ctx, department, centreId)
	if err != nil {
		return err
	}
	if !wasFollowed {
		return nil
	}

	if previous.NotificationsType == NotificationsAll {
		topic := NotificationTopic(department, centreId)
		if err := sub.Unsubscribe(ctx, topic); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", topic, err)
		}
	}

	return prefs.UnfollowCentre(ctx, department, centreId)
}
