package models

import "time"

// SubscriptionType tags which target a subscription points at.
type SubscriptionType string

const (
	SubscriptionRSS   SubscriptionType = "RSS"
	SubscriptionTopic SubscriptionType = "TOPIC"
)

// Valid reports whether t is a known subscription type.
func (t SubscriptionType) Valid() bool {
	return t == SubscriptionRSS || t == SubscriptionTopic
}

// Source is an RSS source articles are fetched from.
type Source struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	URL  string `json:"url" db:"url"`
}

// Topic is a short user-defined phrase with an embedding generated at creation time.
type Topic struct {
	ID        int64     `json:"id" db:"id"`
	Content   string    `json:"content" db:"content"`
	Vector    []float32 `json:"-" db:"vector"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Subscription links a user to either an RSS source or a topic. Exactly one of
// SourceID and TopicID is set, matching Type. TopicVector is loaded alongside
// topic subscriptions so the feed needs no second lookup.
type Subscription struct {
	ID          int64            `json:"id" db:"id"`
	UserID      int64            `json:"userId" db:"user_id"`
	Type        SubscriptionType `json:"type" db:"type"`
	SourceID    *int64           `json:"sourceId,omitempty" db:"source_id"`
	SourceName  string           `json:"sourceName,omitempty" db:"source_name"`
	TopicID     *int64           `json:"topicId,omitempty" db:"topic_id"`
	TopicName   string           `json:"topicContent,omitempty" db:"topic_content"`
	TopicVector []float32        `json:"-" db:"-"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
}

// CreateTopicRequest is the input for creating (or reusing) a topic.
type CreateTopicRequest struct {
	Content string `json:"content"`
}

// CreateSubscriptionRequest is the input for subscribing to a source or a topic.
type CreateSubscriptionRequest struct {
	Type     SubscriptionType `json:"type"`
	TargetID int64            `json:"targetId"`
}
