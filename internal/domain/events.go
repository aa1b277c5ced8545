package domain

import "time"

// Author identifies a forum member.
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Event is an inbound forum event handled by the quiz.
type Event interface {
	Topic() int64
	NotificationID() string
}

// TopicCreated is raised when a member opens a new topic.
type TopicCreated struct {
	ID         string
	TopicID    int64
	Content    string
	Author     Author
	ReceivedAt time.Time
}

func (e TopicCreated) Topic() int64           { return e.TopicID }
func (e TopicCreated) NotificationID() string { return e.ID }

// PostCreated is raised for a new reply in a topic.
type PostCreated struct {
	ID         string
	TopicID    int64
	PostID     int64
	Content    string
	Author     Author
	ReceivedAt time.Time
}

func (e PostCreated) Topic() int64           { return e.TopicID }
func (e PostCreated) NotificationID() string { return e.ID }
