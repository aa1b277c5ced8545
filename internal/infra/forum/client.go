// Package forum talks to the Invision-style REST API of the forum.
package forum

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"forum-quiz-bot/internal/domain"
	"forum-quiz-bot/internal/infra/apiclient"
	"github.com/sirupsen/logrus"
)

// Config locates the forum API and the bot's member account.
type Config struct {
	BaseURL   string
	APIKey    string
	MemberID  int64
	UserAgent string
}

// Client reads notifications addressed to the bot and posts replies as the bot.
type Client struct {
	api   *apiclient.Client
	cfg   Config
	clock func() time.Time
	log   logrus.FieldLogger
}

func NewClient(api *apiclient.Client, cfg Config, log logrus.FieldLogger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{api: api, cfg: cfg, clock: time.Now, log: log}
}

type notificationList struct {
	Results []notification `json:"results"`
}

type notification struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	TopicID int64  `json:"topic_id"`
	PostID  int64  `json:"post_id"`
	Content string `json:"content"`
	Author  struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"author"`
}

// Notifications returns the bot's recent notifications as events, oldest first.
// Notification types the quiz does not react to are skipped.
func (c *Client) Notifications(ctx context.Context) ([]domain.Event, error) {
	endpoint := fmt.Sprintf("%s/core/members/%d/notifications", c.cfg.BaseURL, c.cfg.MemberID)

	var list notificationList
	if err := c.api.GetJSON(ctx, endpoint, c.header(), &list); err != nil {
		return nil, fmt.Errorf("fetch notifications: %w", err)
	}

	sort.SliceStable(list.Results, func(i, j int) bool {
		return list.Results[i].ID < list.Results[j].ID
	})

	now := c.clock()
	events := make([]domain.Event, 0, len(list.Results))
	for _, n := range list.Results {
		author := domain.Author{ID: n.Author.ID, Name: n.Author.Name}
		id := strconv.FormatInt(n.ID, 10)
		switch n.Type {
		case "new_topic":
			events = append(events, domain.TopicCreated{
				ID: id, TopicID: n.TopicID, Content: n.Content, Author: author, ReceivedAt: now,
			})
		case "new_post", "mention":
			events = append(events, domain.PostCreated{
				ID: id, TopicID: n.TopicID, PostID: n.PostID, Content: n.Content, Author: author, ReceivedAt: now,
			})
		default:
			c.log.WithFields(logrus.Fields{"notification_id": n.ID, "type": n.Type}).Debug("skipping notification")
		}
	}
	return events, nil
}

// PostReply publishes markup in topicID as the bot.
func (c *Client) PostReply(ctx context.Context, topicID int64, markup string) error {
	form := url.Values{}
	form.Set("topic", strconv.FormatInt(topicID, 10))
	form.Set("author", strconv.FormatInt(c.cfg.MemberID, 10))
	form.Set("post", markup)

	c.log.WithField("topic_id", topicID).Info("posting reply")
	if err := c.api.PostForm(ctx, c.cfg.BaseURL+"/forums/posts", c.header(), form, nil); err != nil {
		return fmt.Errorf("post reply to topic %d: %w", topicID, err)
	}
	return nil
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", basicAuth(c.cfg.APIKey))
	if c.cfg.UserAgent != "" {
		h.Set("User-Agent", c.cfg.UserAgent)
	}
	return h
}

// basicAuth encodes the API key as the user name with an empty password.
func basicAuth(apiKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey+":"))
}
