package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
	errTopicRequired     = errors.New("pubsub topic is required")
)

// Client holds the import queue resources: one subscription the worker pulls from and
// two topics the API publishes to. Publishers are created once per topic and flushed on Close.
type Client struct {
	ps        *pubsub.Client
	projectID string
	cfg       config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails fast when a configured resource is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	ps, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{ps: ps, projectID: projectID, cfg: cfg, publishers: map[string]*pubsub.Publisher{}}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"project":      projectID,
		"subscription": cfg.ImportSubscription,
		"topics":       []string{cfg.ImportTopic, cfg.EventsTopic},
	}), "pubsub client initialized")
	return c, nil
}

// Ping checks that the import subscription and both topics exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errNotInitialized
	}
	sub := c.resource("subscriptions", c.cfg.ImportSubscription)
	if sub == "" {
		return errors.New("pubsub subscription name is required")
	}
	if _, err := c.ps.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: sub}); err != nil {
		return missing("subscription", sub, err)
	}
	for _, topic := range []string{c.cfg.ImportTopic, c.cfg.EventsTopic} {
		name := c.resource("topics", topic)
		if name == "" {
			return errTopicRequired
		}
		if _, err := c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name}); err != nil {
			return missing("topic", name, err)
		}
	}
	return nil
}

func missing(kind, name string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// ImportSubscription returns the subscriber that receives queued import jobs.
func (c *Client) ImportSubscription() *pubsub.Subscriber {
	if c == nil || c.ps == nil {
		return nil
	}
	name := c.resource("subscriptions", c.cfg.ImportSubscription)
	if name == "" {
		return nil
	}
	return c.ps.Subscriber(name)
}

func (c *Client) ImportTopic() string { return c.cfg.ImportTopic }

func (c *Client) EventsTopic() string { return c.cfg.EventsTopic }

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	if c == nil || c.ps == nil {
		return nil, errNotInitialized
	}
	name := c.resource("topics", topic)
	if name == "" {
		return nil, errTopicRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pub, ok := c.publishers[name]
	if !ok {
		pub = c.ps.Publisher(name)
		c.publishers[name] = pub
	}
	return pub, nil
}

// PublishJSON marshals payload, publishes it to topic and waits for the server id.
func (c *Client) PublishJSON(ctx context.Context, topic string, attrs map[string]string, payload any) (string, error) {
	pub, err := c.publisher(topic)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal pubsub payload: %w", err)
	}
	id, err := pub.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	return id, nil
}

// Close flushes pending publishes and releases the connection.
func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	c.mu.Lock()
	for name, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.ps.Close()
}

// resource expands a short id to projects/<project>/<kind>/<id>. Full names pass through.
func (c *Client) resource(kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if c == nil || c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + kind + "/" + name
}
