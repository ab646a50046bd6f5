package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/net/websocket"

	"vessel-proximity/internal/model"
	"vessel-proximity/pkg/logger"
)

// ErrAuthRejected is returned when the live feed refuses the API key
var ErrAuthRejected = errors.New("authentication rejected")

// Stream is an established subscription delivering raw frames
type Stream interface {
	Receive() ([]byte, error)
	Close() error
}

// StreamDialer opens a subscription to a streaming AIS source
type StreamDialer interface {
	Dial(ctx context.Context, sub model.Subscription) (Stream, error)
}

// NewSubscription builds the subscription frame for the given boxes
func NewSubscription(apiKey string, boxes []model.BoundingBox) model.Subscription {
	sub := model.Subscription{
		APIKey:             apiKey,
		FilterMessageTypes: append([]string(nil), PositionMessageTypes...),
	}
	for _, b := range boxes {
		for _, part := range b.Split() {
			sub.BoundingBoxes = append(sub.BoundingBoxes, [2][2]float64{
				{part.MinLat, part.MinLon},
				{part.MaxLat, part.MaxLon},
			})
		}
	}
	return sub
}

// AISStreamClient connects to the aisstream.io websocket API
type AISStreamClient struct {
	url              string
	origin           string
	handshakeTimeout time.Duration
	logger           *logger.Logger
}

// NewAISStreamClient creates a new aisstream.io client
func NewAISStreamClient(url string, handshakeTimeout time.Duration, log *logger.Logger) *AISStreamClient {
	return &AISStreamClient{
		url:              url,
		origin:           "http://localhost/",
		handshakeTimeout: handshakeTimeout,
		logger:           log,
	}
}

// Dial connects and sends the subscription frame
func (c *AISStreamClient) Dial(ctx context.Context, sub model.Subscription) (Stream, error) {
	cfg, err := websocket.NewConfig(c.url, c.origin)
	if err != nil {
		return nil, fmt.Errorf("invalid stream url: %w", err)
	}

	dialCtx := ctx
	if c.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.handshakeTimeout)
		defer cancel()
	}

	conn, err := cfg.DialContext(dialCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	if err := websocket.JSON.Send(conn, sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send subscription: %w", err)
	}

	c.logger.Debug("Subscribed to %s with %d bounding boxes", c.url, len(sub.BoundingBoxes))
	return &aisStream{conn: conn}, nil
}

type aisStream struct {
	conn *websocket.Conn
}

func (s *aisStream) Receive() ([]byte, error) {
	var raw []byte
	if err := websocket.Message.Receive(s.conn, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *aisStream) Close() error {
	return s.conn.Close()
}
