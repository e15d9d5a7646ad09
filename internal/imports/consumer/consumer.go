package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/pricelist-backend/internal/imports"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

const payloadPreviewBytes = 400

type jobRunner interface {
	RunToCompletion(ctx context.Context, jobID uuid.UUID) (*imports.JobContext, error)
}

// disposition is what happens to a delivery once handled.
type disposition int

const (
	ack disposition = iota
	redeliver
)

func (d disposition) String() string {
	if d == redeliver {
		return "nack"
	}
	return "ack"
}

// errPoison marks a delivery that can never succeed and is dropped.
var errPoison = errors.New("unusable import message")

// Consumer drives queued import jobs delivered over Pub/Sub.
type Consumer struct {
	runner       jobRunner
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer wires a runner to the import subscription. A nil logger discards.
func NewConsumer(runner jobRunner, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if runner == nil {
		return nil, errors.New("import runner is required")
	}
	if subscription == nil {
		return nil, errors.New("import subscription is required")
	}
	return &Consumer{runner: runner, subscription: subscription, logg: logg}, nil
}

// Run receives until ctx is canceled or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.handle(ctx, msg) == redeliver {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) handle(ctx context.Context, msg *pubsub.Message) disposition {
	fields := map[string]any{
		"message_id":    msg.ID,
		"event_type":    msg.Attributes["event_type"],
		"price_list_id": msg.Attributes["price_list_id"],
	}
	if msg.DeliveryAttempt != nil {
		fields["delivery_attempt"] = *msg.DeliveryAttempt
	}
	ctx = c.logg.WithFields(ctx, fields)

	if msg.Attributes["event_type"] != imports.EventImportQueued {
		c.logg.Debug(ctx, "import.message_skipped")
		return ack
	}
	jobID, err := decodeJobID(msg.Data)
	if err != nil {
		c.logg.Error(c.logg.WithField(ctx, "payload_preview", preview(msg.Data)), "import.message_dropped", err)
		return ack
	}
	ctx = c.logg.WithJobID(ctx, jobID.String())

	job, err := c.runner.RunToCompletion(ctx, jobID)
	if err != nil {
		return c.settle(ctx, err)
	}
	c.logg.Info(c.logg.WithField(ctx, "status", job.Status.String()), "import.job_finished")
	return ack
}

func decodeJobID(data []byte) (uuid.UUID, error) {
	if len(data) == 0 {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errPoison, "empty payload")
	}
	var event imports.QueuedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errors.Join(errPoison, err), "payload is not a queued event")
	}
	id, err := uuid.Parse(strings.TrimSpace(event.JobID))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errors.Join(errPoison, err), "payload carries an invalid job id")
	}
	return id, nil
}

// settle decides whether a failed run is worth another delivery. Missing and
// terminally failed jobs are acknowledged; a job held by another worker, a
// canceled receive and dependency errors are redelivered.
func (c *Consumer) settle(ctx context.Context, err error) disposition {
	code := pkgerrors.Dump(err).Code
	switch {
	case code == pkgerrors.CodeNotFound:
		c.logg.Warn(ctx, "import.job_missing")
		return ack
	case code == pkgerrors.CodeImportFailed:
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "import.job_failed")
		return ack
	case code == pkgerrors.CodeConflict:
		c.logg.Info(ctx, "import.job_busy")
		return redeliver
	case errors.Is(err, context.Canceled):
		c.logg.Info(ctx, "import.job_interrupted")
		return redeliver
	}
	c.logg.Error(c.logg.WithField(ctx, "disposition", redeliver.String()), "import.job_errored", err)
	return redeliver
}

func preview(b []byte) string {
	if len(b) <= payloadPreviewBytes {
		return string(b)
	}
	cut := payloadPreviewBytes
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "...(truncated)"
}
