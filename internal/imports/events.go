package imports

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

// Event types carried in the "event_type" message attribute.
const (
	EventImportQueued   = "pricelist.import.queued"
	EventImportFinished = "pricelist.import.finished"
)

// QueuedEvent asks a worker to drive a job to completion.
type QueuedEvent struct {
	JobID       string    `json:"job_id"`
	PriceListID string    `json:"price_list_id"`
	QueuedAt    time.Time `json:"queued_at"`
}

// FinishedEvent announces a terminal job.
type FinishedEvent struct {
	Summary    Summary   `json:"summary"`
	FinishedAt time.Time `json:"finished_at"`
}

// Enqueuer hands a saved job to whatever drives it.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *JobContext) error
}

// Notifier is told when a job reaches a terminal status.
type Notifier interface {
	JobFinished(ctx context.Context, summary Summary) error
}

type publisher interface {
	PublishJSON(ctx context.Context, topic string, attrs map[string]string, payload any) (string, error)
}

// PubSubNotifier publishes queued jobs and completion events.
type PubSubNotifier struct {
	pub         publisher
	jobsTopic   string
	eventsTopic string
	now         func() time.Time
}

func NewPubSubNotifier(pub publisher, jobsTopic, eventsTopic string) (*PubSubNotifier, error) {
	if pub == nil {
		return nil, errors.New("pubsub publisher required")
	}
	if jobsTopic == "" || eventsTopic == "" {
		return nil, errors.New("import jobs and events topics are required")
	}
	return &PubSubNotifier{pub: pub, jobsTopic: jobsTopic, eventsTopic: eventsTopic, now: time.Now}, nil
}

func (n *PubSubNotifier) Enqueue(ctx context.Context, job *JobContext) error {
	_, err := n.pub.PublishJSON(ctx, n.jobsTopic, attrs(EventImportQueued, job.PriceListID.String()), QueuedEvent{
		JobID:       job.ID.String(),
		PriceListID: job.PriceListID.String(),
		QueuedAt:    n.now().UTC(),
	})
	return err
}

func (n *PubSubNotifier) JobFinished(ctx context.Context, summary Summary) error {
	_, err := n.pub.PublishJSON(ctx, n.eventsTopic, attrs(EventImportFinished, summary.PriceListID), FinishedEvent{
		Summary:    summary,
		FinishedAt: n.now().UTC(),
	})
	return err
}

func attrs(eventType, priceListID string) map[string]string {
	return map[string]string{
		"event_type":    eventType,
		"price_list_id": priceListID,
	}
}

// LogNotifier only logs. It backs deployments without Pub/Sub, where jobs are
// advanced through the API or the CLI.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Enqueue(ctx context.Context, job *JobContext) error {
	n.logg.Info(n.logg.WithJobID(ctx, job.ID.String()), "import job queued for manual advance")
	return nil
}

func (n *LogNotifier) JobFinished(ctx context.Context, summary Summary) error {
	n.logg.Info(n.logg.WithJobID(ctx, summary.JobID), summary.Message)
	return nil
}
