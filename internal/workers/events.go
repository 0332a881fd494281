package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// StatusEvent is published whenever a pipeline stage changes the state of
// a report or one of its audio files. Dashboards subscribe through the
// websocket endpoint; persistence never depends on delivery.
type StatusEvent struct {
	Type        string `json:"type"` // stt | analysis | publish
	ReportID    uint   `json:"report_id,omitempty"`
	AudioFileID uint   `json:"audio_file_id,omitempty"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
}

// Publisher fans out status events. Best-effort: failures are logged and
// swallowed.
type Publisher interface {
	Publish(ctx context.Context, ev StatusEvent)
}

// ReportStatusChannel is the pub/sub channel carrying every event for one
// report and its audio files.
func ReportStatusChannel(reportID uint) string {
	return fmt.Sprintf("report:%d:status", reportID)
}

type redisPublisher struct {
	rdb *redis.Client
	log *logrus.Logger
}

func NewRedisPublisher(rdb *redis.Client, log *logrus.Logger) Publisher {
	return &redisPublisher{rdb: rdb, log: log}
}

func (p *redisPublisher) Publish(ctx context.Context, ev StatusEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.WithError(err).Warn("status event marshal failed")
		return
	}
	if err := p.rdb.Publish(ctx, ReportStatusChannel(ev.ReportID), payload).Err(); err != nil {
		p.log.WithError(err).Warn("status event publish failed")
	}
}

type nopPublisher struct{}

// NewNopPublisher is used when Redis is not configured.
func NewNopPublisher() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, StatusEvent) {}
