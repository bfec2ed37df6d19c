package submission

import (
	"context"
	"log"

	"github.com/xelth-com/shopvidgo/internal/models"
)

// Sink accepts validated submissions for dispatch to the advertising platform
type Sink interface {
	Submit(ctx context.Context, submissions []models.SubmissionMetadata) error
}

// StatusSource reports insertion outcomes of a video
type StatusSource interface {
	InsertionStatusesForVideo(ctx context.Context, videoUUID string) ([]models.AdGroupInsertionStatus, error)
}

// Pipeline is the reviewer side of a submission. Failures are logged and
// reported as false; nothing is returned as an error past this point.
type Pipeline struct {
	sink   Sink
	status StatusSource
}

// NewPipeline creates a pipeline that submits to sink and polls status
func NewPipeline(sink Sink, status StatusSource) *Pipeline {
	return &Pipeline{sink: sink, status: status}
}

// Submit validates req and hands it to the sink. Invalid requests are
// rejected without calling the sink.
func (p *Pipeline) Submit(ctx context.Context, req Request) bool {
	meta, err := Build(req)
	if err != nil {
		log.Printf("⚠️  Submission rejected: %v", err)
		return false
	}

	if err := p.sink.Submit(ctx, []models.SubmissionMetadata{*meta}); err != nil {
		log.Printf("❌ Submission for video %s failed: %v", meta.VideoUUID, err)
		return false
	}

	log.Printf("🚀 Submitted %d offers of video %s to %d destinations",
		len(meta.OfferIDList()), meta.VideoUUID, len(meta.Destinations))
	return true
}

// InsertionStatusesForVideo polls the outcomes recorded for a video. Callers
// re-invoke it to refresh; the pipeline never pushes updates.
func (p *Pipeline) InsertionStatusesForVideo(ctx context.Context, videoUUID string) ([]models.AdGroupInsertionStatus, bool) {
	statuses, err := p.status.InsertionStatusesForVideo(ctx, videoUUID)
	if err != nil {
		log.Printf("❌ Failed to load insertion statuses for video %s: %v", videoUUID, err)
		return nil, false
	}
	return statuses, true
}
