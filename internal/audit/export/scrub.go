package export

import (
	"context"

	"charak/internal/audit"
	"charak/internal/privacy"
)

// ScrubbingPublisher redacts PHI from event metadata before the batch
// leaves the device. Audit meta should never carry identifiers, but the
// export boundary is where that assumption stops being recoverable, so
// it is enforced here.
type ScrubbingPublisher struct {
	next     Publisher
	scrubber *privacy.Scrubber
}

// NewScrubbingPublisher wraps next with metadata redaction.
func NewScrubbingPublisher(next Publisher, scrubber *privacy.Scrubber) *ScrubbingPublisher {
	return &ScrubbingPublisher{next: next, scrubber: scrubber}
}

func (p *ScrubbingPublisher) Publish(ctx context.Context, events []audit.Event) error {
	cleaned := make([]audit.Event, len(events))
	for i, e := range events {
		cleaned[i] = e
		if len(e.Meta) == 0 {
			continue
		}
		meta := make(map[string]string, len(e.Meta))
		for k, v := range e.Meta {
			meta[k] = p.scrubber.Scrub(v)
		}
		cleaned[i].Meta = meta
	}
	return p.next.Publish(ctx, cleaned)
}

func (p *ScrubbingPublisher) Close() {
	p.next.Close()
}
