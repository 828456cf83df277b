package assign

import (
	"context"

	"voicetag/internal/segments"
)

// Accept returns the top-ranked speaker when its score strictly exceeds the
// threshold. A score equal to the threshold is rejected. The second return
// is false for an empty list or a top score at or below the threshold.
func Accept(ranked []segments.Score, threshold float64) (string, bool) {
	if len(ranked) == 0 {
		return "", false
	}
	top := ranked[0]
	if top.Score > threshold {
		return top.SpeakerID, true
	}
	return "", false
}

// Aggregate is the set of segments accepted for one speaker, in segment
// order. Utterances carries the accepted segments' transcript text in the
// same order as SegmentIDs.
type Aggregate struct {
	SpeakerID  string
	SegmentIDs []int64
	Utterances []string
}

// BuildAggregates recomputes every speaker's accepted segment list from the
// stored ranked scores. Aggregates are always rebuilt from scratch so they
// cannot drift from the per-segment state. The segment assignments in the
// store are updated to match.
func BuildAggregates(ctx context.Context, store *segments.Store, threshold float64) ([]Aggregate, error) {
	records, err := store.ListSegments(ctx)
	if err != nil {
		return nil, err
	}
	speakers, err := store.ListSpeakers(ctx)
	if err != nil {
		return nil, err
	}
	scores, err := store.AllScores(ctx)
	if err != nil {
		return nil, err
	}

	bySpeaker := make(map[string]*Aggregate, len(speakers))
	aggregates := make([]Aggregate, len(speakers))
	for i, speaker := range speakers {
		aggregates[i] = Aggregate{SpeakerID: speaker.ID}
		bySpeaker[speaker.ID] = &aggregates[i]
	}

	for _, record := range records {
		speakerID, accepted := Accept(scores[record.ID], threshold)
		if !accepted {
			speakerID = ""
		}
		if record.SpeakerID != speakerID {
			if err := store.SetSegmentSpeaker(ctx, record.ID, speakerID); err != nil {
				return nil, err
			}
		}
		if accepted {
			if aggregate, ok := bySpeaker[speakerID]; ok {
				aggregate.SegmentIDs = append(aggregate.SegmentIDs, record.ID)
				aggregate.Utterances = append(aggregate.Utterances, record.Text)
			}
		}
	}
	return aggregates, nil
}
