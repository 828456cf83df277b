package segments

// SegmentRecord is one transcript segment with its timing, text, extracted
// audio clip, and the speaker assigned to it (empty until assignment runs).
type SegmentRecord struct {
	ID        int64
	StartTime float64
	EndTime   float64
	Text      string
	ClipPath  string
	SpeakerID string
}

// Duration returns the segment length in seconds.
func (r SegmentRecord) Duration() float64 {
	return r.EndTime - r.StartTime
}

// Score is one segment/speaker similarity result. Rank orders scores per
// segment from best to worst.
type Score struct {
	SegmentID int64
	SpeakerID string
	Score     float64
	Rank      int
}

// Speaker is the persisted state for one configured speaker. Position is the
// configuration declaration order and drives tie-breaking. ReferenceSegments
// holds the segment matched for each reference utterance, in utterance
// order; it is empty when nothing matched. SamplePath is empty when no
// reference audio could be assembled for the speaker.
type Speaker struct {
	ID                string
	Position          int
	ReferenceSegments []int64
	SamplePath        string
}

// HasSample reports whether the speaker has usable reference audio and
// should participate in scoring.
func (s Speaker) HasSample() bool {
	return s.SamplePath != ""
}

// LabeledSegment is the exchange format for label export, review, and
// evaluation.
type LabeledSegment struct {
	ID        int64   `json:"id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text"`
	Speaker   string  `json:"speaker"`
}
