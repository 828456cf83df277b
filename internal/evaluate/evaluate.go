package evaluate

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"voicetag/internal/match"
)

// Span is a speaker label over a time range.
type Span struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// GroundTruth is the human-labeled reference for one recording. Either
// field may be empty, which skips the corresponding metric.
type GroundTruth struct {
	Segments []Span `json:"segments"`
	Text     string `json:"text"`
}

// Report holds the computed metrics. A nil value means the metric was not
// computed because its ground truth was absent.
type Report struct {
	DiarizationErrorRate *float64 `json:"diarization_error_rate,omitempty"`
	WordErrorRate        *float64 `json:"word_error_rate,omitempty"`
}

// LoadGroundTruth reads a ground truth JSON file.
func LoadGroundTruth(path string) (GroundTruth, error) {
	var gt GroundTruth
	data, err := os.ReadFile(path)
	if err != nil {
		return gt, fmt.Errorf("read ground truth: %w", err)
	}
	if err := json.Unmarshal(data, &gt); err != nil {
		return gt, fmt.Errorf("ground truth %s is not valid JSON: %w", path, err)
	}
	return gt, nil
}

// Evaluate computes whichever metrics the ground truth supports.
func Evaluate(gt GroundTruth, predicted []Span, transcript string) Report {
	var report Report
	if len(gt.Segments) > 0 {
		der := DiarizationErrorRate(gt.Segments, predicted)
		report.DiarizationErrorRate = &der
	}
	if gt.Text != "" {
		wer := WordErrorRate(gt.Text, transcript)
		report.WordErrorRate = &wer
	}
	return report
}

// DiarizationErrorRate computes the time-weighted fraction of reference
// speech that is missed, falsely detected, or attributed to the wrong
// speaker. Speaker identifiers are compared directly, so the hypothesis
// must use the same ids as the reference.
func DiarizationErrorRate(reference, hypothesis []Span) float64 {
	boundaries := make([]float64, 0, 2*(len(reference)+len(hypothesis)))
	for _, span := range reference {
		boundaries = append(boundaries, span.Start, span.End)
	}
	for _, span := range hypothesis {
		boundaries = append(boundaries, span.Start, span.End)
	}
	if len(boundaries) == 0 {
		return 0
	}
	sort.Float64s(boundaries)

	speakersAt := func(spans []Span, start, end float64) map[string]bool {
		active := make(map[string]bool)
		for _, span := range spans {
			if span.Start < end && span.End > start && span.Speaker != "" {
				active[span.Speaker] = true
			}
		}
		return active
	}

	var errTime, refTime float64
	for i := 1; i < len(boundaries); i++ {
		start, end := boundaries[i-1], boundaries[i]
		duration := end - start
		if duration <= 0 {
			continue
		}

		ref := speakersAt(reference, start, end)
		hyp := speakersAt(hypothesis, start, end)
		overlap := 0
		for speaker := range ref {
			if hyp[speaker] {
				overlap++
			}
		}

		refCount, hypCount := len(ref), len(hyp)
		missed := refCount - hypCount
		falseAlarm := hypCount - refCount
		if missed < 0 {
			missed = 0
		}
		if falseAlarm < 0 {
			falseAlarm = 0
		}
		confusion := min(refCount, hypCount) - overlap
		if confusion < 0 {
			confusion = 0
		}

		errTime += duration * float64(missed+falseAlarm+confusion)
		refTime += duration * float64(refCount)
	}

	if refTime == 0 {
		if errTime > 0 {
			return 1
		}
		return 0
	}
	return errTime / refTime
}

// WordErrorRate computes the word-level edit distance between normalized
// transcripts, divided by the reference word count.
func WordErrorRate(reference, hypothesis string) float64 {
	refWords := match.Tokens(reference)
	hypWords := match.Tokens(hypothesis)
	if len(refWords) == 0 {
		if len(hypWords) == 0 {
			return 0
		}
		return 1
	}
	return float64(editDistance(refWords, hypWords)) / float64(len(refWords))
}

func editDistance(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j-1]+cost, min(prev[j]+1, curr[j-1]+1))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
