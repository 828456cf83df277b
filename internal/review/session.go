package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Segment is one labeled span under review. IDs are opaque so segments
// added by hand and segments imported from a transcript coexist.
type Segment struct {
	ID           string  `json:"id"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	Text         string  `json:"text"`
	OriginalText string  `json:"original_text,omitempty"`
	Speaker      string  `json:"speaker"`
	Notes        string  `json:"notes,omitempty"`
}

// Video describes the recording loaded into a session.
type Video struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// Session is the mutable state of one review: the loaded recording and
// its working segment list. A new video load resets the segment list.
type Session struct {
	mu       sync.RWMutex
	video    *Video
	segments []Segment
}

func NewSession() *Session {
	return &Session{}
}

// LoadVideo points the session at a recording and clears prior segments.
func (s *Session) LoadVideo(path string) (Video, error) {
	if path == "" {
		return Video{}, fmt.Errorf("video path required")
	}
	if _, err := os.Stat(path); err != nil {
		return Video{}, fmt.Errorf("video not found: %s", path)
	}

	video := Video{Path: path, Name: filepath.Base(path)}
	s.mu.Lock()
	s.video = &video
	s.segments = nil
	s.mu.Unlock()
	return video, nil
}

// Video returns the loaded recording, if any.
func (s *Session) Video() (Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.video == nil {
		return Video{}, false
	}
	return *s.video, true
}

// engineOutput matches the transcription engine's JSON shape. The file may
// also be a bare segment array.
type engineOutput struct {
	Segments []engineSegment `json:"segments"`
}

type engineSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// LoadSegmentsFile replaces the session's segments with the contents of a
// transcription output file. Each imported segment gets a fresh id.
func (s *Session) LoadSegmentsFile(path string) ([]Segment, error) {
	s.mu.RLock()
	loaded := s.video != nil
	s.mu.RUnlock()
	if !loaded {
		return nil, fmt.Errorf("no video loaded")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments file: %w", err)
	}

	var wrapped engineOutput
	if err := json.Unmarshal(data, &wrapped); err != nil || len(wrapped.Segments) == 0 {
		var bare []engineSegment
		if err := json.Unmarshal(data, &bare); err != nil {
			return nil, fmt.Errorf("segments file %s is not valid JSON", path)
		}
		wrapped.Segments = bare
	}
	if len(wrapped.Segments) == 0 {
		return nil, fmt.Errorf("no segments found in %s", path)
	}

	imported := make([]Segment, 0, len(wrapped.Segments))
	source := filepath.Base(path)
	for _, segment := range wrapped.Segments {
		imported = append(imported, Segment{
			ID:           uuid.NewString(),
			StartTime:    segment.Start,
			EndTime:      segment.End,
			Text:         segment.Text,
			OriginalText: segment.Text,
			Notes:        "imported from " + source,
		})
	}

	s.mu.Lock()
	s.segments = imported
	s.mu.Unlock()
	return imported, nil
}

// Segments returns a copy of the working segment list.
func (s *Session) Segments() []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Add appends a segment and assigns it an id.
func (s *Session) Add(segment Segment) Segment {
	segment.ID = uuid.NewString()
	s.mu.Lock()
	s.segments = append(s.segments, segment)
	s.mu.Unlock()
	return segment
}

// SetSpeaker updates one segment's speaker label.
func (s *Session) SetSpeaker(id, speaker string) (Segment, error) {
	return s.update(id, func(segment *Segment) {
		segment.Speaker = speaker
	})
}

// SetText updates one segment's transcript text.
func (s *Session) SetText(id, text string) (Segment, error) {
	return s.update(id, func(segment *Segment) {
		segment.Text = text
	})
}

// Update replaces a segment's timing, speaker, and notes.
func (s *Session) Update(id string, speaker string, start, end float64, notes string) (Segment, error) {
	return s.update(id, func(segment *Segment) {
		segment.Speaker = speaker
		segment.StartTime = start
		segment.EndTime = end
		segment.Notes = notes
	})
}

func (s *Session) update(id string, apply func(*Segment)) (Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.segments {
		if s.segments[i].ID == id {
			apply(&s.segments[i])
			return s.segments[i], nil
		}
	}
	return Segment{}, fmt.Errorf("segment %s not found", id)
}

// Delete removes a segment by id. Deleting an unknown id is a no-op.
func (s *Session) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.segments[:0]
	for _, segment := range s.segments {
		if segment.ID != id {
			kept = append(kept, segment)
		}
	}
	s.segments = kept
}

// ExportLabel is the evaluation-facing shape: who spoke when.
type ExportLabel struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Export returns the labels sorted by start time.
func (s *Session) Export() []ExportLabel {
	segments := s.Segments()
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartTime < segments[j].StartTime
	})
	labels := make([]ExportLabel, 0, len(segments))
	for _, segment := range segments {
		labels = append(labels, ExportLabel{
			Speaker: segment.Speaker,
			Start:   segment.StartTime,
			End:     segment.EndTime,
		})
	}
	return labels
}

// SaveLabels writes the session's segments to a JSON file.
func (s *Session) SaveLabels(path string) error {
	data, err := json.MarshalIndent(s.Segments(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure labels dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write labels: %w", err)
	}
	return nil
}

// LoadLabels replaces the session's segments with a previously saved file.
func (s *Session) LoadLabels(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	var loaded []Segment
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("labels file %s is not valid JSON", path)
	}
	for i := range loaded {
		if loaded[i].ID == "" {
			loaded[i].ID = uuid.NewString()
		}
	}

	s.mu.Lock()
	s.segments = loaded
	s.mu.Unlock()
	return loaded, nil
}
