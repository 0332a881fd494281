package stt

import (
	"fmt"
	"strings"

	"github.com/daonlab/talkreport/internal/models"
)

// Normalized is the flat view of a vendor result: a printable transcript,
// the ordered speaker segments and the default display-name mapping.
// SpeakerLabels and SpeakerNames are nil when no utterance carried a
// speaker tag.
type Normalized struct {
	Transcript    string
	SpeakerLabels []models.SpeakerLabel
	SpeakerNames  map[string]string
}

// Normalize flattens the vendor utterance list. Utterances with a speaker
// tag become "speaker<N>: <text>" lines with a label record; untagged ones
// contribute their bare text. First sight of a speaker seeds a 1-based
// default display name.
func Normalize(utterances []Utterance) Normalized {
	if len(utterances) == 0 {
		return Normalized{}
	}

	var (
		lines  []string
		labels []models.SpeakerLabel
		names  map[string]string
	)

	for _, u := range utterances {
		if u.Msg == "" {
			continue
		}
		if u.Spk == nil {
			lines = append(lines, u.Msg)
			continue
		}

		speaker := fmt.Sprintf("speaker%d", *u.Spk)
		lines = append(lines, speaker+": "+u.Msg)
		labels = append(labels, models.SpeakerLabel{
			Speaker: speaker,
			Text:    u.Msg,
			StartAt: u.StartAt,
			EndAt:   u.StartAt + u.Duration,
		})
		if names == nil {
			names = make(map[string]string)
		}
		if _, ok := names[speaker]; !ok {
			names[speaker] = fmt.Sprintf("화자%d", *u.Spk+1)
		}
	}

	return Normalized{
		Transcript:    strings.Join(lines, "\n"),
		SpeakerLabels: labels,
		SpeakerNames:  names,
	}
}

// RenderWithNames regenerates the flat transcript from speaker labels,
// substituting each label's display name and falling back to the label
// itself when unmapped.
func RenderWithNames(labels []models.SpeakerLabel, names map[string]string) string {
	lines := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.Speaker == "" {
			lines = append(lines, l.Text)
			continue
		}
		name := l.Speaker
		if v, ok := names[l.Speaker]; ok && v != "" {
			name = v
		}
		lines = append(lines, name+": "+l.Text)
	}
	return strings.Join(lines, "\n")
}
