package stt

import "context"

// Provider submits an audio file to the transcription vendor and blocks
// until the job reaches a terminal state.
type Provider interface {
	Transcribe(ctx context.Context, audioURL string, fileExt string, cfg VendorConfig) (*Result, error)
}

// VendorConfig is the job configuration sent with a transcription request.
// Zero values are filled with the vendor defaults by Normalize-side callers;
// see BuildVendorConfig in the services package.
type VendorConfig struct {
	ModelName            string             `json:"model_name"`
	Language             string             `json:"language,omitempty"`
	LanguageCandidates   []string           `json:"language_candidates,omitempty"`
	UseITN               bool               `json:"use_itn"`
	UseDisfluencyFilter  bool               `json:"use_disfluency_filter"`
	UseProfanityFilter   bool               `json:"use_profanity_filter"`
	UseParagraphSplitter bool               `json:"use_paragraph_splitter"`
	ParagraphSplitter    *ParagraphSplitter `json:"paragraph_splitter,omitempty"`
	Domain               string             `json:"domain,omitempty"`
	Keywords             []string           `json:"keywords,omitempty"`
	UseWordTimestamp     bool               `json:"use_word_timestamp"`
	UseDiarization       bool               `json:"use_diarization"`
	Diarization          *Diarization       `json:"diarization,omitempty"`
}

type ParagraphSplitter struct {
	Max int `json:"max"`
}

type Diarization struct {
	SpkCount *int `json:"spk_count,omitempty"`
}

// Utterance is one vendor-reported speech segment. Spk is nil when the job
// ran without diarization.
type Utterance struct {
	Spk      *int   `json:"spk"`
	Msg      string `json:"msg"`
	StartAt  int    `json:"start_at"`
	Duration int    `json:"duration"`
}

// Result is the terminal outcome of a transcription job.
type Result struct {
	Utterances []Utterance
}
