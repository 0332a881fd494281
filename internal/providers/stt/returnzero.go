package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://openapi.vito.ai/v1"

	// Issued tokens are valid for six hours; refresh an hour early.
	tokenLifetime = 5 * time.Hour

	pollInterval    = 5 * time.Second
	maxPollAttempts = 60

	maxAudioBytes = 200 << 20
)

// ReturnZero is the client for the ReturnZero (VITO) speech-to-text API:
// token auth, multipart job submission and result polling.
type ReturnZero struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	HTTPClient   *http.Client
	Logger       *logrus.Logger

	mu         sync.Mutex
	token      string
	tokenExpAt time.Time
}

func NewReturnZero(clientID, clientSecret string, log *logrus.Logger) (*ReturnZero, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("stt: client id and secret are required")
	}
	if log == nil {
		log = logrus.New()
	}
	return &ReturnZero{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		BaseURL:      defaultBaseURL,
		HTTPClient:   &http.Client{Timeout: 2 * time.Minute},
		Logger:       log,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (c *ReturnZero) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpAt) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/authenticate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt authenticate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("stt authenticate: status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("stt authenticate: decode: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("stt authenticate: empty access token")
	}

	c.token = tr.AccessToken
	c.tokenExpAt = time.Now().Add(tokenLifetime)
	c.Logger.Info("stt access token issued")
	return c.token, nil
}

func mimeTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp3":
		return "audio/mpeg"
	case ".mp4", ".m4a":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	case ".amr":
		return "audio/amr"
	case ".ogg":
		return "audio/ogg"
	default:
		return "audio/wav"
	}
}

func (c *ReturnZero) download(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download audio: status %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/xml") || strings.HasPrefix(ct, "text/xml") {
		return nil, errors.New("download audio: storage returned an XML error response")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("download audio: read: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("download audio: empty body")
	}
	return data, nil
}

type submitResponse struct {
	ID string `json:"id"`
}

func (c *ReturnZero) submit(ctx context.Context, token string, audio []byte, fileExt string, cfg VendorConfig) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", "audio"+fileExt)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := w.WriteField("config", string(cfgJSON)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transcribe", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	c.Logger.WithFields(logrus.Fields{
		"mime_type": mimeTypeForExt(fileExt),
		"bytes":     len(audio),
	}).Info("submitting transcription job")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("stt submit: status %d: %s", resp.StatusCode, string(b))
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("stt submit: decode: %w", err)
	}
	if sr.ID == "" {
		return "", errors.New("stt submit: no job id in response")
	}
	return sr.ID, nil
}

type pollResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Results struct {
		Utterances []Utterance `json:"utterances"`
	} `json:"results"`
}

var errJobRunning = errors.New("stt job still running")

func (c *ReturnZero) poll(ctx context.Context, token, jobID string) (*Result, error) {
	var out *Result

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/transcribe/"+jobID, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			return fmt.Errorf("stt poll: status %d: %s", resp.StatusCode, string(b))
		}

		var pr pollResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return fmt.Errorf("stt poll: decode: %w", err)
		}

		switch pr.Status {
		case "completed":
			out = &Result{Utterances: pr.Results.Utterances}
			return nil
		case "failed":
			msg := pr.Message
			if msg == "" {
				msg = "unknown error"
			}
			return backoff.Permanent(fmt.Errorf("stt job failed: %s", msg))
		default:
			// transcribing / uploaded / anything unrecognized: keep polling
			return errJobRunning
		}
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(pollInterval), maxPollAttempts),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		if errors.Is(err, errJobRunning) {
			return nil, fmt.Errorf("stt job timed out after %d attempts", maxPollAttempts)
		}
		return nil, err
	}
	return out, nil
}

func (c *ReturnZero) Transcribe(ctx context.Context, audioURL string, fileExt string, cfg VendorConfig) (*Result, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	audio, err := c.download(ctx, audioURL)
	if err != nil {
		return nil, err
	}

	jobID, err := c.submit(ctx, token, audio, fileExt, cfg)
	if err != nil {
		return nil, err
	}
	c.Logger.WithField("job_id", jobID).Info("transcription job submitted")

	return c.poll(ctx, token, jobID)
}
