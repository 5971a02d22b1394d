package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/disaster_backend/config"
)

const defaultURL = "http://127.0.0.1:8000/predict"

// ErrServiceUnavailable wraps every failure to obtain a prediction.
var ErrServiceUnavailable = errors.New("classification service unavailable")

// Prediction is the raw label pair returned by the prediction service.
type Prediction struct {
	Disaster string `json:"predicted_disaster"`
	Severity string `json:"predicted_severity"`
}

// Client posts images to the external disaster/severity prediction service.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if strings.TrimSpace(url) == "" {
		url = defaultURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// NewClientFromEnv reads CLASSIFIER_URL and CLASSIFIER_TIMEOUT_SECONDS.
func NewClientFromEnv() *Client {
	timeout := time.Duration(config.IntFromEnv("CLASSIFIER_TIMEOUT_SECONDS", 30)) * time.Second
	return NewClient(os.Getenv("CLASSIFIER_URL"), timeout)
}

func (c *Client) Classify(ctx context.Context, fileName string, image []byte) (Prediction, error) {
	if fileName == "" {
		fileName = "upload"
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if _, err := part.Write(image); err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if err := mw.Close(); err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Prediction{}, fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed Prediction
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Prediction{}, fmt.Errorf("%w: decode response: %v", ErrServiceUnavailable, err)
	}
	if parsed.Disaster == "" || parsed.Severity == "" {
		return Prediction{}, fmt.Errorf("%w: incomplete prediction", ErrServiceUnavailable)
	}
	parsed.Disaster = strings.ToLower(strings.TrimSpace(parsed.Disaster))
	parsed.Severity = strings.ToLower(strings.TrimSpace(parsed.Severity))
	return parsed, nil
}
