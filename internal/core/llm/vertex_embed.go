package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"

	"github.com/markdave123-py/mediasearch/internal/config"
	"github.com/markdave123-py/mediasearch/internal/core"
	"github.com/markdave123-py/mediasearch/internal/core/retry"
	"github.com/markdave123-py/mediasearch/internal/models"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// APIError is a non-2xx response from the prediction endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vertex predict: status %d: %s", e.StatusCode, e.Body)
}

// Retryable follows the usual rule: 408, 429 and 5xx can succeed on a later attempt.
func (e *APIError) Retryable() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout {
		return true
	}
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

// VertexEmbedder calls the multimodal embedding model's :predict endpoint.
type VertexEmbedder struct {
	httpClient *http.Client
	endpoint   string
	dim        int
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ core.EmbeddingProvider = (*VertexEmbedder)(nil)

type VertexOptions struct {
	HTTPClient *http.Client
	Endpoint   string
	Dim        int
	// RPS caps request rate; zero disables the limiter.
	RPS    float64
	Logger *slog.Logger
}

// PredictEndpoint builds the regional :predict URL for a publisher model.
func PredictEndpoint(project, location, model string) string {
	return fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
		location, project, location, model,
	)
}

// NewVertexEmbedder authenticates with the base64 service-account JSON from config.
func NewVertexEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*VertexEmbedder, error) {
	creds, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("decode GOOGLE_CREDENTIALS_BASE64: %w", err)
	}

	hc, _, err := htransport.NewClient(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(cloudPlatformScope),
	)
	if err != nil {
		return nil, fmt.Errorf("vertex http client: %w", err)
	}

	return NewVertexEmbedderWithOptions(VertexOptions{
		HTTPClient: hc,
		Endpoint:   PredictEndpoint(cfg.ProjectID, cfg.ProjectLocation, cfg.EmbedModel),
		Dim:        cfg.EmbedDim,
		RPS:        cfg.EmbedRPS,
		Logger:     logger,
	}), nil
}

func NewVertexEmbedderWithOptions(o VertexOptions) *VertexEmbedder {
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.Dim <= 0 {
		o.Dim = 1408
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	logger := o.Logger

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "VertexEmbed",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// rejected inputs and callers giving up say nothing about the endpoint's health
		IsSuccessful: func(err error) bool {
			var cd *callerDoneError
			return err == nil || retry.IsPermanent(err) || errors.As(err, &cd)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	var limiter *rate.Limiter
	if o.RPS > 0 {
		burst := int(o.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(o.RPS), burst)
	}

	return &VertexEmbedder{
		httpClient: o.HTTPClient,
		endpoint:   o.Endpoint,
		dim:        o.Dim,
		breaker:    breaker,
		limiter:    limiter,
		logger:     logger,
	}
}

type predictRequest struct {
	Instances  []instance `json:"instances"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	Dimension int `json:"dimension,omitempty"`
}

type instance struct {
	Text  *string     `json:"text,omitempty"`
	Image *mediaBytes `json:"image,omitempty"`
	Video *videoInput `json:"video,omitempty"`
}

type mediaBytes struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
}

type videoInput struct {
	BytesBase64Encoded string                     `json:"bytesBase64Encoded"`
	VideoSegmentConfig *models.VideoSegmentConfig `json:"videoSegmentConfig,omitempty"`
}

type predictResponse struct {
	Predictions []struct {
		TextEmbedding   []float32 `json:"textEmbedding"`
		ImageEmbedding  []float32 `json:"imageEmbedding"`
		VideoEmbeddings []struct {
			StartOffsetSec int       `json:"startOffsetSec"`
			EndOffsetSec   int       `json:"endOffsetSec"`
			Embedding      []float32 `json:"embedding"`
		} `json:"videoEmbeddings"`
	} `json:"predictions"`
}

var ErrEmptyPrediction = errors.New("vertex predict: response has no predictions")

// callerDoneError wraps a failure that happened after the caller's context ended.
type callerDoneError struct{ err error }

func (e *callerDoneError) Error() string { return e.err.Error() }
func (e *callerDoneError) Unwrap() error { return e.err }

func (v *VertexEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := v.predict(ctx, instance{Text: &text})
	if err != nil {
		return nil, err
	}
	if len(resp.Predictions[0].TextEmbedding) == 0 {
		return nil, retry.Permanent(fmt.Errorf("%w: missing textEmbedding", ErrEmptyPrediction))
	}
	return resp.Predictions[0].TextEmbedding, nil
}

func (v *VertexEmbedder) EmbedImage(ctx context.Context, imageBase64 string) ([]float32, error) {
	resp, err := v.predict(ctx, instance{Image: &mediaBytes{BytesBase64Encoded: imageBase64}})
	if err != nil {
		return nil, err
	}
	if len(resp.Predictions[0].ImageEmbedding) == 0 {
		return nil, retry.Permanent(fmt.Errorf("%w: missing imageEmbedding", ErrEmptyPrediction))
	}
	return resp.Predictions[0].ImageEmbedding, nil
}

// EmbedVideo returns one embedding per window. A nil cfg lets the model pick its default window.
func (v *VertexEmbedder) EmbedVideo(ctx context.Context, videoBase64 string, cfg *models.VideoSegmentConfig) ([]models.VideoSegmentEmbedding, error) {
	if cfg != nil {
		if err := cfg.Validate(); err != nil {
			return nil, retry.Permanent(err)
		}
	}

	resp, err := v.predict(ctx, instance{Video: &videoInput{BytesBase64Encoded: videoBase64, VideoSegmentConfig: cfg}})
	if err != nil {
		return nil, err
	}

	raw := resp.Predictions[0].VideoEmbeddings
	if len(raw) == 0 {
		return nil, retry.Permanent(fmt.Errorf("%w: missing videoEmbeddings", ErrEmptyPrediction))
	}
	out := make([]models.VideoSegmentEmbedding, 0, len(raw))
	for _, e := range raw {
		out = append(out, models.VideoSegmentEmbedding{
			Embedding:      e.Embedding,
			StartOffsetSec: e.StartOffsetSec,
			EndOffsetSec:   e.EndOffsetSec,
		})
	}
	return out, nil
}

func (v *VertexEmbedder) predict(ctx context.Context, in instance) (*predictResponse, error) {
	body, err := json.Marshal(predictRequest{
		Instances:  []instance{in},
		Parameters: parameters{Dimension: v.dim},
	})
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("marshal predict request: %w", err))
	}

	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result, err := v.breaker.Execute(func() (interface{}, error) {
		resp, err := v.do(ctx, body)
		if err != nil && ctx.Err() != nil {
			return nil, &callerDoneError{err: err}
		}
		return resp, err
	})
	if err != nil {
		var cd *callerDoneError
		if errors.As(err, &cd) {
			return nil, cd.err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("vertex predict unavailable: %w", err)
		}
		return nil, err
	}

	resp := result.(*predictResponse)
	v.logger.Debug("vertex predict", "duration_ms", time.Since(start).Milliseconds(), "bytes", len(body))
	return resp, nil
}

func (v *VertexEmbedder) do(ctx context.Context, body []byte) (*predictResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("build predict request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	res, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vertex predict: %w", err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("vertex predict: read body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{StatusCode: res.StatusCode, Body: truncate(string(payload), 512)}
		if !apiErr.Retryable() {
			return nil, retry.Permanent(apiErr)
		}
		return nil, apiErr
	}

	var out predictResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("vertex predict: decode response: %w", err)
	}
	if len(out.Predictions) == 0 {
		return nil, ErrEmptyPrediction
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
