package textsource

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// remoteResponseSchema is the contract of POST {url}/extract. Only raw_text
// is required; the other keys are the service's own suggestions.
const remoteResponseSchema = `{
	"type": "object",
	"required": ["raw_text"],
	"properties": {
		"raw_text":         {"type": "string"},
		"produit_emis":     {"type": ["string", "null"]},
		"date_emission":    {"type": ["string", "null"]},
		"date_originale":   {"type": ["string", "null"]},
		"prescripteur":     {"type": ["string", "null"]},
		"produit_prescrit": {"type": ["string", "null"]},
		"qte_prescrite":    {"type": ["string", "number", "null"]},
		"nb_ren":           {"type": ["string", "number", "null"]},
		"posologie":        {"type": ["string", "null"]}
	}
}`

// extraKeys are copied from the response into Recognition.Extras.
var extraKeys = []string{
	"produit_emis",
	"date_emission",
	"date_originale",
	"prescripteur",
	"produit_prescrit",
	"qte_prescrite",
	"nb_ren",
	"posologie",
}

const maxRemoteResponse = 4 << 20

// RemoteSource posts the image to an HTTP recognition service.
type RemoteSource struct {
	baseURL string
	client  *http.Client
	schema  *jsonschema.Schema
}

// NewRemoteSource builds the remote backend for cfg.RemoteURL.
func NewRemoteSource(cfg Config) (*RemoteSource, error) {
	cfg = cfg.withDefaults()

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("remote_response.json", strings.NewReader(remoteResponseSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("remote_response.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &RemoteSource{
		baseURL: strings.TrimRight(cfg.RemoteURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		schema:  schema,
	}, nil
}

func (r *RemoteSource) Name() string { return BackendRemote }

type remoteRequest struct {
	Image string `json:"image"`
}

func (r *RemoteSource) Recognize(ctx context.Context, img []byte, _ string) (Recognition, error) {
	pngBytes, err := toPNG(img)
	if err != nil {
		return Recognition{}, err
	}

	body, err := json.Marshal(remoteRequest{Image: base64.StdEncoding.EncodeToString(pngBytes)})
	if err != nil {
		return Recognition{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return Recognition{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return Recognition{}, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponse))
	if err != nil {
		return Recognition{}, fmt.Errorf("%w: read response: %w", ErrBackendUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return Recognition{}, fmt.Errorf("%w: status %d", ErrRecognitionFailed, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Recognition{}, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Recognition{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if err := r.schema.Validate(doc); err != nil {
		return Recognition{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	obj := doc.(map[string]any)
	return Recognition{
		Text:     Normalize([]byte(obj["raw_text"].(string))),
		Backend:  BackendRemote,
		Extras:   extras(obj),
		Duration: time.Since(start),
	}, nil
}

// extras keeps the non-empty suggestion keys as strings.
func extras(obj map[string]any) map[string]string {
	out := make(map[string]string)
	for _, k := range extraKeys {
		switch v := obj[k].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				out[k] = v
			}
		case float64:
			out[k] = fmt.Sprintf("%g", v)
		}
	}
	return out
}

// Probe issues a GET on the base URL. Any answer below 500 means the service
// is up; the root path is not part of the contract.
func (r *RemoteSource) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

// toPNG returns img unchanged when its bytes are a PNG, otherwise decodes
// and re-encodes it. The declared type is not trusted.
func toPNG(img []byte) ([]byte, error) {
	if http.DetectContentType(img) == "image/png" {
		return img, nil
	}
	decoded, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

