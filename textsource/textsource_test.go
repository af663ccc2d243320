package textsource

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"
)

type fakeRunner struct {
	stdout, stderr []byte
	err            error
	block          bool

	gotStdin []byte
	gotName  string
	gotArgs  []string
}

func (f *fakeRunner) Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	f.gotStdin, f.gotName, f.gotArgs = stdin, name, args
	if f.block {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	return f.stdout, f.stderr, f.err
}

func testImage(t *testing.T, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.White)
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func pngImage(t *testing.T) []byte {
	return testImage(t, func(b *bytes.Buffer, i image.Image) error { return png.Encode(b, i) })
}

func jpegImage(t *testing.T) []byte {
	return testImage(t, func(b *bytes.Buffer, i image.Image) error { return jpeg.Encode(b, i, nil) })
}

func TestNewSelectsBackend(t *testing.T) {
	src, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if src.Name() != BackendTesseract {
		t.Errorf("Expected tesseract without remote URL, got %s", src.Name())
	}

	src, err = New(Config{RemoteURL: "http://ocr.local:8000"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if src.Name() != BackendRemote {
		t.Errorf("Expected remote with URL, got %s", src.Name())
	}
}

func TestTesseractRecognize(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("Dr. Tremblay\r\n\r\n\r\n\r\nAmoxicillin   500mg  \n_____\n")}
	src := NewTesseractSource(Config{}, runner)
	img := pngImage(t)

	rec, err := src.Recognize(context.Background(), img, "image/png")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if rec.Text != "Dr. Tremblay\n\nAmoxicillin 500mg" {
		t.Errorf("Unexpected normalized text %q", rec.Text)
	}
	if rec.Backend != BackendTesseract {
		t.Errorf("Expected backend tesseract, got %s", rec.Backend)
	}
	if runner.gotName != "tesseract" {
		t.Errorf("Expected default binary, got %s", runner.gotName)
	}
	if got := strings.Join(runner.gotArgs, " "); got != "stdin stdout -l eng+fra" {
		t.Errorf("Unexpected args %q", got)
	}
	if !bytes.Equal(runner.gotStdin, img) {
		t.Error("Image bytes should be streamed on stdin")
	}
}

func TestTesseractErrors(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
		image  []byte
		want   error
	}{
		{"empty image", &fakeRunner{}, nil, ErrUnsupportedImage},
		{"binary missing", &fakeRunner{err: &exec.Error{Name: "tesseract", Err: exec.ErrNotFound}}, []byte("x"), ErrBackendUnavailable},
		{"engine failure", &fakeRunner{err: errors.New("exit status 1"), stderr: []byte("Error in pixReadMem")}, []byte("x"), ErrRecognitionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewTesseractSource(Config{}, tt.runner)
			_, err := src.Recognize(context.Background(), tt.image, "image/png")
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTesseractStderrInError(t *testing.T) {
	src := NewTesseractSource(Config{}, &fakeRunner{err: errors.New("exit status 1"), stderr: []byte("Error in pixReadMem")})
	_, err := src.Recognize(context.Background(), []byte("x"), "image/png")
	if err == nil || !strings.Contains(err.Error(), "pixReadMem") {
		t.Errorf("Expected stderr in error, got %v", err)
	}
}

func TestTesseractTimeout(t *testing.T) {
	src := NewTesseractSource(Config{Timeout: 20 * time.Millisecond}, &fakeRunner{block: true})

	_, err := src.Recognize(context.Background(), []byte("x"), "image/png")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable on timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline in error chain, got %v", err)
	}
}

func TestTesseractProbe(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("tesseract 5.3.0")}
	src := NewTesseractSource(Config{TesseractPath: "/usr/bin/tesseract"}, runner)

	if err := src.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if runner.gotName != "/usr/bin/tesseract" || len(runner.gotArgs) != 1 || runner.gotArgs[0] != "--version" {
		t.Errorf("Unexpected probe command %s %v", runner.gotName, runner.gotArgs)
	}

	runner.err = &exec.Error{Name: "tesseract", Err: exec.ErrNotFound}
	if err := src.Probe(context.Background()); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable, got %v", err)
	}
}

func TestRemoteRecognize(t *testing.T) {
	var gotPNG bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/extract" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		raw, _ := base64.StdEncoding.DecodeString(body.Image)
		gotPNG = http.DetectContentType(raw) == "image/png"

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"raw_text": "Dre Lavoie\r\nQuantité: 21",
			"produit_emis": "Amoxicilline 500 mg",
			"date_emission": "",
			"qte_prescrite": 21,
			"prescripteur": null
		}`))
	}))
	defer srv.Close()

	src, err := NewRemoteSource(Config{RemoteURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewRemoteSource: %v", err)
	}

	rec, err := src.Recognize(context.Background(), jpegImage(t), "image/jpeg")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	if !gotPNG {
		t.Error("JPEG upload should be re-encoded to PNG")
	}
	if rec.Text != "Dre Lavoie\nQuantité: 21" {
		t.Errorf("Unexpected text %q", rec.Text)
	}
	if rec.Backend != BackendRemote {
		t.Errorf("Expected backend remote, got %s", rec.Backend)
	}
	if rec.Extras["produit_emis"] != "Amoxicilline 500 mg" {
		t.Errorf("Missing produit_emis extra: %v", rec.Extras)
	}
	if rec.Extras["qte_prescrite"] != "21" {
		t.Errorf("Numeric extras should be stringified: %v", rec.Extras)
	}
	if _, ok := rec.Extras["date_emission"]; ok {
		t.Error("Empty extras should be dropped")
	}
	if _, ok := rec.Extras["prescripteur"]; ok {
		t.Error("Null extras should be dropped")
	}
}

func TestRemoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `boom`, ErrRecognitionFailed},
		{"client error", http.StatusBadRequest, `{}`, ErrInvalidResponse},
		{"not json", http.StatusOK, `<html>`, ErrInvalidResponse},
		{"missing raw_text", http.StatusOK, `{"produit_emis": "x"}`, ErrInvalidResponse},
		{"raw_text wrong type", http.StatusOK, `{"raw_text": 12}`, ErrInvalidResponse},
		{"not an object", http.StatusOK, `["raw_text"]`, ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			src, err := NewRemoteSource(Config{RemoteURL: srv.URL})
			if err != nil {
				t.Fatalf("NewRemoteSource: %v", err)
			}
			_, err = src.Recognize(context.Background(), pngImage(t), "image/png")
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src, err := NewRemoteSource(Config{RemoteURL: url})
	if err != nil {
		t.Fatalf("NewRemoteSource: %v", err)
	}
	if _, err := src.Recognize(context.Background(), pngImage(t), "image/png"); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable, got %v", err)
	}
	if err := src.Probe(context.Background()); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Expected probe to fail with ErrBackendUnavailable, got %v", err)
	}
}

func TestRemoteRejectsUndecodableImage(t *testing.T) {
	src, err := NewRemoteSource(Config{RemoteURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewRemoteSource: %v", err)
	}
	if _, err := src.Recognize(context.Background(), []byte("not an image"), "image/jpeg"); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("Expected ErrUnsupportedImage, got %v", err)
	}
}

func TestRemoteProbe(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	src, _ := NewRemoteSource(Config{RemoteURL: srv.URL})
	if err := src.Probe(context.Background()); err != nil {
		t.Errorf("Expected 404 to count as reachable, got %v", err)
	}

	status = http.StatusServiceUnavailable
	if err := src.Probe(context.Background()); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("Expected ErrBackendUnavailable for 503, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, ""},
		{"crlf and tabs", []byte("Qty:\t30\r\nRefills:  2\r"), "Qty: 30\nRefills: 2"},
		{"blank lines collapsed", []byte("a\n\n\n\n\nb"), "a\n\nb"},
		{"ruled lines dropped", []byte("Sig: one daily\n-----\n=====\nRefills: 2"), "Sig: one daily\n\nRefills: 2"},
		{"form feed", []byte("page one\fpage two"), "page one\npage two"},
		{"decomposed accent composed", []byte("Quantite\u0301: 21"), "Quantit\u00e9: 21"},
		{"latin-1 fallback", []byte("Quantit\xe9: 21"), "Quantité: 21"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
