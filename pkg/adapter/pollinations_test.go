package adapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pollen/pkg/adapter"
	"github.com/m-mizutani/pollen/pkg/request"
)

func TestExtractText(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		expect string
	}{
		{"text key", `{"text":"hello"}`, "hello"},
		{"output key", `{"output":"from output"}`, "from output"},
		{"text wins over output", `{"text":"t","output":"o"}`, "t"},
		{"null text falls back to output", `{"text":null,"output":"o"}`, "o"},
		{"non-string text", `{"text":42}`, "42"},
		{"json string", `"plain string"`, "plain string"},
		{"unknown object", `{"choices":[{"message":"hi"}]}`, `{"choices":[{"message":"hi"}]}`},
		{"array", `[1,2,3]`, `[1,2,3]`},
		{"empty text is kept", `{"text":""}`, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := adapter.ExtractText([]byte(tc.body))
			gt.NoError(t, err)
			gt.Equal(t, got, tc.expect)
		})
	}
}

func TestExtractTextInvalidJSON(t *testing.T) {
	_, err := adapter.ExtractText([]byte("<html>oops</html>"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, adapter.ErrInvalidResponse))
}

func TestPollinationsGenerateText(t *testing.T) {
	var (
		method      string
		contentType string
		received    map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"world"}`))
	}))
	defer srv.Close()

	client := adapter.NewPollinations(
		adapter.WithHTTPClient(srv.Client()),
		adapter.WithTextEndpoint(srv.URL+"/generate"),
	)

	text, err := client.GenerateText(context.Background(), "hello", "mistral")
	gt.NoError(t, err)
	gt.Equal(t, text, "world")
	gt.Equal(t, method, http.MethodPost)
	gt.Equal(t, contentType, "application/json")
	gt.Equal(t, received, map[string]string{"model": "mistral", "prompt": "hello"})
	gt.Equal(t, client.DefaultModel(), request.DefaultTextModel)
}

func TestPollinationsGenerateTextStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := adapter.NewPollinations(adapter.WithTextEndpoint(srv.URL))

	_, err := client.GenerateText(context.Background(), "hello", "")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, adapter.ErrAPIStatus))
	gt.S(t, err.Error()).Contains("503")
}

func TestPollinationsGenerateTextEmptyPrompt(t *testing.T) {
	client := adapter.NewPollinations(adapter.WithTextEndpoint("http://127.0.0.1:0"))
	_, err := client.GenerateText(context.Background(), " ", "")
	gt.True(t, errors.Is(err, request.ErrEmptyPrompt))
}

func TestPollinationsGenerateTextTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := adapter.NewPollinations(adapter.WithTextEndpoint(url))
	_, err := client.GenerateText(context.Background(), "hello", "")
	gt.Error(t, err)
}

func TestPollinationsProbeImage(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.URL.Query().Get("prompt") == "broken" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
	}))
	defer srv.Close()

	client := adapter.NewPollinations(adapter.WithHTTPClient(srv.Client()))

	ok := request.ImageURL(srv.URL+"/", request.ImageParams{Prompt: "a cat"})
	gt.NoError(t, client.ProbeImage(context.Background(), ok))

	broken := request.ImageURL(srv.URL+"/", request.ImageParams{Prompt: "broken"})
	err := client.ProbeImage(context.Background(), broken)
	gt.True(t, errors.Is(err, adapter.ErrAPIStatus))
	gt.Equal(t, methods, []string{http.MethodHead, http.MethodHead})
}
