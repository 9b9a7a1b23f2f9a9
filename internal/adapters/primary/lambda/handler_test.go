package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/kerri-knier/blog/internal/adapters/primary/api"
	"github.com/kerri-knier/blog/internal/adapters/secondary/eventbroker"
	"github.com/kerri-knier/blog/internal/adapters/secondary/repository"
	"github.com/kerri-knier/blog/internal/core/services"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	backend := repository.NewMemoryBackend()
	if err := backend.Provision(context.Background(), "posts"); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	return NewHandler(api.NewHandler(services.NewLoader(backend, eventbroker.NoopPublisher{}, nil), "posts", time.Now))
}

func TestToEvent(t *testing.T) {
	ev, err := ToEvent(events.APIGatewayProxyRequest{
		HTTPMethod:            "GET",
		Path:                  "/post/abc",
		PathParameters:        map[string]string{"id": "abc"},
		QueryStringParameters: map[string]string{"debug": "1"},
		Body:                  base64.StdEncoding.EncodeToString([]byte("hello")),
		IsBase64Encoded:       true,
	})
	if err != nil {
		t.Fatalf("ToEvent: %v", err)
	}
	if ev.Method != "GET" || ev.Path != "/post/abc" || ev.PathParameters["id"] != "abc" || ev.QueryParameters["debug"] != "1" {
		t.Fatalf("event=%+v", ev)
	}
	if ev.Body != "hello" {
		t.Fatalf("body=%q want decoded", ev.Body)
	}
}

func TestHandle_InvalidBase64(t *testing.T) {
	resp, err := newHandler(t).Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      "POST",
		Path:            "/post",
		Body:            "%%%not base64",
		IsBase64Encoded: true,
	})
	if err != nil {
		t.Fatalf("invocation error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest || resp.Headers[api.HeaderErrorType] != "BadRequest" {
		t.Fatalf("status=%d body=%q", resp.StatusCode, resp.Body)
	}
}

func TestHandle_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t)

	created, err := h.Handle(ctx, events.APIGatewayProxyRequest{HTTPMethod: "POST", Path: "/post", Body: "from lambda"})
	if err != nil || created.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d err=%v body=%q", created.StatusCode, err, created.Body)
	}
	var post api.PostDTO
	if err := json.Unmarshal([]byte(created.Body), &post); err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, err := h.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod:     "GET",
		Path:           "/post/{id}",
		PathParameters: map[string]string{"id": post.ID},
	})
	if err != nil || got.StatusCode != http.StatusOK {
		t.Fatalf("get status=%d err=%v", got.StatusCode, err)
	}
	if got.Headers["Access-Control-Allow-Origin"] != "*" || len(got.MultiValueHeaders["Access-Control-Expose-Headers"]) != 1 {
		t.Fatalf("headers=%v multi=%v", got.Headers, got.MultiValueHeaders)
	}
}

func TestHandle_ErrorsAreNotInvocationFailures(t *testing.T) {
	resp, err := newHandler(t).Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: "GET", Path: "/nope"})
	if err != nil {
		t.Fatalf("invocation error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || resp.Body != "RouteNotFound: bad path /nope" {
		t.Fatalf("status=%d body=%q", resp.StatusCode, resp.Body)
	}
}

func TestFromResponse_WireKeys(t *testing.T) {
	raw, err := json.Marshal(FromResponse(api.PostsResponse(nil)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	for _, k := range []string{"statusCode", "headers", "multiValueHeaders", "body"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing %q in %s", k, raw)
		}
	}
}
