package httpserver

import (
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kerri-knier/blog/internal/adapters/primary/api"
	"github.com/kerri-knier/blog/internal/core/domain"
)

// MaxBodyBytes borne la taille d'un post reçu en local.
const MaxBodyBytes = 64 << 10

// NewMux sert la façade en HTTP local, avec les mêmes routes qu'API Gateway.
func NewMux(h *api.Handler) *http.ServeMux {
	var posts http.Handler = PostsHandler(h)

	// A. CORS (répond aux preflight OPTIONS avant la façade)
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodOptions, http.MethodPost, http.MethodGet, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	posts = c.Handler(posts)

	// B. OTEL HTTP (racine)
	posts = otelhttp.NewHandler(posts, "blog", otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		return fmt.Sprintf("HTTP %s %s", r.Method, r.URL.Path)
	}))

	mux := http.NewServeMux()
	mux.Handle(api.PostsPrefix, posts)
	mux.Handle(api.PostsPrefix+"/", posts)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// PostsHandler convertit une requête net/http en événement et écrit l'enveloppe.
func PostsHandler(h *api.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ev, err := ToEvent(r)
		if err != nil {
			Write(w, api.Error(err))
			return
		}
		Write(w, h.Handle(r.Context(), ev))
	})
}

func ToEvent(r *http.Request) (api.Event, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return api.Event{}, domain.Wrap(domain.KindBadRequest, err, "cannot read body")
	}
	if len(body) > MaxBodyBytes {
		return api.Event{}, domain.NewError(domain.KindBadRequest, "post larger than %d bytes", MaxBodyBytes)
	}

	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	return api.Event{
		Method:          r.Method,
		Path:            r.URL.Path,
		QueryParameters: query,
		Body:            string(body),
	}, nil
}

func Write(w http.ResponseWriter, resp api.Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	for k, vs := range resp.MultiValueHeaders {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}
