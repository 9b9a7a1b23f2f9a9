package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kerri-knier/blog/internal/core/domain"
	"github.com/kerri-knier/blog/internal/core/ports"
	"github.com/kerri-knier/blog/internal/core/services"
	"github.com/kerri-knier/blog/internal/monitoring"
)

// Handler est la façade : événement -> Request -> store -> Response.
// Il ne garde aucun état entre deux invocations.
type Handler struct {
	loader ports.StoreLoader
	table  string
	now    func() time.Time
}

func NewHandler(loader ports.StoreLoader, table string, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{loader: loader, table: table, now: now}
}

func (h *Handler) Handle(ctx context.Context, ev Event) Response {
	monitoring.ActiveRequests.Inc()
	defer monitoring.ActiveRequests.Dec()

	route := "Unclassified"
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		monitoring.RequestDuration.WithLabelValues(route).Observe(v)
	}))

	resp := h.handle(ctx, ev, &route)

	timer.ObserveDuration()
	monitoring.RequestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode)).Inc()
	return resp
}

func (h *Handler) handle(ctx context.Context, ev Event, route *string) Response {
	// 1. Classification (aucun accès au store)
	req, err := Route(ev)
	if err != nil {
		return h.fail(ctx, ev, err)
	}
	*route = req.Route()
	slog.DebugContext(ctx, "Dispatching request", "route", *route, "method", ev.Method, "path", ev.Path)

	// 2. Liaison à la collection, refaite à chaque invocation
	store, err := h.loader.Load(ctx, h.table)
	if err != nil {
		return h.fail(ctx, ev, err)
	}

	// 3. Exécution
	switch r := req.(type) {
	case ListPosts:
		posts, err := services.NewRecentPosts(store, h.now).ListRecent(ctx)
		if err != nil {
			return h.fail(ctx, ev, err)
		}
		return PostsResponse(posts)

	case GetPost:
		post, err := store.GetByID(ctx, r.ID)
		if err != nil {
			return h.fail(ctx, ev, err)
		}
		return PostResponse(http.StatusOK, post)

	case CreatePost:
		post, err := store.Write(ctx, r.Text)
		if err != nil {
			return h.fail(ctx, ev, err)
		}
		slog.InfoContext(ctx, "Post created", "post_id", post.ID, "month", post.Month)
		return PostResponse(http.StatusCreated, post)

	case DeletePost:
		post, err := store.DeleteByID(ctx, r.ID)
		if err != nil {
			return h.fail(ctx, ev, err)
		}
		slog.InfoContext(ctx, "Post deleted", "post_id", post.ID)
		return PostResponse(http.StatusOK, post)
	}

	return h.fail(ctx, ev, domain.NewError(domain.KindRouteNotFound, "no route for %s %s", ev.Method, ev.Path))
}

func (h *Handler) fail(ctx context.Context, ev Event, err error) Response {
	if domain.KindOf(err) == domain.KindStoreUnavailable {
		slog.ErrorContext(ctx, "Request failed", "method", ev.Method, "path", ev.Path, "error", err)
	} else {
		slog.WarnContext(ctx, "Request rejected", "method", ev.Method, "path", ev.Path, "error", err)
	}
	return Error(err)
}
