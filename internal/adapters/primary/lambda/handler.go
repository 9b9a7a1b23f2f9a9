package lambda

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/kerri-knier/blog/internal/adapters/primary/api"
	"github.com/kerri-knier/blog/internal/core/domain"
)

// Handler traduit les événements API Gateway (proxy) vers la façade.
type Handler struct {
	api *api.Handler
}

func NewHandler(h *api.Handler) *Handler {
	return &Handler{api: h}
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ev, err := ToEvent(req)
	if err != nil {
		return FromResponse(api.Error(err)), nil
	}
	resp := h.api.Handle(ctx, ev)
	// Les erreurs métier sont dans la réponse : l'invocation elle-même réussit.
	return FromResponse(resp), nil
}

// Start bloque et sert les invocations de l'hôte.
func (h *Handler) Start() {
	lambda.Start(h.Handle)
}

func ToEvent(req events.APIGatewayProxyRequest) (api.Event, error) {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return api.Event{}, domain.Wrap(domain.KindBadRequest, err, "body is not valid base64")
		}
		body = string(raw)
	}
	return api.Event{
		Method:          req.HTTPMethod,
		Path:            req.Path,
		PathParameters:  req.PathParameters,
		QueryParameters: req.QueryStringParameters,
		Body:            body,
	}, nil
}

func FromResponse(resp api.Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode:        resp.StatusCode,
		Headers:           resp.Headers,
		MultiValueHeaders: resp.MultiValueHeaders,
		IsBase64Encoded:   resp.IsBase64Encoded,
		Body:              resp.Body,
	}
}
