package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kerri-knier/blog/internal/core/domain"
)

const (
	HeaderContentType = "Content-Type"
	HeaderErrorType   = "x-amzn-ErrorType"
)

// Response est l'enveloppe renvoyée à l'hôte. Les clés sont en camelCase sur le fil.
type Response struct {
	StatusCode        int                 `json:"statusCode"`
	Headers           map[string]string   `json:"headers"`
	MultiValueHeaders map[string][]string `json:"multiValueHeaders,omitempty"`
	IsBase64Encoded   bool                `json:"isBase64Encoded"`
	Body              string              `json:"body"`
}

// PostDTO est la forme d'un post sur le fil.
type PostDTO struct {
	ID      string `json:"id"`
	Created string `json:"created"`
	Month   string `json:"month"`
	Text    string `json:"text"`
}

func ToDTO(p *domain.Post) PostDTO {
	return PostDTO{
		ID:      p.ID,
		Created: p.Created.UTC().Format(time.RFC3339Nano),
		Month:   p.Month,
		Text:    p.Text,
	}
}

// baseHeaders porte la politique CORS fixe, identique pour succès et erreurs.
func baseHeaders(contentType string) map[string]string {
	return map[string]string{
		HeaderContentType:              contentType,
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Allow-Methods": "OPTIONS, POST, GET, DELETE",
	}
}

func baseMultiValueHeaders() map[string][]string {
	// Sans ça, le navigateur ne peut pas lire le Kind d'une erreur.
	return map[string][]string{
		"Access-Control-Expose-Headers": {HeaderErrorType},
	}
}

// JSON construit une réponse de succès dont le corps est v encodé en JSON.
func JSON(status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Error(domain.Wrap(domain.KindStoreUnavailable, err, "cannot encode response"))
	}
	return Response{
		StatusCode:        status,
		Headers:           baseHeaders("application/json"),
		MultiValueHeaders: baseMultiValueHeaders(),
		Body:              string(body),
	}
}

func PostResponse(status int, p *domain.Post) Response {
	return JSON(status, ToDTO(p))
}

func PostsResponse(posts []*domain.Post) Response {
	dtos := make([]PostDTO, len(posts))
	for i, p := range posts {
		dtos[i] = ToDTO(p)
	}
	return JSON(http.StatusOK, dtos)
}

// Error construit une réponse d'erreur : corps texte "{Kind}: {message}",
// Kind répété dans l'en-tête x-amzn-ErrorType.
func Error(err error) Response {
	kind := domain.KindOf(err)
	headers := baseHeaders("text/plain")
	headers[HeaderErrorType] = string(kind)

	return Response{
		StatusCode:        StatusOf(kind),
		Headers:           headers,
		MultiValueHeaders: baseMultiValueHeaders(),
		Body:              fmt.Sprintf("%s: %s", kind, domain.MessageOf(err)),
	}
}

func StatusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindRouteNotFound, domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}
