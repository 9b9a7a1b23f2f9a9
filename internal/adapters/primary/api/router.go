package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kerri-knier/blog/internal/core/domain"
)

// PostsPrefix est le préfixe de la collection.
const PostsPrefix = "/post"

// Forme structurée acceptée pour la création : {"text": "..."}.
const createPostSchema = `{
	"type": "object",
	"properties": {
		"text": {"type": "string", "minLength": 1, "pattern": "\\S"}
	},
	"required": ["text"]
}`

var createSchema = jsonschema.MustCompileString("create_post.schema.json", createPostSchema)

// Route classe un événement. Les règles sont évaluées dans l'ordre ; rien
// n'est lu ni écrit dans le store ici.
func Route(ev Event) (Request, error) {
	// 1. Préfixe de la collection
	rest, ok := strings.CutPrefix(ev.Path, PostsPrefix)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return nil, domain.NewError(domain.KindRouteNotFound, "bad path %s", ev.Path)
	}

	id, ok := postID(ev, strings.TrimPrefix(rest, "/"))
	if !ok {
		return nil, domain.NewError(domain.KindRouteNotFound, "bad path %s", ev.Path)
	}

	switch strings.ToUpper(ev.Method) {
	case http.MethodGet:
		if id == "" {
			return ListPosts{}, nil
		}
		return GetPost{ID: id}, nil

	case http.MethodPost:
		if id != "" {
			break
		}
		if ev.Body == "" {
			return nil, domain.NewError(domain.KindBadRequest, "cannot create empty post")
		}
		text, err := parseCreateBody(ev.Body)
		if err != nil {
			return nil, err
		}
		return CreatePost{Text: text}, nil

	case http.MethodDelete:
		if id == "" {
			break
		}
		return DeletePost{ID: id}, nil
	}

	return nil, domain.NewError(domain.KindRouteNotFound, "no route for %s %s", ev.Method, ev.Path)
}

// postID préfère le paramètre de chemin "id" fourni par l'hôte, sinon le
// segment qui suit /post/. Un chemin plus profond n'est pas une route, même
// quand l'hôte fournit un id.
func postID(ev Event, rest string) (string, bool) {
	if strings.Contains(rest, "/") {
		return "", false
	}
	if id := strings.TrimSpace(ev.PathParameters["id"]); id != "" {
		return id, true
	}
	return rest, true
}

// parseCreateBody accepte le texte brut ou un objet JSON {"text": "..."}.
func parseCreateBody(body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", domain.NewError(domain.KindBadRequest, "cannot create empty post")
	}

	if strings.HasPrefix(trimmed, "{") {
		var payload any
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			if err := createSchema.Validate(payload); err != nil {
				return "", domain.Wrap(domain.KindBadRequest, err, "post payload must contain non-empty text")
			}
			return payload.(map[string]any)["text"].(string), nil
		}
		// Pas du JSON : c'est du texte brut qui commence par une accolade.
	}

	return body, nil
}
