package domain

import (
	"errors"
	"fmt"
)

// Kind identifie une famille d'erreurs visible par le client.
type Kind string

const (
	KindRouteNotFound    Kind = "RouteNotFound"
	KindBadRequest       Kind = "BadRequest"
	KindNotFound         Kind = "NotFound"
	KindStoreUnavailable Kind = "StoreUnavailable"
)

// --- ERREURS DU DOMAINE ---
var (
	ErrRouteNotFound    = &Error{Kind: KindRouteNotFound, Message: "route not found"}
	ErrBadRequest       = &Error{Kind: KindBadRequest, Message: "bad request"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "post not found"}
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable, Message: "store unavailable"}
)

// Error porte le Kind, un message lisible et éventuellement l'erreur technique d'origine.
// Toutes les erreurs sont terminales pour la requête en cours.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap traduit une erreur technique (driver, réseau) en erreur du domaine.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is compare uniquement le Kind : errors.Is(err, domain.ErrNotFound) marche
// quel que soit le message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf retourne le Kind d'une erreur. Une erreur inconnue est traitée
// comme une indisponibilité du store.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreUnavailable
}

// MessageOf retourne le message client d'une erreur (sans le détail technique).
// Le texte d'une erreur inconnue ne sort jamais.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrStoreUnavailable.Message
}
