package api

// Event est l'événement brut fourni par l'hôte (Lambda ou serveur HTTP local).
type Event struct {
	Method          string
	Path            string
	PathParameters  map[string]string
	QueryParameters map[string]string
	Body            string
}

// Request est la requête typée produite par le Router : une variante par route.
type Request interface {
	Route() string
	isRequest()
}

type ListPosts struct{}

type GetPost struct {
	ID string
}

type CreatePost struct {
	Text string
}

type DeletePost struct {
	ID string
}

func (ListPosts) Route() string  { return "ListPosts" }
func (GetPost) Route() string    { return "GetPost" }
func (CreatePost) Route() string { return "CreatePost" }
func (DeletePost) Route() string { return "DeletePost" }

func (ListPosts) isRequest()  {}
func (GetPost) isRequest()    {}
func (CreatePost) isRequest() {}
func (DeletePost) isRequest() {}
