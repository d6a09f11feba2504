package mrsdk

import (
	"context"
	"net/url"
	"sort"
)

// Resource describes one remote resource of the API.
type Resource struct {
	// Name is the path segment, e.g. "advertcategories".
	Name string

	// List reports whether the collection can be fetched as a whole.
	List bool

	// Create is non-nil when the resource can be created.
	Create *CreateExpectation
}

// Path returns /api/<name>.
func (r Resource) Path() string {
	return "/api/" + r.Name
}

// ItemPath returns /api/<name>/<id>.
func (r Resource) ItemPath(id string) string {
	return r.Path() + "/" + url.PathEscape(id)
}

// Resource names.
const (
	ResourceNews             = "news"
	ResourceAdverts          = "adverts"
	ResourceAdvertCategories = "advertcategories"
	ResourceEvents           = "events"
	ResourceHabitations      = "habitations"
	ResourceHabitationGroups = "habitationgroups"
	ResourceRecommendations  = "recommendations"
	ResourceUsers            = "users"
	ResourceAssociations     = "associations"
	ResourceShops            = "shops"
	ResourceShares           = "shares"
)

var (
	userCreate           = &CreateExpectation{Envelope: "user", Required: []string{"id", "self"}, AcceptConflict: true}
	advertCreate         = &CreateExpectation{Envelope: "advert", Required: []string{"id", "self"}}
	recommendationCreate = &CreateExpectation{Envelope: "recommendation", Required: []string{"id", "self"}}
	shareCreate          = &CreateExpectation{Envelope: "share", Required: []string{"email"}}
)

// resources is the fixed lookup table every typed accessor maps onto.
// Shares live under an advert: /api/adverts/<id>/shares.
var resources = map[string]Resource{
	ResourceNews:             {Name: ResourceNews, List: true},
	ResourceAdverts:          {Name: ResourceAdverts, List: true, Create: advertCreate},
	ResourceAdvertCategories: {Name: ResourceAdvertCategories, List: true},
	ResourceEvents:           {Name: ResourceEvents, List: true},
	ResourceHabitations:      {Name: ResourceHabitations},
	ResourceHabitationGroups: {Name: ResourceHabitationGroups},
	ResourceRecommendations:  {Name: ResourceRecommendations, Create: recommendationCreate},
	ResourceUsers:            {Name: ResourceUsers, Create: userCreate},
	ResourceAssociations:     {Name: ResourceAssociations, List: true},
	ResourceShops:            {Name: ResourceShops, List: true},
	ResourceShares:           {Name: ResourceShares, Create: shareCreate},
}

// Resources returns the resource table sorted by name.
func Resources() []Resource {
	out := make([]Resource, 0, len(resources))
	for _, r := range resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupResource returns the resource named name.
func LookupResource(name string) (Resource, bool) {
	r, ok := resources[name]
	return r, ok
}

// SharesPath returns the shares sub-collection of an advert.
func SharesPath(advertID string) string {
	return resources[ResourceAdverts].ItemPath(advertID) + "/" + ResourceShares
}

func (c *Client) list(ctx context.Context, name string, opts Options, revalidate bool) (Object, error) {
	return c.Fetch(ctx, resources[name].Path(), opts, revalidate)
}

func (c *Client) byID(ctx context.Context, name, id string, opts Options, revalidate bool) (Object, error) {
	return c.Fetch(ctx, resources[name].ItemPath(id), opts, revalidate)
}

func (c *Client) create(ctx context.Context, path, name string, fields Object, version int) (Object, error) {
	return c.Create(ctx, path, version, fields, *resources[name].Create)
}

// ============================================================================
// News
// ============================================================================

func (c *Client) GetNews(ctx context.Context, opts Options, revalidate bool) (Object, error) {
	return c.list(ctx, ResourceNews, opts, revalidate)
}

// GetNewsEnveloped fetches news and requires the {"request", "news"} list shape.
func (c *Client) GetNewsEnveloped(ctx context.Context, opts Options, revalidate bool) (Object, error) {
	return c.FetchEnveloped(ctx, resources[ResourceNews].Path(), ResourceNews, opts, revalidate)
}

func (c *Client) GetNewsByID(ctx context.Context, id string, opts Options, revalidate bool) (Object, error) {
	return c.byID(ctx, ResourceNews, id, opts, revalidate)
}

// ============================================================================
// Adverts
// ============================================================================

func (c *Client) GetAdverts(ctx context.Context, opts Options, revalidate bool) (Object, error) {
	return c.list(ctx, ResourceAdverts, opts, revalidate)
}

func (c *Client) GetAdvertByID(ctx context.Context, id string, opts Options, revalidate bool) (Object, error) {
	return c.byID(ctx, ResourceAdverts, id, opts, revalidate)
}

func (c *Client) GetAdvertCategories(ctx context.Context, opts Options, revalidate bool) (Object, error) {
	return c.list(ctx, ResourceAdvertCategories, opts, revalidate)
}

func (c *Client) GetAdvertCategoryByID(ctx context.Context, id string, opts Options, revalidate bool) (Object, error) {
	return c.byID(ctx, ResourceAdvertCategories, id, opts, revalidate)
}

// GetAdvertShares lists the shares of an advert.
func (c *Client) GetAdvertShares(ctx context.Context, advertID string, opts Options, revalidate bool) (Object, error) {
	return c.Fetch(ctx, SharesPath(advertID), opts, revalidate)
}

// PostAdvert creates an advert. The result carries at least "id" and "self".
func (c *Client) PostAdvert(ctx context.Context, advert Object, version int) (Object, error) {
	return c.create(ctx, resources[ResourceAdverts].Path(), ResourceAdverts, advert, version)
}

// PostAdvertShare shares the advert advertID. The result carries at least "email".
func (c *Client) PostAdvertShare(ctx context.Context, advertID string, share Object, version int) (Object, error) {
	return c.create(ctx, SharesPath(advertID), ResourceShares, share, version)
}

// ============================================================================
// Events
// ============================================================================

func (c *Client) GetEvents(ctx context.Context, opts Options, revalidate bool) (Object, error) {
	return c.list(ctx, ResourceEvents, opts, revalidate)
}

func (c *Client) GetEventByID(ctx context.Context, id string, opts Options, revalidate bool) (Object, error) {
	return c.byID(ctx, ResourceEvents, id, opts, revalidate)
}

// ============================================================================
// Habitations
// ============================================================================

func (c *Client) GetHabitationByID(ctx context.Context, id string, opts Options, revalidate bool) (Object, error) {
	return c.byID(ctx, ResourceHabitations, id, opts, revalidate)
}

func (c *Client) GetHabitationGroupByID(ctx context.Context, id string, opts Options, revalidate bool) (Object, error) {
	return c.byID(ctx, ResourceHabitationGroups, id, opts, revalidate)
}

// ============================================================================
// Recommendations
// ============================================================================

func (c *Client) GetRecommendationByID(ctx context.Context, id string, opts Options, revalidate bool) (Object, error) {
	return c.byID(ctx, ResourceRecommendations, id, opts, revalidate)
}

// PostRecommendation creates a recommendation. The result carries at least
// "id" and "self".
func (c *Client) PostRecommendation(ctx context.Context, recommendation Object, version int) (Object, error) {
	return c.create(ctx, resources[ResourceRecommendations].Path(), ResourceRecommendations, recommendation, version)
}

// ============================================================================
// Users
// ============================================================================

func (c *Client) GetUserByID(ctx context.Context, id string, opts Options, revalidate bool) (Object, error) {
	return c.byID(ctx, ResourceUsers, id, opts, revalidate)
}

// PostUser creates a user. When the user already exists the provider answers
// 409 with the existing representation, which is returned instead of an error.
func (c *Client) PostUser(ctx context.Context, user Object, version int) (Object, error) {
	return c.create(ctx, resources[ResourceUsers].Path(), ResourceUsers, user, version)
}

// ============================================================================
// Associations & shops
// ============================================================================

func (c *Client) GetAssociations(ctx context.Context, opts Options, revalidate bool) (Object, error) {
	return c.list(ctx, ResourceAssociations, opts, revalidate)
}

func (c *Client) GetAssociationByID(ctx context.Context, id string, opts Options, revalidate bool) (Object, error) {
	return c.byID(ctx, ResourceAssociations, id, opts, revalidate)
}

func (c *Client) GetShops(ctx context.Context, opts Options, revalidate bool) (Object, error) {
	return c.list(ctx, ResourceShops, opts, revalidate)
}

func (c *Client) GetShopByID(ctx context.Context, id string, opts Options, revalidate bool) (Object, error) {
	return c.byID(ctx, ResourceShops, id, opts, revalidate)
}
