package services

import (
	"fmt"
	"sort"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/models"
)

// CollectionSpec describes one content collection.
type CollectionSpec struct {
	Name string
	// Orderable collections accept bulk reorder requests.
	Orderable bool
	// Required fields must be present and non-blank on create.
	Required []string
	// PublicCreate collections accept unauthenticated creates (contact form).
	PublicCreate bool
	// PrivateRead collections are only listed to an authenticated admin.
	PrivateRead bool
}

var collections = map[string]CollectionSpec{
	"projects":       {Name: "projects", Orderable: true, Required: []string{"title"}},
	"journey":        {Name: "journey", Orderable: true, Required: []string{"title"}},
	"certifications": {Name: "certifications", Required: []string{"title"}},
	"skills":         {Name: "skills", Required: []string{"name"}},
	"services":       {Name: "services", Required: []string{"title"}},
	"categories":     {Name: "categories", Required: []string{"name"}},
	"messages":       {Name: "messages", Required: []string{"name", "email", "message"}, PublicCreate: true, PrivateRead: true},
}

var contentSingletons = map[string]struct{}{
	models.SingletonHero:    {},
	models.SingletonAbout:   {},
	models.SingletonContact: {},
}

// LookupCollection returns the spec of a known collection or
// common.ErrUnknownResource.
func LookupCollection(name string) (CollectionSpec, error) {
	spec, ok := collections[name]
	if !ok {
		return CollectionSpec{}, fmt.Errorf("%w: %q", common.ErrUnknownResource, name)
	}
	return spec, nil
}

// Collections lists every collection sorted by name.
func Collections() []CollectionSpec {
	out := make([]CollectionSpec, 0, len(collections))
	for _, c := range collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SingletonKeys lists the generic singleton keys (the CV has its own service).
func SingletonKeys() []string {
	return []string{models.SingletonAbout, models.SingletonContact, models.SingletonHero}
}

func checkSingleton(key string) error {
	if _, ok := contentSingletons[key]; !ok {
		return fmt.Errorf("%w: %q", common.ErrUnknownResource, key)
	}
	return nil
}
