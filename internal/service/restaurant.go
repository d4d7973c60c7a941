package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dinepos/api/internal/apperr"
	"github.com/dinepos/api/internal/logging"
	"github.com/dinepos/api/internal/model"
)

// RestaurantService manages the one restaurant each owner account has. The
// restaurant id is the owner's user id.
type RestaurantService struct {
	docs DocStore
	now  func() time.Time
}

func NewRestaurantService(docs DocStore) *RestaurantService {
	return &RestaurantService{docs: docs, now: time.Now}
}

// DefaultName derives the name given to a lazily created restaurant,
// e.g. "sam@example.com" becomes "sam's Restaurant".
func DefaultName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "My Restaurant"
	}
	return local + "'s Restaurant"
}

// Ensure returns the owner's restaurant, creating it on first use.
func (s *RestaurantService) Ensure(ctx context.Context, ownerID, email string) (model.Restaurant, error) {
	r, err := s.Get(ctx, ownerID)
	if err == nil {
		return r, nil
	}
	if !apperr.IsNotFound(err) {
		return model.Restaurant{}, err
	}
	return s.Create(ctx, ownerID, DefaultName(email))
}

// Create writes the owner's restaurant, replacing any existing one.
func (s *RestaurantService) Create(ctx context.Context, ownerID, name string) (model.Restaurant, error) {
	name, err := required("name", name)
	if err != nil {
		return model.Restaurant{}, err
	}
	r := model.Restaurant{
		ID:        ownerID,
		Name:      name,
		Slug:      model.Slugify(name),
		OwnerID:   ownerID,
		CreatedAt: s.now(),
	}
	if err := s.docs.Set(ctx, restaurantPath(ownerID), r); err != nil {
		logging.FromContext(ctx).Error("create restaurant", "restaurant_id", ownerID, "error", err)
		return model.Restaurant{}, fmt.Errorf("create restaurant: %w", err)
	}
	return r, nil
}

// Rename changes the display name and re-derives the slug.
func (s *RestaurantService) Rename(ctx context.Context, id, name string) (model.Restaurant, error) {
	name, err := required("name", name)
	if err != nil {
		return model.Restaurant{}, err
	}
	if err := s.docs.Update(ctx, restaurantPath(id), map[string]any{
		"name": name,
		"slug": model.Slugify(name),
	}); err != nil {
		if !apperr.IsNotFound(err) {
			logging.FromContext(ctx).Error("rename restaurant", "restaurant_id", id, "error", err)
		}
		return model.Restaurant{}, fmt.Errorf("rename restaurant: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *RestaurantService) Get(ctx context.Context, id string) (model.Restaurant, error) {
	doc, err := s.docs.Get(ctx, restaurantPath(id))
	if err != nil {
		return model.Restaurant{}, err
	}
	var r model.Restaurant
	if err := doc.Decode(&r); err != nil {
		return model.Restaurant{}, fmt.Errorf("decode restaurant %s: %w", id, err)
	}
	r.ID = doc.ID
	return r, nil
}

// GetBySlug resolves a public menu link. Slugs are not unique; the first
// match wins.
func (s *RestaurantService) GetBySlug(ctx context.Context, slug string) (model.Restaurant, error) {
	docs, err := s.docs.Where(ctx, "restaurants", "slug", slug)
	if err != nil {
		return model.Restaurant{}, err
	}
	if len(docs) == 0 {
		return model.Restaurant{}, apperr.NotFound("restaurant", slug)
	}
	var r model.Restaurant
	if err := docs[0].Decode(&r); err != nil {
		return model.Restaurant{}, fmt.Errorf("decode restaurant %s: %w", docs[0].ID, err)
	}
	r.ID = docs[0].ID
	return r, nil
}
