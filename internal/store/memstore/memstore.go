// Package memstore is an in-memory store for tests. Transactions are
// serialized and roll back to a snapshot when fn fails.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"artmarket/internal/app/inventory"
	"artmarket/internal/domain/collectors"
	"artmarket/internal/domain/derivatives"
	"artmarket/internal/domain/slugs"
	"artmarket/internal/domain/users"
	"artmarket/internal/domain/works"

	"github.com/google/uuid"
)

type txKey struct{}

type memberKey struct {
	artworkID   string
	catalogueID string
}

type favoriteKey struct {
	userID    uint
	artworkID string
}

type state struct {
	artworks   map[string]works.Artwork
	images     map[string]works.ArtworkImage
	catalogues map[string]works.Catalogue
	members    map[memberKey]works.ArtworkCatalogue
	tasks      map[string]derivatives.Task
	users      map[uint]users.User
	sales      map[string]works.EditionSale
	favorites  map[favoriteKey]collectors.Favorite
	inquiries  map[string]collectors.Inquiry
}

func newState() state {
	return state{
		artworks:   map[string]works.Artwork{},
		images:     map[string]works.ArtworkImage{},
		catalogues: map[string]works.Catalogue{},
		members:    map[memberKey]works.ArtworkCatalogue{},
		tasks:      map[string]derivatives.Task{},
		users:      map[uint]users.User{},
		sales:      map[string]works.EditionSale{},
		favorites:  map[favoriteKey]collectors.Favorite{},
		inquiries:  map[string]collectors.Inquiry{},
	}
}

// clone copies the maps. Stored values are never mutated in place, so
// sharing their slices is safe.
func (s state) clone() state {
	c := newState()
	for k, v := range s.artworks {
		c.artworks[k] = v
	}
	for k, v := range s.images {
		c.images[k] = v
	}
	for k, v := range s.catalogues {
		c.catalogues[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.favorites {
		c.favorites[k] = v
	}
	for k, v := range s.inquiries {
		c.inquiries[k] = v
	}
	return c
}

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   state
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// PutUser seeds a user row.
func (s *Store) PutUser(u users.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

// Tasks returns every regeneration task, oldest first.
func (s *Store) Tasks() []derivatives.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]derivatives.Task, 0, len(s.st.tasks))
	for _, t := range s.st.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// assemble attaches images and memberships. Callers hold mu.
func (s *Store) assemble(a works.Artwork) works.Artwork {
	a.Tags = append([]string(nil), a.Tags...)
	a.Edition.SoldEditions = append([]string{}, a.Edition.SoldEditions...)

	a.Images = nil
	for _, img := range s.st.images {
		if img.ArtworkID == a.ID {
			a.Images = append(a.Images, img)
		}
	}
	sort.Slice(a.Images, func(i, j int) bool { return a.Images[i].Position < a.Images[j].Position })

	a.Catalogues = nil
	for k, m := range s.st.members {
		if k.artworkID == a.ID {
			a.Catalogues = append(a.Catalogues, m)
		}
	}
	sort.Slice(a.Catalogues, func(i, j int) bool { return a.Catalogues[i].CatalogueID < a.Catalogues[j].CatalogueID })
	return a
}

func stripped(a *works.Artwork) works.Artwork {
	c := *a
	c.Images = nil
	c.Catalogues = nil
	c.Tags = append([]string(nil), a.Tags...)
	c.Edition.SoldEditions = append([]string{}, a.Edition.SoldEditions...)
	return c
}

func (s *Store) Artwork(_ context.Context, ownerID uint, id string) (*works.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.artworks[id]
	if !ok || a.UserID != ownerID {
		return nil, works.ErrNotFound
	}
	out := s.assemble(a)
	return &out, nil
}

func (s *Store) LockArtwork(_ context.Context, id string) (*works.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.artworks[id]
	if !ok {
		return nil, works.ErrNotFound
	}
	out := s.assemble(a)
	return &out, nil
}

func (s *Store) PublicArtwork(_ context.Context, id string) (*works.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.artworks[id]
	if !ok || !a.Status.Public() {
		return nil, works.ErrNotFound
	}
	out := s.assemble(a)
	return &out, nil
}

func (s *Store) Artworks(_ context.Context, ownerID uint, filter inventory.ArtworkFilter) ([]works.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []works.Artwork
	for _, a := range s.st.artworks {
		if a.UserID != ownerID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Tag != "" && !contains(a.Tags, filter.Tag) {
			continue
		}
		out = append(out, s.assemble(a))
	}
	sortArtworks(out)
	return out, nil
}

func (s *Store) CreateArtwork(_ context.Context, a *works.Artwork) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.st.artworks[a.ID] = stripped(a)
	return nil
}

func (s *Store) UpdateArtwork(_ context.Context, a *works.Artwork, expected int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.st.artworks[a.ID]
	if !ok || cur.Version != expected {
		return works.ErrConflict
	}
	a.Version = expected + 1
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = time.Now()
	s.st.artworks[a.ID] = stripped(a)
	return nil
}

func (s *Store) DeleteArtwork(_ context.Context, ownerID uint, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.artworks[id]
	if !ok || a.UserID != ownerID {
		return works.ErrNotFound
	}
	delete(s.st.artworks, id)
	for k, img := range s.st.images {
		if img.ArtworkID == id {
			delete(s.st.images, k)
		}
	}
	for k := range s.st.members {
		if k.artworkID == id {
			delete(s.st.members, k)
		}
	}
	for k, t := range s.st.tasks {
		if t.ArtworkID == id {
			delete(s.st.tasks, k)
		}
	}
	for k := range s.st.favorites {
		if k.artworkID == id {
			delete(s.st.favorites, k)
		}
	}
	return nil
}

func (s *Store) ArtworkSlugTaken(_ context.Context, ownerID uint, slug, exceptID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.st.artworks {
		if a.UserID == ownerID && a.Slug == slug && a.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ReplaceImages(_ context.Context, artworkID string, images []works.ArtworkImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, img := range s.st.images {
		if img.ArtworkID == artworkID {
			delete(s.st.images, k)
		}
	}
	now := time.Now()
	for _, img := range images {
		img.ArtworkID = artworkID
		if img.CreatedAt.IsZero() {
			img.CreatedAt = now
		}
		img.UpdatedAt = now
		s.st.images[img.ID] = img
	}
	return nil
}

func (s *Store) SystemCatalogue(ctx context.Context, ownerID uint) (*works.Catalogue, error) {
	s.mu.Lock()
	for _, c := range s.st.catalogues {
		if c.UserID == ownerID && c.IsSystem {
			s.mu.Unlock()
			return &c, nil
		}
	}
	s.mu.Unlock()

	c := works.Catalogue{
		ID:       uuid.NewString(),
		UserID:   ownerID,
		Title:    works.SystemCatalogueTitle,
		IsSystem: true,
	}
	slug, err := slugs.Unique(slugs.MakeSlug(c.Title, "available-work"), func(candidate string) (bool, error) {
		return s.CatalogueSlugTaken(ctx, ownerID, candidate, c.ID)
	})
	if err != nil {
		return nil, err
	}
	c.Slug = slug
	if err := s.CreateCatalogue(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) OwnedCatalogueIDs(_ context.Context, ownerID uint) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := map[string]bool{}
	for id, c := range s.st.catalogues {
		if c.UserID == ownerID {
			owned[id] = true
		}
	}
	return owned, nil
}

func (s *Store) Catalogues(_ context.Context, ownerID uint) ([]works.Catalogue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []works.Catalogue
	for _, c := range s.st.catalogues {
		if c.UserID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsSystem != out[j].IsSystem {
			return out[i].IsSystem
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (s *Store) Catalogue(_ context.Context, ownerID uint, id string) (*works.Catalogue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.catalogues[id]
	if !ok || c.UserID != ownerID {
		return nil, works.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCatalogue(_ context.Context, c *works.Catalogue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	s.st.catalogues[c.ID] = *c
	return nil
}

func (s *Store) UpdateCatalogue(_ context.Context, c *works.Catalogue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.catalogues[c.ID]; !ok {
		return works.ErrNotFound
	}
	c.UpdatedAt = time.Now()
	s.st.catalogues[c.ID] = *c
	return nil
}

func (s *Store) DeleteCatalogue(_ context.Context, ownerID uint, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.catalogues[id]
	if !ok || c.UserID != ownerID || c.IsSystem {
		return works.ErrNotFound
	}
	delete(s.st.catalogues, id)
	for k := range s.st.members {
		if k.catalogueID == id {
			delete(s.st.members, k)
		}
	}
	return nil
}

func (s *Store) CatalogueSlugTaken(_ context.Context, ownerID uint, slug, exceptID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.st.catalogues {
		if c.UserID == ownerID && c.Slug == slug && c.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CatalogueArtworks(_ context.Context, catalogueID string) ([]works.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members(catalogueID, false), nil
}

// members lists a catalogue's artworks by position. Callers hold mu.
func (s *Store) members(catalogueID string, publicOnly bool) []works.Artwork {
	var ms []works.ArtworkCatalogue
	for k, m := range s.st.members {
		if k.catalogueID == catalogueID {
			ms = append(ms, m)
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].Position < ms[j].Position })

	out := make([]works.Artwork, 0, len(ms))
	for _, m := range ms {
		a, ok := s.st.artworks[m.ArtworkID]
		if !ok || (publicOnly && !a.Status.Public()) {
			continue
		}
		out = append(out, s.assemble(a))
	}
	return out
}

func (s *Store) ReorderCatalogue(_ context.Context, catalogueID string, artworkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range artworkIDs {
		k := memberKey{artworkID: id, catalogueID: catalogueID}
		if m, ok := s.st.members[k]; ok {
			m.Position = i
			s.st.members[k] = m
		}
	}
	return nil
}

func (s *Store) AddMemberships(_ context.Context, artworkID string, catalogueIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range catalogueIDs {
		k := memberKey{artworkID: artworkID, catalogueID: id}
		if _, ok := s.st.members[k]; ok {
			continue
		}
		next := 0
		for mk, m := range s.st.members {
			if mk.catalogueID == id && m.Position >= next {
				next = m.Position + 1
			}
		}
		s.st.members[k] = works.ArtworkCatalogue{ArtworkID: artworkID, CatalogueID: id, Position: next, CreatedAt: time.Now()}
	}
	return nil
}

func (s *Store) RemoveMemberships(_ context.Context, artworkID string, catalogueIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range catalogueIDs {
		delete(s.st.members, memberKey{artworkID: artworkID, catalogueID: id})
	}
	return nil
}

func (s *Store) User(_ context.Context, id uint) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[id]
	if !ok {
		return nil, works.ErrNotFound
	}
	return &u, nil
}

func (s *Store) EnsureSiteSlug(_ context.Context, u *users.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.SiteSlug != nil && *u.SiteSlug != "" {
		return *u.SiteSlug, nil
	}
	slug := slugs.MakeSlug(u.Name+" "+u.Lastname, "artist") + "-" + uintString(u.ID)
	u.SiteSlug = &slug
	if stored, ok := s.st.users[u.ID]; ok {
		stored.SiteSlug = &slug
		s.st.users[u.ID] = stored
	}
	return slug, nil
}

func (s *Store) ArtistIDs(_ context.Context) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[uint]bool{}
	var ids []uint
	for _, a := range s.st.artworks {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) ArtistDisplayName(_ context.Context, ownerID uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.users[ownerID].WatermarkName(), nil
}

func (s *Store) SetArtistDisplayName(_ context.Context, ownerID uint, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.st.users[ownerID]
	if !ok {
		return works.ErrNotFound
	}
	u.DisplayName = name
	s.st.users[ownerID] = u
	return nil
}

func (s *Store) RecordSale(_ context.Context, sale *works.EditionSale) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.sales[sale.StripeSessionID]; ok {
		return false, nil
	}
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	sale.CreatedAt = time.Now()
	s.st.sales[sale.StripeSessionID] = *sale
	return true, nil
}

func (s *Store) Sales(_ context.Context, ownerID uint) ([]works.EditionSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []works.EditionSale
	for _, sale := range s.st.sales {
		if a, ok := s.st.artworks[sale.ArtworkID]; ok && a.UserID == ownerID {
			out = append(out, sale)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func sortArtworks(items []works.Artwork) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
