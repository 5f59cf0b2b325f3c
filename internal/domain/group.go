package domain

import "time"

// Group collects bookmarks inside a space.
type Group struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	SpaceID string `json:"spaceId"`

	Name string  `json:"name"`
	Icon *string `json:"icon,omitempty"`

	// Order is unique among the live groups of SpaceID.
	Order int `json:"order"`

	IsArchived bool      `json:"isArchived"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (g Group) Key() string    { return g.ID }
func (g Group) Scope() string  { return g.SpaceID }
func (g Group) Position() int  { return g.Order }
func (g Group) Archived() bool { return g.IsArchived }

func (g Group) WithPosition(order int) Group {
	g.Order = order
	return g
}

// Updated returns the last modification time.
func (g Group) Updated() time.Time { return g.UpdatedAt }

func (g Group) Touched(at time.Time) Group {
	g.UpdatedAt = at
	return g
}

// GroupInput creates a group.
type GroupInput struct {
	SpaceID string  `json:"spaceId"`
	Name    string  `json:"name"`
	Icon    *string `json:"icon,omitempty"`
}

func (in GroupInput) Scope() string { return in.SpaceID }

func (in GroupInput) Validate() error {
	if in.SpaceID == "" {
		return invalid("spaceId is required")
	}
	return checkName("name", in.Name)
}

func (in GroupInput) Build(id, userID string, order int, now time.Time) Group {
	return Group{
		ID:        id,
		UserID:    userID,
		SpaceID:   in.SpaceID,
		Name:      in.Name,
		Icon:      in.Icon,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GroupPatch updates a group. A non-nil SpaceID relocates the group to another
// space, which also rewrites the denormalized spaceId of its bookmarks.
type GroupPatch struct {
	SpaceID    *string `json:"spaceId,omitempty"`
	Name       *string `json:"name,omitempty"`
	Icon       *string `json:"icon,omitempty"`
	IsArchived *bool   `json:"isArchived,omitempty"`
}

func (p GroupPatch) Validate() error {
	if p.SpaceID != nil && *p.SpaceID == "" {
		return invalid("spaceId must not be empty")
	}
	if p.Name != nil {
		return checkName("name", *p.Name)
	}
	return nil
}

func (p GroupPatch) Apply(g Group) Group {
	if p.SpaceID != nil {
		g.SpaceID = *p.SpaceID
	}
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Icon != nil {
		g.Icon = p.Icon
	}
	if p.IsArchived != nil {
		g.IsArchived = *p.IsArchived
	}
	return g
}
