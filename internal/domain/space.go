package domain

import "time"

// Space is the top-level container of a user's groups.
type Space struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	ID     string `json:"id"`
	UserID string `json:"userId"`

	// ─────────────────────────────
	// Presentation
	// ─────────────────────────────

	Name string `json:"name"`

	// Icon is a short emoji, 1 to 4 runes.
	Icon  string  `json:"icon"`
	Color *string `json:"color,omitempty"`

	// Order is unique among the user's live spaces.
	Order int `json:"order"`

	// ─────────────────────────────
	// Lifecycle
	// ─────────────────────────────

	IsArchived bool      `json:"isArchived"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (s Space) Key() string    { return s.ID }
func (s Space) Scope() string  { return "" }
func (s Space) Position() int  { return s.Order }
func (s Space) Archived() bool { return s.IsArchived }

func (s Space) WithPosition(order int) Space {
	s.Order = order
	return s
}

// Updated returns the last modification time.
func (s Space) Updated() time.Time { return s.UpdatedAt }

func (s Space) Touched(at time.Time) Space {
	s.UpdatedAt = at
	return s
}

// SpaceInput creates a space.
type SpaceInput struct {
	Name  string  `json:"name"`
	Icon  string  `json:"icon"`
	Color *string `json:"color,omitempty"`
}

func (in SpaceInput) Scope() string { return "" }

func (in SpaceInput) Validate() error {
	if err := checkName("name", in.Name); err != nil {
		return err
	}
	return checkIcon(in.Icon)
}

func (in SpaceInput) Build(id, userID string, order int, now time.Time) Space {
	return Space{
		ID:        id,
		UserID:    userID,
		Name:      in.Name,
		Icon:      in.Icon,
		Color:     in.Color,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SpacePatch updates a space. Nil fields are left unchanged.
type SpacePatch struct {
	Name       *string `json:"name,omitempty"`
	Icon       *string `json:"icon,omitempty"`
	Color      *string `json:"color,omitempty"`
	IsArchived *bool   `json:"isArchived,omitempty"`
}

func (p SpacePatch) Validate() error {
	if p.Name != nil {
		if err := checkName("name", *p.Name); err != nil {
			return err
		}
	}
	if p.Icon != nil {
		return checkIcon(*p.Icon)
	}
	return nil
}

func (p SpacePatch) Apply(s Space) Space {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Icon != nil {
		s.Icon = *p.Icon
	}
	if p.Color != nil {
		s.Color = p.Color
	}
	if p.IsArchived != nil {
		s.IsArchived = *p.IsArchived
	}
	return s
}
