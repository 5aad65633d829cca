package models

import "time"

// DefaultHandle is the placeholder handle every new account starts with.
const DefaultHandle = "@seuUsuario"

// Theme is the color scheme of a public profile page.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Link is a single labelled entry on a profile page.
type Link struct {
	Label string `json:"label" validate:"required,max=100"`
	URL   string `json:"url" validate:"required,max=2048"`
}

// Socials holds the optional social network URLs of a profile.
// Keys outside this vocabulary are dropped when decoding.
type Socials struct {
	GitHub    string `json:"github,omitempty" validate:"omitempty,max=2048"`
	Instagram string `json:"instagram,omitempty" validate:"omitempty,max=2048"`
	LinkedIn  string `json:"linkedin,omitempty" validate:"omitempty,max=2048"`
	Twitter   string `json:"twitter,omitempty" validate:"omitempty,max=2048"`
}

// IsZero reports whether no social URL is set.
func (s Socials) IsZero() bool {
	return s == Socials{}
}

// Account is the stored account record. It carries the password hash and
// must never be written to a client as is; use Public or Profile.
type Account struct {
	Email        string    `json:"email" gorm:"primaryKey;type:varchar(255)"`
	PasswordHash string    `json:"passwordHash" gorm:"type:varchar(255);not null"`
	Handle       string    `json:"handle" gorm:"index;type:varchar(100)"`
	Links        []Link    `json:"links" gorm:"serializer:json"`
	Socials      Socials   `json:"socials" gorm:"serializer:json"`
	Theme        Theme     `json:"theme" gorm:"type:varchar(16)"`
	Avatar       *string   `json:"avatar"`
	AvatarLight  *string   `json:"avatarLight"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	if a.Links != nil {
		c.Links = make([]Link, len(a.Links))
		copy(c.Links, a.Links)
	}
	c.Avatar = cloneString(a.Avatar)
	c.AvatarLight = cloneString(a.AvatarLight)
	return &c
}

// PublicAccount is the account as returned to its owner.
type PublicAccount struct {
	Email       string  `json:"email"`
	Handle      string  `json:"handle"`
	Links       []Link  `json:"links"`
	Socials     Socials `json:"socials"`
	Theme       Theme   `json:"theme"`
	Avatar      *string `json:"avatar"`
	AvatarLight *string `json:"avatarLight"`
}

// PublicProfile is the account as shown to anonymous visitors.
type PublicProfile struct {
	Handle      string  `json:"handle"`
	Links       []Link  `json:"links"`
	Socials     Socials `json:"socials"`
	Theme       Theme   `json:"theme"`
	Avatar      *string `json:"avatar"`
	AvatarLight *string `json:"avatarLight"`
}

// Public strips the credential from the account.
func (a *Account) Public() PublicAccount {
	c := a.Clone()
	return PublicAccount{
		Email:       c.Email,
		Handle:      c.Handle,
		Links:       nonNilLinks(c.Links),
		Socials:     c.Socials,
		Theme:       c.Theme,
		Avatar:      c.Avatar,
		AvatarLight: c.AvatarLight,
	}
}

// Profile strips the credential and the email from the account.
func (a *Account) Profile() PublicProfile {
	c := a.Clone()
	return PublicProfile{
		Handle:      c.Handle,
		Links:       nonNilLinks(c.Links),
		Socials:     c.Socials,
		Theme:       c.Theme,
		Avatar:      c.Avatar,
		AvatarLight: c.AvatarLight,
	}
}

// ProfilePatch is the set of fields an owner may change on their profile.
// Any other field in a request body is ignored by the JSON decoder.
// A nil Links slice means "not present"; an empty one clears the links.
type ProfilePatch struct {
	Handle  *string  `json:"handle" validate:"omitnil,min=1,max=64"`
	Theme   *Theme   `json:"theme" validate:"omitnil,oneof=dark light"`
	Socials *Socials `json:"socials"`
	Links   []Link   `json:"links" validate:"omitempty,dive"`
}

// ApplyTo merges the present fields of the patch into the account.
func (p ProfilePatch) ApplyTo(a *Account) {
	if p.Handle != nil {
		a.Handle = *p.Handle
	}
	if p.Theme != nil {
		a.Theme = *p.Theme
	}
	if p.Socials != nil {
		a.Socials = *p.Socials
	}
	if p.Links != nil {
		a.Links = make([]Link, len(p.Links))
		copy(a.Links, p.Links)
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func nonNilLinks(l []Link) []Link {
	if l == nil {
		return []Link{}
	}
	return l
}
