package model

// Credentials is the OAuth2 token pair persisted between runs.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Gifter is the optional name of whoever paid for a gifted subscription.
// Valid is false when the subscription names no gifter.
type Gifter struct {
	Name  string
	Valid bool
}

func SomeGifter(name string) Gifter { return Gifter{Name: name, Valid: true} }
func NoGifter() Gifter { return Gifter{} }

// Is reports whether the gifter is present and equal to name.
func (g Gifter) Is(name string) bool { return g.Valid && g.Name == name }

// String returns the name, or "" for an absent gifter.
func (g Gifter) String() string {
	if !g.Valid {
		return ""
	}
	return g.Name
}

// Subscriber represents a subset of Helix subscription fields used by the tool.
type Subscriber struct {
	UserID    string
	UserName  string
	UserLogin string
	PlanName  string
	Tier      string
	IsGift    bool
	Gifter    Gifter
}

// Badge is the medal shown next to a leaderboard entry.
type Badge int

const (
	BadgeBronze Badge = iota
	BadgeSilver
	BadgeGold
)

func (b Badge) String() string {
	switch b {
	case BadgeGold:
		return "gold"
	case BadgeSilver:
		return "silver"
	default:
		return "bronze"
	}
}

// RankedSubscriber is a subscriber with its derived leaderboard fields.
type RankedSubscriber struct {
	Subscriber
	GiftCount int
	Badge     Badge
}
