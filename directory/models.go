package directory

import "time"

// Center is a rehabilitation center.
type Center struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	City        string    `json:"city,omitempty"`
	Address     string    `json:"address,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Description string    `json:"description,omitempty"`
	Services    []string  `json:"services,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// GetID returns the center id.
func (c Center) GetID() string { return c.ID }

// Article is an editorial article.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Body        string    `json:"body,omitempty"`
	Category    string    `json:"category,omitempty"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitzero"`
}

// GetID returns the article id.
func (a Article) GetID() string { return a.ID }

// Comment is a reader comment on an article.
type Comment struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"articleId"`
	UserID    string    `json:"userId,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// GetID returns the comment id.
func (c Comment) GetID() string { return c.ID }

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking is a user's appointment at a center.
type Booking struct {
	ID       string    `json:"id"`
	CenterID string    `json:"centerId"`
	UserID   string    `json:"userId,omitempty"`
	Date     time.Time `json:"date"`
	Status   string    `json:"status,omitempty"`
	Note     string    `json:"note,omitempty"`
}

// GetID returns the booking id.
func (b Booking) GetID() string { return b.ID }

// Favorite marks a center as saved by a user.
type Favorite struct {
	ID        string    `json:"id"`
	CenterID  string    `json:"centerId"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// GetID returns the favorite id.
func (f Favorite) GetID() string { return f.ID }

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// GetID returns the user id.
func (u User) GetID() string { return u.ID }
