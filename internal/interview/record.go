package interview

import (
	"math/rand/v2"
	"time"
)

// TimeLayout is the creation timestamp format: ISO-8601 UTC with millisecond
// precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in [TimeLayout].
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// DefaultCovers are the cover images a new interview may get.
var DefaultCovers = []string{
	"/covers/adobe.png",
	"/covers/amazon.png",
	"/covers/facebook.png",
	"/covers/hostinger.png",
	"/covers/pinterest.png",
	"/covers/quora.png",
	"/covers/reddit.png",
	"/covers/skype.png",
	"/covers/spotify.png",
	"/covers/telegram.png",
	"/covers/tiktok.png",
	"/covers/yahoo.png",
}

// RandomCover picks one of covers uniformly, or "" when covers is empty.
func RandomCover(covers []string) string {
	if len(covers) == 0 {
		return ""
	}
	return covers[rand.IntN(len(covers))]
}

// Record is the persisted interview document. It is written once and never
// updated.
type Record struct {
	ID         string   `json:"id,omitempty" firestore:"-"`
	Role       string   `json:"role" firestore:"role"`
	Type       string   `json:"type" firestore:"type"`
	Level      string   `json:"level" firestore:"level"`
	TechStack  []string `json:"techstack" firestore:"techstack"`
	Amount     int      `json:"amount" firestore:"amount"`
	Questions  []string `json:"questions" firestore:"questions"`
	UserID     string   `json:"userId" firestore:"userId"`
	Finalized  bool     `json:"finalized" firestore:"finalized"`
	CoverImage string   `json:"coverImage" firestore:"coverImage"`
	CreatedAt  string   `json:"createdAt" firestore:"createdAt"`
}
