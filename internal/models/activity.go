package models

import "time"

type Activity struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Price          int64     `json:"price"`
	Address        string    `json:"address"`
	BannerImageURL string    `json:"bannerImageUrl"`
	Rating         float64   `json:"rating"`
	ReviewCount    int64     `json:"reviewCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// FavoriteActivity is a denormalized snapshot kept per user. The remote
// service stays authoritative for activity data; snapshots may go stale.
type FavoriteActivity struct {
	UserID   int64     `json:"userId"`
	Activity Activity  `json:"activity"`
	AddedAt  time.Time `json:"addedAt"`
}

// RecentlyViewedActivity records a detail-page view for the recent list.
type RecentlyViewedActivity struct {
	Activity Activity  `json:"activity"`
	ViewedAt time.Time `json:"viewedAt"`
}
