package dto

type CreateListingRequest struct {
	Kind  string `json:"kind" binding:"required,oneof=hotel restaurant transport excursion"`
	Title string `json:"title" binding:"required,max=255"`
}

type ReviewRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Text   string `json:"text"`
}

type ReviewResponse struct {
	ListingID uint    `json:"listing_id"`
	Rating    float64 `json:"rating"`
}
