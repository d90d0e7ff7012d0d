package models

import "fmt"

// Moderatable content kinds. Adding a kind here also requires an
// ownership resolver registration for appeals to work against it.
const (
	KindPost               = "post"
	KindComment            = "comment"
	KindMessage            = "message"
	KindMarketplaceListing = "marketplace_listing"
	KindAnimalListing      = "animal_listing"
	KindYardSale           = "yard_sale"
	KindPage               = "page"
)

// ContentRef identifies a moderatable item without coupling to that
// item's storage.
type ContentRef struct {
	Kind string
	ID   uint64
}

func (r ContentRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}
