package domain

// Product and Address are read-only replicas of the catalog owned by other
// services, kept locally for display and reporting joins.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Slug  string `json:"slug"`
	Image string `json:"image"`
	Sale  *int64 `json:"sale,omitempty"`
}

type Address struct {
	ID       string `json:"id"`
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	District string `json:"district"`
	City     string `json:"city"`
	Ward     string `json:"ward"`
	Street   string `json:"street"`
}
