package testutil

import (
	"strconv"

	"github.com/MoonsunCreations/Moonsun-Store/internal/catalog"
	"github.com/MoonsunCreations/Moonsun-Store/internal/pricing"
)

// Catalog returns a small fixed catalog. p1 costs 100 so cart totals are easy to read.
func Catalog() *catalog.Catalog {
	return catalog.New([]catalog.Product{
		{ID: "p1", Name: "Moonstone Ring", Description: "Silver ring", Image: "/images/p1.jpg", Price: pricing.FromMajor(100)},
		{ID: "p2", Name: "Sun Pendant", Description: "Brass pendant", Image: "/images/p2.jpg", Price: pricing.FromFloat(49.5)},
		{ID: "p3", Name: "Star Earrings", Image: "/images/p3.jpg", Price: pricing.FromMajor(1200)},
	})
}

// ManyProducts returns a catalog of n products with ids item-0 .. item-(n-1).
func ManyProducts(n int) *catalog.Catalog {
	products := make([]catalog.Product, 0, n)
	for i := 0; i < n; i++ {
		id := "item-" + strconv.Itoa(i)
		products = append(products, catalog.Product{ID: id, Name: "Item " + strconv.Itoa(i), Price: pricing.FromMajor(int64(i + 1))})
	}
	return catalog.New(products)
}
