package view

import (
	"net/url"
	"strings"
)

// Route identifies a storefront page.
type Route int

const (
	RouteUnknown Route = iota
	RouteHome
	RouteShop
	RouteProduct
)

var routeNames = map[Route]string{
	RouteUnknown: "unknown",
	RouteHome:    "home",
	RouteShop:    "shop",
	RouteProduct: "product",
}

func (r Route) String() string {
	if name, ok := routeNames[r]; ok {
		return name
	}
	return routeNames[RouteUnknown]
}

// Paths lists the request paths served by each known route.
var Paths = map[Route][]string{
	RouteHome:    {"/", "/index.html"},
	RouteShop:    {"/shop", "/shop.html"},
	RouteProduct: {"/product", "/product.html"},
}

// ResolveRoute maps a request path to its route.
func ResolveRoute(path string) Route {
	p := strings.TrimSpace(path)
	if p == "" {
		return RouteHome
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	for route, paths := range Paths {
		for _, candidate := range paths {
			if p == candidate {
				return route
			}
		}
	}
	return RouteUnknown
}

// ProductHref is the detail page link for id.
func ProductHref(id string) string {
	return "/product.html?id=" + url.QueryEscape(id)
}
