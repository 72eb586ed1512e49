// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/trolleyhq/trolley/internal/eventprocessor"
	"github.com/trolleyhq/trolley/internal/models"
)

// The reporting endpoints are stateless: each request derives its graph
// from the checkout events in the history store. Node ids are prefixed
// by kind so a product and a category with the same name never collide.

func (h *Handler) checkoutEvents(ctx context.Context) ([]*eventprocessor.Event, error) {
	records, err := h.history.All(ctx)
	if err != nil {
		return nil, err
	}
	var checkouts []*eventprocessor.Event
	for _, record := range records {
		if record.Event != nil && record.Event.Kind == eventprocessor.KindCheckout {
			checkouts = append(checkouts, record.Event)
		}
	}
	return checkouts, nil
}

// MarketBasket handles GET /graph/market-basket: products co-purchased
// within one checkout, edge labels carrying the co-occurrence count.
func (h *Handler) MarketBasket(w http.ResponseWriter, r *http.Request) {
	checkouts, err := h.checkoutEvents(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "could not read history")
		return
	}

	categories := make(map[string]string)
	pairs := make(map[[2]string]int)
	for _, checkout := range checkouts {
		names := make([]string, 0, len(checkout.Products))
		seen := make(map[string]bool)
		for _, item := range checkout.Products {
			if item.Name == "" || seen[item.Name] {
				continue
			}
			seen[item.Name] = true
			names = append(names, item.Name)
			if item.Category != "" {
				categories[item.Name] = item.Category
			}
		}
		sort.Strings(names)
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				pairs[[2]string{names[i], names[j]}]++
			}
		}
	}

	graph := models.Graph{Nodes: []models.GraphNode{}, Edges: []models.GraphEdge{}}
	products := make(map[string]bool)
	ordered := make([][2]string, 0, len(pairs))
	for pair := range pairs {
		ordered = append(ordered, pair)
		products[pair[0]] = true
		products[pair[1]] = true
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i][0] != ordered[j][0] {
			return ordered[i][0] < ordered[j][0]
		}
		return ordered[i][1] < ordered[j][1]
	})

	names := make([]string, 0, len(products))
	for name := range products {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		group := categories[name]
		if group == "" {
			group = "product"
		}
		graph.Nodes = append(graph.Nodes, models.GraphNode{
			ID: "product:" + name, Label: name, Group: group,
		})
	}
	for _, pair := range ordered {
		graph.Edges = append(graph.Edges, models.GraphEdge{
			From:  "product:" + pair[0],
			To:    "product:" + pair[1],
			Label: strconv.Itoa(pairs[pair]),
		})
	}
	respondOK(w, graph)
}

// TopProducts handles GET /graph/top-products: a star graph of the most
// checked-out products by total quantity.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	checkouts, err := h.checkoutEvents(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "could not read history")
		return
	}

	counter := eventprocessor.NewProductCounter()
	for _, checkout := range checkouts {
		counter.AddBatch(checkout.Products)
	}

	graph := models.Graph{
		Nodes: []models.GraphNode{{ID: "top", Label: "Top Products", Group: "root"}},
		Edges: []models.GraphEdge{},
	}
	for _, entry := range counter.Top(10) {
		graph.Nodes = append(graph.Nodes, models.GraphNode{
			ID: "product:" + entry.Name, Label: entry.Name, Group: "product",
		})
		graph.Edges = append(graph.Edges, models.GraphEdge{
			From: "top", To: "product:" + entry.Name, Label: strconv.Itoa(entry.Count),
		})
	}
	respondOK(w, graph)
}

// CategoryProducts handles GET /graph/category-products: categories
// linked to the products checked out under them.
func (h *Handler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	checkouts, err := h.checkoutEvents(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_FAILED", "could not read history")
		return
	}

	quantities := make(map[string]map[string]int)
	for _, checkout := range checkouts {
		for _, item := range checkout.Products {
			if item.Name == "" || item.Quantity <= 0 {
				continue
			}
			category := item.Category
			if category == "" {
				category = "Uncategorized"
			}
			if quantities[category] == nil {
				quantities[category] = make(map[string]int)
			}
			quantities[category][item.Name] += item.Quantity
		}
	}

	graph := models.Graph{Nodes: []models.GraphNode{}, Edges: []models.GraphEdge{}}
	categories := make([]string, 0, len(quantities))
	for category := range quantities {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	addedProducts := make(map[string]bool)
	for _, category := range categories {
		graph.Nodes = append(graph.Nodes, models.GraphNode{
			ID: "category:" + category, Label: category, Group: "category",
		})
		names := make([]string, 0, len(quantities[category]))
		for name := range quantities[category] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if !addedProducts[name] {
				addedProducts[name] = true
				graph.Nodes = append(graph.Nodes, models.GraphNode{
					ID: "product:" + name, Label: name, Group: "product",
				})
			}
			graph.Edges = append(graph.Edges, models.GraphEdge{
				From:  "category:" + category,
				To:    "product:" + name,
				Label: strconv.Itoa(quantities[category][name]),
			})
		}
	}
	respondOK(w, graph)
}
