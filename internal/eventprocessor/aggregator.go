// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package eventprocessor

import (
	"sort"
	"sync"
)

// LeaderboardSize is how many products each leaderboard reports.
const LeaderboardSize = 5

// ProductCount is one leaderboard entry.
type ProductCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ProductCounter is a mutex-guarded counter keyed by product name.
// First-seen order is retained and breaks count ties, so leaderboards
// are deterministic across reads.
type ProductCounter struct {
	mu     sync.Mutex
	counts map[string]int
	order  []string
}

// NewProductCounter creates an empty counter.
func NewProductCounter() *ProductCounter {
	return &ProductCounter{counts: make(map[string]int)}
}

// Add increments a product's count by quantity.
func (c *ProductCounter) Add(name string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(name, quantity)
}

// AddBatch applies several increments under one lock acquisition, so a
// multi-line checkout is atomic with respect to leaderboard reads.
func (c *ProductCounter) AddBatch(items []LineItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		c.add(item.Name, item.Quantity)
	}
}

// add requires c.mu held.
func (c *ProductCounter) add(name string, quantity int) {
	if quantity <= 0 {
		return
	}
	if _, seen := c.counts[name]; !seen {
		c.order = append(c.order, name)
	}
	c.counts[name] += quantity
}

// Count returns a product's current count.
func (c *ProductCounter) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

// Len returns the number of distinct products counted.
func (c *ProductCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counts)
}

// Top returns up to n entries ordered by count descending. Ties keep
// first-seen order. The result is a snapshot; later mutations do not
// affect it.
func (c *ProductCounter) Top(n int) []ProductCount {
	c.mu.Lock()
	entries := make([]ProductCount, 0, len(c.order))
	for _, name := range c.order {
		entries = append(entries, ProductCount{Name: name, Count: c.counts[name]})
	}
	c.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Aggregator owns the two product leaderboards. Counters live only as
// fields of an Aggregator instance and are mutated only through Apply,
// so separate instances are fully isolated.
type Aggregator struct {
	cart     *ProductCounter
	checkout *ProductCounter
}

// NewAggregator creates an aggregator with empty counters.
func NewAggregator() *Aggregator {
	return &Aggregator{
		cart:     NewProductCounter(),
		checkout: NewProductCounter(),
	}
}

// Apply folds one event into the counters. Cart adds count once per
// event; checkout lines count by quantity. Other kinds are no-ops.
func (a *Aggregator) Apply(event *Event) {
	switch event.Kind {
	case KindAddToCart:
		if event.Product != "" {
			a.cart.Add(event.Product, 1)
		}
	case KindCheckout:
		a.checkout.AddBatch(event.Products)
	}
}

// TrendingProducts returns the top cart additions.
func (a *Aggregator) TrendingProducts() []ProductCount {
	return a.cart.Top(LeaderboardSize)
}

// CheckoutTrends returns the top checked-out products.
func (a *Aggregator) CheckoutTrends() []ProductCount {
	return a.checkout.Top(LeaderboardSize)
}
