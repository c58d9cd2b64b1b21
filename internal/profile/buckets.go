package profile

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// BucketPrice rounds price to the nearest multiple of tick, halves away from
// zero. A non-positive tick leaves the price as is.
func BucketPrice(price, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return price
	}
	return price.Div(tick).Round(0).Mul(tick)
}

type bucket[V any] struct {
	price decimal.Decimal
	value V
}

// Buckets groups values by price in ascending price order. Keys compare
// numerically, so "100" and "100.00" land in the same bucket.
type Buckets[V any] struct {
	tree *btree.BTreeG[*bucket[V]]
}

func NewBuckets[V any]() *Buckets[V] {
	return &Buckets[V]{
		tree: btree.NewG(8, func(a, b *bucket[V]) bool {
			return a.price.LessThan(b.price)
		}),
	}
}

// Update replaces the value stored at price with fn(old). A missing bucket
// starts from V's zero value.
func (b *Buckets[V]) Update(price decimal.Decimal, fn func(V) V) {
	entry := &bucket[V]{price: price}
	if got, ok := b.tree.Get(entry); ok {
		got.value = fn(got.value)
		return
	}
	var zero V
	entry.value = fn(zero)
	b.tree.ReplaceOrInsert(entry)
}

func (b *Buckets[V]) Len() int { return b.tree.Len() }

// Ascend visits buckets from the lowest price up until fn returns false.
func (b *Buckets[V]) Ascend(fn func(price decimal.Decimal, v V) bool) {
	b.tree.Ascend(func(it *bucket[V]) bool {
		return fn(it.price, it.value)
	})
}
