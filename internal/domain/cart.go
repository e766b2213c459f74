package domain

import "time"

// DayCount is the number of day slots in a weekly cart (Mon..Sun).
const DayCount = 7

type CartItem struct {
	ProductID     string  `bson:"product_id" json:"product_id"`
	Name          string  `bson:"name" json:"name"`
	OriginalPrice float64 `bson:"original_price" json:"original_price"`
	OfferedPrice  float64 `bson:"offered_price" json:"offered_price"`
	Quantity      int32   `bson:"quantity" json:"quantity"`
}

// EffectivePrice returns the unit price actually charged: the offered
// price when a positive override is set, the original price otherwise.
func (i CartItem) EffectivePrice() float64 {
	if i.OfferedPrice > 0 {
		return i.OfferedPrice
	}
	return i.OriginalPrice
}

// DayCart holds one delivery day's items and its delivery window.
type DayCart struct {
	Items          []CartItem `bson:"items" json:"items"`
	DeliveryWindow string     `bson:"delivery_window" json:"delivery_window"`
}

// Cart is a user's weekly cart, keyed by day index 0..6.
type Cart struct {
	ID        string           `bson:"_id,omitempty" json:"-"`
	UserID    string           `bson:"user_id" json:"user_id"`
	Days      map[int]*DayCart `bson:"days" json:"days"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time        `bson:"updated_at" json:"updated_at"`
}

// IsEmpty reports whether no day holds any items.
func (c *Cart) IsEmpty() bool {
	for _, day := range c.Days {
		if day != nil && len(day.Items) > 0 {
			return false
		}
	}
	return true
}

// TotalQuantity sums item quantities across all days.
func (c *Cart) TotalQuantity() int32 {
	var total int32
	for _, day := range c.Days {
		if day == nil {
			continue
		}
		for _, item := range day.Items {
			total += item.Quantity
		}
	}
	return total
}
