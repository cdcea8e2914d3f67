// Package cart accumulates a client's product selections before checkout.
//
// A Cart holds at most one line per product, every line has quantity >= 1,
// and each line keeps the name, price, unit and image the product had when
// it was added. Totals use those captured prices so the subtotal a client
// sees is the one it submits. The cart has no network or storage dependency;
// it serializes to JSON for client-local persistence.
package cart

import (
	"encoding/json"

	"github.com/safar/fruit-store/internal/models"
	"github.com/shopspring/decimal"
)

type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Unit      models.Unit     `json:"unit"`
	ImageURL  string          `json:"image_url"`
	Quantity  int             `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is not safe for concurrent use.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add increases the quantity of product's line, creating it from the
// product's current state if absent. Quantities below 1 count as 1.
func (c *Cart) Add(product models.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	if i := c.index(product.ID); i >= 0 {
		c.lines[i].Quantity += quantity
		return
	}
	c.lines = append(c.lines, Line{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Unit:      product.Unit,
		ImageURL:  product.ImageURL,
		Quantity:  quantity,
	})
}

func (c *Cart) Remove(productID string) {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// SetQuantity replaces a line's quantity; n <= 0 removes the line.
func (c *Cart) SetQuantity(productID string, n int) {
	if n <= 0 {
		c.Remove(productID)
		return
	}
	if i := c.index(productID); i >= 0 {
		c.lines[i].Quantity = n
	}
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

func (c *Cart) Line(productID string) (Line, bool) {
	if i := c.index(productID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

// OrderItems is the checkout payload built from the captured lines.
func (c *Cart) OrderItems() []models.OrderItem {
	items := make([]models.OrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, models.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.Price,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal(),
		})
	}
	return items
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	if c.lines == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.lines)
}

// UnmarshalJSON restores a saved cart, merging duplicate product lines and
// dropping lines without a product or with quantity below 1.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}

	c.lines = nil
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 {
			continue
		}
		if i := c.index(l.ProductID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return nil
}

func (c *Cart) index(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
