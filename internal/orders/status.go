package orders

import (
	"fmt"

	"github.com/safar/fruit-store/internal/apperr"
	"github.com/safar/fruit-store/internal/models"
)

// transitions lists the statuses reachable from each status. Delivered and
// cancelled are terminal.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered: nil,
	models.OrderStatusCancelled: nil,
}

func IsTerminal(s models.OrderStatus) bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether an order may move from one status to
// another. Staying in the same status is always allowed.
func CanTransition(from, to models.OrderStatus) bool {
	if from == to {
		return from.Valid()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to models.OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return apperr.New(apperr.InvalidTransition,
		fmt.Sprintf("cannot change order status from %s to %s", from, to))
}
