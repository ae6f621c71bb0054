package db

import "github.com/printstore/printstore/internal/models"

type Category = models.Category
type Product = models.Product
type PriceMatrixRow = models.PriceMatrixRow
type Order = models.Order
type OrderItem = models.OrderItem
type OrderStatus = models.OrderStatus

const (
	StatusPendingPayment = models.StatusPendingPayment
	StatusPaid           = models.StatusPaid
	StatusPaymentFailed  = models.StatusPaymentFailed
	StatusShipped        = models.StatusShipped
	StatusDelivered      = models.StatusDelivered
	StatusCancelled      = models.StatusCancelled
)
