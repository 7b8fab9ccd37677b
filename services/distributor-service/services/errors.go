package services

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/repository"
)

// NormalizeUsername is the canonical form used for storage and lookups.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// shortfallError builds the InsufficientStock error for one or more products.
// The first shortfall names the product in the message.
func shortfallError(shortfalls []models.Shortfall, cause error) *apperrors.Error {
	first := shortfalls[0]
	msg := fmt.Sprintf("Insufficient stock for product %s: requested %d, available %d",
		first.ProductID, first.Requested, first.Available)
	return apperrors.InsufficientStock(msg, cause).WithDetails(map[string]interface{}{"shortfalls": shortfalls})
}

// stockError translates repository errors raised by stock updates.
func stockError(err error, productID, scope string) error {
	var se *repository.StockError
	switch {
	case errors.As(err, &se):
		return shortfallError([]models.Shortfall{{
			ProductID: se.ProductID,
			Requested: se.Requested,
			Available: se.Available,
			Shortfall: se.Requested - se.Available,
			Scope:     scope,
		}}, err)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(fmt.Sprintf("Product %s has no %s stock record", productID, scope), err)
	}
	return dependencyError(err)
}

// dependencyError passes application errors through and wraps the rest.
func dependencyError(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.DependencyUnavailable("Service temporarily unavailable", err)
}
