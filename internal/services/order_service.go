package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andesgear/pos-api/internal/clients/strapi"
	"github.com/andesgear/pos-api/internal/clients/woocommerce"
	"github.com/andesgear/pos-api/internal/domain"
)

var (
	// ErrOrderInvalidInput indicates the caller supplied invalid input.
	ErrOrderInvalidInput = errors.New("order service: invalid input")
	// ErrOrderUnavailable indicates a backing store failed.
	ErrOrderUnavailable = errors.New("order service: unavailable")
	// ErrOrderNotFound indicates no order matches the identifier.
	ErrOrderNotFound = errors.New("order service: not found")
)

// ContentOrderStore is the content store side of the dual-write protocol.
type ContentOrderStore interface {
	GetOrder(ctx context.Context, documentID string) (domain.OrderRecord, error)
	FindOrderByRemoteID(ctx context.Context, remoteID int64) (domain.OrderRecord, error)
	ListOrders(ctx context.Context) ([]domain.OrderRecord, error)
	UpdateOrder(ctx context.Context, documentID string, update strapi.OrderUpdate) (domain.OrderRecord, error)
}

// RemoteOrderStore is the commerce platform side of the dual-write protocol.
type RemoteOrderStore interface {
	Configured() bool
	GetOrder(ctx context.Context, id int64) (domain.OrderRecord, error)
	UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.OrderRecord, error)
}

// OrderServiceDeps wires both order stores.
type OrderServiceDeps struct {
	Content ContentOrderStore
	Remote  RemoteOrderStore
	Clock   func() time.Time
	Logger  func(context.Context, string, map[string]any)
}

type orderService struct {
	content ContentOrderStore
	remote  RemoteOrderStore
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Content == nil {
		return nil, errors.New("order service: content store is required")
	}
	if deps.Remote == nil {
		return nil, errors.New("order service: remote store is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		content: deps.Content,
		remote:  deps.Remote,
		now:     func() time.Time { return clock().UTC() },
		logger:  logger,
	}, nil
}

func (s *orderService) ListOrders(ctx context.Context) ([]domain.OrderRecord, error) {
	orders, err := s.content.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %s", ErrOrderUnavailable, err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, identifier string) (domain.OrderRecord, error) {
	return s.resolveOrder(ctx, identifier)
}

func (s *orderService) UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (UpdateOrderResult, error) {
	update, err := buildContentUpdate(cmd)
	if err != nil {
		return UpdateOrderResult{}, err
	}

	order, err := s.resolveOrder(ctx, cmd.Identifier)
	if err != nil {
		return UpdateOrderResult{}, err
	}

	result := UpdateOrderResult{Order: order}
	remoteUpdated := false

	// Remote first: a status the platform rejects must never land in the
	// content store alone, or the two stores drift apart.
	if update.Status != nil && order.RemoteID > 0 && order.Platform != domain.PlatformOther {
		remote, err := s.remote.UpdateOrderStatus(ctx, order.RemoteID, *update.Status)
		switch {
		case err == nil:
			remoteUpdated = true
			result.Order = mergeRemote(order, remote)
		case errors.Is(err, woocommerce.ErrNotConfigured):
			result.Warnings = append(result.Warnings, "remote store not configured; status updated locally only")
		case errors.Is(err, woocommerce.ErrNotFound):
			result.Warnings = append(result.Warnings, fmt.Sprintf("order %d not found in remote store; status updated locally only", order.RemoteID))
		case errors.Is(err, woocommerce.ErrInvalidInput):
			return UpdateOrderResult{}, fmt.Errorf("%w: remote store rejected status %q", ErrOrderInvalidInput, *update.Status)
		default:
			return UpdateOrderResult{}, fmt.Errorf("%w: remote status update: %s", ErrOrderUnavailable, err)
		}
	}

	updated, err := s.content.UpdateOrder(ctx, order.DocumentID, update)
	if err != nil {
		if remoteUpdated {
			// The remote write already happened; surface the divergence
			// instead of failing what is now a half-applied update.
			s.logger(ctx, "orders.partial_update", map[string]any{
				"documentId": order.DocumentID,
				"remoteId":   order.RemoteID,
				"error":      err.Error(),
			})
			result.Partial = true
			result.Warnings = append(result.Warnings, fmt.Sprintf("remote store updated but content store write failed: %s", err))
			return result, nil
		}
		if errors.Is(err, strapi.ErrInvalidInput) {
			return UpdateOrderResult{}, fmt.Errorf("%w: content store rejected update", ErrOrderInvalidInput)
		}
		return UpdateOrderResult{}, fmt.Errorf("%w: content update: %s", ErrOrderUnavailable, err)
	}

	result.Order = updated
	s.logger(ctx, "orders.updated", map[string]any{
		"documentId": updated.DocumentID,
		"remoteId":   updated.RemoteID,
		"status":     string(updated.Status),
	})
	return result, nil
}

// resolveOrder accepts either a content store document id or a numeric remote
// id and resolves it against the content store.
func (s *orderService) resolveOrder(ctx context.Context, identifier string) (domain.OrderRecord, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return domain.OrderRecord{}, fmt.Errorf("%w: order identifier is required", ErrOrderInvalidInput)
	}

	if remoteID, err := strconv.ParseInt(identifier, 10, 64); err == nil && remoteID > 0 {
		order, err := s.content.FindOrderByRemoteID(ctx, remoteID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, strapi.ErrNotFound) {
			return domain.OrderRecord{}, fmt.Errorf("%w: lookup by remote id: %s", ErrOrderUnavailable, err)
		}
		// Fall through: the numeric string may still be a document id.
	}

	order, err := s.content.GetOrder(ctx, identifier)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, strapi.ErrNotFound) {
		return domain.OrderRecord{}, fmt.Errorf("%w: get order: %s", ErrOrderUnavailable, err)
	}

	// Last resort: scan the full list. Legacy records occasionally carry the
	// remote id as their document id or vice versa.
	orders, err := s.content.ListOrders(ctx)
	if err != nil {
		return domain.OrderRecord{}, fmt.Errorf("%w: scan orders: %s", ErrOrderUnavailable, err)
	}
	for _, candidate := range orders {
		if candidate.DocumentID == identifier || strconv.FormatInt(candidate.RemoteID, 10) == identifier {
			return candidate, nil
		}
	}
	return domain.OrderRecord{}, ErrOrderNotFound
}

func buildContentUpdate(cmd UpdateOrderCommand) (strapi.OrderUpdate, error) {
	update := strapi.OrderUpdate{}
	empty := true

	if cmd.Status != nil {
		status, ok := domain.NormalizeStatus(*cmd.Status)
		if !ok {
			return strapi.OrderUpdate{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, *cmd.Status)
		}
		update.Status = &status
		empty = false
	}
	if cmd.Origin != nil {
		origin, _ := domain.NormalizeOrigin(*cmd.Origin)
		update.Origin = &origin
		empty = false
	}
	if cmd.PaymentMethod != nil {
		method, _ := domain.NormalizePaymentMethod(*cmd.PaymentMethod)
		update.PaymentMethod = &method
		empty = false
	}
	if cmd.Note != nil {
		note := strings.TrimSpace(*cmd.Note)
		update.Note = &note
		empty = false
	}

	if empty {
		return strapi.OrderUpdate{}, fmt.Errorf("%w: update has no fields", ErrOrderInvalidInput)
	}
	return update, nil
}

// mergeRemote overlays the remote store's authoritative fields onto the
// content record.
func mergeRemote(local, remote domain.OrderRecord) domain.OrderRecord {
	merged := local
	if remote.Status != "" {
		merged.Status = remote.Status
	}
	if remote.Total > 0 {
		merged.Total = remote.Total
	}
	if !remote.UpdatedAt.IsZero() {
		merged.UpdatedAt = remote.UpdatedAt
	}
	return merged
}
