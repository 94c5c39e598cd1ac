package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"salesdesk/backend/internal/cache"
	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/events"
	"salesdesk/backend/internal/sale"
	"salesdesk/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service struct {
	repo      store.Repository
	publisher events.Publisher
	saleCache cache.SaleCache
	cacheTTL  time.Duration
}

func New(repo store.Repository, publisher events.Publisher, saleCache cache.SaleCache, cacheTTL time.Duration) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if saleCache == nil {
		saleCache = cache.NoopSaleCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	return &Service{
		repo:      repo,
		publisher: publisher,
		saleCache: saleCache,
		cacheTTL:  cacheTTL,
	}
}

// CreateSale builds and persists a new sale. An empty item list is rejected
// here: a sale created through the API always carries at least one line.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.SaleResponse, error) {
	if len(req.Items) == 0 {
		return nil, &sale.ValidationError{
			Field:      "items",
			Constraint: sale.ConstraintRequired,
			Message:    "at least one item is required",
		}
	}

	aggregate, err := sale.New(sale.NewSaleInput{
		SaleNumber:   req.SaleNumber,
		SaleDate:     req.SaleDate,
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		BranchID:     req.BranchID,
		BranchName:   req.BranchName,
		Items:        toItemSpecs(req.Items),
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.InsertSale(ctx, aggregate); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventSaleCreated, aggregate, "")

	resp := toSaleResponse(aggregate)
	s.cacheSet(ctx, resp)
	return resp, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (*domain.SaleResponse, error) {
	saleID, err := parseSaleID(id)
	if err != nil {
		return nil, err
	}

	if cached, ok, err := s.saleCache.Get(ctx, saleID.String()); err != nil {
		log.Printf("[service] WARN: sale cache get id=%s: %v", saleID, err)
	} else if ok {
		return cached, nil
	}

	aggregate, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	resp := toSaleResponse(aggregate)
	s.cacheSet(ctx, resp)
	return resp, nil
}

func (s *Service) ListSales(ctx context.Context, page int, size int) (*domain.SaleListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	sales, total, err := s.repo.ListSales(ctx, (page-1)*size, size)
	if err != nil {
		return nil, err
	}

	resp := &domain.SaleListResponse{
		Sales: make([]domain.SaleResponse, 0, len(sales)),
		Total: total,
		Page:  page,
		Size:  size,
	}
	for _, aggregate := range sales {
		resp.Sales = append(resp.Sales, *toSaleResponse(aggregate))
	}
	return resp, nil
}

// UpdateSale replaces the sale's scalar fields and item collection in one
// step. Nothing is written unless every new item validates.
func (s *Service) UpdateSale(ctx context.Context, id string, req domain.SaleUpdateRequest) (*domain.SaleResponse, error) {
	saleID, err := parseSaleID(id)
	if err != nil {
		return nil, err
	}

	aggregate, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if len(req.Items) == 0 {
		return nil, &sale.ValidationError{
			Field:      "items",
			Constraint: sale.ConstraintRequired,
			Message:    "at least one item is required",
		}
	}

	input := sale.UpdateInput{Items: toItemSpecs(req.Items)}
	if req.SaleNumber != nil {
		input.SaleNumber = *req.SaleNumber
	}
	if req.SaleDate != nil {
		input.SaleDate = *req.SaleDate
	}
	if req.CustomerID != nil {
		input.CustomerID = *req.CustomerID
	}
	if req.CustomerName != nil {
		input.CustomerName = *req.CustomerName
	}
	if req.BranchID != nil {
		input.BranchID = *req.BranchID
	}
	if req.BranchName != nil {
		input.BranchName = *req.BranchName
	}

	if err := aggregate.Update(input); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSale(ctx, aggregate); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventSaleModified, aggregate, "")
	s.cacheDelete(ctx, saleID.String())

	return toSaleResponse(aggregate), nil
}

// CancelSale marks the sale and all of its items cancelled. Cancelling an
// already-cancelled sale is a no-op and emits no event.
func (s *Service) CancelSale(ctx context.Context, id string) (*domain.SaleResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	saleID, err := parseSaleID(id)
	if err != nil {
		return nil, err
	}

	aggregate, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if aggregate.Cancelled() {
		return toSaleResponse(aggregate), nil
	}

	aggregate.Cancel()

	if err := s.repo.UpdateSale(ctx, aggregate); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventSaleCancelled, aggregate, "")
	s.cacheDelete(ctx, saleID.String())

	return toSaleResponse(aggregate), nil
}

// CancelSaleItem cancels a single line and reprices the sale. Cancelling an
// already-cancelled item is a no-op and emits no event.
func (s *Service) CancelSaleItem(ctx context.Context, id string, itemID string) (*domain.SaleResponse, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	saleID, err := parseSaleID(id)
	if err != nil {
		return nil, err
	}
	parsedItemID, err := uuid.Parse(itemID)
	if err != nil {
		return nil, &sale.NotFoundError{Message: "Item not found"}
	}

	aggregate, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	alreadyCancelled := false
	for _, item := range aggregate.Items() {
		if item.ID() == parsedItemID {
			alreadyCancelled = item.Cancelled()
			break
		}
	}

	if err := aggregate.CancelItem(parsedItemID); err != nil {
		return nil, err
	}
	if alreadyCancelled {
		return toSaleResponse(aggregate), nil
	}

	if err := s.repo.UpdateSale(ctx, aggregate); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventSaleItemCancelled, aggregate, parsedItemID.String())
	s.cacheDelete(ctx, saleID.String())

	return toSaleResponse(aggregate), nil
}

// DeleteSale removes the sale and its items permanently. No event is
// published: deletion is an administrative cleanup, not a business fact.
func (s *Service) DeleteSale(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	saleID, err := parseSaleID(id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteSale(ctx, saleID); err != nil {
		return err
	}

	s.cacheDelete(ctx, saleID.String())
	return nil
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}
	return nil
}

func parseSaleID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, &sale.ValidationError{
			Field:      "id",
			Constraint: sale.ConstraintInvalidReference,
			Message:    "sale id must be a valid uuid",
		}
	}
	return parsed, nil
}

func (s *Service) publish(ctx context.Context, eventType string, aggregate *sale.Sale, itemID string) {
	event := domain.SaleEvent{
		Type:        eventType,
		OccurredAt:  time.Now().UTC(),
		SaleID:      aggregate.ID().String(),
		SaleNumber:  aggregate.SaleNumber(),
		CustomerID:  aggregate.CustomerID(),
		BranchID:    aggregate.BranchID(),
		TotalAmount: aggregate.TotalAmount(),
		Cancelled:   aggregate.Cancelled(),
		ItemID:      itemID,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("[service] WARN: publish %s sale=%s: %v", eventType, event.SaleID, err)
	}
}

func (s *Service) cacheSet(ctx context.Context, resp *domain.SaleResponse) {
	if err := s.saleCache.Set(ctx, resp, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: sale cache set id=%s: %v", resp.ID, err)
	}
}

func (s *Service) cacheDelete(ctx context.Context, saleID string) {
	if err := s.saleCache.Delete(ctx, saleID); err != nil {
		log.Printf("[service] WARN: sale cache delete id=%s: %v", saleID, err)
	}
}

func toItemSpecs(items []domain.SaleItemRequest) []sale.ItemSpec {
	specs := make([]sale.ItemSpec, 0, len(items))
	for _, item := range items {
		specs = append(specs, sale.ItemSpec{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return specs
}

func toSaleResponse(aggregate *sale.Sale) *domain.SaleResponse {
	items := aggregate.Items()
	resp := &domain.SaleResponse{
		ID:           aggregate.ID().String(),
		SaleNumber:   aggregate.SaleNumber(),
		SaleDate:     aggregate.SaleDate(),
		CustomerID:   aggregate.CustomerID(),
		CustomerName: aggregate.CustomerName(),
		BranchID:     aggregate.BranchID(),
		BranchName:   aggregate.BranchName(),
		TotalAmount:  aggregate.TotalAmount(),
		Cancelled:    aggregate.Cancelled(),
		CreatedAt:    aggregate.CreatedAt(),
		UpdatedAt:    aggregate.UpdatedAt(),
		Items:        make([]domain.SaleItemResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, domain.SaleItemResponse{
			ID:              item.ID().String(),
			ProductID:       item.ProductID(),
			ProductName:     item.ProductName(),
			Quantity:        item.Quantity(),
			UnitPrice:       item.UnitPrice(),
			DiscountPercent: item.DiscountPercent(),
			TotalAmount:     item.TotalAmount(),
			Cancelled:       item.Cancelled(),
		})
	}
	return resp
}
