package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/api/middleware"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
)

type actorContext struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

func requireActor(r *http.Request) (actorContext, error) {
	userID, err := requireUserID(r)
	if err != nil {
		return actorContext{}, err
	}
	role, err := enums.ParseMemberRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return actorContext{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "unknown actor role")
	}
	return actorContext{UserID: userID, Role: role}, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing path parameter").WithDetails(map[string]any{"field": name})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"field": name})
	}
	return &id, nil
}

type movementResponse struct {
	Seq            int64     `json:"seq"`
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	LocationID     uuid.UUID `json:"location_id"`
	Kind           string    `json:"kind"`
	QuantityDelta  int       `json:"quantity_delta"`
	SourceRef      *string   `json:"source_ref,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	ActorUserID    uuid.UUID `json:"actor_user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func newMovementResponse(m *models.StockMovement) movementResponse {
	return movementResponse{
		Seq:            m.Seq,
		ID:             m.ID,
		ProductID:      m.ProductID,
		LocationID:     m.LocationID,
		Kind:           string(m.Kind),
		QuantityDelta:  m.QuantityDelta,
		SourceRef:      m.SourceRef,
		IdempotencyKey: m.IdempotencyKey,
		ActorUserID:    m.ActorUserID,
		CreatedAt:      m.CreatedAt,
	}
}

func newMovementResponses(rows []models.StockMovement) []movementResponse {
	out := make([]movementResponse, 0, len(rows))
	for i := range rows {
		out = append(out, newMovementResponse(&rows[i]))
	}
	return out
}
