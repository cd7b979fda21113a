package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartinventory/inventory-backend/internal/ledger"
	"github.com/smartinventory/inventory-backend/pkg/config"
	"github.com/smartinventory/inventory-backend/pkg/db/models"
	"github.com/smartinventory/inventory-backend/pkg/enums"
	pkgerrors "github.com/smartinventory/inventory-backend/pkg/errors"
	"github.com/smartinventory/inventory-backend/pkg/logger"
)

// Service converts raw barcode reads into validated ledger movements,
// suppressing double scans from the same session.
type Service interface {
	Ingest(ctx context.Context, input IngestInput) (*Result, error)
}

// IngestInput is one raw scan from a device session.
type IngestInput struct {
	RawSKU      string
	Quantity    int
	SessionID   string
	Kind        enums.MovementKind
	LocationID  uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.MemberRole
}

// Result reports the movement produced for an accepted scan.
type Result struct {
	ProductID      uuid.UUID
	Movement       *models.StockMovement
	IdempotencyKey string
}

// SKUResolver looks up catalog products by SKU.
type SKUResolver interface {
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
}

type movementApplier interface {
	Apply(ctx context.Context, input ledger.ApplyInput) (*models.StockMovement, error)
}

type service struct {
	resolver SKUResolver
	applier  movementApplier
	debounce *debouncer
	cfg      config.ScanConfig
	clock    func() time.Time
	logg     *logger.Logger
}

// NewService wires a scan ingestor over the catalog and the stock ledger.
func NewService(resolver SKUResolver, applier movementApplier, cfg config.ScanConfig, logg *logger.Logger) (Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("sku resolver required")
	}
	if applier == nil {
		return nil, fmt.Errorf("movement applier required")
	}
	if cfg.DebounceWindow <= 0 {
		return nil, fmt.Errorf("debounce window must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &service{
		resolver: resolver,
		applier:  applier,
		debounce: newDebouncer(cfg.DebounceWindow),
		cfg:      cfg,
		clock:    time.Now,
		logg:     logg,
	}, nil
}

func (s *service) Ingest(ctx context.Context, input IngestInput) (*Result, error) {
	rawSKU := strings.TrimSpace(input.RawSKU)
	if rawSKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	if strings.TrimSpace(input.SessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement kind %q", input.Kind))
	}
	if input.LocationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor user id is required")
	}

	product, err := s.resolver.GetProductBySKU(ctx, rawSKU)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnknownSKU, "sku is not in the catalog").
			WithDetails(map[string]any{"sku": rawSKU})
	}

	now := s.clock()
	debounceKey := input.SessionID + "|" + rawSKU
	if s.debounce.observe(debounceKey, now) {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"session_id": input.SessionID,
				"sku":        rawSKU,
			})
			s.logg.Info(logCtx, "duplicate scan suppressed")
		}
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateScan, "scan suppressed as a duplicate read").
			WithDetails(map[string]any{"sku": rawSKU})
	}
	s.debounce.prune(now, s.cfg.SessionTTL)

	key := idempotencyKeyFor(input.SessionID, rawSKU, now, s.cfg.DebounceWindow)
	movement, err := s.applier.Apply(ctx, ledger.ApplyInput{
		Kind:           input.Kind,
		ProductID:      product.ID,
		LocationID:     input.LocationID,
		Quantity:       input.Quantity,
		IdempotencyKey: key,
		ActorUserID:    input.ActorUserID,
		ActorRole:      input.ActorRole,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		ProductID:      product.ID,
		Movement:       movement,
		IdempotencyKey: key,
	}, nil
}

// idempotencyKeyFor buckets the scan timestamp by the debounce window so a
// replayed scan of the same physical read maps to the same ledger key.
func idempotencyKeyFor(sessionID, sku string, at time.Time, window time.Duration) string {
	bucket := at.UnixMilli() / window.Milliseconds()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", sessionID, sku, bucket)))
	return hex.EncodeToString(sum[:])
}
