package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/common/logger"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"go.uber.org/zap"
)

// Deduper remembers message references so a redelivered receipt is applied
// once.
type Deduper interface {
	// FirstSeen reports true the first time key is offered.
	FirstSeen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string)
}

// RedisDeduper keeps references as SET NX keys with a retention window.
type RedisDeduper struct {
	client    redis.UniversalClient
	retention time.Duration
}

func NewRedisDeduper(client redis.UniversalClient, retention time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, retention: retention}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, "restock:"+key, 1, d.retention).Result()
}

func (d *RedisDeduper) Forget(ctx context.Context, key string) {
	_ = d.client.Del(ctx, "restock:"+key).Err()
}

// RestockService applies warehouse receipts that arrive on a queue to central
// stock.
type RestockService struct {
	ledger *LedgerService
	dedupe Deduper
}

// NewRestockService creates a RestockService. A nil dedupe applies every
// delivery.
func NewRestockService(ledger *LedgerService, dedupe Deduper) *RestockService {
	return &RestockService{ledger: ledger, dedupe: dedupe}
}

// HandleMessage is an SQS message handler. Malformed or invalid receipts are
// logged and acknowledged; only dependency failures are left for redelivery.
func (s *RestockService) HandleMessage(ctx context.Context, body string) error {
	var envelope struct {
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		body = envelope.Message
	}

	var msg models.RestockMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		logger.Warn(ctx, "Discarding malformed restock message", zap.Error(err))
		return nil
	}
	if msg.Action == "" {
		msg.Action = models.StockAdd
	}
	if !msg.Action.Valid() {
		logger.Warn(ctx, "Discarding restock message with unknown action", zap.String("action", string(msg.Action)))
		return nil
	}

	if s.dedupe != nil && msg.Reference != "" {
		first, err := s.dedupe.FirstSeen(ctx, msg.Reference)
		if err != nil {
			return err
		}
		if !first {
			logger.Info(ctx, "Skipping duplicate restock message", zap.String("reference", msg.Reference))
			return nil
		}
	}

	qty, err := s.ledger.ApplyCentral(ctx, msg.ProductID, msg.Quantity, msg.Action)
	if err != nil {
		if errors.Is(err, apperrors.ErrDependencyUnavailable) {
			if s.dedupe != nil && msg.Reference != "" {
				s.dedupe.Forget(ctx, msg.Reference)
			}
			return err
		}
		logger.Warn(ctx, "Rejected restock message",
			zap.String("product_id", msg.ProductID),
			zap.String("reference", msg.Reference),
			zap.Error(err),
		)
		return nil
	}

	logger.Info(ctx, "Restock applied",
		zap.String("product_id", msg.ProductID),
		zap.String("action", string(msg.Action)),
		zap.Int("quantity", qty),
		zap.String("reference", msg.Reference),
	)
	return nil
}
