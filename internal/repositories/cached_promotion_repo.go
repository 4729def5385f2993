package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/HuuVinh0901/shoe-store-backend/internal/models"
)

const promotionCachePrefix = "shoe-store:promotion:"

// CachedPromotionRepository puts a redis read-through cache in front of FindByID.
// FindActive always goes to the primary store since its answer depends on the clock.
type CachedPromotionRepository struct {
	primaryRepo PromotionRepository
	redisClient redis.Cmdable
	ttl         time.Duration
	logger      *zap.Logger
}

// NewCachedPromotionRepository wraps primary with a redis cache.
func NewCachedPromotionRepository(
	primary PromotionRepository,
	redisClient redis.Cmdable,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *CachedPromotionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedPromotionRepository{
		primaryRepo: primary,
		redisClient: redisClient,
		ttl:         cacheTTL,
		logger:      logger,
	}
}

// FindByID serves from cache when possible. Cache failures fall through to the primary
// store.
func (r *CachedPromotionRepository) FindByID(ctx context.Context, id string) (*models.Promotion, error) {
	cacheKey := promotionCachePrefix + id

	cached, err := r.redisClient.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var promo models.Promotion
		if err := json.Unmarshal(cached, &promo); err == nil {
			return &promo, nil
		}
	} else if err != redis.Nil {
		r.logger.Debug("promotion cache read failed", zap.String("promotion_id", id), zap.Error(err))
	}

	promo, err := r.primaryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(promo)
	if err == nil {
		if err := r.redisClient.Set(ctx, cacheKey, data, r.ttl).Err(); err != nil {
			r.logger.Debug("promotion cache write failed", zap.String("promotion_id", id), zap.Error(err))
		}
	}
	return promo, nil
}

// FindActive delegates to the primary store.
func (r *CachedPromotionRepository) FindActive(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	return r.primaryRepo.FindActive(ctx, now)
}

// Create delegates and drops any stale cache entry.
func (r *CachedPromotionRepository) Create(ctx context.Context, promo *models.Promotion) error {
	if err := r.primaryRepo.Create(ctx, promo); err != nil {
		return err
	}
	r.redisClient.Del(ctx, promotionCachePrefix+promo.ID)
	return nil
}
