package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/loyalty-rewards/internal/authz"
	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/service"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// RewardHandler serves the voucher catalog.  Writes purge the cached
// catalog reads.
type RewardHandler struct {
	Rewards     *repository.RewardRepo
	Uploads     Uploads
	Activity    *service.ActivityRecorder
	Redis       *redis.Client
	CachePrefix string
}

func NewRewardHandler(r *repository.RewardRepo, up Uploads, a *service.ActivityRecorder, rdb *redis.Client, cachePrefix string) *RewardHandler {
	return &RewardHandler{Rewards: r, Uploads: up, Activity: a, Redis: rdb, CachePrefix: cachePrefix}
}

type rewardReq struct {
	Name                string  `json:"name" validate:"required,max=160"`
	Description         *string `json:"description" validate:"omitempty,max=2000"`
	PointsCost          int64   `json:"points_cost" validate:"required,min=1"`
	ExpiryDays          int     `json:"expiry_days" validate:"required,min=1,max=3650"`
	IsActive            *bool   `json:"is_active"`
	MinimumRequiredTier string  `json:"minimum_required_tier" validate:"omitempty"`
}

func (r rewardReq) toModel() (model.Reward, error) {
	tier := loyalty.TierBronze
	if r.MinimumRequiredTier != "" {
		t, err := loyalty.ParseTier(r.MinimumRequiredTier)
		if err != nil {
			return model.Reward{}, invalid("minimum_required_tier must be one of: Bronze, Silver, Gold")
		}
		tier = t
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return model.Reward{
		Name:                strings.TrimSpace(r.Name),
		Description:         r.Description,
		PointsCost:          r.PointsCost,
		ExpiryDays:          r.ExpiryDays,
		IsActive:            active,
		MinimumRequiredTier: tier,
	}, nil
}

// List handles GET /v1/rewards.  Inactive rewards are listed only with
// ?all=true for callers who manage rewards.
func (h *RewardHandler) List(c echo.Context) error {
	activeOnly := !(c.QueryParam("all") == "true" && can(c, authz.CapManageRewards))
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Rewards.List(ctx, activeOnly)
	if err != nil {
		return fail(c, err, "list rewards")
	}
	return utils.Success(c, http.StatusOK, list)
}

// Get handles GET /v1/rewards/:id.
func (h *RewardHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	rw, err := h.Rewards.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "load reward")
	}
	if !rw.IsActive && !can(c, authz.CapManageRewards) {
		return utils.Failure(c, http.StatusNotFound, "not found")
	}
	return utils.Success(c, http.StatusOK, rw)
}

// Create handles POST /v1/rewards.
func (h *RewardHandler) Create(c echo.Context) error {
	actor, _ := getUserID(c)
	var req rewardReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "create reward")
	}
	rw, err := req.toModel()
	if err != nil {
		return fail(c, err, "create reward")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	id, err := h.Rewards.Create(ctx, &rw)
	if err != nil {
		return fail(c, err, "create reward")
	}
	created, err := h.Rewards.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "create reward")
	}
	h.changed(c, service.Event(actor, queue.ActionRewardCreated, "reward", id, rw.Name))
	return utils.Success(c, http.StatusCreated, created)
}

// Update handles PUT /v1/rewards/:id.
func (h *RewardHandler) Update(c echo.Context) error {
	actor, _ := getUserID(c)
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	var req rewardReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "update reward")
	}
	rw, err := req.toModel()
	if err != nil {
		return fail(c, err, "update reward")
	}
	rw.ID = id
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Rewards.Update(ctx, &rw); err != nil {
		return fail(c, err, "update reward")
	}
	updated, err := h.Rewards.GetByID(ctx, id)
	if err != nil {
		return fail(c, err, "update reward")
	}
	h.changed(c, service.Event(actor, queue.ActionRewardUpdated, "reward", id, rw.Name))
	return utils.Success(c, http.StatusOK, updated)
}

// Delete handles DELETE /v1/rewards/:id.  Rewards with redeem requests
// cannot be deleted; deactivate them instead.
func (h *RewardHandler) Delete(c echo.Context) error {
	actor, _ := getUserID(c)
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Rewards.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return utils.Failure(c, http.StatusConflict, "reward has redeem requests; deactivate it instead")
		}
		return fail(c, err, "delete reward")
	}
	h.changed(c, service.Event(actor, queue.ActionRewardDeleted, "reward", id, ""))
	return c.NoContent(http.StatusNoContent)
}

// UploadImage handles POST /v1/rewards/:id/image (multipart field "image").
func (h *RewardHandler) UploadImage(c echo.Context) error {
	actor, _ := getUserID(c)
	id, err := parseID(c, "id")
	if err != nil {
		return utils.Failure(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if _, err := h.Rewards.GetByID(ctx, id); err != nil {
		return fail(c, err, "upload image")
	}
	path, err := h.Uploads.saveImage(c, "image")
	if err != nil {
		return fail(c, err, "upload image")
	}
	if err := h.Rewards.SetImage(ctx, id, path); err != nil {
		return fail(c, err, "upload image")
	}
	h.changed(c, service.Event(actor, queue.ActionRewardUpdated, "reward", id, "image"))
	return utils.Success(c, http.StatusOK, echo.Map{"image_path": path})
}

func (h *RewardHandler) changed(c echo.Context, ev queue.ActivityEvent) {
	ctx := c.Request().Context()
	if err := middleware.PurgeCache(ctx, h.Redis, h.CachePrefix); err != nil {
		logrus.WithError(err).Warn("purge reward cache failed")
	}
	h.Activity.Record(ctx, ev)
}
