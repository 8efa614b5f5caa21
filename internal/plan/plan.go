// Package plan resolves a subscription plan key into concrete resource
// ceilings and feature flags. The source of truth is the plan_features
// table (the remote configuration store); a hard-coded table is the
// fallback when the remote set is empty or unreadable, so quota
// enforcement keeps working without it.
package plan

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"postpilot/internal/entity"
)

// Plan tiers.
const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanGrowth  = "growth"
	PlanAgency  = "agency"
)

// Metered resource keys. The names match the per-user counter fields the
// quota store maintains.
const (
	ResourceCaptions  = "usedCaptionQuota"
	ResourceImages    = "usedImageQuota"
	ResourcePosts     = "usedPostQuota"
	ResourceExtension = "usedExtensionQuota"
)

// Feature keys as stored in plan_features rows.
const (
	FeatureCaptionLimit   = "captionLimit"
	FeatureImageLimit     = "imageLimit"
	FeaturePostLimit      = "postLimit"
	FeatureExtensionLimit = "extensionLimit"
	FeatureMultiPlatform  = "multiPlatformPosting"
	FeatureScheduling     = "scheduling"
	FeatureAnalytics      = "advancedAnalytics"
)

// unlimitedValue marks a resource with no ceiling in a configured row.
const unlimitedValue = "unlimited"

// Limits are the resolved ceilings and flags for one plan.
// A nil limit means unlimited.
type Limits struct {
	Captions       *int64
	Images         *int64
	Posts          *int64
	ExtensionCalls *int64

	MultiPlatformPosting bool
	Scheduling           bool
	AdvancedAnalytics    bool
}

// LimitFor returns the ceiling for a metered resource key.
func (l Limits) LimitFor(resource string) (*int64, error) {
	switch resource {
	case ResourceCaptions:
		return l.Captions, nil
	case ResourceImages:
		return l.Images, nil
	case ResourcePosts:
		return l.Posts, nil
	case ResourceExtension:
		return l.ExtensionCalls, nil
	default:
		return nil, fmt.Errorf("unknown quota resource %q", resource)
	}
}

func limit(n int64) *int64 {
	return &n
}

// defaults is the in-code fallback table. Values must stay semantically
// compatible with the seeded remote defaults: quota enforcement relies on
// this table whenever the plan_features store is unreachable.
var defaults = map[string]Limits{
	PlanFree: {
		Captions:       limit(5),
		Images:         limit(3),
		Posts:          limit(10),
		ExtensionCalls: limit(25),
	},
	PlanStarter: {
		Captions:             limit(30),
		Images:               limit(15),
		Posts:                limit(60),
		ExtensionCalls:       limit(200),
		MultiPlatformPosting: true,
		Scheduling:           true,
	},
	PlanGrowth: {
		Captions:             limit(150),
		Images:               limit(60),
		Posts:                limit(300),
		ExtensionCalls:       limit(1000),
		MultiPlatformPosting: true,
		Scheduling:           true,
		AdvancedAnalytics:    true,
	},
	PlanAgency: {
		MultiPlatformPosting: true,
		Scheduling:           true,
		AdvancedAnalytics:    true,
	},
}

// Defaults returns a copy of the fallback table, keyed by plan.
func Defaults() map[string]Limits {
	out := make(map[string]Limits, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	return out
}

// FeatureSource reads configured plan feature rows. Satisfied by
// model.Repository; defined here so the resolver does not depend on the
// full repository surface.
type FeatureSource interface {
	ListPlanFeatures(ctx context.Context, planKey string) ([]entity.DbPlanFeature, error)
}

// Resolver maps a plan key to Limits.
type Resolver struct {
	source FeatureSource
}

// NewResolver creates a resolver backed by the given feature source.
// A nil source resolves from the fallback table only.
func NewResolver(source FeatureSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the limits for a plan key. Repeated calls are
// idempotent reads; unknown plan keys resolve to the free tier so an
// invalid key fails safe rather than open.
func (r *Resolver) Resolve(ctx context.Context, planKey string) Limits {
	planKey = strings.TrimSpace(planKey)
	if planKey == "" {
		planKey = PlanFree
	}

	if r != nil && r.source != nil {
		features, err := r.source.ListPlanFeatures(ctx, planKey)
		if err != nil {
			logrus.WithError(err).WithField("plan", planKey).Warn("plan_features_read_failed")
		} else if len(features) > 0 {
			return limitsFromFeatures(planKey, features)
		}
	}

	limits, ok := defaults[planKey]
	if !ok {
		return defaults[PlanFree]
	}
	return limits
}

// limitsFromFeatures builds Limits from configured rows, starting from
// the fallback values so a partially configured plan stays coherent.
func limitsFromFeatures(planKey string, features []entity.DbPlanFeature) Limits {
	limits, ok := defaults[planKey]
	if !ok {
		limits = defaults[PlanFree]
	}

	for _, feature := range features {
		value := strings.TrimSpace(feature.Value)
		switch feature.FeatureKey {
		case FeatureCaptionLimit:
			limits.Captions = parseLimit(planKey, feature.FeatureKey, value, limits.Captions)
		case FeatureImageLimit:
			limits.Images = parseLimit(planKey, feature.FeatureKey, value, limits.Images)
		case FeaturePostLimit:
			limits.Posts = parseLimit(planKey, feature.FeatureKey, value, limits.Posts)
		case FeatureExtensionLimit:
			limits.ExtensionCalls = parseLimit(planKey, feature.FeatureKey, value, limits.ExtensionCalls)
		case FeatureMultiPlatform:
			limits.MultiPlatformPosting = parseFlag(value, limits.MultiPlatformPosting)
		case FeatureScheduling:
			limits.Scheduling = parseFlag(value, limits.Scheduling)
		case FeatureAnalytics:
			limits.AdvancedAnalytics = parseFlag(value, limits.AdvancedAnalytics)
		default:
			logrus.WithFields(logrus.Fields{
				"plan":    planKey,
				"feature": feature.FeatureKey,
			}).Debug("plan_feature_unknown_key")
		}
	}

	return limits
}

func parseLimit(planKey, featureKey, value string, fallback *int64) *int64 {
	if strings.EqualFold(value, unlimitedValue) || strings.EqualFold(value, "null") {
		return nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		logrus.WithFields(logrus.Fields{
			"plan":    planKey,
			"feature": featureKey,
			"value":   value,
		}).Warn("plan_feature_invalid_limit")
		return fallback
	}
	return &n
}

func parseFlag(value string, fallback bool) bool {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
