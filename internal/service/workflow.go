package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mergeflow/internal/apperrors"
	"mergeflow/internal/merge"
	"mergeflow/internal/metrics"
	"mergeflow/internal/model"
	"mergeflow/internal/repository"
	v1 "mergeflow/pkg/api/v1"
	"mergeflow/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const LiveRootPrefix = "/mergeflow/"

func BuildLiveKey(project, key string) string {
	return fmt.Sprintf("%s%s/features/%s", LiveRootPrefix, project, key)
}

// WorkflowService drives a revision through its lifecycle: draft edits,
// review requests, review submissions, discard and the atomic publish.
// All transitions are recorded in the audit trail within the same
// transaction that performs them.
type WorkflowService struct {
	db           *gorm.DB
	features     repository.FeatureInterface
	revisions    repository.RevisionInterface
	reviews      repository.ReviewInterface
	audits       repository.AuditInterface
	outbox       repository.OutboxInterface
	liveRepo     *repository.LiveRepository
	settings     SettingsProvider
	caps         CapabilityChecker
	observer     metrics.WorkflowObserver
	environments []string
}

func NewWorkflowService(
	db *gorm.DB,
	features repository.FeatureInterface,
	revisions repository.RevisionInterface,
	reviews repository.ReviewInterface,
	audits repository.AuditInterface,
	outbox repository.OutboxInterface,
	liveRepo *repository.LiveRepository,
	settings SettingsProvider,
	caps CapabilityChecker,
	observer metrics.WorkflowObserver,
	environments []string,
) *WorkflowService {
	return &WorkflowService{
		db:           db,
		features:     features,
		revisions:    revisions,
		reviews:      reviews,
		audits:       audits,
		outbox:       outbox,
		liveRepo:     liveRepo,
		settings:     settings,
		caps:         caps,
		observer:     observer,
		environments: environments,
	}
}

func (s *WorkflowService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.db == nil {
		return fn(nil)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *WorkflowService) featureRepo(tx *gorm.DB) repository.FeatureInterface {
	if tx == nil {
		return s.features
	}
	return s.features.WithTx(tx)
}

func (s *WorkflowService) revisionRepo(tx *gorm.DB) repository.RevisionInterface {
	if tx == nil {
		return s.revisions
	}
	return s.revisions.WithTx(tx)
}

func (s *WorkflowService) reviewRepo(tx *gorm.DB) repository.ReviewInterface {
	if tx == nil {
		return s.reviews
	}
	return s.reviews.WithTx(tx)
}

func (s *WorkflowService) auditRepo(tx *gorm.DB) repository.AuditInterface {
	if tx == nil {
		return s.audits
	}
	return s.audits.WithTx(tx)
}

func (s *WorkflowService) outboxRepo(tx *gorm.DB) repository.OutboxInterface {
	if tx == nil {
		return s.outbox
	}
	return s.outbox.WithTx(tx)
}

// SaveDraft creates a new draft (version == 0) or updates an open one.
// Editing a reviewed revision drops it back to draft and starts a new
// review round: earlier verdicts stay in history but lose authority.
func (s *WorkflowService) SaveDraft(ctx context.Context, project, key string, version int, cfg v1.RevisionConfig, comment string) (*model.FeatureRevision, error) {
	op := GetOperatorInfo(ctx)
	if !s.caps.CanEdit(op, project) {
		return nil, apperrors.Permission("not allowed to edit features in this project")
	}

	var out *model.FeatureRevision
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		features := s.featureRepo(tx)
		revisions := s.revisionRepo(tx)

		feature, err := features.GetByKey(ctx, project, key)
		if err != nil {
			return err
		}
		if feature == nil {
			feature = &model.FeatureMaster{Project: project, Key: key}
			if err := features.Save(ctx, feature); err != nil {
				return err
			}
		}

		rulesJSON, err := encodeRuleMap(cfg.Rules)
		if err != nil {
			return apperrors.Validation("malformed rules payload")
		}

		var rev *model.FeatureRevision
		oldStatus := ""
		if version == 0 {
			maxVersion, err := revisions.MaxVersion(ctx, feature.ID)
			if err != nil {
				return err
			}
			rev = &model.FeatureRevision{
				FeatureID:    feature.ID,
				Version:      maxInt(maxVersion, feature.LiveVersion) + 1,
				BaseVersion:  feature.LiveVersion,
				Status:       model.StatusDraft,
				DefaultValue: cfg.DefaultValue,
				RulesJSON:    rulesJSON,
				Comment:      comment,
				CreatedBy:    op.Name,
				CreatedAt:    time.Now(),
			}
			if err := revisions.Create(ctx, rev); err != nil {
				return err
			}
		} else {
			rev, err = revisions.GetByVersion(ctx, feature.ID, version)
			if err != nil {
				return err
			}
			if rev == nil {
				return apperrors.NotFound(fmt.Sprintf("revision %d of feature %s not found", version, key))
			}
			if rev.Status.Terminal() {
				return apperrors.IllegalTransition(string(rev.Status), string(model.StatusDraft))
			}
			oldStatus = string(rev.Status)
			if rev.Status != model.StatusDraft {
				// new edits reset review expectations
				rev.Status = model.StatusDraft
				rev.ReviewRound++
			}
			rev.DefaultValue = cfg.DefaultValue
			rev.RulesJSON = rulesJSON
			rev.Comment = comment
			if err := revisions.Save(ctx, rev); err != nil {
				return err
			}
		}

		if err := s.appendAudit(ctx, tx, feature, rev, model.AuditEdit, oldStatus, string(rev.Status), comment); err != nil {
			return err
		}
		out = rev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RequestReview moves a draft to pending-review and returns the read-only
// merge preview. Calling it again while already pending-review is a no-op
// returning the same (recomputed, pure) preview.
func (s *WorkflowService) RequestReview(ctx context.Context, project, key string, version int, comment string) (*model.FeatureRevision, merge.Result, error) {
	op := GetOperatorInfo(ctx)

	var outRev *model.FeatureRevision
	var preview merge.Result
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		feature, rev, err := s.loadFeatureRevision(ctx, tx, project, key, version)
		if err != nil {
			return err
		}

		if rev.CreatedBy != op.Name && !s.caps.CanEdit(op, project) {
			return apperrors.Permission("only the author or an editor may request review")
		}

		switch rev.Status {
		case model.StatusDraft:
			// proceed below
		case model.StatusPendingReview:
			preview, err = s.mergePreview(ctx, tx, feature, rev)
			if err != nil {
				return err
			}
			outRev = rev
			return nil
		case model.StatusApproved, model.StatusChangesRequested, model.StatusPublished, model.StatusDiscarded:
			return apperrors.IllegalTransition(string(rev.Status), string(model.StatusPendingReview))
		default:
			return apperrors.Validation(fmt.Sprintf("unknown revision status %q", rev.Status))
		}

		preview, err = s.mergePreview(ctx, tx, feature, rev)
		if err != nil {
			return err
		}

		ok, err := s.revisionRepo(tx).TransitionStatus(ctx, rev.ID, []model.RevisionStatus{model.StatusDraft}, model.StatusPendingReview, op.Name)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Conflict("revision changed state concurrently, reload and retry")
		}
		rev.Status = model.StatusPendingReview

		if err := s.appendAudit(ctx, tx, feature, rev, model.AuditRequestReview, string(model.StatusDraft), string(rev.Status), comment); err != nil {
			return err
		}
		outRev = rev
		return nil
	})
	if err != nil {
		return nil, merge.Result{}, err
	}
	return outRev, preview, nil
}

// SubmitReview records one reviewer's verdict and recomputes the revision
// status from the authoritative (latest per reviewer, current round) set.
func (s *WorkflowService) SubmitReview(ctx context.Context, project, key string, version int, verdict model.ReviewVerdict, comment string) (*model.FeatureRevision, error) {
	op := GetOperatorInfo(ctx)
	if !verdict.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown review verdict %q", verdict))
	}

	var out *model.FeatureRevision
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		feature, rev, err := s.loadFeatureRevision(ctx, tx, project, key, version)
		if err != nil {
			return err
		}

		switch rev.Status {
		case model.StatusPendingReview, model.StatusApproved, model.StatusChangesRequested:
			// reviewable
		case model.StatusDraft, model.StatusPublished, model.StatusDiscarded:
			return apperrors.IllegalTransition(string(rev.Status), "review")
		default:
			return apperrors.Validation(fmt.Sprintf("unknown revision status %q", rev.Status))
		}

		if op.Name == rev.CreatedBy {
			return apperrors.Permission("authors cannot review their own revision")
		}

		reviews := s.reviewRepo(tx)
		if err := reviews.Create(ctx, &model.ReviewSubmission{
			RevisionID:  rev.ID,
			Reviewer:    op.Name,
			Verdict:     verdict,
			Comment:     comment,
			Round:       rev.ReviewRound,
			SubmittedAt: time.Now(),
		}); err != nil {
			return err
		}

		latest, err := reviews.LatestPerReviewer(ctx, rev.ID, rev.ReviewRound)
		if err != nil {
			return err
		}
		next, err := reviewOutcome(latest, s.settings.ReviewPolicy(project))
		if err != nil {
			return err
		}

		oldStatus := rev.Status
		if next != rev.Status {
			ok, err := s.revisionRepo(tx).TransitionStatus(ctx, rev.ID,
				[]model.RevisionStatus{model.StatusPendingReview, model.StatusApproved, model.StatusChangesRequested}, next, op.Name)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.Conflict("revision changed state concurrently, reload and retry")
			}
			rev.Status = next
		}

		if err := s.appendAudit(ctx, tx, feature, rev, model.AuditSubmitReview, string(oldStatus), string(rev.Status), string(verdict)); err != nil {
			return err
		}
		out = rev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// reviewOutcome folds the authoritative submissions into the next status.
// Policy: any outstanding changes-requested blocks, regardless of later
// approvals by other reviewers, unless the org disables that.
func reviewOutcome(latest map[string]model.ReviewSubmission, policy model.ReviewPolicy) (model.RevisionStatus, error) {
	anyApproved := false
	anyChangesRequested := false
	for _, sub := range latest {
		switch sub.Verdict {
		case model.VerdictApproved:
			anyApproved = true
		case model.VerdictChangesRequested:
			anyChangesRequested = true
		case model.VerdictComment:
			// no gating effect
		default:
			return "", apperrors.Validation(fmt.Sprintf("unknown review verdict %q", sub.Verdict))
		}
	}

	if anyChangesRequested && (policy.BlockOnChangesRequested || !anyApproved) {
		return model.StatusChangesRequested, nil
	}
	if anyApproved {
		return model.StatusApproved, nil
	}
	return model.StatusPendingReview, nil
}

// Discard closes a revision without publishing. Discarding an already
// discarded revision is a no-op; a published one cannot be discarded.
func (s *WorkflowService) Discard(ctx context.Context, project, key string, version int) error {
	op := GetOperatorInfo(ctx)
	if !s.caps.CanEdit(op, project) {
		return apperrors.Permission("not allowed to discard revisions in this project")
	}

	return s.withTx(ctx, func(tx *gorm.DB) error {
		feature, rev, err := s.loadFeatureRevision(ctx, tx, project, key, version)
		if err != nil {
			return err
		}

		switch rev.Status {
		case model.StatusDiscarded:
			return nil
		case model.StatusPublished:
			return apperrors.IllegalTransition(string(model.StatusPublished), string(model.StatusDiscarded))
		case model.StatusDraft, model.StatusPendingReview, model.StatusApproved, model.StatusChangesRequested:
			// proceed
		default:
			return apperrors.Validation(fmt.Sprintf("unknown revision status %q", rev.Status))
		}

		oldStatus := rev.Status
		ok, err := s.revisionRepo(tx).TransitionStatus(ctx, rev.ID,
			[]model.RevisionStatus{model.StatusDraft, model.StatusPendingReview, model.StatusApproved, model.StatusChangesRequested},
			model.StatusDiscarded, op.Name)
		if err != nil {
			return err
		}
		if !ok {
			// lost the race against another terminal transition
			current, err := s.revisionRepo(tx).GetByVersion(ctx, feature.ID, version)
			if err != nil {
				return err
			}
			if current != nil && current.Status == model.StatusDiscarded {
				return nil
			}
			return apperrors.Conflict("revision was published concurrently")
		}
		rev.Status = model.StatusDiscarded

		return s.appendAudit(ctx, tx, feature, rev, model.AuditDiscard, string(oldStatus), string(rev.Status), "")
	})
}

// Publish re-merges against the current live state under an optimistic
// concurrency guard and atomically promotes the draft to live. The version
// check and the swap happen in one transaction; a racing publish makes this
// one fail with a stale-state error instead of silently overwriting.
func (s *WorkflowService) Publish(ctx context.Context, project, key string, version, expectedLiveVersion int) (*v1.LiveConfig, error) {
	op := GetOperatorInfo(ctx)

	var liveCfg v1.LiveConfig
	var outboxID uint64
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		feature, rev, err := s.loadFeatureRevision(ctx, tx, project, key, version)
		if err != nil {
			return err
		}

		policy := s.settings.ReviewPolicy(project)
		switch rev.Status {
		case model.StatusApproved:
			// always publishable
		case model.StatusDraft, model.StatusPendingReview:
			if policy.RequireReview {
				return apperrors.Permission("revision must be approved before publish")
			}
		case model.StatusChangesRequested:
			return apperrors.Permission("requested changes must be resolved before publish")
		case model.StatusPublished, model.StatusDiscarded:
			return apperrors.IllegalTransition(string(rev.Status), string(model.StatusPublished))
		default:
			return apperrors.Validation(fmt.Sprintf("unknown revision status %q", rev.Status))
		}

		live := featureConfig(feature)
		draft, err := revisionConfig(rev)
		if err != nil {
			return err
		}

		if !s.caps.CanPublish(op, project, affectedEnvironments(live, draft)) {
			return apperrors.Permission("not allowed to publish to the affected environments")
		}

		checklist := EvaluateChecklist(feature, live, draft, s.settings.ChecklistConfig(project))
		if checklist.BlockingRemaining > 0 {
			keys := make([]string, 0, checklist.BlockingRemaining)
			for _, item := range checklist.Items {
				if item.Blocking && item.Status == model.ChecklistIncomplete {
					keys = append(keys, item.Key)
				}
			}
			return apperrors.Conflict("checklist incomplete", keys...)
		}

		if expectedLiveVersion != 0 && feature.LiveVersion != expectedLiveVersion {
			return apperrors.StaleState(fmt.Sprintf("live version is %d, expected %d; re-request a preview", feature.LiveVersion, expectedLiveVersion))
		}

		base, err := s.configForVersion(ctx, tx, feature, rev.BaseVersion)
		if err != nil {
			return err
		}
		// fresh merge against current live, never a cached preview
		res := merge.Compute(live, base, draft, s.environments)
		if !res.Success {
			if s.observer != nil {
				s.observer.RecordMergeConflict()
			}
			return apperrors.Conflict("merge conflicts present", res.Conflicts...)
		}

		mergedRules, err := encodeRuleMap(res.Rules)
		if err != nil {
			return err
		}

		ok, err := s.featureRepo(tx).PromoteLive(ctx, feature.ID, feature.LiveVersion, rev.Version, res.DefaultValue, mergedRules, op.Name)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.StaleState("live state changed during publish; re-request a preview")
		}

		// The published row must equal the live state this publish produced,
		// not the draft as edited: configForVersion reads it back as the
		// merge base for later branches. Persisted before the status swap so
		// the full-row save cannot clobber the terminal stamps.
		rev.DefaultValue = res.DefaultValue
		rev.RulesJSON = mergedRules
		if err := s.revisionRepo(tx).Save(ctx, rev); err != nil {
			return err
		}

		ok, err = s.revisionRepo(tx).TransitionStatus(ctx, rev.ID,
			[]model.RevisionStatus{model.StatusDraft, model.StatusPendingReview, model.StatusApproved},
			model.StatusPublished, op.Name)
		if err != nil {
			return err
		}
		if !ok {
			// a concurrent discard or publish already closed this revision
			return apperrors.Conflict("revision was closed concurrently")
		}
		oldStatus := rev.Status
		rev.Status = model.StatusPublished

		if err := s.appendAudit(ctx, tx, feature, rev, model.AuditPublish, string(oldStatus), string(rev.Status), rev.Comment); err != nil {
			return err
		}

		liveCfg = v1.LiveConfig{
			Project:      feature.Project,
			Key:          feature.Key,
			Type:         feature.Type,
			Version:      rev.Version,
			DefaultValue: res.DefaultValue,
			Rules:        res.Rules,
		}
		task := &model.OutboxTask{
			Key:     BuildLiveKey(feature.Project, feature.Key),
			Payload: liveCfg.ToJSON(),
			Status:  model.StatusPending,
			TraceID: GetTraceID(ctx),
		}
		if err := s.outboxRepo(tx).Create(ctx, task); err != nil {
			return err
		}
		outboxID = uint64(task.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.observer != nil {
		s.observer.RecordPublish()
	}
	logger.Info("revision published",
		zap.String("project", project),
		zap.String("key", key),
		zap.Int("version", version),
		zap.String("operator", op.Name))

	// fast path; the outbox worker retries if this loses the race or fails
	go s.syncToEtcd(outboxID, liveCfg)

	return &liveCfg, nil
}

func (s *WorkflowService) syncToEtcd(outboxID uint64, cfg v1.LiveConfig) {
	if s.liveRepo == nil {
		return
	}
	fullKey := BuildLiveKey(cfg.Project, cfg.Key)
	if _, err := s.liveRepo.SaveLiveIfNewer(context.Background(), fullKey, cfg); err != nil {
		logger.Warn("failed to sync live config to etcd", zap.String("key", cfg.Key), zap.Error(err))
		return
	}
	_ = s.outbox.UpdateStatus(context.Background(), outboxID, model.StatusCompleted, 0)
}

// MergePreview recomputes the read-only merge preview for a revision.
func (s *WorkflowService) MergePreview(ctx context.Context, project, key string, version int) (merge.Result, error) {
	var preview merge.Result
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		feature, rev, err := s.loadFeatureRevision(ctx, tx, project, key, version)
		if err != nil {
			return err
		}
		preview, err = s.mergePreview(ctx, tx, feature, rev)
		return err
	})
	return preview, err
}

// Checklist evaluates the publish checklist for a revision.
func (s *WorkflowService) Checklist(ctx context.Context, project, key string, version int) (ChecklistResult, error) {
	var out ChecklistResult
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		feature, rev, err := s.loadFeatureRevision(ctx, tx, project, key, version)
		if err != nil {
			return err
		}
		draft, err := revisionConfig(rev)
		if err != nil {
			return err
		}
		out = EvaluateChecklist(feature, featureConfig(feature), draft, s.settings.ChecklistConfig(project))
		return nil
	})
	return out, err
}

// SetChecklistItem persists one manual checklist toggle on the feature.
func (s *WorkflowService) SetChecklistItem(ctx context.Context, project, key, itemKey string, complete bool) error {
	op := GetOperatorInfo(ctx)
	if !s.caps.CanEdit(op, project) {
		return apperrors.Permission("not allowed to edit the checklist in this project")
	}
	return s.withTx(ctx, func(tx *gorm.DB) error {
		features := s.featureRepo(tx)
		feature, err := features.GetByKey(ctx, project, key)
		if err != nil {
			return err
		}
		if feature == nil {
			return apperrors.NotFound(fmt.Sprintf("feature %s not found", key))
		}
		state := decodeChecklistState(feature.ChecklistJSON)
		if complete {
			state[itemKey] = string(model.ChecklistComplete)
		} else {
			state[itemKey] = string(model.ChecklistIncomplete)
		}
		return features.SaveChecklist(ctx, feature.ID, encodeChecklistState(state))
	})
}

// Rollback opens a new draft carrying a historical revision's configuration.
// The draft then goes through the normal review and publish workflow; live
// state is never rewritten in place.
func (s *WorkflowService) Rollback(ctx context.Context, project, key string, version int, comment string) (*model.FeatureRevision, error) {
	var cfg v1.RevisionConfig
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		_, rev, err := s.loadFeatureRevision(ctx, tx, project, key, version)
		if err != nil {
			return err
		}
		cfg, err = revisionConfig(rev)
		return err
	})
	if err != nil {
		return nil, err
	}
	if comment == "" {
		comment = fmt.Sprintf("rollback to version %d", version)
	}
	return s.SaveDraft(ctx, project, key, 0, cfg, comment)
}

// Reviews returns the full submission history for a revision.
func (s *WorkflowService) Reviews(ctx context.Context, project, key string, version int) ([]model.ReviewSubmission, error) {
	var subs []model.ReviewSubmission
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		_, rev, err := s.loadFeatureRevision(ctx, tx, project, key, version)
		if err != nil {
			return err
		}
		subs, err = s.reviewRepo(tx).ListByRevision(ctx, rev.ID)
		return err
	})
	return subs, err
}

func (s *WorkflowService) mergePreview(ctx context.Context, tx *gorm.DB, feature *model.FeatureMaster, rev *model.FeatureRevision) (merge.Result, error) {
	live := featureConfig(feature)
	draft, err := revisionConfig(rev)
	if err != nil {
		return merge.Result{}, err
	}
	base, err := s.configForVersion(ctx, tx, feature, rev.BaseVersion)
	if err != nil {
		return merge.Result{}, err
	}
	return merge.Compute(live, base, draft, s.environments), nil
}

// configForVersion resolves the configuration a draft branched from. The
// base equals current live when nothing was published in between; historic
// bases are read from the retained published revision, whose row holds the
// merged state that publish produced.
func (s *WorkflowService) configForVersion(ctx context.Context, tx *gorm.DB, feature *model.FeatureMaster, version int) (v1.RevisionConfig, error) {
	if version == 0 {
		return v1.RevisionConfig{}, nil
	}
	if version == feature.LiveVersion {
		return featureConfig(feature), nil
	}
	rev, err := s.revisionRepo(tx).GetByVersion(ctx, feature.ID, version)
	if err != nil {
		return v1.RevisionConfig{}, err
	}
	if rev == nil {
		return v1.RevisionConfig{}, apperrors.NotFound(fmt.Sprintf("base revision %d of feature %s not found", version, feature.Key))
	}
	return revisionConfig(rev)
}

func (s *WorkflowService) loadFeatureRevision(ctx context.Context, tx *gorm.DB, project, key string, version int) (*model.FeatureMaster, *model.FeatureRevision, error) {
	feature, err := s.featureRepo(tx).GetByKey(ctx, project, key)
	if err != nil {
		return nil, nil, err
	}
	if feature == nil {
		return nil, nil, apperrors.NotFound(fmt.Sprintf("feature %s not found", key))
	}
	rev, err := s.revisionRepo(tx).GetByVersion(ctx, feature.ID, version)
	if err != nil {
		return nil, nil, err
	}
	if rev == nil {
		return nil, nil, apperrors.NotFound(fmt.Sprintf("revision %d of feature %s not found", version, key))
	}
	return feature, rev, nil
}

func (s *WorkflowService) appendAudit(ctx context.Context, tx *gorm.DB, feature *model.FeatureMaster, rev *model.FeatureRevision, event model.AuditEvent, oldStatus, newStatus, detail string) error {
	return s.auditRepo(tx).Create(ctx, &model.FeatureAudit{
		Project:         feature.Project,
		Key:             feature.Key,
		RevisionVersion: rev.Version,
		Event:           event,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
		Detail:          detail,
		Operator:        GetOperator(ctx),
		TraceID:         GetTraceID(ctx),
		IP:              GetClientIP(ctx),
	})
}

// affectedEnvironments lists environments where the draft differs from
// live, used for the capability check.
func affectedEnvironments(live, draft v1.RevisionConfig) []string {
	envs := make(map[string]bool)
	for env := range live.Rules {
		envs[env] = true
	}
	for env := range draft.Rules {
		envs[env] = true
	}
	var affected []string
	for env := range envs {
		if len(live.Rules[env]) == 0 && len(draft.Rules[env]) == 0 {
			continue
		}
		a, _ := json.Marshal(live.Rules[env])
		b, _ := json.Marshal(draft.Rules[env])
		if string(a) != string(b) {
			affected = append(affected, env)
		}
	}
	return affected
}

func featureConfig(feature *model.FeatureMaster) v1.RevisionConfig {
	rules, err := decodeRuleMap(feature.RulesJSON)
	if err != nil {
		rules = nil
	}
	return v1.RevisionConfig{DefaultValue: feature.DefaultValue, Rules: rules}
}

func revisionConfig(rev *model.FeatureRevision) (v1.RevisionConfig, error) {
	rules, err := decodeRuleMap(rev.RulesJSON)
	if err != nil {
		return v1.RevisionConfig{}, apperrors.Validation("malformed revision rules")
	}
	return v1.RevisionConfig{DefaultValue: rev.DefaultValue, Rules: rules}, nil
}

func encodeRuleMap(rules map[string][]v1.Rule) (string, error) {
	if len(rules) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(rules)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRuleMap(raw string) (map[string][]v1.Rule, error) {
	if raw == "" {
		return nil, nil
	}
	var rules map[string][]v1.Rule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
